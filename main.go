package main

import (
	"os"

	_ "hello-kubecon/cmd"
	"hello-kubecon/cmd/root"
	"hello-kubecon/internal/env"
	"hello-kubecon/internal/logger"
)

func main() {
	// 服务器模式同时输出到控制台
	env.Daemon = len(os.Args) > 1 && os.Args[1] == "server"

	err := root.RootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
