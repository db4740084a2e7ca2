package cmd

import (
	_ "hello-kubecon/cmd/action"
	_ "hello-kubecon/cmd/hook"
	_ "hello-kubecon/cmd/options"
	_ "hello-kubecon/cmd/root"
	_ "hello-kubecon/cmd/server"
	_ "hello-kubecon/cmd/service"
	_ "hello-kubecon/cmd/unit"
)
