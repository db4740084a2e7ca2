package server

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"hello-kubecon/internal/logger"
)

type ListenAddr struct {
	Network string
	Address string
}

/**
 * Prepare the unix socket the CLI talks to
 * @param {string} socket - Socket path from server.socket
 * @returns {ListenAddr} Unix listen address
 * @returns {error} Socket dir cannot be created or the platform has no AF_UNIX
 * @description
 * - 创建socket所在目录
 * - windows上先试着监听一次，旧版本不支持AF_UNIX
 * - 出错时调用方只监听tcp
 */
func unixSocketAddr(socket string) (ListenAddr, error) {
	if err := os.MkdirAll(filepath.Dir(socket), 0755); err != nil {
		return ListenAddr{}, fmt.Errorf("create socket dir: %w", err)
	}
	if runtime.GOOS == "windows" {
		trial := socket + ".trial"
		l, err := net.Listen("unix", trial)
		if err != nil {
			return ListenAddr{}, fmt.Errorf("unix socket not supported: %w", err)
		}
		l.Close()
		os.Remove(trial)
	}
	return ListenAddr{Network: "unix", Address: socket}, nil
}

/**
 * Listen on every daemon address
 * @param {[]ListenAddr} addrs - tcp API address and the CLI socket
 * @returns {[]net.Listener} Listeners that came up
 * @returns {error} Last listen error
 * @description
 * - 上次运行留下的socket文件先删除，否则bind失败
 * - 单个地址失败只记录日志，至少一个成功时服务照常启动
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener
	var lastErr error
	for _, addr := range addrs {
		if addr.Network == "unix" {
			if err := os.Remove(addr.Address); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Stale socket %s cannot be removed: %v", addr.Address, err)
				lastErr = err
				continue
			}
		}
		l, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Listen on %s://%s failed: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		listeners = append(listeners, l)
	}
	return listeners, lastErr
}
