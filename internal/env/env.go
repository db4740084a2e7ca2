package env

import (
	"os"
	"path/filepath"
)

// Daemon is set when the process runs as the long-lived keeper server.
var Daemon bool = false

// (default: $HOME/.hello-kubecon, overridable with HELLO_KUBECON_DIR)
var StateDir string = GetStateDir()

/**
 * Get keeper state directory path
 * @returns {string} Returns state directory path
 * @description
 * - HELLO_KUBECON_DIR takes precedence when set
 * - Falls back to $HOME/.hello-kubecon, or ./.hello-kubecon without a home dir
 */
func GetStateDir() string {
	if dir := os.Getenv("HELLO_KUBECON_DIR"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".hello-kubecon")
}

// SocketPath is where the server listens for local rpc clients.
func SocketPath() string {
	return filepath.Join(StateDir, "run", "hello-kubecon.sock")
}
