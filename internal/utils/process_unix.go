//go:build unix || linux || darwin

package utils

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

/**
 * Terminate a child process with SIGTERM first, then SIGKILL if needed
 * @param {*os.Process} process - Process to stop
 * @param {time.Duration} grace - How long to wait after SIGTERM
 * @param {<-chan struct{}} exited - Closed by the waiter when the process is reaped
 * @returns {error} Returns error if the signals cannot be delivered
 */
func TerminateProcess(process *os.Process, grace time.Duration, exited <-chan struct{}) error {
	if err := process.Signal(syscall.SIGTERM); err == nil {
		select {
		case <-exited:
			return nil
		case <-time.After(grace):
		}
	}

	// SIGTERM失败或超时，强制终止
	if err := process.Signal(syscall.SIGKILL); err != nil && err != os.ErrProcessDone {
		return fmt.Errorf("failed to kill process (PID: %d): %w", process.Pid, err)
	}
	<-exited
	return nil
}
