//go:build !(unix || linux || darwin)

package utils

import (
	"os"
	"time"
)

func TerminateProcess(process *os.Process, grace time.Duration, exited <-chan struct{}) error {
	if err := process.Kill(); err != nil && err != os.ErrProcessDone {
		return err
	}
	<-exited
	return nil
}
