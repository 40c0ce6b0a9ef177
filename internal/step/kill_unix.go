//go:build unix

package step

import (
	"os/exec"
	"syscall"
)

// Asks the child to stop with SIGTERM; the wait delay escalates to
// SIGKILL if it keeps running past the grace period.
func gracefulStop(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(syscall.SIGTERM)
}
