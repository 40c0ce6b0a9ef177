//go:build windows

package step

import "os/exec"

// Windows has no SIGTERM; stopping the child is immediate.
func gracefulStop(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
