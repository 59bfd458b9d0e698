//go:build windows

// Package osutil holds process helpers for the external commands skillreg
// runs, security scanners and git.
package osutil

import "os/exec"

// KillProcessTree makes context cancellation kill cmd. Windows has no
// process groups here, so grandchildren may outlive it.
func KillProcessTree(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Kill()
	}
}
