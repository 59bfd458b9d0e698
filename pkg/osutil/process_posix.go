//go:build unix

// Package osutil holds process helpers for the external commands skillreg
// runs, security scanners and git.
package osutil

import (
	"os/exec"
	"syscall"
)

// KillProcessTree starts cmd in its own process group and makes context
// cancellation SIGKILL the whole group, so children spawned by a scanner
// script die with it. Call before cmd.Start.
func KillProcessTree(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
