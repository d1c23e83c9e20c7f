//go:build !windows

package browser

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setChromeProcessGroup runs Chrome in its own process group so renderers
// and GPU helpers can be signalled together.
func setChromeProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killChromeProcessGroup sends SIGTERM (or SIGKILL when force) to the whole group.
func killChromeProcessGroup(cmd *exec.Cmd, force bool) {
	if cmd.Process == nil {
		return
	}
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	// Negative PID targets the entire process group
	_ = unix.Kill(-cmd.Process.Pid, sig)
}
