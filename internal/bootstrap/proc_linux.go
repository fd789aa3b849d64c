//go:build linux

package bootstrap

import (
	"os/exec"
	"syscall"
)

// configureChild makes the kernel signal the backend when the shell dies.
func configureChild(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}
