//go:build unix

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	if err == nil {
		return !zombie(pid)
	}
	return errors.Is(err, syscall.EPERM)
}

func interrupt(pid int) error {
	return syscall.Kill(pid, syscall.SIGINT)
}

func terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}
