package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const pollInterval = 25 * time.Millisecond

// Spec describes a process started outside the lifetime of the invoking one.
type Spec struct {
	Binary string
	Args   []string
	// Env entries are appended to the inherited environment.
	Env []string
	// LogFile receives stdout and stderr. Empty discards them.
	LogFile string
}

// Detached is a started background process.
type Detached struct {
	PID    int
	exited chan struct{}
	err    error
}

// Exited is closed once the process has been reaped by this process.
func (d *Detached) Exited() <-chan struct{} { return d.exited }

// Err returns the wait error after Exited is closed.
func (d *Detached) Err() error { return d.err }

// StartDetached launches spec in its own process group so it survives the
// invoking process and is not hit by terminal signals aimed at it.
func StartDetached(spec Spec) (*Detached, error) {
	if spec.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	cmd := exec.Command(spec.Binary, spec.Args...) //nolint:gosec // launching configured tools is the purpose of this package
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	detach(cmd)

	var logFile *os.File
	if spec.LogFile != "" {
		f, err := os.OpenFile(spec.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err == nil {
			logFile = f
			cmd.Stdout = f
			cmd.Stderr = f
		}
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("failed to start %s: %w", spec.Binary, err)
	}
	if logFile != nil {
		_ = logFile.Close()
	}

	d := &Detached{PID: cmd.Process.Pid, exited: make(chan struct{})}
	go func() {
		d.err = cmd.Wait()
		close(d.exited)
	}()
	return d, nil
}

// Alive reports whether pid refers to a running process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return alive(pid)
}

// Interrupt asks pid to finish gracefully.
func Interrupt(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("process: invalid pid %d", pid)
	}
	return interrupt(pid)
}

// Terminate sends SIGTERM (or the platform equivalent) to pid.
func Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("process: invalid pid %d", pid)
	}
	return terminate(pid)
}

// Kill stops pid immediately.
func Kill(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("process: invalid pid %d", pid)
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

// WaitExit polls until pid is gone, the timeout elapses or ctx is done.
// It reports whether the process exited.
func WaitExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if !Alive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return !Alive(pid)
		case <-deadline.C:
			return !Alive(pid)
		case <-ticker.C:
		}
	}
}
