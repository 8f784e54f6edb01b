package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voicetype/internal/domain"
	"voicetype/internal/process"
)

const (
	defaultProbe    = 250 * time.Millisecond
	defaultSettle   = 500 * time.Millisecond
	defaultGrace    = 1200 * time.Millisecond
	defaultMinBytes = 8000
)

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Device   string
	Backends []Backend
	LookPath func(string) (string, error)
	// FFmpeg is the binary used to re-encode buffers.
	FFmpeg string
	// LogFile collects recorder output.
	LogFile string

	Probe    time.Duration
	Settle   time.Duration
	Grace    time.Duration
	MinBytes int64

	Logger zerolog.Logger
}

// Controller drives a detached recorder process across invocations.
type Controller struct {
	opts   Options
	logger zerolog.Logger
}

func NewController(opts Options) *Controller {
	if opts.Backends == nil {
		opts.Backends = DefaultBackends(currentOS())
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.Probe <= 0 {
		opts.Probe = defaultProbe
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}
	if opts.Grace <= 0 {
		opts.Grace = defaultGrace
	}
	if opts.MinBytes <= 0 {
		opts.MinBytes = defaultMinBytes
	}
	return &Controller{opts: opts, logger: opts.Logger}
}

// Start launches the best available recorder writing to output and returns
// once it survived the probe window.
func (c *Controller) Start(ctx context.Context, output string) (domain.Recording, error) {
	backend, err := Resolve(c.opts.Backends, c.opts.LookPath)
	if err != nil {
		return domain.Recording{}, err
	}

	if err := os.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.Recording{}, domain.NewError(domain.ErrorCodeCapture, "failed to remove stale audio buffer", err)
	}

	detached, err := process.StartDetached(process.Spec{
		Binary:  backend.Binary,
		Args:    backend.Args(c.opts.Device, output),
		LogFile: c.opts.LogFile,
	})
	if err != nil {
		return domain.Recording{}, domain.NewError(domain.ErrorCodeCapture, fmt.Sprintf("failed to start %s", backend.Name), err)
	}

	select {
	case <-detached.Exited():
		message := fmt.Sprintf("%s exited before capture started", backend.Name)
		if tail := c.logTail(); tail != "" {
			message += ": " + tail
		}
		return domain.Recording{}, domain.NewError(domain.ErrorCodeCapture, message, normalizeExitErr(detached.Err()))
	case <-ctx.Done():
		_ = process.Kill(detached.PID)
		return domain.Recording{}, domain.NewError(domain.ErrorCodeCapture, "capture start canceled", ctx.Err())
	case <-time.After(c.opts.Probe):
	}

	c.logger.Debug().
		Str("backend", backend.Name).
		Int("pid", detached.PID).
		Str("output", output).
		Msg("recorder started")
	return domain.Recording{PID: detached.PID, Backend: backend.Name, Output: output}, nil
}

// Stop interrupts the recorder so it can finalize the buffer, waits the
// settle interval and kills it only if it is still running after the grace.
// A recorder that is already gone is not an error.
func (c *Controller) Stop(ctx context.Context, pid int) error {
	if !process.Alive(pid) {
		c.logger.Debug().Int("pid", pid).Msg("recorder already exited")
		return nil
	}
	if err := process.Interrupt(pid); err != nil && process.Alive(pid) {
		return domain.NewError(domain.ErrorCodeCapture, "failed to interrupt recorder", err)
	}

	settle := time.NewTimer(c.opts.Settle)
	select {
	case <-settle.C:
	case <-ctx.Done():
		settle.Stop()
	}

	remaining := c.opts.Grace - c.opts.Settle
	if remaining < 0 {
		remaining = 0
	}
	if process.WaitExit(ctx, pid, remaining) {
		return nil
	}

	c.logger.Warn().Int("pid", pid).Msg("recorder ignored interrupt, killing")
	if err := process.Kill(pid); err != nil && process.Alive(pid) {
		return domain.NewError(domain.ErrorCodeCapture, "failed to kill recorder", err)
	}
	return nil
}

// Alive reports whether the recorder is still running.
func (c *Controller) Alive(pid int) bool {
	return process.Alive(pid)
}

func (c *Controller) logTail() string {
	if c.opts.LogFile == "" {
		return ""
	}
	contents, err := os.ReadFile(c.opts.LogFile)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func normalizeExitErr(err error) error {
	if err == nil {
		return errors.New("recorder exited with status 0")
	}
	return err
}
