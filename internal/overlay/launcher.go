package overlay

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"voicetype/internal/domain"
	"voicetype/internal/process"
	"voicetype/internal/signals"
)

const (
	ModeAuto = "auto"
	ModeOn   = "on"
	ModeOff  = "off"

	defaultGrace = time.Second
)

// Options configures the visual feedback launcher.
type Options struct {
	Mode    string
	Command string
	Grace   time.Duration

	LookPath func(string) (string, error)
	// HasDisplay reports whether a graphical session is reachable.
	HasDisplay func() bool
	Logger     zerolog.Logger
}

// Launcher starts and stops the external overlay process. The overlay
// only reads the signal channel; its pid is kept in the overlay_pid kind.
type Launcher struct {
	opts    Options
	channel *signals.Channel
}

func NewLauncher(channel *signals.Channel, opts Options) *Launcher {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.Grace <= 0 {
		opts.Grace = defaultGrace
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.HasDisplay == nil {
		opts.HasDisplay = hasDisplay
	}
	return &Launcher{opts: opts, channel: channel}
}

// Enabled reports whether Start would try to launch the overlay.
func (l *Launcher) Enabled() bool {
	switch l.opts.Mode {
	case ModeOff:
		return false
	case ModeOn:
		return l.opts.Command != ""
	default:
		if l.opts.Command == "" || !l.opts.HasDisplay() {
			return false
		}
		_, err := l.opts.LookPath(l.opts.Command)
		return err == nil
	}
}

// Start launches the overlay detached. Failure is reported but never fatal
// to the session.
func (l *Launcher) Start() (int, error) {
	if !l.Enabled() {
		return 0, nil
	}
	binary, err := l.opts.LookPath(l.opts.Command)
	if err != nil {
		return 0, err
	}

	detached, err := process.StartDetached(process.Spec{
		Binary: binary,
		Env: []string{
			"VOICETYPE_RUNTIME_DIR=" + l.channel.Dir(),
			"VOICETYPE_OVERLAY_LOG=" + l.channel.OverlayLogPath(),
		},
		LogFile: l.channel.OverlayLogPath(),
	})
	if err != nil {
		return 0, err
	}
	if err := l.channel.WritePID(domain.SignalOverlayPID, detached.PID); err != nil {
		_ = process.Terminate(detached.PID)
		return 0, err
	}

	l.opts.Logger.Debug().Int("pid", detached.PID).Msg("overlay started")
	return detached.PID, nil
}

// Running reports whether a recorded overlay process is alive.
func (l *Launcher) Running() bool {
	pid, err := l.channel.ReadPID(domain.SignalOverlayPID)
	if err != nil {
		return false
	}
	return process.Alive(pid)
}

// Stop raises the close flag, lets the overlay finish its exit animation
// for up to the grace period and then terminates it.
func (l *Launcher) Stop(ctx context.Context) error {
	pid, err := l.channel.ReadPID(domain.SignalOverlayPID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !process.Alive(pid) {
		return nil
	}

	if !l.channel.Observe(domain.SignalClose) {
		if err := l.channel.Signal(domain.SignalClose, nil); err != nil {
			l.opts.Logger.Warn().Err(err).Msg("failed to signal overlay close")
		}
	}
	if process.WaitExit(ctx, pid, l.opts.Grace) {
		return nil
	}

	l.opts.Logger.Debug().Int("pid", pid).Msg("overlay still running after grace, terminating")
	if err := process.Terminate(pid); err != nil && process.Alive(pid) {
		return err
	}
	return nil
}

func hasDisplay() bool {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return true
	}
	return os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("DISPLAY") != ""
}
