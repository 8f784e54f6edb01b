package signals

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voicetype/internal/domain"
)

// Debug logs live next to the signal files but are never cleared. The
// overlay writes its own log under OverlayLogName.
const (
	DebugLogName   = "groq_voicetype_debug.log"
	OverlayLogName = "groq_overlay_errors.log"
)

// File names carry the groq_ prefix the overlay polls for. The stock overlay
// only looks in /tmp, so it needs RUNTIME_DIR="/tmp".
var fileNames = map[domain.SignalKind]string{
	domain.SignalLock:            "groq_recording.lock",
	domain.SignalPID:             "groq_recorder.pid",
	domain.SignalRawAudio:        "groq_recording.wav",
	domain.SignalOptimizedAudio:  "groq_recording.flac",
	domain.SignalProcessing:      "groq_processing_mode",
	domain.SignalClose:           "groq_close_animation",
	domain.SignalConnectionError: "groq_connection_error",
	domain.SignalError:           "groq_error",
	domain.SignalOverlayPID:      "groq_overlay.pid",
	domain.SignalStopping:        "groq_stopping",
}

// KindForFile maps a file name inside the channel directory back to its kind.
func KindForFile(name string) (domain.SignalKind, bool) {
	for kind, file := range fileNames {
		if file == name {
			return kind, true
		}
	}
	return "", false
}

// Channel is the file-based mailbox shared with the overlay process.
// Presence of a file is the message; only the pid kinds carry load-bearing content.
type Channel struct {
	dir string
}

// Open prepares the channel directory.
func Open(dir string) (*Channel, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("signal directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create signal directory %q: %w", dir, err)
	}
	return &Channel{dir: dir}, nil
}

func (c *Channel) Dir() string { return c.dir }

func (c *Channel) OverlayLogPath() string { return filepath.Join(c.dir, OverlayLogName) }

// Path returns the fixed location of kind.
func (c *Channel) Path(kind domain.SignalKind) string {
	name, ok := fileNames[kind]
	if !ok {
		name = string(kind)
	}
	return filepath.Join(c.dir, name)
}

// Signal raises kind. The file appears atomically with its full payload.
func (c *Channel) Signal(kind domain.SignalKind, payload []byte) error {
	tmp, err := os.CreateTemp(c.dir, "."+string(kind)+"-*")
	if err != nil {
		return fmt.Errorf("failed to signal %s: %w", kind, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to signal %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to signal %s: %w", kind, err)
	}
	if err := os.Rename(tmpName, c.Path(kind)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to signal %s: %w", kind, err)
	}
	return nil
}

// Claim raises kind only if it is not already present. It reports false
// when another holder got there first.
func (c *Channel) Claim(kind domain.SignalKind, payload []byte) (bool, error) {
	f, err := os.OpenFile(c.Path(kind), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim %s: %w", kind, err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(c.Path(kind))
		return false, fmt.Errorf("failed to claim %s: %w", kind, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(c.Path(kind))
		return false, fmt.Errorf("failed to claim %s: %w", kind, err)
	}
	return true, nil
}

// Clear removes kinds. Absent files are not an error.
func (c *Channel) Clear(kinds ...domain.SignalKind) error {
	var errs []error
	for _, kind := range kinds {
		if err := os.Remove(c.Path(kind)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to clear %s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

// Observe reports whether kind is currently raised.
func (c *Channel) Observe(kind domain.SignalKind) bool {
	_, err := os.Stat(c.Path(kind))
	return err == nil
}

func (c *Channel) Read(kind domain.SignalKind) ([]byte, error) {
	return os.ReadFile(c.Path(kind))
}

// WritePID stores a process id under kind.
func (c *Channel) WritePID(kind domain.SignalKind, pid int) error {
	return c.Signal(kind, []byte(strconv.Itoa(pid)+"\n"))
}

// ReadPID parses the process id stored under kind.
func (c *Channel) ReadPID(kind domain.SignalKind) (int, error) {
	contents, err := c.Read(kind)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s: %q", kind, strings.TrimSpace(string(contents)))
	}
	return pid, nil
}
