package delivery

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ClipboardProvider sets the system clipboard.
type ClipboardProvider interface {
	Name() string
	Available() bool
	Copy(ctx context.Context, text string) error
}

// PasteProvider injects a paste keystroke into the focused window.
type PasteProvider interface {
	Name() string
	Available() bool
	Paste(ctx context.Context) error
}

// Env describes the desktop session providers are probed against.
type Env struct {
	GOOS     string
	Wayland  bool
	X11      bool
	LookPath func(string) (string, error)
}

// DetectEnv inspects the current process environment.
func DetectEnv() Env {
	return Env{
		GOOS:     runtime.GOOS,
		Wayland:  os.Getenv("WAYLAND_DISPLAY") != "",
		X11:      os.Getenv("DISPLAY") != "",
		LookPath: exec.LookPath,
	}
}

func (e Env) has(binary string) bool {
	lookPath := e.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	_, err := lookPath(binary)
	return err == nil
}

// commandTool runs an external binary, optionally feeding text on stdin.
type commandTool struct {
	name   string
	binary string
	args   []string
	when   func(Env) bool
	env    Env
}

func (c commandTool) Name() string { return c.name }

func (c commandTool) Available() bool {
	if c.when != nil && !c.when(c.env) {
		return false
	}
	return c.env.has(c.binary)
}

func (c commandTool) run(ctx context.Context, stdin string) error {
	cmd := exec.CommandContext(ctx, c.binary, c.args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.name, err, msg)
		}
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}

type commandClipboard struct{ commandTool }

func (c commandClipboard) Copy(ctx context.Context, text string) error {
	return c.run(ctx, text)
}

type commandPaster struct{ commandTool }

func (c commandPaster) Paste(ctx context.Context) error {
	return c.run(ctx, "")
}

func onWayland(e Env) bool { return e.Wayland }
func onX11(e Env) bool     { return e.X11 }
func onDarwin(e Env) bool  { return e.GOOS == "darwin" }
func onLinux(e Env) bool   { return e.GOOS == "linux" }

// DefaultClipboards returns clipboard providers in priority order.
func DefaultClipboards(env Env) []ClipboardProvider {
	return []ClipboardProvider{
		commandClipboard{commandTool{name: "wl-copy", binary: "wl-copy", when: onWayland, env: env}},
		commandClipboard{commandTool{name: "xclip", binary: "xclip", args: []string{"-selection", "clipboard"}, when: onX11, env: env}},
		commandClipboard{commandTool{name: "xsel", binary: "xsel", args: []string{"--clipboard", "--input"}, when: onX11, env: env}},
		commandClipboard{commandTool{name: "pbcopy", binary: "pbcopy", when: onDarwin, env: env}},
		nativeClipboard{},
	}
}

// DefaultPasters returns paste providers in priority order.
func DefaultPasters(env Env) []PasteProvider {
	return []PasteProvider{
		commandPaster{commandTool{name: "wtype", binary: "wtype", args: []string{"-M", "ctrl", "v", "-m", "ctrl"}, when: onWayland, env: env}},
		commandPaster{commandTool{name: "ydotool", binary: "ydotool", args: []string{"key", "29:1", "47:1", "47:0", "29:0"}, when: onLinux, env: env}},
		commandPaster{commandTool{name: "xdotool", binary: "xdotool", args: []string{"key", "--clearmodifiers", "ctrl+v"}, when: onX11, env: env}},
		commandPaster{commandTool{
			name:   "osascript",
			binary: "osascript",
			args:   []string{"-e", `tell application "System Events" to keystroke "v" using command down`},
			when:   onDarwin,
			env:    env,
		}},
		newKeybdPaster(env),
	}
}
