package delivery

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// nativeClipboard goes through atotto/clipboard, which shells out to the
// platform tools itself and covers setups the explicit list misses.
type nativeClipboard struct{}

func (nativeClipboard) Name() string { return "atotto" }

func (nativeClipboard) Available() bool { return !clipboard.Unsupported }

func (nativeClipboard) Copy(_ context.Context, text string) error {
	return clipboard.WriteAll(text)
}

// keybdPaster sends Ctrl+V through a virtual keyboard device.
type keybdPaster struct {
	goos string
	// settle gives the kernel time to register the uinput device.
	settle time.Duration
}

func newKeybdPaster(env Env) keybdPaster {
	settle := 50 * time.Millisecond
	if env.GOOS == "linux" {
		settle = 2 * time.Second
	}
	return keybdPaster{goos: env.GOOS, settle: settle}
}

func (keybdPaster) Name() string { return "keybd_event" }

func (k keybdPaster) Available() bool {
	return k.goos == "linux" || k.goos == "windows"
}

func (k keybdPaster) Paste(ctx context.Context) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}

	select {
	case <-time.After(k.settle):
	case <-ctx.Done():
		return ctx.Err()
	}

	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	return kb.Launching()
}
