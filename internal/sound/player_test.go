//go:build unix

package sound

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voicetype/internal/domain"
)

func TestPlayLaunchesFirstAvailablePlayer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	soundFile := filepath.Join(dir, "ding.wav")
	marker := filepath.Join(dir, "played")
	if err := os.WriteFile(soundFile, []byte("RIFF"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	playerScript := filepath.Join(dir, "paplay")
	if err := os.WriteFile(playerScript, []byte("#!/bin/sh\necho \"$1\" > "+marker+"\n"), 0o700); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	player := NewPlayer(soundFile, zerolog.Nop())
	player.lookPath = func(name string) (string, error) {
		if name == "paplay" {
			return playerScript, nil
		}
		return "", errors.New("missing")
	}
	player.Play(domain.CueStart)

	deadline := time.Now().Add(2 * time.Second)
	for {
		contents, err := os.ReadFile(marker)
		if err == nil && len(contents) > 0 {
			if string(contents) != soundFile+"\n" {
				t.Fatalf("unexpected player argument: %q", contents)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("player was not launched")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlayWithoutFileBeepsOnlyForErrors(t *testing.T) {
	t.Parallel()

	beeps := 0
	player := NewPlayer("", zerolog.Nop())
	player.beep = func() error {
		beeps++
		return nil
	}

	player.Play(domain.CueStart)
	player.Play(domain.CueStop)
	player.Play(domain.CueError)
	if beeps != 1 {
		t.Fatalf("expected a single beep, got %d", beeps)
	}
}

func TestPlayMissingFileIsSilent(t *testing.T) {
	t.Parallel()

	player := NewPlayer(filepath.Join(t.TempDir(), "missing.wav"), zerolog.Nop())
	player.lookPath = func(string) (string, error) {
		t.Fatalf("players must not be probed for a missing file")
		return "", nil
	}
	player.Play(domain.CueStart)
}
