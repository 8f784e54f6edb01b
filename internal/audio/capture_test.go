//go:build unix

package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"voicetype/internal/domain"
)

const fakeRecorder = `#!/usr/bin/env bash
out="${@: -1}"
trap 'exit 0' INT TERM
head -c 16044 /dev/zero > "$out"
while true; do sleep 0.05; done
`

func fakeBackend(binary string) []Backend {
	return []Backend{{
		Name:   "fake",
		Binary: binary,
		Args:   func(_ string, output string) []string { return []string{output} },
	}}
}

func newTestController(t *testing.T, opts Options) *Controller {
	t.Helper()
	opts.Logger = zerolog.Nop()
	if opts.Settle == 0 {
		opts.Settle = 50 * time.Millisecond
	}
	if opts.Grace == 0 {
		opts.Grace = time.Second
	}
	return NewController(opts)
}

func TestControllerStartAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "recorder.sh", fakeRecorder)
	output := filepath.Join(t.TempDir(), "recording.wav")
	controller := newTestController(t, Options{Backends: fakeBackend(script)})

	capture, err := controller.Start(context.Background(), output)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if capture.PID <= 0 || capture.Backend != "fake" {
		t.Fatalf("unexpected capture: %+v", capture)
	}
	if !controller.Alive(capture.PID) {
		t.Fatalf("recorder should be alive after start")
	}

	if err := controller.Stop(context.Background(), capture.PID); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if controller.Alive(capture.PID) {
		t.Fatalf("recorder should be gone after stop")
	}

	if err := controller.Stop(context.Background(), capture.PID); err != nil {
		t.Fatalf("stopping a dead recorder should be a no-op: %v", err)
	}
}

func TestControllerStopKillsStubbornRecorder(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "stubborn.sh", "#!/usr/bin/env bash\ntrap '' INT\nwhile true; do sleep 0.05; done\n")
	controller := newTestController(t, Options{
		Backends: fakeBackend(script),
		Settle:   20 * time.Millisecond,
		Grace:    200 * time.Millisecond,
	})

	capture, err := controller.Start(context.Background(), filepath.Join(t.TempDir(), "out.wav"))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := controller.Stop(context.Background(), capture.PID); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for controller.Alive(capture.PID) {
		if time.Now().After(deadline) {
			t.Fatalf("stubborn recorder survived kill")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestControllerStartEarlyExit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'device busy' 1>&2\nexit 1\n")
	controller := newTestController(t, Options{
		Backends: fakeBackend(script),
		LogFile:  filepath.Join(dir, "recorder.log"),
	})

	_, err := controller.Start(context.Background(), filepath.Join(dir, "out.wav"))
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if domain.CodeOf(err) != domain.ErrorCodeCapture {
		t.Fatalf("expected capture error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exited before capture started") || !strings.Contains(err.Error(), "device busy") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestControllerStartWithoutRecorder(t *testing.T) {
	t.Parallel()

	controller := newTestController(t, Options{
		LookPath: func(string) (string, error) { return "", errors.New("not found") },
	})

	_, err := controller.Start(context.Background(), filepath.Join(t.TempDir(), "out.wav"))
	if !errors.Is(err, ErrNoRecorder) {
		t.Fatalf("expected ErrNoRecorder, got %v", err)
	}
}

func TestResolvePicksFirstAvailable(t *testing.T) {
	t.Parallel()

	available := map[string]bool{"arecord": true, "ffmpeg": true}
	backend, err := Resolve(DefaultBackends("linux"), func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("missing")
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if backend.Name != "alsa" {
		t.Fatalf("expected alsa backend, got %q", backend.Name)
	}

	args := backend.Args("hw:1", "/tmp/out.wav")
	if args[len(args)-1] != "/tmp/out.wav" || !strings.Contains(strings.Join(args, " "), "-D hw:1") {
		t.Fatalf("unexpected arecord args: %v", args)
	}
}

func TestDarwinBackendsUseAVFoundationDevice(t *testing.T) {
	t.Parallel()

	backends := DefaultBackends("darwin")
	args := strings.Join(backends[0].Args("2", "/tmp/out.wav"), " ")
	if !strings.Contains(args, "-f avfoundation -i :2") {
		t.Fatalf("unexpected avfoundation args: %s", args)
	}
}

func TestValidateRejectsShortBuffer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "short.wav")
	if err := os.WriteFile(path, make([]byte, 100), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	controller := newTestController(t, Options{})

	_, err := controller.Validate(path)
	if domain.CodeOf(err) != domain.ErrorCodeRecordingTooShort {
		t.Fatalf("expected recording_too_short, got %v", err)
	}
}

func TestValidateMissingBufferIsCaptureError(t *testing.T) {
	t.Parallel()

	controller := newTestController(t, Options{})
	_, err := controller.Validate(filepath.Join(t.TempDir(), "missing.wav"))
	if domain.CodeOf(err) != domain.ErrorCodeCapture {
		t.Fatalf("expected capture error, got %v", err)
	}
}

func TestValidateReadsWAVDuration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "speech.wav")
	writeWAV(t, path, SampleRate)

	buffer, err := newTestController(t, Options{}).Validate(path)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if buffer.SampleRate != SampleRate || buffer.Channels != Channels {
		t.Fatalf("unexpected format: %+v", buffer)
	}
	if buffer.Duration < 900*time.Millisecond || buffer.Duration > 1100*time.Millisecond {
		t.Fatalf("unexpected duration: %s", buffer.Duration)
	}
}

func TestOptimizeUsesEncoderOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	encoder := writeScript(t, "ffmpeg", "#!/usr/bin/env bash\nout=\"${@: -1}\"\nprintf 'fLaC' > \"$out\"\n")
	controller := newTestController(t, Options{FFmpeg: encoder})

	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.flac")
	got, err := controller.Optimize(context.Background(), in, out)
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	if got != out {
		t.Fatalf("expected optimized path, got %q", got)
	}
}

func TestOptimizeFallsBackToRawBuffer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	encoder := writeScript(t, "ffmpeg", "#!/usr/bin/env bash\necho 'codec missing' 1>&2\nexit 1\n")
	controller := newTestController(t, Options{FFmpeg: encoder})

	in := filepath.Join(dir, "in.wav")
	got, err := controller.Optimize(context.Background(), in, filepath.Join(dir, "out.flac"))
	if err == nil || !strings.Contains(err.Error(), "codec missing") {
		t.Fatalf("expected encoder error, got %v", err)
	}
	if got != in {
		t.Fatalf("expected raw buffer path, got %q", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func writeWAV(t *testing.T, path string, samples int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer f.Close()

	encoder := wav.NewEncoder(f, SampleRate, 16, Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           make([]int, samples),
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("encoder close failed: %v", err)
	}
}
