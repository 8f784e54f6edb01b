package audio

import (
	"errors"
	"os/exec"
	"runtime"
	"strconv"

	"voicetype/internal/domain"
)

const (
	SampleRate = 16000
	Channels   = 1
)

// ErrNoRecorder means no recorder backend is installed.
var ErrNoRecorder = errors.New("no audio recorder available")

// Backend is one recorder tool able to write a 16 kHz mono WAV file.
type Backend struct {
	Name   string
	Binary string
	Args   func(device string, output string) []string
}

// DefaultBackends returns the recorders tried on goos, best first.
func DefaultBackends(goos string) []Backend {
	if goos == "darwin" {
		return []Backend{
			{Name: "ffmpeg-avfoundation", Binary: "ffmpeg", Args: avfoundationArgs},
			{Name: "sox", Binary: "rec", Args: soxArgs},
		}
	}
	return []Backend{
		{Name: "pipewire", Binary: "pw-record", Args: pipewireArgs},
		{Name: "pulseaudio", Binary: "parecord", Args: parecordArgs},
		{Name: "alsa", Binary: "arecord", Args: arecordArgs},
		{Name: "ffmpeg-pulse", Binary: "ffmpeg", Args: ffmpegPulseArgs},
	}
}

// Resolve returns the first backend whose binary is on PATH.
func Resolve(backends []Backend, lookPath func(string) (string, error)) (Backend, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, backend := range backends {
		if _, err := lookPath(backend.Binary); err == nil {
			return backend, nil
		}
	}
	return Backend{}, domain.NewError(domain.ErrorCodeCapture, "install one of pw-record, parecord, arecord, ffmpeg or sox", ErrNoRecorder)
}

func pipewireArgs(device string, output string) []string {
	args := []string{"--rate", strconv.Itoa(SampleRate), "--channels", strconv.Itoa(Channels), "--format", "s16"}
	if device != "" {
		args = append(args, "--target", device)
	}
	return append(args, output)
}

func parecordArgs(device string, output string) []string {
	args := []string{
		"--rate=" + strconv.Itoa(SampleRate),
		"--channels=" + strconv.Itoa(Channels),
		"--format=s16le",
		"--file-format=wav",
	}
	if device != "" {
		args = append(args, "--device="+device)
	}
	return append(args, output)
}

func arecordArgs(device string, output string) []string {
	args := []string{"-q", "-f", "S16_LE", "-r", strconv.Itoa(SampleRate), "-c", strconv.Itoa(Channels), "-t", "wav"}
	if device != "" {
		args = append(args, "-D", device)
	}
	return append(args, output)
}

func ffmpegPulseArgs(device string, output string) []string {
	if device == "" {
		device = "default"
	}
	return ffmpegArgs("pulse", device, output)
}

func avfoundationArgs(device string, output string) []string {
	if device == "" {
		device = "0"
	}
	return ffmpegArgs("avfoundation", ":"+device, output)
}

func ffmpegArgs(format string, input string, output string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-y",
		"-f", format,
		"-i", input,
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-sample_fmt", "s16",
		output,
	}
}

func soxArgs(_ string, output string) []string {
	return []string{"-q", "-r", strconv.Itoa(SampleRate), "-c", strconv.Itoa(Channels), "-b", "16", output}
}

func currentOS() string { return runtime.GOOS }
