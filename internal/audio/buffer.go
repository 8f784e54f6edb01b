package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-audio/wav"

	"voicetype/internal/domain"
)

// Validate checks that the recording at path is long enough to transcribe.
func (c *Controller) Validate(path string) (domain.AudioBuffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.AudioBuffer{}, domain.NewError(domain.ErrorCodeCapture, "no audio was recorded", err)
		}
		return domain.AudioBuffer{}, domain.NewError(domain.ErrorCodeCapture, "failed to inspect audio buffer", err)
	}

	buffer := domain.AudioBuffer{Path: path, Size: info.Size()}
	if info.Size() < c.opts.MinBytes {
		return buffer, domain.NewError(
			domain.ErrorCodeRecordingTooShort,
			fmt.Sprintf("recording too short (%d bytes)", info.Size()),
			nil,
		)
	}

	if err := readWAVInfo(&buffer); err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("could not read wav header")
	}
	return buffer, nil
}

// readWAVInfo fills duration and format from the WAV header. Recorders
// stopped by a signal may leave size fields unpatched, so failures here
// are informational only.
func readWAVInfo(buffer *domain.AudioBuffer) error {
	f, err := os.Open(buffer.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return errors.New("not a valid wav file")
	}
	buffer.SampleRate = int(decoder.SampleRate)
	buffer.Channels = int(decoder.NumChans)

	duration, err := decoder.Duration()
	if err != nil {
		return err
	}
	buffer.Duration = duration
	return nil
}

// Optimize re-encodes in as 16 kHz mono FLAC at out. On failure the caller
// keeps uploading the raw buffer.
func (c *Controller) Optimize(ctx context.Context, in string, out string) (string, error) {
	binary, err := c.opts.LookPath(c.opts.FFmpeg)
	if err != nil {
		return in, fmt.Errorf("ffmpeg not available: %w", err)
	}
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return in, err
	}

	cmd := exec.CommandContext(ctx, binary,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", in,
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "flac",
		out,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return in, fmt.Errorf("re-encode failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		return in, errors.New("re-encode produced no output")
	}
	return out, nil
}
