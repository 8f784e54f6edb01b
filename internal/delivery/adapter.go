package delivery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"voicetype/internal/domain"
)

const defaultPasteDelay = 120 * time.Millisecond

// Adapter copies text to the clipboard and pastes it at the cursor using
// the first provider that works for each operation.
type Adapter struct {
	clipboards []ClipboardProvider
	pasters    []PasteProvider
	pasteDelay time.Duration
	logger     zerolog.Logger
}

func NewAdapter(clipboards []ClipboardProvider, pasters []PasteProvider, logger zerolog.Logger) *Adapter {
	return &Adapter{
		clipboards: clipboards,
		pasters:    pasters,
		pasteDelay: defaultPasteDelay,
		logger:     logger,
	}
}

// WithPasteDelay changes the pause between copying and pasting.
func (a *Adapter) WithPasteDelay(delay time.Duration) *Adapter {
	a.pasteDelay = delay
	return a
}

// Deliver never fails; the report says what actually happened. Copy and
// paste are each best effort, but paste is only attempted after a
// successful copy so it never inserts whatever the clipboard held before.
func (a *Adapter) Deliver(ctx context.Context, text string) domain.DeliveryReport {
	report := domain.DeliveryReport{}
	if text == "" {
		return report
	}

	for _, provider := range a.clipboards {
		if !provider.Available() {
			continue
		}
		if err := provider.Copy(ctx, text); err != nil {
			a.logger.Warn().Err(err).Str("backend", provider.Name()).Msg("clipboard backend failed")
			continue
		}
		report.Copied = true
		report.ClipboardBackend = provider.Name()
		break
	}
	if !report.Copied {
		a.logger.Warn().Msg("no clipboard backend available")
		return report
	}

	if a.pasteDelay > 0 {
		select {
		case <-time.After(a.pasteDelay):
		case <-ctx.Done():
			return report
		}
	}

	for _, provider := range a.pasters {
		if !provider.Available() {
			continue
		}
		if err := provider.Paste(ctx); err != nil {
			a.logger.Warn().Err(err).Str("backend", provider.Name()).Msg("paste backend failed")
			continue
		}
		report.Pasted = true
		report.PasteBackend = provider.Name()
		break
	}
	if !report.Pasted {
		a.logger.Warn().Msg("no paste backend available, text left on clipboard")
	}
	return report
}
