package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

const appName = "voicetype"

// Notifier shows desktop notifications when no overlay can display errors.
type Notifier struct {
	enabled bool
	send    func(title string, message string) error
	logger  zerolog.Logger
}

func New(enabled bool, logger zerolog.Logger) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title string, message string) error {
			return beeep.Notify(title, message, "")
		},
		logger: logger,
	}
}

// Notify is best-effort.
func (n *Notifier) Notify(message string) {
	if n == nil || !n.enabled || message == "" {
		return
	}
	if err := n.send(appName, message); err != nil {
		n.logger.Debug().Err(err).Msg("notification failed")
	}
}
