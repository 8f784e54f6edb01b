package main

import (
	"github.com/rs/zerolog"

	"voicetype/internal/bootstrap"
	"voicetype/internal/domain"
)

type notifier interface {
	Notify(message string)
}

type overlayProbe interface {
	Running() bool
}

// App is the feedback sink of one invocation. Errors are shown by the
// overlay when it runs and as desktop notifications otherwise.
type App struct {
	logger   zerolog.Logger
	notifier notifier
	overlay  overlayProbe
}

func NewApp(logger zerolog.Logger) *App {
	return &App{logger: logger}
}

// bind attaches the collaborators that only exist once the graph is built.
func (a *App) bind(services bootstrap.Services) {
	a.notifier = services.Notifier
	a.overlay = services.Overlay
}

// SessionStateChanged logs lifecycle updates and surfaces the ones the user
// has to act on.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.logger.Debug().
		Str("state", string(state)).
		Str("reason", string(reason)).
		Msg(sessionReasonMessage(reason))

	if reason == domain.SessionReasonTextCopiedOnly {
		a.notify(sessionReasonMessage(reason))
	}
}

// SessionError reports backend errors.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.logger.Error().Str("code", string(code)).Msg(detail)
	a.notify(errorMessage(code, detail))
}

// TextDelivered records what was delivered and how.
func (a *App) TextDelivered(session domain.Session, report domain.DeliveryReport) {
	a.logger.Info().
		Str("session", session.ID).
		Str("transcribe_model", session.TranscribeModel).
		Str("enhance_model", session.EnhanceModel).
		Bool("copied", report.Copied).
		Bool("pasted", report.Pasted).
		Msg(sessionReasonMessage(domain.SessionReasonTextDelivered))
}

func (a *App) notify(message string) {
	if a.notifier == nil || message == "" {
		return
	}
	if a.overlay != nil && a.overlay.Running() {
		return
	}
	a.notifier.Notify(message)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonTextDelivered:
		return "Text pasted"
	case domain.SessionReasonTextCopiedOnly:
		return "Text copied to clipboard; paste it manually"
	case domain.SessionReasonDeliveryFailed:
		return "Text ready but could not be copied"
	case domain.SessionReasonRecordingTooShort:
		return "Recording too short"
	case domain.SessionReasonNoSpeech:
		return "No speech detected"
	case domain.SessionReasonConnectionLost:
		return "No connection to the transcription service"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	case domain.SessionReasonCaptureFailed:
		return "Recording failed"
	case domain.SessionReasonCleanedUp:
		return "Session state cleaned up"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeConfig:
		return "Configuration error: " + detail
	case domain.ErrorCodeCapture:
		return "Recording failed"
	case domain.ErrorCodeRecordingTooShort:
		return "Recording too short"
	case domain.ErrorCodeConnectivity:
		return "No connection to the transcription service"
	case domain.ErrorCodeRateLimited:
		return "Rate limit reached on every transcription model"
	case domain.ErrorCodeNoSpeech:
		return "No speech detected"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	case domain.ErrorCodeDelivery:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
