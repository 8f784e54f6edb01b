package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"voicetype/internal/domain"
	"voicetype/internal/ports"
)

type sessionFinalizer struct {
	delivery    ports.Delivery
	history     ports.History
	events      ports.EventSink
	historyWait time.Duration
	logger      zerolog.Logger
}

func newSessionFinalizer(delivery ports.Delivery, history ports.History, events ports.EventSink, historyWait time.Duration, logger zerolog.Logger) sessionFinalizer {
	return sessionFinalizer{
		delivery:    delivery,
		history:     history,
		events:      events,
		historyWait: historyWait,
		logger:      logger,
	}
}

// Deliver pushes the final text out. Delivery problems never fail the session.
func (f sessionFinalizer) Deliver(ctx context.Context, session domain.Session) (domain.DeliveryReport, domain.SessionStateReason) {
	report := f.delivery.Deliver(ctx, session.FinalText())

	switch {
	case report.Copied && report.Pasted:
		return report, domain.SessionReasonTextDelivered
	case report.Copied:
		return report, domain.SessionReasonTextCopiedOnly
	default:
		f.events.SessionError(domain.ErrorCodeDelivery, "text ready but no clipboard backend worked")
		return report, domain.SessionReasonDeliveryFailed
	}
}

// Record starts the history append and returns a function that waits for it
// for at most historyWait.
func (f sessionFinalizer) Record(session domain.Session, styleLabel string) func() {
	done := f.history.AppendAsync(historyRecord(session, styleLabel))
	return func() {
		timer := time.NewTimer(f.historyWait)
		defer timer.Stop()
		select {
		case err := <-done:
			if err != nil {
				f.logger.Warn().Err(err).Msg("history append failed")
			}
		case <-timer.C:
			f.logger.Warn().Dur("wait", f.historyWait).Msg("history append still running at exit")
		}
	}
}

// historyRecord names the model that produced the delivered text and the
// style applied to it, or Raw with the transcription model otherwise.
func historyRecord(session domain.Session, styleLabel string) domain.HistoryRecord {
	record := domain.HistoryRecord{
		At:    time.Now(),
		Model: session.TranscribeModel,
		Style: domain.RawStyle,
		Text:  session.FinalText(),
	}
	if session.EnhancedText != "" {
		record.Model = session.EnhanceModel
		record.Style = styleLabel
	}
	return record
}
