package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voicetype/internal/domain"
)

func TestHistoryRecordUsesRawWithoutEnhancement(t *testing.T) {
	t.Parallel()

	record := historyRecord(domain.Session{
		Transcript:      "plain words",
		TranscribeModel: "whisper-large-v3",
	}, "Formal")
	if record.Style != domain.RawStyle || record.Model != "whisper-large-v3" || record.Text != "plain words" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestHistoryRecordUsesEnhancementModel(t *testing.T) {
	t.Parallel()

	record := historyRecord(domain.Session{
		Transcript:      "plain words",
		EnhancedText:    "Plain words.",
		TranscribeModel: "whisper-large-v3",
		EnhanceModel:    "qwen/qwen3-32b",
	}, "Clean")
	if record.Style != "Clean" || record.Model != "qwen/qwen3-32b" || record.Text != "Plain words." {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestFinalizerDeliverReasons(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		report domain.DeliveryReport
		reason domain.SessionStateReason
		errors int
	}{
		{name: "pasted", report: domain.DeliveryReport{Copied: true, Pasted: true}, reason: domain.SessionReasonTextDelivered},
		{name: "copied", report: domain.DeliveryReport{Copied: true}, reason: domain.SessionReasonTextCopiedOnly},
		{name: "nothing", report: domain.DeliveryReport{}, reason: domain.SessionReasonDeliveryFailed, errors: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			events := &fakeEventSink{}
			f := newSessionFinalizer(&fakeDelivery{report: tc.report}, &fakeHistory{}, events, time.Second, zerolog.Nop())
			_, reason := f.Deliver(context.Background(), domain.Session{Transcript: "text"})
			if reason != tc.reason {
				t.Fatalf("expected %s, got %s", tc.reason, reason)
			}
			if len(events.errors) != tc.errors {
				t.Fatalf("expected %d error events, got %d", tc.errors, len(events.errors))
			}
		})
	}
}

type blockingHistory struct{}

func (blockingHistory) AppendAsync(domain.HistoryRecord) <-chan error {
	return make(chan error)
}

func TestFinalizerRecordWaitIsBounded(t *testing.T) {
	t.Parallel()

	f := newSessionFinalizer(&fakeDelivery{}, blockingHistory{}, &fakeEventSink{}, 50*time.Millisecond, zerolog.Nop())
	wait := f.Record(domain.Session{Transcript: "text"}, domain.RawStyle)

	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("history wait did not time out")
	}
}

func TestFinalizerRecordSwallowsHistoryErrors(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{err: errors.New("disk full")}
	f := newSessionFinalizer(&fakeDelivery{}, history, &fakeEventSink{}, time.Second, zerolog.Nop())
	f.Record(domain.Session{Transcript: "text"}, domain.RawStyle)()
	if len(history.records) != 1 {
		t.Fatalf("expected one append, got %d", len(history.records))
	}
}

func TestDecodeSessionLockTolerance(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	lock := decodeSessionLock(sessionLock{ID: "abc", StartedAt: started}.encode())
	if lock.ID != "abc" || !lock.StartedAt.Equal(started) {
		t.Fatalf("round trip failed: %+v", lock)
	}

	for _, payload := range []string{"", "\n\n", "only-id", "id\nnot-a-time"} {
		lock := decodeSessionLock([]byte(payload))
		if payload == "only-id" && lock.ID != "only-id" {
			t.Fatalf("expected id from %q, got %+v", payload, lock)
		}
		if !lock.StartedAt.IsZero() {
			t.Fatalf("expected zero start for %q, got %v", payload, lock.StartedAt)
		}
	}
}
