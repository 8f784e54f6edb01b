package ports

import (
	"context"

	"voicetype/internal/domain"
)

// SignalChannel is the file-based mailbox shared with the overlay process.
type SignalChannel interface {
	Path(kind domain.SignalKind) string
	Signal(kind domain.SignalKind, payload []byte) error
	Claim(kind domain.SignalKind, payload []byte) (bool, error)
	Clear(kinds ...domain.SignalKind) error
	Observe(kind domain.SignalKind) bool
	Read(kind domain.SignalKind) ([]byte, error)
	WritePID(kind domain.SignalKind, pid int) error
	ReadPID(kind domain.SignalKind) (int, error)
}

// AudioCapture drives the recorder process across invocations.
type AudioCapture interface {
	Start(ctx context.Context, output string) (domain.Recording, error)
	Stop(ctx context.Context, pid int) error
	Alive(pid int) bool
	Validate(path string) (domain.AudioBuffer, error)
	Optimize(ctx context.Context, in string, out string) (string, error)
}

// Transcriber turns a finalized audio buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (domain.Transcript, error)
}

// Vocabulary applies user substitutions to a transcript.
type Vocabulary interface {
	Rewrite(text string) string
}

// Enhancer rewrites a transcript. It degrades to the input instead of failing.
type Enhancer interface {
	Enhance(ctx context.Context, text string) domain.Enhancement
}

// Delivery hands the final text to the focused application.
type Delivery interface {
	Deliver(ctx context.Context, text string) domain.DeliveryReport
}

// History records delivered sessions.
type History interface {
	AppendAsync(record domain.HistoryRecord) <-chan error
}

// Overlay controls the external visual feedback process.
type Overlay interface {
	Start() (int, error)
	Stop(ctx context.Context) error
	Running() bool
}

// Sound plays short cues without blocking.
type Sound interface {
	Play(cue domain.Cue)
}

// EventSink receives session transitions for user-facing feedback.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	SessionError(code domain.ErrorCode, detail string)
	TextDelivered(session domain.Session, report domain.DeliveryReport)
}
