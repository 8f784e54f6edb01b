package domain

import "time"

// SessionState models the toggle lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateRecording  SessionState = "recording"
	SessionStateProcessing SessionState = "processing"
	SessionStateError      SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonTextDelivered       SessionStateReason = "text_delivered"
	SessionReasonTextCopiedOnly      SessionStateReason = "text_copied_only"
	SessionReasonDeliveryFailed      SessionStateReason = "delivery_failed"
	SessionReasonRecordingTooShort   SessionStateReason = "recording_too_short"
	SessionReasonNoSpeech            SessionStateReason = "no_speech"
	SessionReasonConnectionLost      SessionStateReason = "connection_lost"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonCaptureFailed       SessionStateReason = "capture_failed"
	SessionReasonCleanedUp           SessionStateReason = "cleaned_up"
)

// Outcome is the terminal result of a session.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeError    Outcome = "error"
	OutcomeNoSpeech Outcome = "no_speech"
)

// RawStyle is recorded in history when no enhancement was applied.
const RawStyle = "Raw"

// Capability flags a remote model may declare.
type Capability uint8

const (
	CapabilityLiveSearch Capability = 1 << iota
	CapabilityReasoning
)

// ModelDescriptor describes one entry of a fallback chain.
type ModelDescriptor struct {
	ID           string
	Label        string
	Capabilities Capability
	Priority     int
}

// Has reports whether the descriptor declares capability c.
func (m ModelDescriptor) Has(c Capability) bool {
	return m.Capabilities&c != 0
}

// Style selects the system prompt used for enhancement.
type Style struct {
	ID     string
	Label  string
	Prompt string
}

// Session is one recording-to-delivery cycle.
type Session struct {
	ID              string
	StartedAt       time.Time
	AudioPath       string
	Transcript      string
	EnhancedText    string
	TranscribeModel string
	EnhanceModel    string
	StyleID         string
	Outcome         Outcome
}

// FinalText returns the text that was delivered for the session.
func (s Session) FinalText() string {
	if s.EnhancedText != "" {
		return s.EnhancedText
	}
	return s.Transcript
}

// Recording identifies a running recorder process.
type Recording struct {
	PID     int
	Backend string
	Output  string
}

// AudioBuffer describes a finalized recording.
type AudioBuffer struct {
	Path       string
	Size       int64
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// Transcript is the result of the transcription stage.
type Transcript struct {
	Text     string
	Model    string
	Attempts int
}

// Enhancement is the result of the optional enhancement stage.
type Enhancement struct {
	Text     string
	Model    string
	Applied  bool
	Attempts int
}

// DeliveryReport tells which delivery operations succeeded.
type DeliveryReport struct {
	Copied           bool
	Pasted           bool
	ClipboardBackend string
	PasteBackend     string
}

// HistoryRecord is one row of the history log.
type HistoryRecord struct {
	At    time.Time
	Model string
	Style string
	Text  string
}

// SignalKind enumerates the well-known signal files shared with the overlay.
type SignalKind string

const (
	SignalLock            SignalKind = "lock"
	SignalPID             SignalKind = "pid"
	SignalRawAudio        SignalKind = "raw_audio"
	SignalOptimizedAudio  SignalKind = "optimized_audio"
	SignalProcessing      SignalKind = "processing"
	SignalClose           SignalKind = "close"
	SignalConnectionError SignalKind = "connection_error"
	SignalError           SignalKind = "error"
	SignalOverlayPID      SignalKind = "overlay_pid"
	// SignalStopping is held by the invocation finishing the session.
	SignalStopping SignalKind = "stopping"
)

// SessionSignalKinds lists every session-scoped kind in removal order. The
// lock comes after the session files so an observer never sees an idle state
// with leftovers, and the stopping marker outlives the lock so no second stop
// begins while the holder is still cleaning up.
func SessionSignalKinds() []SignalKind {
	return []SignalKind{
		SignalPID,
		SignalRawAudio,
		SignalOptimizedAudio,
		SignalProcessing,
		SignalConnectionError,
		SignalError,
		SignalClose,
		SignalOverlayPID,
		SignalLock,
		SignalStopping,
	}
}

// Cue identifies a moment worth an audible hint.
type Cue string

const (
	CueStart Cue = "start"
	CueStop  Cue = "stop"
	CueError Cue = "error"
)

// ToggleAction says which branch a toggle took.
type ToggleAction string

const (
	ToggleStarted ToggleAction = "started"
	ToggleStopped ToggleAction = "stopped"
	// ToggleIgnored means another invocation is already stopping the session.
	ToggleIgnored ToggleAction = "ignored"
)

// ToggleResult is returned by a toggle invocation.
type ToggleResult struct {
	Action  ToggleAction
	Session Session
}

// Status summarizes the current runtime status.
type Status struct {
	State        SessionState `json:"state"`
	Active       bool         `json:"active"`
	SessionID    string       `json:"sessionId,omitempty"`
	StartedAt    time.Time    `json:"startedAt,omitempty"`
	RecorderPID  int          `json:"recorderPid,omitempty"`
	RecorderLive bool         `json:"recorderLive"`
	Processing   bool         `json:"processing"`
}
