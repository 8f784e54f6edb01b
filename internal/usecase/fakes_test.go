package usecase

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"voicetype/internal/domain"
	"voicetype/internal/signals"
)

// recordingChannel remembers every raised signal so tests can assert on
// flags that cleanup removes afterwards.
type recordingChannel struct {
	*signals.Channel

	mu     sync.Mutex
	raised []domain.SignalKind
}

func newRecordingChannel(t *testing.T) *recordingChannel {
	t.Helper()
	ch, err := signals.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open channel failed: %v", err)
	}
	return &recordingChannel{Channel: ch}
}

func (r *recordingChannel) Signal(kind domain.SignalKind, payload []byte) error {
	r.mu.Lock()
	r.raised = append(r.raised, kind)
	r.mu.Unlock()
	return r.Channel.Signal(kind, payload)
}

func (r *recordingChannel) snapshot() []domain.SignalKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SignalKind, len(r.raised))
	copy(out, r.raised)
	return out
}

func (r *recordingChannel) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(r.Dir())
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

type fakeAudio struct {
	mu          sync.Mutex
	nextPID     int
	alive       map[int]bool
	startErr    error
	validateErr error
	bufferSize  int
	starts      int
	stops       []int
	optimized   int
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{nextPID: 4000, alive: map[int]bool{}, bufferSize: 16000}
}

func (f *fakeAudio) Start(_ context.Context, output string) (domain.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return domain.Recording{}, f.startErr
	}
	if err := os.WriteFile(output, make([]byte, f.bufferSize), 0o600); err != nil {
		return domain.Recording{}, err
	}
	f.nextPID++
	f.alive[f.nextPID] = true
	return domain.Recording{PID: f.nextPID, Backend: "fake", Output: output}, nil
}

func (f *fakeAudio) Stop(_ context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, pid)
	delete(f.alive, pid)
	return nil
}

func (f *fakeAudio) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeAudio) Validate(path string) (domain.AudioBuffer, error) {
	if f.validateErr != nil {
		return domain.AudioBuffer{}, f.validateErr
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.AudioBuffer{}, domain.NewError(domain.ErrorCodeCapture, "no audio was recorded", err)
	}
	return domain.AudioBuffer{Path: path, Size: info.Size()}, nil
}

func (f *fakeAudio) Optimize(_ context.Context, in string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optimized++
	return in, errors.New("ffmpeg not available")
}

type fakeTranscriber struct {
	result domain.Transcript
	err    error
	calls  int
	paths  []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (domain.Transcript, error) {
	f.calls++
	f.paths = append(f.paths, path)
	return f.result, f.err
}

type fakeEnhancer struct {
	result domain.Enhancement
	calls  int
	inputs []string
}

func (f *fakeEnhancer) Enhance(_ context.Context, text string) domain.Enhancement {
	f.calls++
	f.inputs = append(f.inputs, text)
	if !f.result.Applied {
		return domain.Enhancement{Text: text, Attempts: f.result.Attempts}
	}
	return f.result
}

type fakeDelivery struct {
	report    domain.DeliveryReport
	delivered []string
}

func (f *fakeDelivery) Deliver(_ context.Context, text string) domain.DeliveryReport {
	f.delivered = append(f.delivered, text)
	return f.report
}

type fakeHistory struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
	err     error
}

func (f *fakeHistory) AppendAsync(record domain.HistoryRecord) <-chan error {
	f.mu.Lock()
	f.records = append(f.records, record)
	f.mu.Unlock()
	done := make(chan error, 1)
	done <- f.err
	close(done)
	return done
}

func (f *fakeHistory) last(t *testing.T) domain.HistoryRecord {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		t.Fatalf("no history recorded")
	}
	return f.records[len(f.records)-1]
}

type fakeOverlay struct {
	starts int
	stops  int
}

func (f *fakeOverlay) Start() (int, error) {
	f.starts++
	return 0, nil
}

func (f *fakeOverlay) Stop(context.Context) error {
	f.stops++
	return nil
}

func (f *fakeOverlay) Running() bool { return false }

type fakeSound struct {
	cues []domain.Cue
}

func (f *fakeSound) Play(cue domain.Cue) { f.cues = append(f.cues, cue) }

type stateChange struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errorEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu        sync.Mutex
	states    []stateChange
	errors    []errorEvent
	delivered []domain.Session
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateChange{state: state, reason: reason})
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errorEvent{code: code, detail: detail})
}

func (f *fakeEventSink) TextDelivered(session domain.Session, _ domain.DeliveryReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, session)
}

func (f *fakeEventSink) lastState(t *testing.T) stateChange {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		t.Fatalf("no state changes recorded")
	}
	return f.states[len(f.states)-1]
}
