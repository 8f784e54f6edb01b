package usecase

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voicetype/internal/domain"
	"voicetype/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrSessionActive   = errors.New("a recording session is already active")
	ErrStopInProgress  = errors.New("the session is already being stopped")
)

// Config controls optional pipeline stages.
type Config struct {
	// Optimize re-encodes the buffer before upload.
	Optimize bool
	StyleID  string
	// StyleLabel is written to history when enhancement was applied.
	StyleLabel  string
	HistoryWait time.Duration
}

// Dependencies are the adapters the controller drives. Vocabulary and
// Enhancer are optional. Without ProcessAlive a stopping marker is never
// considered stale.
type Dependencies struct {
	Signals     ports.SignalChannel
	Audio       ports.AudioCapture
	Transcriber ports.Transcriber
	Vocabulary  ports.Vocabulary
	Enhancer    ports.Enhancer
	Delivery    ports.Delivery
	History     ports.History
	Overlay     ports.Overlay
	Sound       ports.Sound
	Events      ports.EventSink
	Logger      zerolog.Logger

	ProcessAlive func(pid int) bool
}

// SessionController runs one toggle per process invocation. Session state
// lives entirely in the signal channel, so consecutive invocations share it.
type SessionController struct {
	signals     ports.SignalChannel
	audio       ports.AudioCapture
	transcriber ports.Transcriber
	vocabulary  ports.Vocabulary
	enhancer    ports.Enhancer
	overlay     ports.Overlay
	sound       ports.Sound
	events      ports.EventSink
	finalizer   sessionFinalizer
	cfg         Config
	logger      zerolog.Logger

	now          func() time.Time
	newID        func() string
	pid          int
	processAlive func(pid int) bool
}

func NewSessionController(deps Dependencies, cfg Config) *SessionController {
	if cfg.HistoryWait <= 0 {
		cfg.HistoryWait = 2 * time.Second
	}
	if cfg.StyleLabel == "" {
		cfg.StyleLabel = domain.RawStyle
	}
	return &SessionController{
		signals:      deps.Signals,
		audio:        deps.Audio,
		transcriber:  deps.Transcriber,
		vocabulary:   deps.Vocabulary,
		enhancer:     deps.Enhancer,
		overlay:      deps.Overlay,
		sound:        deps.Sound,
		events:       deps.Events,
		finalizer:    newSessionFinalizer(deps.Delivery, deps.History, deps.Events, cfg.HistoryWait, deps.Logger),
		cfg:          cfg,
		logger:       deps.Logger,
		now:          time.Now,
		newID:        uuid.NewString,
		pid:          os.Getpid(),
		processAlive: deps.ProcessAlive,
	}
}

// Toggle starts a session when none is open and stops the open one otherwise.
// A toggle arriving while another invocation is stopping the session is
// ignored.
func (c *SessionController) Toggle(ctx context.Context) (domain.ToggleResult, error) {
	if !c.signals.Observe(domain.SignalLock) {
		session, err := c.Start(ctx)
		if !errors.Is(err, ErrSessionActive) {
			return domain.ToggleResult{Action: domain.ToggleStarted, Session: session}, err
		}
		c.logger.Debug().Msg("lost the race for the session lock, stopping instead")
	}

	session, err := c.Stop(ctx)
	if errors.Is(err, ErrStopInProgress) {
		c.logger.Debug().Str("session", session.ID).Msg("session is already stopping, ignoring toggle")
		return domain.ToggleResult{Action: domain.ToggleIgnored, Session: session}, nil
	}
	return domain.ToggleResult{Action: domain.ToggleStopped, Session: session}, err
}

// Start claims the session lock and launches the recorder. On failure
// nothing is left behind.
func (c *SessionController) Start(ctx context.Context) (domain.Session, error) {
	lock := sessionLock{ID: c.newID(), StartedAt: c.now()}
	session := domain.Session{
		ID:        lock.ID,
		StartedAt: lock.StartedAt,
		AudioPath: c.signals.Path(domain.SignalRawAudio),
	}
	logger := c.logger.With().Str("session", session.ID).Logger()

	claimed, err := c.signals.Claim(domain.SignalLock, lock.encode())
	if err != nil {
		return session, domain.NewError(domain.ErrorCodeCapture, "failed to claim session lock", err)
	}
	if !claimed {
		return session, ErrSessionActive
	}

	if err := c.signals.Clear(
		domain.SignalPID,
		domain.SignalProcessing,
		domain.SignalClose,
		domain.SignalConnectionError,
		domain.SignalError,
		domain.SignalOptimizedAudio,
		domain.SignalStopping,
	); err != nil {
		logger.Warn().Err(err).Msg("failed to clear stale signals")
	}

	recording, err := c.audio.Start(ctx, session.AudioPath)
	if err == nil {
		if writeErr := c.signals.WritePID(domain.SignalPID, recording.PID); writeErr != nil {
			_ = c.audio.Stop(context.WithoutCancel(ctx), recording.PID)
			err = domain.NewError(domain.ErrorCodeCapture, "failed to record recorder pid", writeErr)
		}
	}
	if err != nil {
		logger.Error().Err(err).Msg("recording failed to start")
		c.sound.Play(domain.CueError)
		c.events.SessionError(codeOrDefault(err, domain.ErrorCodeCapture), err.Error())
		c.events.SessionStateChanged(domain.SessionStateError, domain.SessionReasonCaptureFailed)
		if cleanupErr := c.Cleanup(context.WithoutCancel(ctx)); cleanupErr != nil {
			logger.Warn().Err(cleanupErr).Msg("cleanup after failed start")
		}
		return session, err
	}

	if _, err := c.overlay.Start(); err != nil {
		logger.Warn().Err(err).Msg("overlay failed to start")
	}
	c.sound.Play(domain.CueStart)

	logger.Info().
		Int("recorder_pid", recording.PID).
		Str("backend", recording.Backend).
		Msg("recording started")
	c.events.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonRecordingStarted)
	return session, nil
}

// Stop finishes the open session: capture, transcription, optional
// enhancement, delivery and history. Only the invocation holding the
// stopping marker proceeds; others get ErrStopInProgress and touch nothing.
// Cleanup runs on every path of the holder.
func (c *SessionController) Stop(ctx context.Context) (domain.Session, error) {
	payload, err := c.signals.Read(domain.SignalLock)
	if err != nil {
		return domain.Session{}, ErrNoActiveSession
	}
	lock := decodeSessionLock(payload)
	session := domain.Session{
		ID:        lock.ID,
		StartedAt: lock.StartedAt,
		AudioPath: c.signals.Path(domain.SignalRawAudio),
	}
	logger := c.logger.With().Str("session", session.ID).Logger()

	err = c.claimStop(logger)
	if errors.Is(err, ErrStopInProgress) {
		return session, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("stopping without a stopping marker")
	}

	defer func() {
		if cleanupErr := c.Cleanup(context.WithoutCancel(ctx)); cleanupErr != nil {
			logger.Warn().Err(cleanupErr).Msg("cleanup failed")
		}
	}()

	if err := c.signals.Signal(domain.SignalProcessing, nil); err != nil {
		logger.Warn().Err(err).Msg("failed to signal processing")
	}
	c.events.SessionStateChanged(domain.SessionStateProcessing, domain.SessionReasonTranscribing)
	c.sound.Play(domain.CueStop)

	if pid, pidErr := c.signals.ReadPID(domain.SignalPID); pidErr == nil {
		if err := c.audio.Stop(ctx, pid); err != nil {
			logger.Warn().Err(err).Int("recorder_pid", pid).Msg("recorder did not stop cleanly")
		}
	} else {
		logger.Warn().Err(pidErr).Msg("no recorder pid, processing what was captured")
	}

	buffer, err := c.audio.Validate(session.AudioPath)
	if err != nil {
		return c.fail(logger, session, err)
	}
	logger.Debug().
		Int64("bytes", buffer.Size).
		Dur("duration", buffer.Duration).
		Msg("audio buffer finalized")

	upload := buffer.Path
	if c.cfg.Optimize {
		optimized, optErr := c.audio.Optimize(ctx, buffer.Path, c.signals.Path(domain.SignalOptimizedAudio))
		if optErr != nil {
			logger.Warn().Err(optErr).Msg("re-encode failed, uploading raw buffer")
		}
		upload = optimized
	}

	transcript, err := c.transcriber.Transcribe(ctx, upload)
	session.TranscribeModel = transcript.Model
	if err != nil {
		return c.fail(logger, session, err)
	}
	session.Transcript = transcript.Text
	if c.vocabulary != nil {
		session.Transcript = c.vocabulary.Rewrite(transcript.Text)
	}
	logger.Info().
		Str("model", transcript.Model).
		Int("attempts", transcript.Attempts).
		Bool("rewritten", session.Transcript != transcript.Text).
		Msg("transcription finished")

	if c.enhancer != nil {
		enhancement := c.enhancer.Enhance(ctx, session.Transcript)
		if enhancement.Applied {
			session.EnhancedText = enhancement.Text
			session.EnhanceModel = enhancement.Model
			session.StyleID = c.cfg.StyleID
		}
		logger.Info().
			Bool("applied", enhancement.Applied).
			Str("model", enhancement.Model).
			Int("attempts", enhancement.Attempts).
			Msg("enhancement finished")
	}

	report, reason := c.finalizer.Deliver(ctx, session)
	session.Outcome = domain.OutcomeSuccess

	if err := c.signals.Signal(domain.SignalClose, nil); err != nil {
		logger.Warn().Err(err).Msg("failed to signal close")
	}
	waitHistory := c.finalizer.Record(session, c.cfg.StyleLabel)

	logger.Info().
		Bool("copied", report.Copied).
		Bool("pasted", report.Pasted).
		Str("clipboard", report.ClipboardBackend).
		Str("paste", report.PasteBackend).
		Msg("session delivered")
	c.events.TextDelivered(session, report)
	c.events.SessionStateChanged(domain.SessionStateIdle, reason)

	waitHistory()
	return session, nil
}

func (c *SessionController) fail(logger zerolog.Logger, session domain.Session, err error) (domain.Session, error) {
	code := codeOrDefault(err, domain.ErrorCodeTranscription)
	session.Outcome = domain.OutcomeError
	if code == domain.ErrorCodeNoSpeech {
		session.Outcome = domain.OutcomeNoSpeech
	}

	flag := domain.SignalError
	if code == domain.ErrorCodeConnectivity {
		flag = domain.SignalConnectionError
	}
	if signalErr := c.signals.Signal(flag, []byte(err.Error())); signalErr != nil {
		logger.Warn().Err(signalErr).Msg("failed to signal error")
	}
	if signalErr := c.signals.Signal(domain.SignalClose, nil); signalErr != nil {
		logger.Warn().Err(signalErr).Msg("failed to signal close")
	}

	logger.Error().Err(err).Str("code", string(code)).Msg("session failed")
	c.sound.Play(domain.CueError)
	c.events.SessionError(code, err.Error())
	c.events.SessionStateChanged(domain.SessionStateError, reasonFor(code))
	return session, err
}

// Cleanup terminates whatever the session left running and removes every
// session-scoped signal file. Calling it again is harmless.
func (c *SessionController) Cleanup(ctx context.Context) error {
	if pid, err := c.signals.ReadPID(domain.SignalPID); err == nil && c.audio.Alive(pid) {
		if err := c.audio.Stop(ctx, pid); err != nil {
			c.logger.Warn().Err(err).Int("recorder_pid", pid).Msg("failed to stop recorder during cleanup")
		}
	}
	if err := c.overlay.Stop(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to stop overlay during cleanup")
	}
	return c.signals.Clear(domain.SessionSignalKinds()...)
}

// claimStop takes the stopping marker. A marker whose holder is no longer
// running is replaced; one without a readable pid may still be mid-claim.
func (c *SessionController) claimStop(logger zerolog.Logger) error {
	payload := []byte(strconv.Itoa(c.pid) + "\n")
	claimed, err := c.signals.Claim(domain.SignalStopping, payload)
	if err != nil || claimed {
		return err
	}

	holder, err := c.signals.ReadPID(domain.SignalStopping)
	if err != nil || c.processAlive == nil || c.processAlive(holder) {
		return ErrStopInProgress
	}
	logger.Warn().Int("holder_pid", holder).Msg("replacing stale stopping marker")
	if err := c.signals.Clear(domain.SignalStopping); err != nil {
		return err
	}
	claimed, err = c.signals.Claim(domain.SignalStopping, payload)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrStopInProgress
	}
	return nil
}

func codeOrDefault(err error, fallback domain.ErrorCode) domain.ErrorCode {
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	return fallback
}

func reasonFor(code domain.ErrorCode) domain.SessionStateReason {
	switch code {
	case domain.ErrorCodeRecordingTooShort:
		return domain.SessionReasonRecordingTooShort
	case domain.ErrorCodeNoSpeech:
		return domain.SessionReasonNoSpeech
	case domain.ErrorCodeConnectivity:
		return domain.SessionReasonConnectionLost
	case domain.ErrorCodeCapture:
		return domain.SessionReasonCaptureFailed
	default:
		return domain.SessionReasonTranscriptionFailed
	}
}
