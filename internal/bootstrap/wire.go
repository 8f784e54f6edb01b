package bootstrap

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"voicetype/internal/audio"
	"voicetype/internal/catalog"
	"voicetype/internal/config"
	"voicetype/internal/delivery"
	"voicetype/internal/history"
	"voicetype/internal/logging"
	"voicetype/internal/notify"
	"voicetype/internal/overlay"
	"voicetype/internal/ports"
	"voicetype/internal/process"
	"voicetype/internal/providers/groq"
	"voicetype/internal/signals"
	"voicetype/internal/sound"
	"voicetype/internal/usecase"
	"voicetype/internal/vocabulary"
)

const recorderLogName = "recorder.log"

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
	Signals    *signals.Channel
	History    *history.Log
	Overlay    *overlay.Launcher
	Notifier   *notify.Notifier
	// EnhanceStyle is the style label transcripts are rewritten in, empty
	// when enhancement is off.
	EnhanceStyle string
}

// Build wires all dependencies for one invocation.
func Build(cfg config.Config, eventSink ports.EventSink, logger zerolog.Logger) (Services, error) {
	channel, err := signals.Open(cfg.Paths.RuntimeDir)
	if err != nil {
		return Services{}, err
	}

	capture := audio.NewController(audio.Options{
		Device:  cfg.Audio.Device,
		LogFile: filepath.Join(channel.Dir(), recorderLogName),
		Logger:  logging.Component(logger, "audio"),
	})

	client := groq.NewClient(groq.Options{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.Key,
		Timeout: cfg.API.RequestTimeout,
		Logger:  logging.Component(logger, "groq"),
	})

	dictionary, err := vocabulary.Load(cfg.Paths.VocabularyFile)
	if err != nil {
		return Services{}, err
	}

	style := catalog.StyleFor(cfg.Enhance.Style)
	var enhancer ports.Enhancer
	var enhanceStyle string
	if cfg.Enhance.Enabled {
		enhancer = groq.NewEnhancer(client, catalog.EnhancementChain(cfg.Enhance.Model), style)
		enhanceStyle = style.Label
	}

	env := delivery.DetectEnv()
	log := history.New(cfg.Paths.HistoryFile)
	launcher := overlay.NewLauncher(channel, overlay.Options{
		Mode:    cfg.Feedback.Overlay,
		Command: cfg.Feedback.OverlayCommand,
		Logger:  logging.Component(logger, "overlay"),
	})

	controller := usecase.NewSessionController(
		usecase.Dependencies{
			Signals:     channel,
			Audio:       capture,
			Transcriber: groq.NewTranscriber(client, catalog.TranscriptionChain(), cfg.API.Language),
			Vocabulary:  dictionary,
			Enhancer:    enhancer,
			Delivery: delivery.NewAdapter(
				delivery.DefaultClipboards(env),
				delivery.DefaultPasters(env),
				logging.Component(logger, "delivery"),
			),
			History: log,
			Overlay: launcher,
			Sound:   sound.NewPlayer(cfg.Feedback.SoundFile, logging.Component(logger, "sound")),
			Events:  eventSink,
			Logger:  logging.Component(logger, "session"),

			ProcessAlive: process.Alive,
		},
		usecase.Config{
			Optimize:   cfg.Audio.Optimize,
			StyleID:    style.ID,
			StyleLabel: style.Label,
		},
	)

	return Services{
		Controller:   controller,
		Config:       cfg,
		Signals:      channel,
		History:      log,
		Overlay:      launcher,
		Notifier:     notify.New(cfg.Feedback.Notify, logging.Component(logger, "notify")),
		EnhanceStyle: enhanceStyle,
	}, nil
}
