package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FieldComponent tags log lines with the emitting component.
const FieldComponent = "component"

// Config controls where the orchestrator writes its logs.
type Config struct {
	Level string
	// File is the free-form debug log of the orchestrator. Empty disables it.
	File string
	// Console receives warnings and errors. Defaults to stderr.
	Console io.Writer
}

// New builds the process logger. The returned closer flushes the debug log.
func New(cfg Config) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	consoleLevel := zerolog.WarnLevel
	if level <= zerolog.DebugLevel {
		consoleLevel = level
	}

	writers := []io.Writer{
		levelFilter{
			writer: zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly},
			min:    consoleLevel,
		},
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err == nil {
			rotator := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    5,
				MaxBackups: 2,
				MaxAge:     14,
			}
			writers = append(writers, rotator)
			closer = rotator
		}
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
	return logger, closer
}

// Component returns a child logger tagged with name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str(FieldComponent, name).Logger()
}

type levelFilter struct {
	writer io.Writer
	min    zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.writer.Write(p)
}

func (f levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.writer.Write(p)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
