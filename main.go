package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"voicetype/internal/audio"
	"voicetype/internal/bootstrap"
	"voicetype/internal/config"
	"voicetype/internal/domain"
	"voicetype/internal/logging"
	"voicetype/internal/signals"
	"voicetype/internal/usecase"
)

const (
	exitOK         = 0
	exitSession    = 1
	exitConfig     = 2
	exitDependency = 3

	historyRows = 5
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	flags := flag.NewFlagSet("voicetype", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "path to the configuration file")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: voicetype [-config path] [toggle|lang [code]|status|cleanup|watch]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	path := *configPath
	if path == "" {
		resolved, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitConfig
		}
		path = resolved
	}

	command := "toggle"
	if flags.NArg() > 0 {
		command = strings.ToLower(flags.Arg(0))
	}

	cfg, loadErr := config.Load(path)
	if loadErr != nil && (command == "toggle" || cfg.Paths.RuntimeDir == "") {
		fmt.Fprintln(stderr, loadErr)
		return exitConfig
	}

	logger, closer := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		File:    filepath.Join(cfg.Paths.RuntimeDir, signals.DebugLogName),
		Console: stderr,
	})
	defer closer.Close()
	if loadErr != nil {
		logger.Debug().Err(loadErr).Str("command", command).Msg("continuing with incomplete configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command == "lang" {
		return runLang(ctx, cfg, path, flags.Args()[1:], stdout, stderr)
	}

	app := NewApp(logging.Component(logger, "app"))
	services, err := bootstrap.Build(cfg, app, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitCode(err)
	}
	app.bind(services)

	switch command {
	case "toggle":
		return runToggle(ctx, services.Controller, stdout, logger)
	case "status":
		return runStatus(services, stdout, stderr)
	case "cleanup":
		if err := services.Controller.Cleanup(ctx); err != nil {
			fmt.Fprintln(stderr, err)
			return exitSession
		}
		app.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonCleanedUp)
		fmt.Fprintln(stdout, sessionReasonMessage(domain.SessionReasonCleanedUp))
		return exitOK
	case "watch":
		return runWatch(ctx, services.Signals, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		flags.Usage()
		return exitConfig
	}
}

func runToggle(ctx context.Context, controller *usecase.SessionController, stdout io.Writer, logger zerolog.Logger) int {
	result, err := controller.Toggle(ctx)
	if err != nil {
		logger.Debug().Err(err).Str("action", string(result.Action)).Msg("toggle failed")
		return exitCode(err)
	}
	switch result.Action {
	case domain.ToggleStopped:
		fmt.Fprintln(stdout, result.Session.FinalText())
	case domain.ToggleIgnored:
		logger.Info().Msg("session is already being stopped")
	}
	return exitOK
}

func runLang(ctx context.Context, cfg config.Config, path string, args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) > 0 {
		code := strings.ToLower(strings.TrimSpace(args[0]))
		if err := config.Set(path, config.KeyLanguage, code); err != nil {
			fmt.Fprintln(stderr, err)
			return exitConfig
		}
		fmt.Fprintf(stdout, "language set to %s\n", code)
		return exitOK
	}

	if cfg.Paths.SettingsCommand == "" {
		fmt.Fprintln(stderr, "no settings command configured")
		return exitConfig
	}
	cmd := exec.CommandContext(ctx, cfg.Paths.SettingsCommand, "language")
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(stderr, "settings command failed: %v\n", err)
		if errors.Is(err, exec.ErrNotFound) {
			return exitDependency
		}
		return exitSession
	}
	return exitOK
}

func runStatus(services bootstrap.Services, stdout io.Writer, stderr io.Writer) int {
	rows, err := services.History.Tail(historyRows)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read history: %v\n", err)
	}
	fmt.Fprint(stdout, renderStatus(services.Controller.Status(), services.EnhanceStyle, rows, services.History.Path(), time.Now()))
	return exitOK
}

func runWatch(ctx context.Context, channel *signals.Channel, stdout io.Writer, stderr io.Writer) int {
	events, err := channel.Watch(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitSession
	}
	for ev := range events {
		state := "cleared"
		if ev.Present {
			state = "raised"
		}
		fmt.Fprintf(stdout, "%s %-16s %s\n", ev.At.Format(time.TimeOnly), ev.Kind, state)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, audio.ErrNoRecorder):
		return exitDependency
	case domain.CodeOf(err) == domain.ErrorCodeConfig:
		return exitConfig
	default:
		return exitSession
	}
}
