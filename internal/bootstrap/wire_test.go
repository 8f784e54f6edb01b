package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"voicetype/internal/config"
	"voicetype/internal/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		API: config.APIConfig{
			Key:     "test-key",
			BaseURL: "http://127.0.0.1:1",
		},
		Enhance: config.EnhanceConfig{
			Style: "formal",
			Model: config.AutoModel,
		},
		Feedback: config.FeedbackConfig{Overlay: "off"},
		Paths: config.PathsConfig{
			RuntimeDir:     filepath.Join(dir, "run"),
			HistoryFile:    filepath.Join(dir, "history.md"),
			VocabularyFile: filepath.Join(dir, "vocabulary.rules"),
		},
	}
}

func TestBuildSuccess(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	services, err := Build(cfg, noopEventSink{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil || services.Signals == nil {
		t.Fatalf("expected controller and signal channel")
	}
	if services.EnhanceStyle != "" {
		t.Fatalf("enhancement should be off unless enabled, got style %q", services.EnhanceStyle)
	}
	if info, err := os.Stat(cfg.Paths.RuntimeDir); err != nil || !info.IsDir() {
		t.Fatalf("runtime dir not created: %v", err)
	}
	if services.History.Path() != cfg.Paths.HistoryFile {
		t.Fatalf("unexpected history path %q", services.History.Path())
	}
	if services.Overlay.Enabled() {
		t.Fatalf("overlay must be disabled when configured off")
	}
	if status := services.Controller.Status(); status.Active {
		t.Fatalf("fresh runtime should be idle: %+v", status)
	}
}

func TestBuildWithEnhancement(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Enhance.Enabled = true
	services, err := Build(cfg, noopEventSink{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.EnhanceStyle == "" {
		t.Fatalf("expected enhancement to be wired with a style")
	}
}

func TestBuildFailsOnUnusableRuntimeDir(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg.Paths.RuntimeDir = filepath.Join(blocker, "run")

	if _, err := Build(cfg, noopEventSink{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected build error for runtime dir below a file")
	}
}

func TestBuildRejectsInvalidVocabulary(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Paths.VocabularyFile, []byte("not a substitution\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := Build(cfg, noopEventSink{}, zerolog.Nop())
	if domain.CodeOf(err) != domain.ErrorCodeConfig {
		t.Fatalf("expected config error for invalid vocabulary, got %v", err)
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(_ domain.SessionState, _ domain.SessionStateReason) {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)                              {}
func (noopEventSink) TextDelivered(_ domain.Session, _ domain.DeliveryReport)                {}
