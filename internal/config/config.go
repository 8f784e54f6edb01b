package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"voicetype/internal/domain"
)

// Keys recognized in the configuration file.
const (
	KeyAPIKey          = "GROQ_API_KEY"
	KeyAPIBaseURL      = "API_BASE_URL"
	KeyRequestTimeout  = "REQUEST_TIMEOUT_SECONDS"
	KeyLanguage        = "LANGUAGE"
	KeyEnhance         = "ENHANCE"
	KeyEnhanceStyle    = "ENHANCE_STYLE"
	KeyEnhanceModel    = "ENHANCE_MODEL"
	KeySoundFile       = "SOUND_FILE"
	KeyHistoryFile     = "HISTORY_FILE"
	KeyVocabularyFile  = "VOCABULARY_FILE"
	KeyOverlay         = "OVERLAY"
	KeyOverlayCommand  = "OVERLAY_COMMAND"
	KeyAudioDevice     = "AUDIO_DEVICE"
	KeyOptimizeAudio   = "OPTIMIZE_AUDIO"
	KeyRuntimeDir      = "RUNTIME_DIR"
	KeySettingsCommand = "SETTINGS_COMMAND"
	KeyNotify          = "NOTIFY"
	KeyLogLevel        = "LOG_LEVEL"
)

const (
	envPrefix      = "VOICETYPE"
	defaultBaseURL = "https://api.groq.com/openai/v1"
	AutoModel      = "auto"
	AutoLanguage   = "auto"
)

// Config stores runtime configuration. It is loaded once at process entry
// and passed explicitly to every component.
type Config struct {
	Path string

	API      APIConfig
	Enhance  EnhanceConfig
	Audio    AudioConfig
	Feedback FeedbackConfig
	Paths    PathsConfig
	LogLevel string `key:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
}

type APIConfig struct {
	Key            string        `key:"GROQ_API_KEY" validate:"required"`
	BaseURL        string        `key:"API_BASE_URL" validate:"required,url"`
	RequestTimeout time.Duration `key:"REQUEST_TIMEOUT_SECONDS" validate:"gt=0"`
	// Language is empty for remote auto-detection.
	Language string `key:"LANGUAGE"`
}

type EnhanceConfig struct {
	Enabled bool
	Style   string `key:"ENHANCE_STYLE" validate:"required"`
	// Model is "auto" for the full fallback chain or a pinned model id.
	Model string `key:"ENHANCE_MODEL" validate:"required"`
}

type AudioConfig struct {
	Device   string
	Optimize bool
}

type FeedbackConfig struct {
	SoundFile      string
	Overlay        string `key:"OVERLAY" validate:"oneof=auto on off"`
	OverlayCommand string
	Notify         bool
}

type PathsConfig struct {
	// RuntimeDir holds the signal files. The stock overlay only polls /tmp.
	RuntimeDir  string `key:"RUNTIME_DIR" validate:"required"`
	HistoryFile string `key:"HISTORY_FILE" validate:"required"`
	// VocabularyFile holds transcript substitutions. A missing file is fine.
	VocabularyFile  string
	SettingsCommand string
}

// DefaultPath resolves the configuration file location.
func DefaultPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG")); explicit != "" {
		return explicit, nil
	}
	dir, err := configHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "voicetype", "config.env"), nil
}

// Load reads the key="value" file at path (a missing file is not an error),
// applies environment overrides and defaults, and validates the result.
// A configuration error is returned as a domain.Error with ErrorCodeConfig.
func Load(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, domain.NewError(domain.ErrorCodeConfig, "could not determine home directory", err)
	}

	v := viper.New()
	v.SetConfigType("env")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv(strings.ToLower(KeyAPIKey), envPrefix+"_"+KeyAPIKey, KeyAPIKey)

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, domain.NewError(domain.ErrorCodeConfig, fmt.Sprintf("failed to read %s", path), err)
			}
		}
	}

	cfg := Config{
		Path: path,
		API: APIConfig{
			Key:            valueOf(v, KeyAPIKey),
			BaseURL:        strings.TrimRight(valueOrDefault(v, KeyAPIBaseURL, defaultBaseURL), "/"),
			RequestTimeout: time.Duration(intOrDefault(v, KeyRequestTimeout, 30)) * time.Second,
			Language:       normalizeLanguage(valueOf(v, KeyLanguage)),
		},
		Enhance: EnhanceConfig{
			Enabled: boolOrDefault(v, KeyEnhance, false),
			Style:   strings.ToLower(valueOrDefault(v, KeyEnhanceStyle, "clean")),
			Model:   valueOrDefault(v, KeyEnhanceModel, AutoModel),
		},
		Audio: AudioConfig{
			Device:   valueOf(v, KeyAudioDevice),
			Optimize: boolOrDefault(v, KeyOptimizeAudio, true),
		},
		Feedback: FeedbackConfig{
			SoundFile:      expandHome(valueOf(v, KeySoundFile), home),
			Overlay:        strings.ToLower(valueOrDefault(v, KeyOverlay, "auto")),
			OverlayCommand: valueOrDefault(v, KeyOverlayCommand, "voicetype-overlay"),
			Notify:         boolOrDefault(v, KeyNotify, true),
		},
		Paths: PathsConfig{
			RuntimeDir:      expandHome(valueOrDefault(v, KeyRuntimeDir, defaultRuntimeDir()), home),
			HistoryFile:     expandHome(valueOrDefault(v, KeyHistoryFile, defaultHistoryFile(home)), home),
			VocabularyFile:  expandHome(valueOrDefault(v, KeyVocabularyFile, defaultVocabularyFile(home)), home),
			SettingsCommand: valueOrDefault(v, KeySettingsCommand, "voicetype-settings"),
		},
		LogLevel: strings.ToLower(valueOrDefault(v, KeyLogLevel, "info")),
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Set persists a single key in the configuration file, keeping every other
// key untouched. The file and its directory are created when missing.
func Set(path string, key string, value string) error {
	values := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to read config %q: %w", path, err)
		}
		values = existing
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat config %q: %w", path, err)
	}

	values[strings.ToUpper(strings.TrimSpace(key))] = value

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("failed to write config %q: %w", path, err)
	}
	return nil
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(field reflect.StructField) string {
		if key := field.Tag.Get("key"); key != "" {
			return key
		}
		return field.Name
	})
	return val
}

func validate(cfg Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewError(domain.ErrorCodeConfig, "invalid configuration", err)
	}

	first := fieldErrs[0]
	var message string
	switch first.Tag() {
	case "required":
		message = fmt.Sprintf("%s is not configured", first.Field())
	case "oneof":
		message = fmt.Sprintf("%s must be one of %s, got %q", first.Field(), first.Param(), first.Value())
	default:
		message = fmt.Sprintf("%s is invalid (%s)", first.Field(), first.Tag())
	}
	return domain.NewError(domain.ErrorCodeConfig, message, err)
}

func configHome() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	return filepath.Join(home, ".config"), nil
}

func defaultRuntimeDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return filepath.Join(dir, "voicetype")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("voicetype-%d", os.Getuid()))
}

func defaultHistoryFile(home string) string {
	if dir := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dir != "" {
		return filepath.Join(dir, "voicetype", "history.md")
	}
	return filepath.Join(home, ".local", "share", "voicetype", "history.md")
}

func defaultVocabularyFile(home string) string {
	dir, err := configHome()
	if err != nil {
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "voicetype", "vocabulary.rules")
}

func normalizeLanguage(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == AutoLanguage {
		return ""
	}
	return value
}

func expandHome(path string, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func valueOf(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(strings.ToLower(key)))
}

func valueOrDefault(v *viper.Viper, key string, fallback string) string {
	value := valueOf(v, key)
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(v *viper.Viper, key string, fallback int) int {
	value := valueOf(v, key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func boolOrDefault(v *viper.Viper, key string, fallback bool) bool {
	switch strings.ToLower(valueOf(v, key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
