package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is read from the environment once at startup.
type Config struct {
	Port        string `envconfig:"PORT" default:"8888"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	CatalogPath string `envconfig:"CATALOG_PATH"`

	Provider string `envconfig:"IMAGE_PROVIDER" default:"gemini"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash-image"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-image-1"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`

	EditTimeout   time.Duration `envconfig:"EDIT_TIMEOUT" default:"90s"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	MaxImageBytes int64         `envconfig:"MAX_IMAGE_BYTES" default:"10485760"`
}

// Load reads the configuration from the environment. It does not validate
// provider credentials so commands that never call a provider still run.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return &cfg, nil
}

// Validate checks the settings needed to edit images.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	default:
		return fmt.Errorf("unsupported IMAGE_PROVIDER %q (want %s or %s)", c.Provider, ProviderGemini, ProviderOpenAI)
	}
	if c.EditTimeout <= 0 {
		return fmt.Errorf("EDIT_TIMEOUT must be positive")
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
