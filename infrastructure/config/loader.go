package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"ytaudio-bot/application/pipeline"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables holding the secrets
const (
	EnvBotToken      = "BOT_TOKEN"
	EnvYouTubeAPIKey = "YOUTUBE_API_KEY"
)

// DefaultPath is the config file used when --config is not given
const DefaultPath = "config/config.yaml"

// Config represents the complete application configuration
type Config struct {
	Telegram  TelegramConfig    `yaml:"telegram"`
	YouTube   YouTubeConfig     `yaml:"youtube"`
	Extractor ExtractorConfig   `yaml:"extractor"`
	Workers   WorkersConfig     `yaml:"workers"`
	Logging   LoggingConfig     `yaml:"logging"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Messages  pipeline.Messages `yaml:"messages"`
}

// TelegramConfig contains chat transport settings
type TelegramConfig struct {
	Token        string  `yaml:"token,omitempty"`
	PollTimeout  int     `yaml:"poll_timeout" validate:"gte=0"` // seconds
	AllowedChats []int64 `yaml:"allowed_chats,omitempty"`
}

// YouTubeConfig contains metadata API settings
type YouTubeConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
}

// ExtractorConfig contains extraction tool settings
type ExtractorConfig struct {
	Path        string   `yaml:"path" validate:"required"`
	FFmpegPath  string   `yaml:"ffmpeg_path,omitempty"` // empty uses ffmpeg from PATH
	AudioFormat string   `yaml:"audio_format" validate:"required"`
	Timeout     string   `yaml:"timeout"` // Go duration, e.g. "10m"
	ExtraArgs   []string `yaml:"extra_args,omitempty"`
}

// WorkersConfig contains worker pool settings
type WorkersConfig struct {
	Count     int `yaml:"count" validate:"gt=0"`
	QueueSize int `yaml:"queue_size" validate:"gt=0"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`                                       // debug, info, warn, error
	Format string `yaml:"format" validate:"omitempty,oneof=text json"` // text, json
}

// MetricsConfig contains metrics endpoint settings
type MetricsConfig struct {
	Address string `yaml:"address,omitempty"` // empty disables the endpoint
}

// Default returns a configuration with every optional value filled in
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeout: 30},
		Extractor: ExtractorConfig{
			Path:        "yt-dlp",
			AudioFormat: "mp3",
			Timeout:     "10m",
		},
		Workers:  WorkersConfig{Count: 5, QueueSize: 100},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Messages: pipeline.DefaultMessages(),
	}
}

// Load reads and parses the configuration from the specified YAML file.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Messages = cfg.Messages.WithDefaults()

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when the file does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file, creating its
// directory when needed
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides secrets with values from the environment.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBotToken); ok && strings.TrimSpace(v) != "" {
		c.Telegram.Token = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvYouTubeAPIKey); ok && strings.TrimSpace(v) != "" {
		c.YouTube.APIKey = strings.TrimSpace(v)
	}
}

// ExtractionTimeout parses the extractor timeout; an empty value means no bound
func (c *Config) ExtractionTimeout() (time.Duration, error) {
	if c.Extractor.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Extractor.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid extractor timeout %q: %w", c.Extractor.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("extractor timeout must not be negative")
	}
	return d, nil
}

// Validate checks everything the bot needs to start
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, EnvBotToken)
	}
	if c.YouTube.APIKey == "" {
		missing = append(missing, EnvYouTubeAPIKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSecret, strings.Join(missing, ", "))
	}

	return c.ValidateSettings()
}

// ValidateSettings checks the non-secret settings
func (c *Config) ValidateSettings() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.ExtractionTimeout(); err != nil {
		return err
	}
	return nil
}

var validate = newValidator()

// newValidator reports fields by their YAML names, e.g. "workers.count"
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldError(fe validator.FieldError) error {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "gt":
		return fmt.Errorf("%s must be greater than %s, got %v", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Errorf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of %s, got %q", field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	}
	return fmt.Errorf("%s failed the %q check", field, fe.Tag())
}

// Redacted returns a copy with secrets masked, for display
func (c *Config) Redacted() *Config {
	out := *c
	out.Telegram.Token = mask(c.Telegram.Token)
	out.YouTube.APIKey = mask(c.YouTube.APIKey)
	out.Telegram.AllowedChats = append([]int64(nil), c.Telegram.AllowedChats...)
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
