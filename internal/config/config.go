// Package config loads the runtime configuration for the book pipeline from a
// YAML file, applying defaults and validating ranges on load.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultEnv      = "development"
	defaultBooksDir = "books"
	defaultAudioDir = "audio"

	defaultProviderType = "openai-compatible"
	defaultEndpoint     = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultWriterModel  = "gemini-3-pro-preview"
	defaultPlannerModel = "gemini-3-pro-preview"

	defaultTTSModel   = "gemini-2.5-flash-preview-tts"
	defaultTTSVoice   = "Charon"
	defaultTTSFormat  = "wav"
	defaultTTSThreads = 10

	defaultReaderPort = 2333

	// EnvAPIKey is consulted when ai.provider.api_key is left empty.
	EnvAPIKey = "BOOKFORGE_API_KEY"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Env      string        `yaml:"env"` // "development" | "production"
	BooksDir string        `yaml:"books_dir"`
	AudioDir string        `yaml:"audio_dir"`
	AI       AIConfig      `yaml:"ai"`
	Pricing  PricingConfig `yaml:"pricing"`
	TTS      TTSConfig     `yaml:"tts"`
	Storage  StorageConfig `yaml:"storage"`
	Reader   ReaderConfig  `yaml:"reader"`
}

// AIProvider describes one generative backend endpoint.
type AIProvider struct {
	Type     string `yaml:"type"` // openai-compatible | openai | anthropic
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

// AIConfig selects the backend provider and the models used per flow.
type AIConfig struct {
	Provider        AIProvider `yaml:"provider"`
	WriterModel     string     `yaml:"writer_model"`
	PlannerModel    string     `yaml:"planner_model"`
	MaxOutputTokens int        `yaml:"max_output_tokens"` // 0 = provider default
}

// RateTable holds per-million-token rates in USD.
type RateTable struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// TTSPricing holds per-million-character speech rates in USD.
type TTSPricing struct {
	PerMillionChars float64 `yaml:"per_million_chars"`
	BatchDiscount   float64 `yaml:"batch_discount"` // multiplier applied in batch mode
}

// PricingConfig holds the tiered token rates. Rates are configuration
// constants; defaults match the Nov 2025 Gemini 3 Pro price sheet.
type PricingConfig struct {
	LongContextThreshold int64      `yaml:"long_context_threshold"`
	Standard             RateTable  `yaml:"standard"`
	LongContext          RateTable  `yaml:"long_context"`
	TTS                  TTSPricing `yaml:"tts"`
}

// TTSConfig configures the audio synthesis stage.
type TTSConfig struct {
	Model   string `yaml:"model"`
	Voice   string `yaml:"voice"`
	Format  string `yaml:"format"` // wav | mp3 | opus
	Threads int    `yaml:"threads"`
}

// S3Options configures the object-storage content store.
type S3Options struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
	PathStyleAccess bool   `yaml:"path_style_access"`
}

// StorageConfig selects where generated content is written.
type StorageConfig struct {
	Backend string    `yaml:"backend"` // fs | s3
	S3      S3Options `yaml:"s3"`
}

// ReaderConfig configures the preview HTTP server.
type ReaderConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development") || c.Env == ""
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Env:      defaultEnv,
		BooksDir: defaultBooksDir,
		AudioDir: defaultAudioDir,
		AI: AIConfig{
			Provider: AIProvider{
				Type:     defaultProviderType,
				Endpoint: defaultEndpoint,
			},
			WriterModel:  defaultWriterModel,
			PlannerModel: defaultPlannerModel,
		},
		Pricing: PricingConfig{
			LongContextThreshold: 200_000,
			Standard:             RateTable{InputPerMillion: 2.00, OutputPerMillion: 12.00},
			LongContext:          RateTable{InputPerMillion: 4.00, OutputPerMillion: 18.00},
			TTS:                  TTSPricing{PerMillionChars: 10.00, BatchDiscount: 0.5},
		},
		TTS: TTSConfig{
			Model:   defaultTTSModel,
			Voice:   defaultTTSVoice,
			Format:  defaultTTSFormat,
			Threads: defaultTTSThreads,
		},
		Storage: StorageConfig{Backend: "fs"},
		Reader:  ReaderConfig{Port: defaultReaderPort},
	}
}

// Load reads the YAML config at configPath, falling back to defaults for
// absent fields. Unknown keys are rejected. When no explicit path was given
// and the default file does not exist, the pure defaults are returned.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && strings.TrimSpace(configPath) == "" {
			applyEnvFallbacks(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	applyEnvFallbacks(&cfg)
	if err := validate(&cfg, path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvFallbacks(cfg *AppConfig) {
	if strings.TrimSpace(cfg.AI.Provider.APIKey) == "" {
		cfg.AI.Provider.APIKey = strings.TrimSpace(os.Getenv(EnvAPIKey))
	}
}

func validate(cfg *AppConfig, path string) error {
	if cfg.TTS.Threads < 1 {
		return fmt.Errorf("invalid tts.threads %d in %q, expected >= 1", cfg.TTS.Threads, path)
	}
	if cfg.Reader.Port < 1 || cfg.Reader.Port > 65535 {
		return fmt.Errorf("invalid reader.port %d in %q, expected 1-65535", cfg.Reader.Port, path)
	}
	if cfg.Pricing.LongContextThreshold < 0 {
		return fmt.Errorf("invalid pricing.long_context_threshold %d in %q, expected >= 0", cfg.Pricing.LongContextThreshold, path)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", "fs", "s3":
	default:
		return fmt.Errorf("invalid storage.backend %q in %q, expected fs or s3", cfg.Storage.Backend, path)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.TTS.Format)) {
	case "wav", "mp3", "opus":
	default:
		return fmt.Errorf("invalid tts.format %q in %q, expected wav, mp3 or opus", cfg.TTS.Format, path)
	}
	return nil
}
