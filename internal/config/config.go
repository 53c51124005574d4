// Package config loads course-rag configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Supported providers and backends
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	BackendChromem  = "chromem"
	BackendPostgres = "postgres"
)

// Config is the full application configuration
type Config struct {
	LLM       LLMConfig       `koanf:"llm"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Store     StoreConfig     `koanf:"store"`
	Session   SessionConfig   `koanf:"session"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// LLMConfig selects the chat model
type LLMConfig struct {
	Provider    string  `koanf:"provider"`
	Model       string  `koanf:"model"`
	Host        string  `koanf:"host"`
	APIKey      Secret  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// EmbeddingConfig selects the Ollama embedding model
type EmbeddingConfig struct {
	Model         string   `koanf:"model"`
	Host          string   `koanf:"host"`
	Dimensions    int      `koanf:"dimensions"`
	MaxRetries    int      `koanf:"max_retries"`
	Timeout       Duration `koanf:"timeout"`
	MaxConcurrent int      `koanf:"max_concurrent"`
}

// StoreConfig selects the vector backend
type StoreConfig struct {
	Backend     string `koanf:"backend"`
	Path        string `koanf:"path"`
	Compress    bool   `koanf:"compress"`
	PostgresDSN Secret `koanf:"postgres_dsn"`
	MaxResults  int    `koanf:"max_results"`
}

// SessionConfig bounds conversation history
type SessionConfig struct {
	MaxHistory int `koanf:"max_history"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOllama,
			Model:       "llama3.1",
			Temperature: 0,
			MaxTokens:   800,
		},
		Embedding: EmbeddingConfig{
			Model:         "nomic-embed-text",
			Dimensions:    768,
			MaxRetries:    3,
			Timeout:       Duration(30 * time.Second),
			MaxConcurrent: 3,
		},
		Store: StoreConfig{
			Backend:    BackendChromem,
			Path:       "~/.course-rag/chromem",
			MaxResults: 5,
		},
		Session: SessionConfig{MaxHistory: 2},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// applyDefaults fills zero values left by the file and environment
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = def.LLM.Provider
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = def.Embedding.Dimensions
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = def.Embedding.MaxRetries
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = def.Embedding.Timeout
	}
	if cfg.Embedding.MaxConcurrent == 0 {
		cfg.Embedding.MaxConcurrent = def.Embedding.MaxConcurrent
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.Backend == BackendChromem && cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Store.MaxResults == 0 {
		cfg.Store.MaxResults = def.Store.MaxResults
	}
	if cfg.Session.MaxHistory == 0 {
		cfg.Session.MaxHistory = def.Session.MaxHistory
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// Validate checks provider and backend names and numeric limits
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOllama:
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%w: llm.api_key is required for provider %s", ErrInvalidConfig, ProviderOpenAI)
		}
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrInvalidConfig, c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be within [0, 2], got %v", ErrInvalidConfig, c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm.max_tokens must be positive", ErrInvalidConfig)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidConfig)
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("%w: embedding.max_retries cannot be negative", ErrInvalidConfig)
	}
	if c.Embedding.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: embedding.max_concurrent must be positive", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case BackendChromem:
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("%w: store.postgres_dsn is required for backend %s", ErrInvalidConfig, BackendPostgres)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Store.MaxResults <= 0 {
		return fmt.Errorf("%w: store.max_results must be positive", ErrInvalidConfig)
	}

	if c.Session.MaxHistory <= 0 {
		return fmt.Errorf("%w: session.max_history must be positive", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format must be json or console, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
