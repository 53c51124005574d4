package llm

import (
	"fmt"

	"course-rag/internal/config"
)

// NewClient builds the chat client selected by configuration
func NewClient(cfg config.LLMConfig) (Client, error) {
	opts := Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(cfg.Host, cfg.Model, opts)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.Host, cfg.APIKey.Value(), cfg.Model, opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", config.ErrInvalidConfig, cfg.Provider)
	}
}
