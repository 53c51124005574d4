package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"golang.org/x/sync/errgroup"
)

// Embedder turns text into vectors
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// OllamaEmbedder generates embeddings using Ollama API
type OllamaEmbedder struct {
	Client        *api.Client
	Model         string
	MaxRetries    int
	RetryDelay    time.Duration
	Timeout       time.Duration
	MaxConcurrent int
}

// NewOllamaEmbedder creates a new Ollama embedder. An empty host falls back
// to OLLAMA_HOST.
func NewOllamaEmbedder(host string, model string) (*OllamaEmbedder, error) {
	hostURL, err := ResolveHost(host)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaEmbedder{
		Client:        client,
		Model:         model,
		MaxRetries:    3,
		RetryDelay:    time.Second,
		Timeout:       time.Second * 30,
		MaxConcurrent: 3,
	}, nil
}

// ResolveHost parses an Ollama base URL, defaulting to the environment
func ResolveHost(host string) (*url.URL, error) {
	if host == "" {
		return envconfig.Host(), nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return u, nil
}

// EmbedText generates an embedding for a text
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64
	var err error

	for retries := 0; retries <= e.MaxRetries; retries++ {
		if retries > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(retries) * e.RetryDelay):
			}
		}

		embedding, err = e.createEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
	}

	return nil, fmt.Errorf("failed to create embedding after %d retries: %w", e.MaxRetries, err)
}

// createEmbedding is a helper function to create a single embedding
func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float64, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("model %s returned an empty embedding", e.Model)
	}

	return resp.Embedding, nil
}

// EmbedAll embeds texts through any embedder with at most maxConcurrent
// requests in flight. Results are in input order.
func EmbedAll(ctx context.Context, e Embedder, texts []string, maxConcurrent int) ([][]float64, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	vectors := make([][]float64, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i := range texts {
		g.Go(func() error {
			vec, err := e.EmbedText(gctx, texts[i])
			if err != nil {
				return fmt.Errorf("failed to embed text %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}

// Float32 converts a vector for stores that keep single precision
func Float32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
