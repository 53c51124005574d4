package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *OllamaEmbedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	e, err := NewOllamaEmbedder(server.URL, "nomic-embed-text")
	require.NoError(t, err)
	e.RetryDelay = 0
	return e
}

func TestEmbedText(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req["model"])
		assert.Equal(t, "what is mcp", req["prompt"])
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	})

	vec, err := e.EmbedText(context.Background(), "what is mcp")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestEmbedTextRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"model not loaded"}`, http.StatusInternalServerError)
	})
	e.MaxRetries = 2

	_, err := e.EmbedText(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbedAllPreservesOrder(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// one-dimensional vector equal to the prompt length
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{float64(len(req.Prompt))}})
	})

	texts := []string{"a", "bb", "ccc", strings.Repeat("d", 4)}
	vectors, err := EmbedAll(context.Background(), e, texts, e.MaxConcurrent)
	require.NoError(t, err)
	require.Len(t, vectors, 4)
	for i, v := range vectors {
		assert.Equal(t, []float64{float64(i + 1)}, v)
	}
}

func TestResolveHost(t *testing.T) {
	u, err := ResolveHost("http://ollama:11434")
	require.NoError(t, err)
	assert.Equal(t, "ollama:11434", u.Host)

	u, err = ResolveHost("")
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestFloat32(t *testing.T) {
	assert.Equal(t, []float32{0.5, 1}, Float32([]float64{0.5, 1}))
}
