package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ollamaRequestTimeout bounds one /api/embed call. Ingestion sends whole
// chunk batches per call, so this is sized for batches, not single texts.
const ollamaRequestTimeout = 60 * time.Second

// OllamaEmbedder produces reference-fragment embeddings from a local Ollama
// instance. Ollama needs no credentials, which makes it the zero-setup
// option for developing the retrieval path. Safe for concurrent use.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama base URL, e.g. "http://localhost:11434".
	Host string
	// Model is the embedding model name, e.g. "nomic-embed-text".
	Model string
}

// NewOllamaEmbedder constructs an OllamaEmbedder from the given config.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{
		baseURL:    cfg.Host,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: ollamaRequestTimeout},
	}
}

// ollamaEmbedBody is the request payload for Ollama's batch /api/embed API.
type ollamaEmbedBody struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResult is the reply. Error is populated instead of Embeddings
// when the server rejects the call (unknown model, bad input).
type ollamaEmbedResult struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed sends texts to /api/embed in one batch and returns the vectors in
// input order. The result slice is parallel to texts; a length mismatch from
// the server is an error, never silently truncated.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(ollamaEmbedBody{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: read response: %w", err)
	}

	var result ollamaEmbedResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("ollama embedder: decode response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if result.Error != "" {
			return nil, fmt.Errorf("ollama embedder: %s", result.Error)
		}
		return nil, fmt.Errorf("ollama embedder: HTTP %d", resp.StatusCode)
	}

	if got, want := len(result.Embeddings), len(texts); got != want {
		return nil, fmt.Errorf("ollama embedder: expected %d embeddings, got %d", want, got)
	}

	return result.Embeddings, nil
}
