package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// OpenAIEmbedder against a stub HTTP server
// ---------------------------------------------------------------------------

func TestOpenAIEmbedder_ReordersByIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// Return the two embeddings out of order; Embed must sort by index.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "text-embedding-3-small"})

	got, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 embeddings, got %d", len(got))
	}
	if got[0][0] != 1 || got[1][1] != 1 {
		t.Errorf("embeddings not reordered by index: %v", got)
	}
}

func TestOpenAIEmbedder_APIErrorSurfaced(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "bad", Model: "m"})

	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Errorf("want error on HTTP 401")
	}
}

// ---------------------------------------------------------------------------
// OllamaEmbedder against a stub HTTP server
// ---------------------------------------------------------------------------

func TestOllamaEmbedder_ParallelResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})

	got, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 2 {
		t.Errorf("unexpected shape: %v", got)
	}
}

func TestOllamaEmbedder_ServerErrorSurfaced(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model not found"})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "missing"})

	_, err := e.Embed(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("server error message should reach the caller, got %v", err)
	}
}

func TestOllamaEmbedder_CountMismatchIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1}},
		})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "m"})

	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Errorf("want error when result count differs from input count")
	}
}

// ---------------------------------------------------------------------------
// Model-name validation heuristics
// ---------------------------------------------------------------------------

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()

	chatty := []string{"gpt-4o", "claude-3-5-sonnet", "llama3:8b", "Mixtral-8x7B"}
	for _, m := range chatty {
		if !looksLikeChatModel(m) {
			t.Errorf("%s should be flagged as a chat model", m)
		}
	}

	embedders := []string{"nomic-embed-text", "text-embedding-3-small", "bge-m3"}
	for _, m := range embedders {
		if looksLikeChatModel(m) {
			t.Errorf("%s should not be flagged", m)
		}
	}
}
