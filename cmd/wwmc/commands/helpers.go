package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/wwmc-ai/wwmc-go/internal/embedder"
	"github.com/wwmc-ai/wwmc-go/internal/rag"
)

// buildVectorStore connects to Qdrant using env configuration. The caller
// owns the returned store and must Close it.
func buildVectorStore(ctx context.Context) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "wwmc-docs")
	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", "openai")
	vectorSize := uint64(embedder.DefaultDimensions(embBackend)) //nolint:gosec // dimensions are bounded

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant at %s:%d: %w", host, port, err)
	}
	return store, nil
}

// ragStack bundles the retrieval components that share one embedder and
// one Qdrant connection: the retriever for chat and the store for
// ingestion and readiness probes.
type ragStack struct {
	Retriever rag.Retriever
	Store     *rag.QdrantStore
	Embedder  rag.Embedder
}

// buildRAG wires retrieval augmentation from env configuration.
//
// Augmentation is on by default and disabled only by an explicit
// RAG_ENABLED=false. When enabled, any wiring failure (bad embedder config,
// unreachable Qdrant) is returned as an error so the caller fails loudly
// instead of running with augmentation silently inert.
//
// On success the stack and a cleanup func are returned. When augmentation
// is disabled the stack is nil and the cleanup is a no-op.
func buildRAG(ctx context.Context, log *slog.Logger) (*ragStack, func(), error) {
	noop := func() {}

	if getEnvOrDefault("RAG_ENABLED", "true") == "false" {
		log.Info("retrieval augmentation disabled", slog.String("reason", "RAG_ENABLED=false"))
		return nil, noop, nil
	}

	if err := embedder.ValidateForRAG(log); err != nil {
		return nil, noop, fmt.Errorf("augmentation wiring: %w (set RAG_ENABLED=false to run without it)", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, noop, fmt.Errorf("augmentation wiring: %w (set RAG_ENABLED=false to run without it)", err)
	}

	store, err := buildVectorStore(ctx)
	if err != nil {
		return nil, noop, fmt.Errorf("augmentation wiring: %w (set RAG_ENABLED=false to run without it)", err)
	}

	retriever, err := rag.NewMMRRetriever(emb, store, 0, 0, 0)
	if err != nil {
		_ = store.Close()
		return nil, noop, fmt.Errorf("augmentation wiring: %w", err)
	}

	log.Info("retrieval augmentation enabled",
		slog.String("collection", getEnvOrDefault("QDRANT_COLLECTION", "wwmc-docs")),
	)
	stack := &ragStack{Retriever: retriever, Store: store, Embedder: emb}
	return stack, func() { _ = store.Close() }, nil
}

// getEnvOrDefault returns the env var value or a fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or a fallback when unset
// or unparsable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
