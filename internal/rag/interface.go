// Package rag defines the interfaces for the retrieval-augmented side of the
// service: vector storage, reference-fragment retrieval, and embedding.
// Concrete implementations (Qdrant, the embedder backends) satisfy these
// interfaces so the chat layer never depends on a specific backend.
package rag

import (
	"context"
)

// Document is one reference fragment: a chunk of source-document text with
// an associated embedding in the vector index.
type Document struct {
	// ID is the unique identifier for this fragment.
	ID string

	// Content is the raw text of the fragment.
	Content string

	// Source is the origin file path of the fragment's source document.
	Source string

	// Metadata holds arbitrary key-value pairs (chunk index, page range, etc.).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32

	// Vector is the fragment's embedding when the search requested vectors
	// back (needed for marginal-relevance re-ranking). Nil otherwise.
	Vector []float32
}

// VectorStore is the interface for persisting and searching fragment
// embeddings. Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of fragments with their pre-computed
	// embeddings. The embeddings slice must be parallel to docs —
	// embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search performs a semantic similarity search and returns the top-k
	// most relevant fragments for the given query embedding. When
	// withVectors is true each result carries its stored embedding.
	// An empty index yields an empty slice, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int, withVectors bool) ([]Document, error)

	// DeleteAll removes every fragment from the index. Ingestion uses this
	// to replace the index contents wholesale before re-inserting.
	DeleteAll(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface the chat layer uses to fetch
// reference fragments for a query. Implementations must be safe to call
// from multiple goroutines.
type Retriever interface {
	// Retrieve returns up to topK fragments relevant to the query. An empty
	// index produces an empty slice; an unreachable index produces an error.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}
