package rag

import (
	"context"
	"fmt"
)

// Default marginal-relevance parameters, matching the retriever policy this
// service has always run with: over-fetch 10 candidates and balance
// relevance against diversity evenly.
const (
	// DefaultFetchK is the number of candidates fetched before re-ranking.
	DefaultFetchK = 10
	// DefaultLambda is the relevance/diversity balance (1 = pure relevance).
	DefaultLambda = 0.5
	// DefaultTopK is the number of fragments returned to the caller.
	DefaultTopK = 4
)

// MMRRetriever implements Retriever by combining an Embedder and a
// VectorStore with maximal-marginal-relevance re-ranking: the query is
// embedded, fetchK candidates are pulled from the store with their vectors,
// and the final topK picks trade relevance against diversity.
type MMRRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// fetchK is the candidate pool size fetched before re-ranking.
	fetchK int

	// lambda is the relevance/diversity trade-off in [0,1].
	lambda float64

	// defaultTopK is the result count used when the caller passes 0.
	defaultTopK int
}

// NewMMRRetriever constructs an MMRRetriever. Zero values for fetchK,
// lambda, and defaultTopK select the package defaults.
func NewMMRRetriever(embedder Embedder, store VectorStore, fetchK int, lambda float64, defaultTopK int) (*MMRRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if fetchK <= 0 {
		fetchK = DefaultFetchK
	}
	if lambda <= 0 || lambda > 1 {
		lambda = DefaultLambda
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &MMRRetriever{
		embedder:    embedder,
		store:       store,
		fetchK:      fetchK,
		lambda:      lambda,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns up to topK fragments re-ranked by
// maximal marginal relevance. An empty index yields an empty slice; store
// or embedder failures yield an error so callers can tell "nothing found"
// from "index unreachable".
func (r *MMRRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}
	queryVec := embeddings[0]

	fetchK := r.fetchK
	if fetchK < topK {
		fetchK = topK
	}

	candidates, err := r.store.Search(ctx, queryVec, fetchK, true)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	return maximalMarginalRelevance(queryVec, candidates, r.lambda, topK), nil
}
