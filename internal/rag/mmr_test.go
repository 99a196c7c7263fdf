package rag

import (
	"math"
	"testing"
)

func TestCosineSimilarity_Basics(t *testing.T) {
	t.Parallel()

	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: want 1, got %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: want 0, got %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("dimension mismatch: want 0, got %f", got)
	}
	if got := cosineSimilarity(nil, nil); got != 0 {
		t.Errorf("empty vectors: want 0, got %f", got)
	}
}

func TestMMR_PureRelevancePicksNearest(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []Document{
		{ID: "far", Vector: []float32{0, 1}},
		{ID: "near", Vector: []float32{1, 0.1}},
		{ID: "mid", Vector: []float32{1, 1}},
	}

	// lambda=1 disables the diversity term entirely.
	got := maximalMarginalRelevance(query, candidates, 1.0, 1)
	if len(got) != 1 || got[0].ID != "near" {
		t.Fatalf("want [near], got %v", ids(got))
	}
}

func TestMMR_DiversityAvoidsDuplicates(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	// a2 duplicates a1 exactly; b is orthogonal to both. With the diversity
	// term weighted heavier than relevance, the duplicate scores
	// lambda - (1-lambda) < 0 on the second pick while b scores 0.
	candidates := []Document{
		{ID: "a1", Vector: []float32{1, 0}},
		{ID: "a2", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}

	got := maximalMarginalRelevance(query, candidates, 0.3, 2)
	if len(got) != 2 {
		t.Fatalf("want 2 picks, got %d", len(got))
	}
	if got[0].ID != "a1" {
		t.Errorf("first pick should be the most relevant, got %s", got[0].ID)
	}
	if got[1].ID != "b" {
		t.Errorf("second pick should be the diverse candidate, got %s", got[1].ID)
	}
}

func TestMMR_KLargerThanPool(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []Document{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}

	got := maximalMarginalRelevance(query, candidates, 0.5, 10)
	if len(got) != 2 {
		t.Errorf("want all 2 candidates, got %d", len(got))
	}
}

func TestMMR_SkipsCandidatesWithoutVectors(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []Document{
		{ID: "novec"},
		{ID: "ok", Vector: []float32{1, 0}},
	}

	got := maximalMarginalRelevance(query, candidates, 0.5, 2)
	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("want [ok], got %v", ids(got))
	}
}

func TestMMR_EmptyInput(t *testing.T) {
	t.Parallel()

	if got := maximalMarginalRelevance([]float32{1}, nil, 0.5, 3); got != nil {
		t.Errorf("want nil for empty candidates, got %v", ids(got))
	}
	if got := maximalMarginalRelevance([]float32{1}, []Document{{ID: "a", Vector: []float32{1}}}, 0.5, 0); got != nil {
		t.Errorf("want nil for k=0, got %v", ids(got))
	}
}

// ids extracts document IDs for readable test failures.
func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
