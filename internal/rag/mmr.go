package rag

import "math"

// maximalMarginalRelevance re-ranks candidates by the maximal-marginal-
// relevance criterion: each pick maximises
//
//	lambda*sim(query, d) - (1-lambda)*max over selected s of sim(d, s)
//
// so lambda=1 is pure relevance and lambda=0 is pure diversity. Candidates
// without a vector are skipped. Returns at most k documents, in pick order.
func maximalMarginalRelevance(queryVec []float32, candidates []Document, lambda float64, k int) []Document {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}

	pool := make([]Document, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) > 0 {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return nil
	}

	selected := make([]Document, 0, k)
	picked := make([]bool, len(pool))

	for len(selected) < k && len(selected) < len(pool) {
		bestIdx := -1
		bestScore := 0.0

		for i, c := range pool {
			if picked[i] {
				continue
			}

			relevance := cosineSimilarity(queryVec, c.Vector)

			redundancy := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(c.Vector, s.Vector); sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*relevance - (1-lambda)*redundancy
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}

		if bestIdx == -1 {
			break
		}
		picked[bestIdx] = true
		selected = append(selected, pool[bestIdx])
	}

	return selected
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty, zero-length, or the dimensions differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
