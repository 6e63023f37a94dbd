package search

import (
	"errors"

	"policy-qa-be/internal/entity"
)

// ErrRetrievalFailure signals that the retrieval stage could not run,
// e.g. the query embedding failed after retries.
var ErrRetrievalFailure = errors.New("retrieval failure")

// RetrievalResult is a fused search hit. At least one of VectorRank and
// LexicalRank is set for ranked results; chunks appended by context
// expansion carry neither and a zero Score.
type RetrievalResult struct {
	Chunk       *entity.PassageChunk
	VectorRank  *int
	LexicalRank *int
	Score       float64
}

// Expanded reports whether the result was appended by context
// expansion rather than ranked by a search branch.
func (r *RetrievalResult) Expanded() bool {
	return r.VectorRank == nil && r.LexicalRank == nil
}

// TotalTokens sums the stored token counts of all result chunks.
func TotalTokens(results []*RetrievalResult) int {
	total := 0
	for _, r := range results {
		total += r.Chunk.TokenCount
	}
	return total
}

// BestScore returns the highest fused score among ranked results.
func BestScore(results []*RetrievalResult) float64 {
	best := 0.0
	for _, r := range results {
		if r.Expanded() {
			continue
		}
		if r.Score > best {
			best = r.Score
		}
	}
	return best
}
