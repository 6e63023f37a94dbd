package search

import (
	"sort"

	"policy-qa-be/internal/entity"

	"github.com/google/uuid"
)

// FusionParams configures Reciprocal Rank Fusion. K dampens the
// contribution of lower ranks; the weights skew the blend between the
// two branches and should sum to 1.
type FusionParams struct {
	K             int
	VectorWeight  float64
	LexicalWeight float64
}

func DefaultFusionParams() FusionParams {
	return FusionParams{
		K:             60,
		VectorWeight:  0.7,
		LexicalWeight: 0.3,
	}
}

// FuseRRF merges the two ranked lists with weighted Reciprocal Rank
// Fusion:
//
//	score = w_vec/(K + r_vec) + w_lex/(K + r_lex)
//
// where ranks are 1-based and a missing rank contributes nothing.
// Output is sorted by score descending, ties broken by chunk id
// ascending, so fusion is deterministic for identical inputs.
func FuseRRF(vectorResults, lexicalResults []*entity.ScoredChunk, params FusionParams) []*RetrievalResult {
	type accumulator struct {
		chunk       *entity.PassageChunk
		vectorRank  *int
		lexicalRank *int
		score       float64
	}

	merged := make(map[uuid.UUID]*accumulator)

	for i, sc := range vectorResults {
		rank := i + 1
		acc, ok := merged[sc.Chunk.Id]
		if !ok {
			acc = &accumulator{chunk: sc.Chunk}
			merged[sc.Chunk.Id] = acc
		}
		acc.vectorRank = &rank
		acc.score += params.VectorWeight / float64(params.K+rank)
	}

	for i, sc := range lexicalResults {
		rank := i + 1
		acc, ok := merged[sc.Chunk.Id]
		if !ok {
			acc = &accumulator{chunk: sc.Chunk}
			merged[sc.Chunk.Id] = acc
		}
		acc.lexicalRank = &rank
		acc.score += params.LexicalWeight / float64(params.K+rank)
	}

	results := make([]*RetrievalResult, 0, len(merged))
	for _, acc := range merged {
		results = append(results, &RetrievalResult{
			Chunk:       acc.chunk,
			VectorRank:  acc.vectorRank,
			LexicalRank: acc.lexicalRank,
			Score:       acc.score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Id.String() < results[j].Chunk.Id.String()
	})

	return results
}

// TrimToTokenBudget keeps results in fused order until adding the next
// chunk would exceed the budget, then cuts. Returns the kept results
// and their total token count.
func TrimToTokenBudget(results []*RetrievalResult, maxTokens int) ([]*RetrievalResult, int) {
	kept := make([]*RetrievalResult, 0, len(results))
	total := 0
	for _, r := range results {
		if total+r.Chunk.TokenCount > maxTokens {
			break
		}
		kept = append(kept, r)
		total += r.Chunk.TokenCount
	}
	return kept, total
}
