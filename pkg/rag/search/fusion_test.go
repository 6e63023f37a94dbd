package search

import (
	"testing"

	"policy-qa-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func scored(id uuid.UUID, tokens int) *entity.ScoredChunk {
	return &entity.ScoredChunk{
		Chunk: &entity.PassageChunk{Id: id, TokenCount: tokens},
	}
}

func TestFuseRRFWeightedScores(t *testing.T) {
	params := DefaultFusionParams()
	a := uuid.New()
	b := uuid.New()

	vector := []*entity.ScoredChunk{scored(a, 100), scored(b, 100)}
	lexical := []*entity.ScoredChunk{scored(b, 100), scored(a, 100)}

	results := FuseRRF(vector, lexical, params)

	assert.Len(t, results, 2)

	// a: rank 1 vector, rank 2 lexical
	wantA := 0.7/61.0 + 0.3/62.0
	// b: rank 2 vector, rank 1 lexical
	wantB := 0.7/62.0 + 0.3/61.0

	byId := map[uuid.UUID]*RetrievalResult{}
	for _, r := range results {
		byId[r.Chunk.Id] = r
	}

	assert.InDelta(t, wantA, byId[a].Score, 1e-12)
	assert.InDelta(t, wantB, byId[b].Score, 1e-12)

	// Vector weight dominates, so a outranks b
	assert.Equal(t, a, results[0].Chunk.Id)
}

func TestFuseRRFSingleBranchHit(t *testing.T) {
	a := uuid.New()

	results := FuseRRF([]*entity.ScoredChunk{scored(a, 50)}, nil, DefaultFusionParams())

	assert.Len(t, results, 1)
	assert.NotNil(t, results[0].VectorRank)
	assert.Equal(t, 1, *results[0].VectorRank)
	assert.Nil(t, results[0].LexicalRank)
	assert.InDelta(t, 0.7/61.0, results[0].Score, 1e-12)
	assert.False(t, results[0].Expanded())
}

func TestFuseRRFDeterministicTieBreak(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	// Same rank in opposite branches with equal weights ties their scores
	params := FusionParams{K: 60, VectorWeight: 0.5, LexicalWeight: 0.5}
	vector := []*entity.ScoredChunk{scored(a, 10)}
	lexical := []*entity.ScoredChunk{scored(b, 10)}

	for i := 0; i < 10; i++ {
		results := FuseRRF(vector, lexical, params)
		assert.Equal(t, a, results[0].Chunk.Id, "ties must break by chunk id ascending")
		assert.Equal(t, b, results[1].Chunk.Id)
	}
}

func TestFuseRRFEmptyInputs(t *testing.T) {
	assert.Empty(t, FuseRRF(nil, nil, DefaultFusionParams()))
}

func TestTrimToTokenBudget(t *testing.T) {
	results := []*RetrievalResult{
		{Chunk: &entity.PassageChunk{Id: uuid.New(), TokenCount: 400}},
		{Chunk: &entity.PassageChunk{Id: uuid.New(), TokenCount: 500}},
		{Chunk: &entity.PassageChunk{Id: uuid.New(), TokenCount: 200}},
	}

	kept, total := TrimToTokenBudget(results, 900)

	// The 200-token chunk is cut because the 500-token chunk exhausted the budget first
	assert.Len(t, kept, 2)
	assert.Equal(t, 900, total)

	kept, total = TrimToTokenBudget(results, 100)
	assert.Empty(t, kept)
	assert.Equal(t, 0, total)
}
