package expand

import (
	"context"
	"errors"
	"testing"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/repository/specification"
	"policy-qa-be/pkg/rag/search"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

var _ logger.ILogger = noopLogger{}

type fakeChunkRepo struct {
	adjacent  map[uuid.UUID][]*entity.PassageChunk
	byPage    map[uuid.UUID][]*entity.PassageChunk
	bySection map[uuid.UUID][]*entity.PassageChunk
	err       error
}

func (f *fakeChunkRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PassageChunk, error) {
	return nil, nil
}

func (f *fakeChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (f *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

func (f *fakeChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, clauseLabel *string) ([]*entity.ScoredChunk, error) {
	return nil, nil
}

func (f *fakeChunkRepo) SearchLexical(ctx context.Context, keywords []string, limit int, clauseLabel *string) ([]*entity.ScoredChunk, error) {
	return nil, nil
}

func (f *fakeChunkRepo) FindAdjacent(ctx context.Context, documentId uuid.UUID, chunkIndex, window int) ([]*entity.PassageChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.adjacent[documentId], nil
}

func (f *fakeChunkRepo) FindByPage(ctx context.Context, documentId uuid.UUID, pageNumber int) ([]*entity.PassageChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byPage[documentId], nil
}

func (f *fakeChunkRepo) FindBySection(ctx context.Context, documentId uuid.UUID, sectionTitle string) ([]*entity.PassageChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySection[documentId], nil
}

func (f *fakeChunkRepo) ExistingClauses(ctx context.Context, labels []string) ([]string, error) {
	return nil, nil
}

func chunk(docId uuid.UUID, index int, hash string) *entity.PassageChunk {
	return &entity.PassageChunk{
		Id:          uuid.New(),
		DocumentId:  docId,
		ChunkIndex:  index,
		ContentHash: hash,
	}
}

func ranked(c *entity.PassageChunk, score float64) *search.RetrievalResult {
	rank := 1
	return &search.RetrievalResult{Chunk: c, VectorRank: &rank, Score: score}
}

func TestExpandAppendsNeighbors(t *testing.T) {
	docId := uuid.New()
	seed := chunk(docId, 5, "h-seed")
	neighbor := chunk(docId, 6, "h-neighbor")

	repo := &fakeChunkRepo{
		adjacent: map[uuid.UUID][]*entity.PassageChunk{docId: {neighbor}},
	}
	e := NewExpander(repo, DefaultConfig(), noopLogger{})

	expanded, added, err := e.Expand(context.Background(), []*search.RetrievalResult{ranked(seed, 0.02)})

	assert.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, expanded, 2)
	assert.True(t, expanded[1].Expanded(), "appended chunks carry no rank")
	assert.Equal(t, neighbor.Id, expanded[1].Chunk.Id)
}

func TestExpandDeduplicatesById(t *testing.T) {
	docId := uuid.New()
	seed := chunk(docId, 5, "h-seed")
	neighbor := chunk(docId, 6, "h-neighbor")

	// The same neighbor surfaces from the adjacency and page lookups
	repo := &fakeChunkRepo{
		adjacent: map[uuid.UUID][]*entity.PassageChunk{docId: {neighbor, seed}},
		byPage:   map[uuid.UUID][]*entity.PassageChunk{docId: {neighbor}},
	}
	e := NewExpander(repo, DefaultConfig(), noopLogger{})

	expanded, added, err := e.Expand(context.Background(), []*search.RetrievalResult{ranked(seed, 0.02)})

	assert.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, expanded, 2)
}

func TestExpandDeduplicatesByContentHash(t *testing.T) {
	docId := uuid.New()
	seed := chunk(docId, 5, "h-seed")
	// Different row, identical content
	duplicate := chunk(docId, 9, "h-seed")

	repo := &fakeChunkRepo{
		adjacent: map[uuid.UUID][]*entity.PassageChunk{docId: {duplicate}},
	}
	e := NewExpander(repo, DefaultConfig(), noopLogger{})

	expanded, added, err := e.Expand(context.Background(), []*search.RetrievalResult{ranked(seed, 0.02)})

	assert.NoError(t, err)
	assert.Zero(t, added)
	assert.Len(t, expanded, 1)
}

func TestExpandSeedsOnlyTopResults(t *testing.T) {
	docA := uuid.New()
	docB := uuid.New()

	results := []*search.RetrievalResult{
		ranked(chunk(docA, 0, "a0"), 0.05),
		ranked(chunk(docA, 1, "a1"), 0.04),
		ranked(chunk(docA, 2, "a2"), 0.03),
		// Fourth result must not seed expansion with SeedChunks=3
		ranked(chunk(docB, 0, "b0"), 0.02),
	}

	repo := &fakeChunkRepo{
		adjacent: map[uuid.UUID][]*entity.PassageChunk{
			docB: {chunk(docB, 1, "b1")},
		},
	}
	e := NewExpander(repo, DefaultConfig(), noopLogger{})

	_, added, err := e.Expand(context.Background(), results)

	assert.NoError(t, err)
	assert.Zero(t, added)
}

func TestExpandRespectsTokenBudget(t *testing.T) {
	docId := uuid.New()
	seedA := chunk(docId, 5, "h-a")
	seedA.TokenCount = 9000
	seedB := chunk(docId, 20, "h-b")
	seedB.TokenCount = 9000

	big := chunk(docId, 6, "h-big")
	big.TokenCount = 5000
	small := chunk(docId, 7, "h-small")
	small.TokenCount = 1500

	repo := &fakeChunkRepo{
		adjacent: map[uuid.UUID][]*entity.PassageChunk{docId: {big, small}},
	}
	e := NewExpander(repo, Config{SeedChunks: 3, AdjacentWindow: 2, MaxContextTokens: 20000}, noopLogger{})

	results := []*search.RetrievalResult{ranked(seedA, 0.05), ranked(seedB, 0.04)}
	expanded, added, err := e.Expand(context.Background(), results)

	assert.NoError(t, err)
	// 18000 seed tokens: the 5000-token neighbor would exceed the
	// 20000 budget, the 1500-token one still fits
	assert.Equal(t, 1, added)
	assert.Len(t, expanded, 3)
	assert.Equal(t, small.Id, expanded[2].Chunk.Id)
	assert.LessOrEqual(t, search.TotalTokens(expanded), 20000)
}

func TestExpandZeroBudgetDisablesCap(t *testing.T) {
	docId := uuid.New()
	seed := chunk(docId, 5, "h-seed")
	seed.TokenCount = 30000
	neighbor := chunk(docId, 6, "h-neighbor")
	neighbor.TokenCount = 30000

	repo := &fakeChunkRepo{
		adjacent: map[uuid.UUID][]*entity.PassageChunk{docId: {neighbor}},
	}
	e := NewExpander(repo, Config{SeedChunks: 3, AdjacentWindow: 2}, noopLogger{})

	_, added, err := e.Expand(context.Background(), []*search.RetrievalResult{ranked(seed, 0.02)})

	assert.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestExpandSectionLookupOnlyWithTitle(t *testing.T) {
	docId := uuid.New()
	title := "Termination"
	seed := chunk(docId, 5, "h-seed")
	seed.SectionTitle = &title
	sectionMate := chunk(docId, 40, "h-mate")

	repo := &fakeChunkRepo{
		bySection: map[uuid.UUID][]*entity.PassageChunk{docId: {sectionMate}},
	}
	e := NewExpander(repo, DefaultConfig(), noopLogger{})

	expanded, added, err := e.Expand(context.Background(), []*search.RetrievalResult{ranked(seed, 0.02)})

	assert.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, expanded, 2)
}

func TestExpandPropagatesRepositoryError(t *testing.T) {
	docId := uuid.New()
	repo := &fakeChunkRepo{err: errors.New("connection reset")}
	e := NewExpander(repo, DefaultConfig(), noopLogger{})

	_, _, err := e.Expand(context.Background(), []*search.RetrievalResult{ranked(chunk(docId, 0, "h"), 0.02)})

	assert.Error(t, err)
}
