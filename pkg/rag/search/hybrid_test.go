package search

import (
	"context"
	"sync"
	"testing"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/repository/specification"
	"policy-qa-be/pkg/embedding"
	"policy-qa-be/pkg/rag/query"

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

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0, 0}},
	}, nil
}

type vectorCall struct {
	threshold float64
	clause    *string
}

type lexicalCall struct {
	clause *string
}

// recordingChunkRepo captures how the retrieval branches query it. The
// two branches run concurrently, hence the mutex.
type recordingChunkRepo struct {
	mu           sync.Mutex
	vectorCalls  []vectorCall
	lexicalCalls []lexicalCall

	// one response per successive vector/lexical call
	vectorResponses  [][]*entity.ScoredChunk
	lexicalResponses [][]*entity.ScoredChunk
}

func (r *recordingChunkRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PassageChunk, error) {
	return nil, nil
}

func (r *recordingChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (r *recordingChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

func (r *recordingChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, clauseLabel *string) ([]*entity.ScoredChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vectorCalls = append(r.vectorCalls, vectorCall{threshold: threshold, clause: clauseLabel})
	if len(r.vectorResponses) == 0 {
		return nil, nil
	}
	response := r.vectorResponses[0]
	r.vectorResponses = r.vectorResponses[1:]
	return response, nil
}

func (r *recordingChunkRepo) SearchLexical(ctx context.Context, keywords []string, limit int, clauseLabel *string) ([]*entity.ScoredChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lexicalCalls = append(r.lexicalCalls, lexicalCall{clause: clauseLabel})
	if len(r.lexicalResponses) == 0 {
		return nil, nil
	}
	response := r.lexicalResponses[0]
	r.lexicalResponses = r.lexicalResponses[1:]
	return response, nil
}

func (r *recordingChunkRepo) FindAdjacent(ctx context.Context, documentId uuid.UUID, chunkIndex, window int) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (r *recordingChunkRepo) FindByPage(ctx context.Context, documentId uuid.UUID, pageNumber int) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (r *recordingChunkRepo) FindBySection(ctx context.Context, documentId uuid.UUID, sectionTitle string) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (r *recordingChunkRepo) ExistingClauses(ctx context.Context, labels []string) ([]string, error) {
	return nil, nil
}

func scoredChunk(clause string, score float64) *entity.ScoredChunk {
	label := clause
	return &entity.ScoredChunk{
		Chunk: &entity.PassageChunk{
			Id:          uuid.New(),
			DocumentId:  uuid.New(),
			ClauseLabel: &label,
			Content:     "The policy text of " + clause + ".",
			TokenCount:  50,
		},
		Score: score,
	}
}

func preprocess(raw string) *query.Preprocessed {
	return query.NewPreprocessor(query.DefaultTermDictionary()).Preprocess(raw)
}

func TestRetrieveClauseReferenceRelaxesThreshold(t *testing.T) {
	// The article 15 chunk sits at similarity 0.4, below the plain 0.7
	// floor; the clause filter must still surface it
	repo := &recordingChunkRepo{
		vectorResponses: [][]*entity.ScoredChunk{{scoredChunk("article 15", 0.4)}},
	}
	h := NewHybridRetriever(repo, fakeEmbedder{}, DefaultConfig(), noopLogger{})

	retrieval, err := h.Retrieve(context.Background(), preprocess("what does article 15 cover?"))

	assert.NoError(t, err)
	if assert.Len(t, repo.vectorCalls, 1) {
		assert.Equal(t, DefaultConfig().RelaxedThreshold, repo.vectorCalls[0].threshold)
		if assert.NotNil(t, repo.vectorCalls[0].clause) {
			assert.Equal(t, "article 15", *repo.vectorCalls[0].clause)
		}
	}
	if assert.Len(t, retrieval.Results, 1) {
		assert.Equal(t, "article 15", *retrieval.Results[0].Chunk.ClauseLabel)
	}
}

func TestRetrieveClauseFilterFallsBackWhenEmpty(t *testing.T) {
	// No chunk carries the cited clause label; the vector branch must
	// retry unfiltered at the plain threshold
	repo := &recordingChunkRepo{
		vectorResponses: [][]*entity.ScoredChunk{
			{},
			{scoredChunk("article 12", 0.8)},
		},
	}
	h := NewHybridRetriever(repo, fakeEmbedder{}, DefaultConfig(), noopLogger{})

	retrieval, err := h.Retrieve(context.Background(), preprocess("what does article 99 say about leave?"))

	assert.NoError(t, err)
	if assert.Len(t, repo.vectorCalls, 2) {
		assert.NotNil(t, repo.vectorCalls[0].clause)
		assert.Equal(t, DefaultConfig().RelaxedThreshold, repo.vectorCalls[0].threshold)
		assert.Nil(t, repo.vectorCalls[1].clause)
		assert.Equal(t, DefaultConfig().VectorThreshold, repo.vectorCalls[1].threshold)
	}
	assert.Len(t, retrieval.Results, 1)
}

func TestRetrieveLexicalClauseFilterFallsBackWhenEmpty(t *testing.T) {
	repo := &recordingChunkRepo{
		lexicalResponses: [][]*entity.ScoredChunk{
			{},
			{scoredChunk("article 12", 0.5)},
		},
	}
	h := NewHybridRetriever(repo, fakeEmbedder{}, DefaultConfig(), noopLogger{})

	_, err := h.Retrieve(context.Background(), preprocess("what does article 99 say about leave?"))

	assert.NoError(t, err)
	if assert.Len(t, repo.lexicalCalls, 2) {
		assert.NotNil(t, repo.lexicalCalls[0].clause)
		assert.Nil(t, repo.lexicalCalls[1].clause)
	}
}

func TestRetrievePlainQuerySearchesUnfiltered(t *testing.T) {
	repo := &recordingChunkRepo{
		vectorResponses: [][]*entity.ScoredChunk{{scoredChunk("article 12", 0.8)}},
	}
	h := NewHybridRetriever(repo, fakeEmbedder{}, DefaultConfig(), noopLogger{})

	_, err := h.Retrieve(context.Background(), preprocess("how does annual leave accrue?"))

	assert.NoError(t, err)
	if assert.Len(t, repo.vectorCalls, 1) {
		assert.Equal(t, DefaultConfig().VectorThreshold, repo.vectorCalls[0].threshold)
		assert.Nil(t, repo.vectorCalls[0].clause)
	}
}
