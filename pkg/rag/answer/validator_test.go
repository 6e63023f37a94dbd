package answer

import (
	"context"
	"errors"
	"testing"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/repository/specification"
	"policy-qa-be/pkg/embedding"

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

type fakeEmbedder struct {
	vectors  []([]float32)
	calls    int
	failures int // calls that fail before vectors succeed
	err      error
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("embedding service unavailable")
	}
	if f.err != nil {
		return nil, f.err
	}
	vec := f.vectors[f.calls%len(f.vectors)]
	f.calls++
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

type fakeClauseRepo struct {
	existing []string
	err      error
}

func (f *fakeClauseRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PassageChunk, error) {
	return nil, nil
}

func (f *fakeClauseRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (f *fakeClauseRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

func (f *fakeClauseRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, clauseLabel *string) ([]*entity.ScoredChunk, error) {
	return nil, nil
}

func (f *fakeClauseRepo) SearchLexical(ctx context.Context, keywords []string, limit int, clauseLabel *string) ([]*entity.ScoredChunk, error) {
	return nil, nil
}

func (f *fakeClauseRepo) FindAdjacent(ctx context.Context, documentId uuid.UUID, chunkIndex, window int) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (f *fakeClauseRepo) FindByPage(ctx context.Context, documentId uuid.UUID, pageNumber int) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (f *fakeClauseRepo) FindBySection(ctx context.Context, documentId uuid.UUID, sectionTitle string) ([]*entity.PassageChunk, error) {
	return nil, nil
}

func (f *fakeClauseRepo) ExistingClauses(ctx context.Context, labels []string) ([]string, error) {
	return f.existing, f.err
}

const goodDraft = `## Answer
Employees accrue 1.5 days of leave per month under article 12 [ref 1].

## Supporting Passages
[ref 1] employee-handbook.pdf, page 3, article 12`

func newTestValidator(provider *fakeLLM, embedder *fakeEmbedder, repo *fakeClauseRepo) *Validator {
	return NewValidator(provider, embedder, repo, DefaultValidatorConfig(), DefaultWeights(), 0.7, noopLogger{})
}

func TestValidateAllChecksPass(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": true, "score": 0.9, "reason": "all claims supported"}`}
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	repo := &fakeClauseRepo{existing: []string{"article 12"}}

	v := newTestValidator(provider, embedder, repo)
	passages := []Passage{testPassage(1, "Employees accrue 1.5 days of leave per month.")}

	result := v.Validate(context.Background(), goodDraft, passages)

	assert.Equal(t, 1.0, result.Format)
	assert.Equal(t, 1.0, result.CitationExistence)
	assert.InDelta(t, 1.0, result.ContextAlignment, 1e-9)
	assert.InDelta(t, 0.9, result.Faithfulness, 1e-9)
	// 0.10*1 + 0.20*1 + 0.30*1 + 0.40*0.9
	assert.InDelta(t, 0.96, result.Overall, 1e-9)
	assert.True(t, result.Pass)
}

func TestValidateFormatFailures(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": true, "score": 1.0, "reason": ""}`}
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	repo := &fakeClauseRepo{}

	v := newTestValidator(provider, embedder, repo)

	result := v.Validate(context.Background(), "just prose without structure", nil)

	assert.InDelta(t, 0.0, result.Format, 1e-9)
	assert.Contains(t, result.Issues, "missing \"## Answer\" heading")
	assert.Contains(t, result.Issues, "missing \"## Supporting Passages\" heading")
	assert.Contains(t, result.Issues, "no [ref N] citations found")
}

func TestValidateHallucinatedClause(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": true, "score": 1.0, "reason": ""}`}
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	// Only article 12 exists; the draft also cites article 99
	repo := &fakeClauseRepo{existing: []string{"article 12"}}

	v := newTestValidator(provider, embedder, repo)
	draft := `## Answer
Per article 12 and article 99 [ref 1].

## Supporting Passages
[ref 1] handbook`
	passages := []Passage{testPassage(1, "text")}

	result := v.Validate(context.Background(), draft, passages)

	assert.InDelta(t, 0.5, result.CitationExistence, 1e-9)
	assert.Contains(t, result.Issues, "cited \"article 99\" does not exist in any document")
}

func TestValidateNoClauseCitationsScoresFull(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": true, "score": 1.0, "reason": ""}`}
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	repo := &fakeClauseRepo{}

	v := newTestValidator(provider, embedder, repo)
	draft := `## Answer
The fee is 50 dollars [ref 1].

## Supporting Passages
[ref 1] handbook`

	result := v.Validate(context.Background(), draft, []Passage{testPassage(1, "The fee is 50 dollars.")})

	assert.Equal(t, 1.0, result.CitationExistence)
}

func TestValidateAlignmentDrift(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": true, "score": 1.0, "reason": ""}`}
	// Orthogonal vectors for answer and context
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}, {0, 1, 0}}}
	repo := &fakeClauseRepo{existing: []string{"article 12"}}

	v := newTestValidator(provider, embedder, repo)
	passages := []Passage{testPassage(1, "Unrelated passage.")}

	result := v.Validate(context.Background(), goodDraft, passages)

	assert.InDelta(t, 0.0, result.ContextAlignment, 1e-9)
	assert.Contains(t, result.Issues, "answer drifts from the cited passages")
}

func TestValidateUncitedPassagesScoreZeroAlignment(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": false, "score": 0.2, "reason": "no citations"}`}
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	repo := &fakeClauseRepo{}

	v := newTestValidator(provider, embedder, repo)
	draft := `## Answer
Something without citations.

## Supporting Passages
none`

	result := v.Validate(context.Background(), draft, []Passage{testPassage(1, "text")})

	assert.InDelta(t, 0.0, result.ContextAlignment, 1e-9)
	assert.Contains(t, result.Issues, "answer cites no provided passages")
}

func TestValidateFaithfulnessParseFailureIsNeutral(t *testing.T) {
	provider := &fakeLLM{response: "I think the answer looks fine overall."}
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	repo := &fakeClauseRepo{existing: []string{"article 12"}}

	v := newTestValidator(provider, embedder, repo)

	result := v.Validate(context.Background(), goodDraft, []Passage{testPassage(1, "text")})

	assert.InDelta(t, 0.5, result.Faithfulness, 1e-9)
}

func TestValidateFaithfulnessJSONInProse(t *testing.T) {
	provider := &fakeLLM{response: "Here is my verdict:\n```json\n{\"grounded\": false, \"score\": 0.4, \"reason\": \"second claim unsupported\"}\n```"}
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	repo := &fakeClauseRepo{existing: []string{"article 12"}}

	v := newTestValidator(provider, embedder, repo)

	result := v.Validate(context.Background(), goodDraft, []Passage{testPassage(1, "text")})

	assert.InDelta(t, 0.4, result.Faithfulness, 1e-9)
	assert.Contains(t, result.Issues, "ungrounded claims: second claim unsupported")
}

func TestValidateRetriesTransientEmbeddingFailure(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": true, "score": 1.0, "reason": ""}`}
	// First call fails, the retry succeeds
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}, failures: 1}
	repo := &fakeClauseRepo{existing: []string{"article 12"}}

	v := newTestValidator(provider, embedder, repo)

	result := v.Validate(context.Background(), goodDraft, []Passage{testPassage(1, "text")})

	assert.InDelta(t, 1.0, result.ContextAlignment, 1e-9)
}

func TestValidateRetriesTransientVerdictFailure(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": true, "score": 0.8, "reason": ""}`, failures: 1}
	embedder := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	repo := &fakeClauseRepo{existing: []string{"article 12"}}

	v := newTestValidator(provider, embedder, repo)

	result := v.Validate(context.Background(), goodDraft, []Passage{testPassage(1, "text")})

	assert.InDelta(t, 0.8, result.Faithfulness, 1e-9)
}

func TestValidateEmbeddingFailureIsNeutral(t *testing.T) {
	provider := &fakeLLM{response: `{"grounded": true, "score": 1.0, "reason": ""}`}
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	repo := &fakeClauseRepo{existing: []string{"article 12"}}

	v := newTestValidator(provider, embedder, repo)

	result := v.Validate(context.Background(), goodDraft, []Passage{testPassage(1, "text")})

	assert.InDelta(t, 0.5, result.ContextAlignment, 1e-9)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
