package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/repository/contract"
	"policy-qa-be/pkg/embedding"
	"policy-qa-be/pkg/rag/query"
	"policy-qa-be/pkg/retry"
)

// Config carries the retrieval tunables.
type Config struct {
	TopK             int
	VectorThreshold  float64 // similarity floor for plain searches
	RelaxedThreshold float64 // floor when a clause reference narrows the search
	MaxContextTokens int
	EmbeddingTimeout time.Duration
	Fusion           FusionParams
}

func DefaultConfig() Config {
	return Config{
		TopK:             10,
		VectorThreshold:  0.7,
		RelaxedThreshold: 0.3,
		MaxContextTokens: 20000,
		EmbeddingTimeout: 15 * time.Second,
		Fusion:           DefaultFusionParams(),
	}
}

// Retrieval is the outcome of one hybrid search run.
type Retrieval struct {
	Results     []*RetrievalResult
	TotalTokens int
	VectorHits  int
	LexicalHits int
	DurationMs  int64
}

// HybridRetriever runs the vector and lexical branches concurrently
// and fuses their hits.
type HybridRetriever struct {
	chunkRepo   contract.DocumentChunkRepository
	embedder    embedding.EmbeddingProvider
	cfg         Config
	retryPolicy retry.Policy
	logger      logger.ILogger
}

func NewHybridRetriever(
	chunkRepo contract.DocumentChunkRepository,
	embedder embedding.EmbeddingProvider,
	cfg Config,
	log logger.ILogger,
) *HybridRetriever {
	return &HybridRetriever{
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		cfg:         cfg,
		retryPolicy: retry.DefaultPolicy(),
		logger:      log,
	}
}

// Retrieve executes the hybrid search for a preprocessed query.
// Each branch fetches 2x TopK so fusion has enough overlap to rerank;
// the fused list is cut to TopK and trimmed to the token budget.
func (h *HybridRetriever) Retrieve(ctx context.Context, pre *query.Preprocessed) (*Retrieval, error) {
	start := time.Now()
	fetchLimit := h.cfg.TopK * 2

	var (
		wg            sync.WaitGroup
		vectorResults []*entity.ScoredChunk
		vectorErr     error
		lexResults    []*entity.ScoredChunk
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		vectorResults, vectorErr = h.vectorBranch(ctx, pre, fetchLimit)
	}()

	go func() {
		defer wg.Done()
		var err error
		lexResults, err = h.lexicalBranch(ctx, pre, fetchLimit)
		if err != nil {
			// Vector hits alone can still answer; degrade instead of failing
			h.logger.Warn("HybridRetriever", "lexical search failed", map[string]interface{}{"error": err.Error()})
			lexResults = nil
		}
	}()

	wg.Wait()

	if vectorErr != nil {
		return nil, vectorErr
	}

	fused := FuseRRF(vectorResults, lexResults, h.cfg.Fusion)
	if len(fused) > h.cfg.TopK {
		fused = fused[:h.cfg.TopK]
	}
	kept, totalTokens := TrimToTokenBudget(fused, h.cfg.MaxContextTokens)

	retrieval := &Retrieval{
		Results:     kept,
		TotalTokens: totalTokens,
		VectorHits:  len(vectorResults),
		LexicalHits: len(lexResults),
		DurationMs:  time.Since(start).Milliseconds(),
	}

	h.logger.Info("HybridRetriever", "hybrid search completed", map[string]interface{}{
		"vector_hits":  retrieval.VectorHits,
		"lexical_hits": retrieval.LexicalHits,
		"fused":        len(kept),
		"total_tokens": totalTokens,
		"duration_ms":  retrieval.DurationMs,
	})

	return retrieval, nil
}

func (h *HybridRetriever) vectorBranch(ctx context.Context, pre *query.Preprocessed, limit int) ([]*entity.ScoredChunk, error) {
	vector, err := h.embedQuery(ctx, pre.Standardized)
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %v", ErrRetrievalFailure, err)
	}

	if pre.ClauseLabel != nil {
		// A clause reference means the user wants that clause even when
		// semantic similarity is weak, so the threshold relaxes and the
		// search narrows to the clause.
		results, err := h.chunkRepo.SearchSimilarWithScore(ctx, vector, limit, h.cfg.RelaxedThreshold, pre.ClauseLabel)
		if err != nil {
			return nil, fmt.Errorf("%w: vector search: %v", ErrRetrievalFailure, err)
		}
		if len(results) > 0 {
			return results, nil
		}
		h.logger.Warn("HybridRetriever", "clause filter returned no chunks, falling back to unfiltered search", map[string]interface{}{
			"clause": *pre.ClauseLabel,
		})
	}

	results, err := h.chunkRepo.SearchSimilarWithScore(ctx, vector, limit, h.cfg.VectorThreshold, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", ErrRetrievalFailure, err)
	}
	return results, nil
}

func (h *HybridRetriever) lexicalBranch(ctx context.Context, pre *query.Preprocessed, limit int) ([]*entity.ScoredChunk, error) {
	if len(pre.Keywords) == 0 {
		return nil, nil
	}

	if pre.ClauseLabel != nil {
		results, err := h.chunkRepo.SearchLexical(ctx, pre.Keywords, limit, pre.ClauseLabel)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			return results, nil
		}
	}

	return h.chunkRepo.SearchLexical(ctx, pre.Keywords, limit, nil)
}

func (h *HybridRetriever) embedQuery(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, h.cfg.EmbeddingTimeout)
	defer cancel()

	res, err := retry.Do(embedCtx, h.retryPolicy, func() (*embedding.EmbeddingResponse, error) {
		return h.embedder.Generate(embedCtx, text, embedding.TaskRetrievalQuery)
	})
	if err != nil {
		return nil, err
	}
	return res.Embedding.Values, nil
}
