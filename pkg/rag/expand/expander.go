package expand

import (
	"context"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/repository/contract"
	"policy-qa-be/pkg/rag/search"

	"github.com/google/uuid"
)

// Config bounds one expansion round.
type Config struct {
	SeedChunks       int // how many top results seed the expansion
	AdjacentWindow   int // ordinals fetched on each side of a seed
	MaxContextTokens int // accumulated token ceiling across all results
}

func DefaultConfig() Config {
	return Config{
		SeedChunks:       3,
		AdjacentWindow:   2,
		MaxContextTokens: 20000,
	}
}

// Expander widens insufficient context by pulling chunks related to the
// best hits: adjacent ordinals, same physical page, same section.
type Expander struct {
	chunkRepo contract.DocumentChunkRepository
	cfg       Config
	logger    logger.ILogger
}

func NewExpander(chunkRepo contract.DocumentChunkRepository, cfg Config, log logger.ILogger) *Expander {
	return &Expander{
		chunkRepo: chunkRepo,
		cfg:       cfg,
		logger:    log,
	}
}

// Expand runs one expansion round over the accumulated results and
// returns them with any new chunks appended. Added chunks carry no
// rank and never displace ranked results. Duplicates are dropped by
// chunk id and by content hash, and neighbors that would push the
// accumulated token count past MaxContextTokens are skipped so the
// generator never receives more context than the budget allows.
func (e *Expander) Expand(ctx context.Context, results []*search.RetrievalResult) ([]*search.RetrievalResult, int, error) {
	seenIds := make(map[uuid.UUID]struct{}, len(results))
	seenHashes := make(map[string]struct{}, len(results))
	for _, r := range results {
		seenIds[r.Chunk.Id] = struct{}{}
		if r.Chunk.ContentHash != "" {
			seenHashes[r.Chunk.ContentHash] = struct{}{}
		}
	}
	totalTokens := search.TotalTokens(results)

	seeds := results
	if len(seeds) > e.cfg.SeedChunks {
		seeds = seeds[:e.cfg.SeedChunks]
	}

	expanded := results
	added := 0

	for _, seed := range seeds {
		neighbors, err := e.collectNeighbors(ctx, seed.Chunk)
		if err != nil {
			return nil, 0, err
		}

		for _, chunk := range neighbors {
			if _, dup := seenIds[chunk.Id]; dup {
				continue
			}
			if chunk.ContentHash != "" {
				if _, dup := seenHashes[chunk.ContentHash]; dup {
					continue
				}
			}
			if e.cfg.MaxContextTokens > 0 && totalTokens+chunk.TokenCount > e.cfg.MaxContextTokens {
				continue
			}
			seenIds[chunk.Id] = struct{}{}
			if chunk.ContentHash != "" {
				seenHashes[chunk.ContentHash] = struct{}{}
			}
			totalTokens += chunk.TokenCount
			expanded = append(expanded, &search.RetrievalResult{Chunk: chunk})
			added++
		}
	}

	e.logger.Info("Expander", "expansion round completed", map[string]interface{}{
		"seeds":        len(seeds),
		"added":        added,
		"total":        len(expanded),
		"total_tokens": totalTokens,
	})

	return expanded, added, nil
}

func (e *Expander) collectNeighbors(ctx context.Context, seed *entity.PassageChunk) ([]*entity.PassageChunk, error) {
	var neighbors []*entity.PassageChunk

	adjacent, err := e.chunkRepo.FindAdjacent(ctx, seed.DocumentId, seed.ChunkIndex, e.cfg.AdjacentWindow)
	if err != nil {
		return nil, err
	}
	neighbors = append(neighbors, adjacent...)

	samePage, err := e.chunkRepo.FindByPage(ctx, seed.DocumentId, seed.PageNumber)
	if err != nil {
		return nil, err
	}
	neighbors = append(neighbors, samePage...)

	if seed.SectionTitle != nil && *seed.SectionTitle != "" {
		sameSection, err := e.chunkRepo.FindBySection(ctx, seed.DocumentId, *seed.SectionTitle)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, sameSection...)
	}

	return neighbors, nil
}
