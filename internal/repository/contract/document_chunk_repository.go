package contract

import (
	"context"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentChunkRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PassageChunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PassageChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilarWithScore runs a pgvector cosine search over chunks of
	// active documents, keeping rows at or above the similarity threshold.
	// A non-nil clauseLabel narrows the search to that clause.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, clauseLabel *string) ([]*entity.ScoredChunk, error)

	// SearchLexical runs a Postgres full-text search, AND-joining the
	// keywords and ordering by ts_rank.
	SearchLexical(ctx context.Context, keywords []string, limit int, clauseLabel *string) ([]*entity.ScoredChunk, error)

	// FindAdjacent returns chunks of the same document whose ordinal lies
	// within the window around chunkIndex, excluding chunkIndex itself.
	FindAdjacent(ctx context.Context, documentId uuid.UUID, chunkIndex, window int) ([]*entity.PassageChunk, error)

	FindByPage(ctx context.Context, documentId uuid.UUID, pageNumber int) ([]*entity.PassageChunk, error)
	FindBySection(ctx context.Context, documentId uuid.UUID, sectionTitle string) ([]*entity.PassageChunk, error)

	// ExistingClauses returns the subset of the given canonical clause
	// labels that exist in the store.
	ExistingClauses(ctx context.Context, labels []string) ([]string, error)
}
