package entity

import (
	"time"

	"github.com/google/uuid"
)

// PassageChunk is the read-side projection of a stored document chunk.
type PassageChunk struct {
	Id                   uuid.UUID
	DocumentId           uuid.UUID
	ChunkIndex           int
	PageNumber           int
	PrintedPageNumber    *int
	SectionTitle         *string
	ClauseLabel          *string
	Content              string
	TokenCount           int
	Embedding            []float32
	ContentHash          string
	ExtractionConfidence float64
	CreatedAt            time.Time
}

// ScoredChunk pairs a passage with the score its search branch produced.
// Similarity for the vector branch, ts_rank for the lexical branch.
type ScoredChunk struct {
	Chunk *PassageChunk
	Score float64
}
