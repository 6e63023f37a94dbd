package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id                   uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChunkIndex           int             `gorm:"not null;uniqueIndex:idx_doc_chunk_ordinal,composite:document_id"` // 0-based ordinal within the document
	PageNumber           int             `gorm:"index"`
	PrintedPageNumber    *int            // page label printed on the page, when OCR found one
	SectionTitle         *string         `gorm:"type:varchar(512)"`
	ClauseLabel          *string         `gorm:"type:varchar(64);index"` // canonical "article N"
	Content              string          `gorm:"type:text;not null"`
	TokenCount           int             `gorm:"not null"`
	Embedding            pgvector.Vector `gorm:"type:vector(768)"`
	ContentHash          string          `gorm:"type:char(64);index"` // sha256 hex
	ExtractionConfidence float64
	Metadata             datatypes.JSON
	CreatedAt            time.Time      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime"`
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
