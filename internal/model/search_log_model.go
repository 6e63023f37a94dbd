package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	SearchTypeVector  = "vector"
	SearchTypeLexical = "lexical"
	SearchTypeHybrid  = "hybrid"
	SearchTypeFailed  = "failed"
)

// SearchLog is written asynchronously after each answered query.
type SearchLog struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Query         string    `gorm:"type:text;not null"`
	SearchType    string    `gorm:"type:varchar(16);not null"`
	ResultCount   int
	TopScore      float64
	DurationMs    int64
	CorrelationId uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (SearchLog) TableName() string {
	return "search_logs"
}
