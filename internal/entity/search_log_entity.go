package entity

import (
	"time"

	"github.com/google/uuid"
)

type SearchLog struct {
	Id            uuid.UUID
	Query         string
	SearchType    string
	ResultCount   int
	TopScore      float64
	DurationMs    int64
	CorrelationId uuid.UUID
	CreatedAt     time.Time
}
