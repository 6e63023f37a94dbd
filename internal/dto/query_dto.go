package dto

import (
	"time"

	"github.com/google/uuid"
)

type AnswerRequest struct {
	Query    string `json:"query" validate:"required,min=2"`
	TaskHint string `json:"task_hint" validate:"omitempty,oneof=search upload manage"`
	// Optional client-supplied correlation id; one is generated when absent.
	CorrelationId string `json:"correlation_id" validate:"omitempty,uuid4"`
}

type CitationResponse struct {
	Ref          int       `json:"ref"`
	DocumentId   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Page         int       `json:"page"`
	ClauseLabel  *string   `json:"clause_label,omitempty"`
}

type ValidationResponse struct {
	Format            float64  `json:"format"`
	CitationExistence float64  `json:"citation_existence"`
	ContextAlignment  float64  `json:"context_alignment"`
	Faithfulness      float64  `json:"faithfulness"`
	Overall           float64  `json:"overall"`
	Pass              bool     `json:"pass"`
	Issues            []string `json:"issues,omitempty"`
}

type StageEventResponse struct {
	Stage      string                 `json:"stage"`
	Outcome    string                 `json:"outcome"`
	DurationMs int64                  `json:"duration_ms"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	At         time.Time              `json:"at"`
}

type AnswerResponse struct {
	CorrelationId  string               `json:"correlation_id"`
	Task           string               `json:"task"`
	Answer         string               `json:"answer"`
	Citations      []CitationResponse   `json:"citations"`
	Confidence     float64              `json:"confidence"`
	PartialContext bool                 `json:"partial_context"`
	Validation     *ValidationResponse  `json:"validation,omitempty"`
	Suggestions    []string             `json:"suggestions,omitempty"`
	Trace          []StageEventResponse `json:"trace"`
}

// AnswerCompletedMessage is the payload published after a pipeline run
// for asynchronous consumers (search log persistence).
type AnswerCompletedMessage struct {
	CorrelationId string  `json:"correlation_id"`
	Query         string  `json:"query"`
	Task          string  `json:"task"`
	ResultCount   int     `json:"result_count"`
	TopScore      float64 `json:"top_score"`
	DurationMs    int64   `json:"duration_ms"`
	Confidence    float64 `json:"confidence"`
	Failed        bool    `json:"failed"`
}
