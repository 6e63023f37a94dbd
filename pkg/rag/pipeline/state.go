package pipeline

import (
	"time"

	"policy-qa-be/pkg/rag/answer"
	"policy-qa-be/pkg/rag/judge"
	"policy-qa-be/pkg/rag/query"
	"policy-qa-be/pkg/rag/search"
)

// StageEvent records one state transition for the trace.
type StageEvent struct {
	Stage      string                 `json:"stage"`
	Outcome    string                 `json:"outcome"`
	DurationMs int64                  `json:"duration_ms"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	At         time.Time              `json:"at"`
}

// conversationState accumulates everything the stages produce for one
// question. It lives for a single Run call and is never shared.
type conversationState struct {
	correlationId string
	rawQuery      string
	taskHint      string

	task       string
	pre        *query.Preprocessed
	results    []*search.RetrievalResult
	assessment judge.Assessment
	passages   []answer.Passage
	draft      string
	bestDraft  string
	validation *answer.Validation

	expansions    int
	regenerations int
	lastIssues    []string

	partialContext bool
	failure        error
	trace          []StageEvent
}
