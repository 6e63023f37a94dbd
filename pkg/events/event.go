package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "STAGE_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event type codes published by the pipeline.
const (
	TypeStageCompleted  = "STAGE_COMPLETED"
	TypeAnswerCompleted = "ANSWER_COMPLETED"
	TypeAnswerFailed    = "ANSWER_FAILED"
)

// NewStageEvent builds the trace event emitted on every state transition.
func NewStageEvent(correlationId, stage, outcome string, durationMs int64, detail map[string]interface{}) Event {
	data := map[string]interface{}{
		"correlation_id": correlationId,
		"stage":          stage,
		"outcome":        outcome,
		"duration_ms":    durationMs,
	}
	for k, v := range detail {
		data[k] = v
	}
	return BaseEvent{
		Type:       TypeStageCompleted,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
