package service

import (
	"context"
	"fmt"

	"policy-qa-be/internal/websocket"
	"policy-qa-be/pkg/events"
	"policy-qa-be/pkg/rag/pipeline"
)

// hubSink pushes trace events to websocket clients watching the run.
type hubSink struct {
	hub *websocket.Hub
}

func NewHubSink(hub *websocket.Hub) pipeline.EventSink {
	return &hubSink{hub: hub}
}

func (s *hubSink) Publish(_ context.Context, event events.Event) error {
	payload := event.Payload()
	correlationId, ok := payload["correlation_id"].(string)
	if !ok {
		return fmt.Errorf("event %s carries no correlation id", event.EventType())
	}
	s.hub.Send(correlationId, event.EventType(), payload)
	return nil
}

// compositeSink fans one event out to several sinks. Each sink gets the
// event even when another fails; the first error is reported.
type compositeSink struct {
	sinks []pipeline.EventSink
}

func NewCompositeSink(sinks ...pipeline.EventSink) pipeline.EventSink {
	return &compositeSink{sinks: sinks}
}

func (s *compositeSink) Publish(ctx context.Context, event events.Event) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
