package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"policy-qa-be/internal/config"
	"policy-qa-be/pkg/events"
	pktNats "policy-qa-be/pkg/nats"

	"github.com/fatih/color"
)

// Tails pipeline stage events from the NATS stream. Useful when
// debugging a run without a websocket client attached.
func main() {
	cfg := config.Load()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	stageColor := color.New(color.FgCyan).SprintFunc()
	okColor := color.New(color.FgGreen).SprintFunc()
	errColor := color.New(color.FgRed).SprintFunc()

	handler := func(ctx context.Context, event events.Event) error {
		payload := event.Payload()
		outcome, _ := payload["outcome"].(string)
		rendered := okColor(outcome)
		if outcome != "ok" {
			rendered = errColor(outcome)
		}
		stage, _ := payload["stage"].(string)
		correlationId, _ := payload["correlation_id"].(string)
		duration, _ := payload["duration_ms"].(float64)

		fmt.Printf("%s  %-12s %s  %.0fms\n", correlationId, stageColor(stage), rendered, duration)
		return nil
	}

	if err := sub.Subscribe("pipeline.>", "trace-tail", handler); err != nil {
		log.Fatalf("Error: Failed to subscribe: %v", err)
	}

	log.Println("Tailing pipeline events. Ctrl+C to stop.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
