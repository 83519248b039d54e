package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// RunEvent is published after every run so downstream consumers (dashboards,
// alerting) learn that new data landed without polling the store.
type RunEvent struct {
	RunID        string    `json:"run_id"`
	Kind         string    `json:"kind"`
	DataStart    string    `json:"data_start"`
	DataEnd      string    `json:"data_end"`
	Stations     int       `json:"stations"`
	Failed       int       `json:"failed"`
	Observations int       `json:"observations"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// EventPublisher writes run events to Kafka. It is optional: a nil publisher
// is a no-op.
type EventPublisher struct {
	writer *kafka.Writer
}

// NewEventPublisher creates a publisher for the given brokers and topic.
func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	return &EventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // partition by run kind
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// PublishRunCompleted sends one event for a finished run.
func (p *EventPublisher) PublishRunCompleted(ctx context.Context, event RunEvent) error {
	if p == nil {
		return nil
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode run event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Kind),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write run event: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
