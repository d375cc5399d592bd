// Package outbox makes market notifications durable. Committed events are written to an
// outbox table by the Recorder and relayed to NATS JetStream by the Relay, which wakes on
// Postgres NOTIFY and falls back to polling for anything it missed.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one stored notification. Payload is the JSON encoded events.Event.
type OutboxEvent struct {
	ID        uuid.UUID
	EventType string
	SubjectID uuid.UUID
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
	Attempts  int
	LastError string
}

// EventPublisher delivers an outbox event to the broker
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// DrainResult counts what one relay pass did
type DrainResult struct {
	Fetched int
	Sent    int
	Failed  int
}
