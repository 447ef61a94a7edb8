package queue

import (
	"context"
	"time"
)

// MessageInterface defines the interface for queue messages
// This enables better testability by allowing mock implementations
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEvent() *Event
}

// Publisher sends change events
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// EventQueue is the interface for the change-event broker
type EventQueue interface {
	Publisher

	// Consume returns a channel of messages from the audit queue.
	// The caller is responsible for acknowledging each message.
	// Prefetch controls how many unacknowledged messages each consumer can hold.
	// Both channels are closed when the context is cancelled or the delivery stream ends.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than retention
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, *Event) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }
