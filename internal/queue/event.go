package queue

import (
	"fmt"
	"time"

	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
)

// EventType is the kind of change an event reports. It doubles as the routing key.
type EventType string

const (
	EventTodoCreated EventType = "todo.created"
	EventTodoUpdated EventType = "todo.updated"
	EventTodoDeleted EventType = "todo.deleted"
)

// DefaultMaxRetries bounds redelivery of an event that failed processing
const DefaultMaxRetries = 3

// Event describes a change to a todo after the store confirmed it
type Event struct {
	ID         uuid.UUID    `json:"id"`
	Type       EventType    `json:"type"`
	TodoID     uuid.UUID    `json:"todo_id"`
	Todo       *models.Todo `json:"todo,omitempty"` // nil for deletions
	OccurredAt time.Time    `json:"occurred_at"`
	RetryCount int          `json:"retry_count"`
	MaxRetries int          `json:"max_retries"`
}

// NewEvent creates an event for todo. Deletions carry only the id.
func NewEvent(eventType EventType, todo models.Todo) *Event {
	e := &Event{
		ID:         uuid.New(),
		Type:       eventType,
		TodoID:     todo.ID,
		OccurredAt: time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
	}
	if eventType != EventTodoDeleted {
		t := todo
		e.Todo = &t
	}
	return e
}

// Validate checks that a decoded event is well formed
func (e *Event) Validate() error {
	switch e.Type {
	case EventTodoCreated, EventTodoUpdated:
		if e.Todo == nil {
			return fmt.Errorf("%s event without todo", e.Type)
		}
	case EventTodoDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.TodoID == uuid.Nil {
		return fmt.Errorf("event without todo id")
	}
	return nil
}

// CanRetry checks if the event can be redelivered
func (e *Event) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// IncrementRetry increments the retry count
func (e *Event) IncrementRetry() {
	e.RetryCount++
}
