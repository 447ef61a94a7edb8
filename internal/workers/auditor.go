// Package workers holds the change-event consumers run by cmd/worker.
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/simple-todo/internal/logger"
	"github.com/benvon/simple-todo/internal/queue"
	"go.uber.org/zap"
)

// AuditEntry is one line of the audit trail
type AuditEntry struct {
	EventID    string
	Type       queue.EventType
	TodoID     string
	Text       string
	Completed  bool
	OccurredAt time.Time
	ReceivedAt time.Time
	Attempt    int
}

// AuditSink persists audit entries
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// LogSink writes audit entries as structured log lines
type LogSink struct {
	logger *zap.Logger
}

var _ AuditSink = (*LogSink)(nil)

// NewLogSink creates a sink writing to l
func NewLogSink(l *zap.Logger) *LogSink {
	return &LogSink{logger: l}
}

// Record implements AuditSink
func (s *LogSink) Record(_ context.Context, e AuditEntry) error {
	s.logger.Info("todo_audit",
		zap.String("event_id", e.EventID),
		zap.String("event_type", string(e.Type)),
		zap.String("todo_id", e.TodoID),
		zap.String("text", e.Text),
		zap.Bool("completed", e.Completed),
		zap.Time("occurred_at", e.OccurredAt),
		zap.Time("received_at", e.ReceivedAt),
		zap.Int("attempt", e.Attempt),
	)
	return nil
}

// Auditor consumes change events into an AuditSink
type Auditor struct {
	sink        AuditSink
	republisher queue.Publisher
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	counts map[queue.EventType]int
}

// NewAuditor creates an auditor. republisher is used to retry events whose
// recording failed; a nil republisher sends them straight to the DLQ.
func NewAuditor(sink AuditSink, republisher queue.Publisher, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{
		sink:        sink,
		republisher: republisher,
		logger:      logger,
		now:         time.Now,
		counts:      make(map[queue.EventType]int),
	}
}

// Counts returns how many events of each type were recorded
func (a *Auditor) Counts() map[queue.EventType]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[queue.EventType]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

// ProcessMessage records one delivery and acknowledges it
func (a *Auditor) ProcessMessage(ctx context.Context, msg queue.MessageInterface) error {
	event := msg.GetEvent()
	if event == nil {
		if err := msg.Nack(false); err != nil {
			a.logger.Error("failed_to_nack_message", zap.Error(err))
		}
		return fmt.Errorf("message without event")
	}

	entry := AuditEntry{
		EventID:    event.ID.String(),
		Type:       event.Type,
		TodoID:     event.TodoID.String(),
		OccurredAt: event.OccurredAt,
		ReceivedAt: a.now().UTC(),
		Attempt:    event.RetryCount + 1,
	}
	if event.Todo != nil {
		entry.Text = logger.SanitizeText(event.Todo.Text)
		entry.Completed = event.Todo.Completed
	}

	if err := a.sink.Record(ctx, entry); err != nil {
		return a.handleError(ctx, msg, event, err)
	}

	a.mu.Lock()
	a.counts[event.Type]++
	a.mu.Unlock()

	if err := msg.Ack(); err != nil {
		a.logger.Error("failed_to_ack_message", zap.String("event_id", entry.EventID), zap.Error(err))
		return fmt.Errorf("ack: %w", err)
	}
	a.logger.Debug("todo_event_recorded",
		zap.String("event_id", entry.EventID),
		zap.String("event_type", string(event.Type)),
	)
	return nil
}

// handleError republishes the event with a bumped retry count, or dead-letters it
func (a *Auditor) handleError(ctx context.Context, msg queue.MessageInterface, event *queue.Event, cause error) error {
	if event.CanRetry() && a.republisher != nil {
		retry := *event
		retry.IncrementRetry()
		if err := a.republisher.Publish(ctx, &retry); err != nil {
			a.logger.Error("failed_to_republish_event",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
			if nackErr := msg.Nack(true); nackErr != nil {
				a.logger.Error("failed_to_nack_message", zap.Error(nackErr))
			}
			return fmt.Errorf("record event: %w", cause)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			a.logger.Error("failed_to_ack_message", zap.Error(ackErr))
		}
		a.logger.Warn("todo_event_retry_scheduled",
			zap.String("event_id", event.ID.String()),
			zap.Int("retry_count", retry.RetryCount),
			zap.Int("max_retries", retry.MaxRetries),
			zap.Error(cause),
		)
		return fmt.Errorf("record event: %w", cause)
	}

	a.logger.Error("todo_event_dead_lettered",
		zap.String("event_id", event.ID.String()),
		zap.Int("retry_count", event.RetryCount),
		zap.Error(cause),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		a.logger.Error("failed_to_nack_message", zap.Error(nackErr))
	}
	return fmt.Errorf("record event: %w", cause)
}
