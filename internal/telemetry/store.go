package telemetry

import (
	"context"
	"io"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/benvon/simple-todo/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const storeTracerName = "github.com/benvon/simple-todo/internal/store"

// TracedStore records a span for every call to the wrapped store
type TracedStore struct {
	next    store.Store
	tracer  trace.Tracer
	backend string
}

var (
	_ store.Store  = (*TracedStore)(nil)
	_ store.Pinger = (*TracedStore)(nil)
	_ io.Closer    = (*TracedStore)(nil)
)

// NewTracedStore wraps next. A nil tracer uses the global provider.
func NewTracedStore(next store.Store, backend string, tracer trace.Tracer) *TracedStore {
	if tracer == nil {
		tracer = otel.Tracer(storeTracerName)
	}
	return &TracedStore{next: next, tracer: tracer, backend: backend}
}

// Unwrap returns the wrapped store
func (s *TracedStore) Unwrap() store.Store {
	return s.next
}

func (s *TracedStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("todo.store.backend", s.backend))
	return s.tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		// A missing record is an answer, not a failure of the store
		if !todoerrors.Is(err, todoerrors.ErrNotFound) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

// List traces store.List
func (s *TracedStore) List(ctx context.Context) ([]models.Todo, error) {
	ctx, span := s.start(ctx, "list")
	todos, err := s.next.List(ctx)
	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	finish(span, err)
	return todos, err
}

// Create traces store.Create
func (s *TracedStore) Create(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	ctx, span := s.start(ctx, "create")
	created, err := s.next.Create(ctx, todo)
	if created != nil {
		span.SetAttributes(attribute.String("todo.id", created.ID.String()))
	}
	finish(span, err)
	return created, err
}

// Update traces store.Update
func (s *TracedStore) Update(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	ctx, span := s.start(ctx, "update", attribute.String("todo.id", todo.ID.String()))
	updated, err := s.next.Update(ctx, todo)
	finish(span, err)
	return updated, err
}

// Delete traces store.Delete
func (s *TracedStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.start(ctx, "delete", attribute.String("todo.id", id.String()))
	err := s.next.Delete(ctx, id)
	finish(span, err)
	return err
}

// Ping forwards to the wrapped store when it supports health checks
func (s *TracedStore) Ping(ctx context.Context) error {
	if p, ok := s.next.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close forwards to the wrapped store when it holds a connection
func (s *TracedStore) Close() error {
	if c, ok := s.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
