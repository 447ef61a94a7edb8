package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockDLQPurger struct {
	calls     atomic.Int32
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
}

var _ DLQPurger = (*mockDLQPurger)(nil)

func (m *mockDLQPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	m.calls.Add(1)
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}
	return 0, nil
}

func TestGarbageCollector_Collect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		purger     func() (int, error)
		nilPurger  bool
		wantErr    bool
		wantPurged int64
	}{
		{name: "nil purger", nilPurger: true},
		{name: "nothing to purge", purger: func() (int, error) { return 0, nil }},
		{name: "purged", purger: func() (int, error) { return 3, nil }, wantPurged: 3},
		{name: "failure", purger: func() (int, error) { return 0, errors.New("channel closed") }, wantErr: true},
		{name: "partial failure keeps count", purger: func() (int, error) { return 2, errors.New("channel closed") }, wantErr: true, wantPurged: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var purger DLQPurger
			if !tt.nilPurger {
				purger = &mockDLQPurger{purgeFunc: func(_ context.Context, retention time.Duration) (int, error) {
					if retention != 24*time.Hour {
						return 0, errors.New("unexpected retention")
					}
					return tt.purger()
				}}
			}

			gc := NewGarbageCollector(purger, time.Minute, 24*time.Hour, nil)
			err := gc.collect(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("collect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := gc.Purged(); got != tt.wantPurged {
				t.Errorf("Purged() = %d, want %d", got, tt.wantPurged)
			}
		})
	}
}

func TestGarbageCollector_Start_SweepsImmediately(t *testing.T) {
	t.Parallel()

	mock := &mockDLQPurger{purgeFunc: func(context.Context, time.Duration) (int, error) { return 1, nil }}
	gc := NewGarbageCollector(mock, 24*time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gc.Start(ctx) }()

	deadline := time.After(time.Second)
	for mock.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no sweep before the first tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
	if gc.Purged() != 1 {
		t.Errorf("Purged() = %d, want 1", gc.Purged())
	}
}

func TestGarbageCollector_Start_RunsOnTicker(t *testing.T) {
	t.Parallel()

	mock := &mockDLQPurger{}
	gc := NewGarbageCollector(mock, 5*time.Millisecond, time.Hour, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_ = gc.Start(ctx)
	if mock.calls.Load() < 2 {
		t.Errorf("calls = %d, want the initial sweep plus ticks", mock.calls.Load())
	}
}

func TestGarbageCollector_Start_CancelledContext(t *testing.T) {
	t.Parallel()

	mock := &mockDLQPurger{}
	gc := NewGarbageCollector(mock, time.Hour, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gc.Start(ctx); err == nil {
		t.Error("expected context error")
	}
	if mock.calls.Load() != 0 {
		t.Error("no sweep should run on a cancelled context")
	}
}

func TestGarbageCollector_LogsFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	mock := &mockDLQPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
		return 0, errors.New("channel closed")
	}}
	gc := NewGarbageCollector(mock, time.Hour, time.Hour, zap.New(core))
	gc.sweep(context.Background())

	if logs.FilterMessage("dlq_gc_failed").Len() != 1 {
		t.Errorf("expected one dlq_gc_failed entry, got %v", logs.All())
	}
}
