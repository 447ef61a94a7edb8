package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// purgeTimeout bounds a single sweep of the dead letter queue
const purgeTimeout = 2 * time.Minute

// GarbageCollector drops dead-lettered change events once they are older than
// retention. Audit entries that never made it stay inspectable for that long.
type GarbageCollector struct {
	dlqPurger DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	purged    atomic.Int64
}

// NewGarbageCollector creates a collector. A nil purger makes every sweep a no-op.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		dlqPurger: purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Purged returns how many events all sweeps so far have removed
func (gc *GarbageCollector) Purged() int64 {
	return gc.purged.Load()
}

// Start sweeps immediately, then every interval until ctx is cancelled.
// It always returns the context error.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gc.sweep(ctx)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweep(ctx)
		}
	}
}

func (gc *GarbageCollector) sweep(ctx context.Context) {
	if err := gc.collect(ctx); err != nil && ctx.Err() == nil {
		gc.logger.Warn("dlq_gc_failed", zap.Error(err))
	}
}

// collect runs one purge
func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	gc.purged.Add(int64(n))
	if n > 0 {
		gc.logger.Info("dlq_gc_purged", zap.Int("count", n), zap.Duration("retention", gc.retention))
	}
	if err != nil {
		return fmt.Errorf("purge dead letter queue: %w", err)
	}
	return nil
}
