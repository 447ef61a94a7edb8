package actions

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// idLocks serializes mutations per todo id. Waiters on one id are served in
// FIFO order; entries are dropped once nobody holds or waits for them.
type idLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*idLock
}

type idLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newIDLocks() *idLocks {
	return &idLocks{entries: make(map[uuid.UUID]*idLock)}
}

// acquire blocks until the caller holds the lock for id or ctx is done
func (l *idLocks) acquire(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &idLock{sem: semaphore.NewWeighted(1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.drop(id, e)
		return err
	}
	return nil
}

func (l *idLocks) release(id uuid.UUID) {
	l.mu.Lock()
	e, ok := l.entries[id]
	l.mu.Unlock()
	if !ok {
		return
	}
	e.sem.Release(1)
	l.drop(id, e)
}

func (l *idLocks) drop(id uuid.UUID, e *idLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// size reports how many ids currently have holders or waiters
func (l *idLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
