package actions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIDLocks_FIFO(t *testing.T) {
	t.Parallel()

	l := newIDLocks()
	id := uuid.New()
	ctx := context.Background()

	if err := l.acquire(ctx, id); err != nil {
		t.Fatal(err)
	}

	order := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		go func() {
			if err := l.acquire(ctx, id); err != nil {
				t.Errorf("acquire %d: %v", i, err)
				return
			}
			order <- i
			l.release(id)
		}()
		// Let each waiter enqueue before starting the next one
		waitFor(t, func() bool {
			l.mu.Lock()
			defer l.mu.Unlock()
			return l.entries[id].refs == i+1
		})
		time.Sleep(10 * time.Millisecond)
	}

	l.release(id)
	for want := 1; want <= 3; want++ {
		if got := <-order; got != want {
			t.Fatalf("Waiter %d acquired in position %d", got, want)
		}
	}
	waitFor(t, func() bool { return l.size() == 0 })
}

func TestIDLocks_IndependentIDs(t *testing.T) {
	t.Parallel()

	l := newIDLocks()
	a, b := uuid.New(), uuid.New()

	if err := l.acquire(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.acquire(ctx, b); err != nil {
		t.Fatalf("Lock on a different id must not block: %v", err)
	}
	l.release(a)
	l.release(b)
	if l.size() != 0 {
		t.Errorf("Expected no entries, got %d", l.size())
	}
}

func TestIDLocks_CancelledWaiterCleansUp(t *testing.T) {
	t.Parallel()

	l := newIDLocks()
	id := uuid.New()
	if err := l.acquire(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := l.acquire(ctx, id); err == nil {
		t.Fatal("Expected timeout while lock is held")
	}

	l.release(id)
	if l.size() != 0 {
		t.Errorf("Expected entry removed, got %d", l.size())
	}
}
