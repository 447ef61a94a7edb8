package store

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps todos in a process-local slice
type MemoryStore struct {
	mu    sync.RWMutex
	todos []models.Todo
	now   func() time.Time
}

// NewMemoryStore creates a memory store seeded with the given todos
func NewMemoryStore(seed ...models.Todo) *MemoryStore {
	return &MemoryStore{
		todos: models.Clone(seed),
		now:   time.Now,
	}
}

// List returns a copy of all todos
func (s *MemoryStore) List(ctx context.Context) ([]models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Clone(s.todos), nil
}

// Create appends a todo
func (s *MemoryStore) Create(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, created, err := insertTodo(s.todos, todo, s.now())
	if err != nil {
		return nil, err
	}
	s.todos = next
	return created, nil
}

// Update replaces an existing todo
func (s *MemoryStore) Update(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, updated, err := replaceTodo(s.todos, todo)
	if err != nil {
		return nil, err
	}
	s.todos = next
	return updated, nil
}

// Delete removes a todo
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := removeTodo(s.todos, id)
	if err != nil {
		return err
	}
	s.todos = next
	return nil
}
