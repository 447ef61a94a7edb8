// Package store holds the record store contract and its non-SQL backends.
package store

import (
	"context"
	"time"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence contract behind the action service and the HTTP API.
// Update and Delete return a NOT_FOUND error for unknown ids; medium failures
// are returned as STORAGE errors.
type Store interface {
	// List returns all todos in insertion order
	List(ctx context.Context) ([]models.Todo, error)

	// Create persists a new todo. A nil ID is assigned by the store.
	Create(ctx context.Context, todo models.Todo) (*models.Todo, error)

	// Update replaces text and completed of an existing todo
	Update(ctx context.Context, todo models.Todo) (*models.Todo, error)

	// Delete removes a todo by ID
	Delete(ctx context.Context, id uuid.UUID) error
}

// Pinger is implemented by stores backed by an external medium
type Pinger interface {
	Ping(ctx context.Context) error
}

// The helpers below implement the contract over a plain slice. They are shared
// by the memory, file and Redis backends, which all persist the whole array.

func insertTodo(list []models.Todo, todo models.Todo, now time.Time) ([]models.Todo, *models.Todo, error) {
	if todo.ID == uuid.Nil {
		todo.ID = uuid.New()
	}
	if models.IndexOf(list, todo.ID) >= 0 {
		return nil, nil, todoerrors.NewConflict("todo already exists: " + todo.ID.String())
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now.UTC()
	}
	next := append(models.Clone(list), todo)
	return next, &todo, nil
}

func replaceTodo(list []models.Todo, todo models.Todo) ([]models.Todo, *models.Todo, error) {
	idx := models.IndexOf(list, todo.ID)
	if idx < 0 {
		return nil, nil, todoerrors.NewNotFound(todo.ID.String())
	}
	next := models.Clone(list)
	next[idx].Text = todo.Text
	next[idx].Completed = todo.Completed
	updated := next[idx]
	return next, &updated, nil
}

func removeTodo(list []models.Todo, id uuid.UUID) ([]models.Todo, error) {
	idx := models.IndexOf(list, id)
	if idx < 0 {
		return nil, todoerrors.NewNotFound(id.String())
	}
	next := make([]models.Todo, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	return next, nil
}
