package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
)

// DefaultDataFile is the file name used when no path is configured
const DefaultDataFile = "todos.json"

// FileStore persists the whole collection as one JSON array in a single file.
// The file is read once on open and rewritten after every mutation.
type FileStore struct {
	path  string
	mu    sync.RWMutex
	todos []models.Todo
	now   func() time.Time
}

// NewFileStore opens (or lazily creates) the JSON file at path
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultDataFile
	}
	todos, err := readTodosFile(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, todos: todos, now: time.Now}, nil
}

func readTodosFile(path string) ([]models.Todo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Todo{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(b) == 0 {
		return []models.Todo{}, nil
	}
	var todos []models.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return todos, nil
}

// save writes the collection to a temp file and renames it over the data file
func (s *FileStore) save(todos []models.Todo) error {
	b, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".todos-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Path returns the data file location
func (s *FileStore) Path() string {
	return s.path
}

// List returns a copy of all todos
func (s *FileStore) List(ctx context.Context) ([]models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Clone(s.todos), nil
}

// Create appends a todo and persists the file
func (s *FileStore) Create(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, created, err := insertTodo(s.todos, todo, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.save(next); err != nil {
		return nil, todoerrors.NewStorage("create", err)
	}
	s.todos = next
	return created, nil
}

// Update replaces an existing todo and persists the file
func (s *FileStore) Update(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, updated, err := replaceTodo(s.todos, todo)
	if err != nil {
		return nil, err
	}
	if err := s.save(next); err != nil {
		return nil, todoerrors.NewStorage("update", err)
	}
	s.todos = next
	return updated, nil
}

// Delete removes a todo and persists the file
func (s *FileStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := removeTodo(s.todos, id)
	if err != nil {
		return err
	}
	if err := s.save(next); err != nil {
		return todoerrors.NewStorage("delete", err)
	}
	s.todos = next
	return nil
}
