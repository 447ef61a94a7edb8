package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/benvon/simple-todo/internal/store"
	"github.com/google/uuid"
)

// TodoRepository handles todo database operations
type TodoRepository struct {
	db  *DB
	now func() time.Time
}

var (
	_ store.Store  = (*TodoRepository)(nil)
	_ store.Pinger = (*TodoRepository)(nil)
)

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *DB) *TodoRepository {
	return &TodoRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	todo := &models.Todo{}
	var createdAt int64
	if err := row.Scan(&todo.ID, &todo.Text, &todo.Completed, &createdAt); err != nil {
		return nil, err
	}
	todo.CreatedAt = time.Unix(0, createdAt).UTC()
	return todo, nil
}

// List retrieves all todos in insertion order
func (r *TodoRepository) List(ctx context.Context) ([]models.Todo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, text, completed, created_at FROM todos ORDER BY seq`)
	if err != nil {
		return nil, todoerrors.NewStorage("list", fmt.Errorf("failed to query todos: %w", err))
	}
	defer func() { _ = rows.Close() }()

	todos := []models.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, todoerrors.NewStorage("list", fmt.Errorf("failed to scan todo: %w", err))
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, todoerrors.NewStorage("list", fmt.Errorf("error iterating todos: %w", err))
	}
	return todos, nil
}

// Create inserts a new todo
func (r *TodoRepository) Create(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	if todo.ID == uuid.Nil {
		todo.ID = uuid.New()
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = r.now().UTC()
	}

	query := r.db.rebind(`
		INSERT INTO todos (id, text, completed, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, text, completed, created_at
	`)
	created, err := scanTodo(r.db.QueryRowContext(ctx, query,
		todo.ID,
		todo.Text,
		todo.Completed,
		todo.CreatedAt.UnixNano(),
	))
	if isUniqueViolation(err) {
		return nil, todoerrors.NewConflict("todo already exists: " + todo.ID.String())
	}
	if err != nil {
		return nil, todoerrors.NewStorage("create", fmt.Errorf("failed to create todo: %w", err))
	}
	return created, nil
}

// Update replaces text and completed of an existing todo
func (r *TodoRepository) Update(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	query := r.db.rebind(`
		UPDATE todos
		SET text = ?, completed = ?
		WHERE id = ?
		RETURNING id, text, completed, created_at
	`)
	updated, err := scanTodo(r.db.QueryRowContext(ctx, query, todo.Text, todo.Completed, todo.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, todoerrors.NewNotFound(todo.ID.String())
	}
	if err != nil {
		return nil, todoerrors.NewStorage("update", fmt.Errorf("failed to update todo: %w", err))
	}
	return updated, nil
}

// Delete deletes a todo by ID
func (r *TodoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, r.db.rebind(`DELETE FROM todos WHERE id = ?`), id)
	if err != nil {
		return todoerrors.NewStorage("delete", fmt.Errorf("failed to delete todo: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return todoerrors.NewStorage("delete", fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return todoerrors.NewNotFound(id.String())
	}
	return nil
}

// Ping verifies the database connection
func (r *TodoRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close closes the underlying connection
func (r *TodoRepository) Close() error {
	return r.db.Close()
}
