package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*TodoRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todos.db")
	db, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTodoRepository(db), path
}

func TestNewSQLite_Migrates(t *testing.T) {
	t.Parallel()

	repo, path := newTestRepo(t)
	version, err := repo.db.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)
	require.Equal(t, DialectSQLite, repo.db.Dialect())

	// Reopening an already migrated database is a no-op
	again, err := NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = again.Close() }()
	version, err = again.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)
}

func TestTodoRepository_CRUD(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepo(t)
	ctx := context.Background()

	todos, err := repo.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, todos)
	require.Empty(t, todos)

	created, err := repo.Create(ctx, models.Todo{Text: "Buy milk"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.False(t, created.Completed)
	require.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)

	todos, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	require.Equal(t, created.ID, todos[0].ID)
	require.Equal(t, "Buy milk", todos[0].Text)

	updated, err := repo.Update(ctx, models.Todo{ID: created.ID, Text: "Buy oat milk", Completed: true})
	require.NoError(t, err)
	require.Equal(t, "Buy oat milk", updated.Text)
	require.True(t, updated.Completed)
	require.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	require.NoError(t, repo.Delete(ctx, created.ID))
	todos, err = repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, todos)

	err = repo.Delete(ctx, created.ID)
	require.True(t, todoerrors.Is(err, todoerrors.ErrNotFound), "got %v", err)
}

func TestTodoRepository_InsertionOrder(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepo(t)
	ctx := context.Background()

	// Same timestamp for all rows; order must still follow insertion
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	for _, text := range []string{"one", "two", "three"} {
		_, err := repo.Create(ctx, models.Todo{Text: text})
		require.NoError(t, err)
	}

	todos, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 3)
	require.Equal(t, "one", todos[0].Text)
	require.Equal(t, "two", todos[1].Text)
	require.Equal(t, "three", todos[2].Text)
}

func TestTodoRepository_Errors(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepo(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := repo.Create(ctx, models.Todo{ID: id, Text: "Buy milk"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, models.Todo{ID: id, Text: "Walk dog"})
	require.True(t, todoerrors.Is(err, todoerrors.ErrConflict), "duplicate id: %v", err)

	_, err = repo.Update(ctx, models.Todo{ID: uuid.New(), Text: "ghost"})
	require.True(t, todoerrors.Is(err, todoerrors.ErrNotFound), "update missing: %v", err)

	err = repo.Delete(ctx, uuid.New())
	require.True(t, todoerrors.Is(err, todoerrors.ErrNotFound), "delete missing: %v", err)
}

func TestTodoRepository_ClosedDatabase(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.List(context.Background())
	require.True(t, todoerrors.Is(err, todoerrors.ErrStorage), "got %v", err)
	require.Error(t, repo.Ping(context.Background()))
}

func TestRebind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{"sqlite unchanged", DialectSQLite, "SELECT * FROM todos WHERE id = ? AND text = ?", "SELECT * FROM todos WHERE id = ? AND text = ?"},
		{"postgres numbered", DialectPostgres, "UPDATE todos SET text = ?, completed = ? WHERE id = ?", "UPDATE todos SET text = $1, completed = $2 WHERE id = $3"},
		{"postgres no params", DialectPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := &DB{dialect: tt.dialect}
			require.Equal(t, tt.want, db.rebind(tt.query))
		})
	}
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
}
