package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisKey is the key holding the serialized collection
	DefaultRedisKey = "todos"

	// maxTxRetries bounds optimistic transaction retries on concurrent writers
	maxTxRetries = 5
)

// RedisStore keeps the collection as one JSON array under a single key.
// Writes use WATCH/MULTI so concurrent writers never lose each other's changes.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, key), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

// Client exposes the underlying client so the rate limiter can share it
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeTodos(b []byte) ([]models.Todo, error) {
	if len(b) == 0 {
		return []models.Todo{}, nil
	}
	var todos []models.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return todos, nil
}

func readKey(ctx context.Context, c redis.Cmdable, key string) ([]models.Todo, error) {
	b, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.Todo{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTodos(b)
}

// List returns all todos
func (s *RedisStore) List(ctx context.Context) ([]models.Todo, error) {
	todos, err := readKey(ctx, s.client, s.key)
	if err != nil {
		return nil, todoerrors.NewStorage("list", err)
	}
	return todos, nil
}

// mutate runs fn on the current collection inside a WATCH transaction
func (s *RedisStore) mutate(ctx context.Context, op string, fn func([]models.Todo) ([]models.Todo, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := readKey(ctx, tx, s.key)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		b, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, b, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = s.client.Watch(ctx, txf, s.key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return todoerrors.NewStorage(op, err)
	}
	return nil
}

// Create appends a todo
func (s *RedisStore) Create(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	var created *models.Todo
	err := s.mutate(ctx, "create", func(list []models.Todo) ([]models.Todo, error) {
		next, c, err := insertTodo(list, todo, s.now())
		created = c
		return next, err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces an existing todo
func (s *RedisStore) Update(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	var updated *models.Todo
	err := s.mutate(ctx, "update", func(list []models.Todo) ([]models.Todo, error) {
		next, u, err := replaceTodo(list, todo)
		updated = u
		return next, err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a todo
func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, "delete", func(list []models.Todo) ([]models.Todo, error) {
		return removeTodo(list, id)
	})
}
