// Package app wires configuration into the concrete store and validator.
package app

import (
	"fmt"
	"io"

	"github.com/benvon/simple-todo/internal/config"
	"github.com/benvon/simple-todo/internal/database"
	"github.com/benvon/simple-todo/internal/store"
	"github.com/benvon/simple-todo/internal/validation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OpenStore builds the backend selected by cfg.StoreBackend.
// The returned store should be closed with CloseStore.
func OpenStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		log.Info("store_opened", zap.String("backend", config.BackendMemory))
		return store.NewMemoryStore(), nil

	case config.BackendFile:
		s, err := store.NewFileStore(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		log.Info("store_opened", zap.String("backend", config.BackendFile), zap.String("path", s.Path()))
		return s, nil

	case config.BackendRedis:
		s, err := store.NewRedisStore(cfg.RedisURL, cfg.RedisTodoKey)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		log.Info("store_opened", zap.String("backend", config.BackendRedis), zap.String("key", cfg.RedisTodoKey))
		return s, nil

	case config.BackendSQLite:
		db, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("store_opened", zap.String("backend", config.BackendSQLite), zap.String("path", cfg.SQLitePath))
		return database.NewTodoRepository(db), nil

	case config.BackendPostgres:
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info("store_opened", zap.String("backend", config.BackendPostgres))
		return database.NewTodoRepository(db), nil

	case config.BackendRemote:
		s, err := store.NewRemoteStore(cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("open remote store: %w", err)
		}
		log.Info("store_opened", zap.String("backend", config.BackendRemote), zap.String("url", cfg.APIURL))
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// CloseStore releases the store's connection if it holds one
func CloseStore(s store.Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// RateLimitClient returns the Redis client for the rate limiter store.
// A Redis backed store shares its client. Otherwise a new client is opened
// from cfg.RedisURL and owned reports that the caller must close it.
func RateLimitClient(cfg *config.Config, s store.Store) (client *redis.Client, owned bool, err error) {
	if rs, ok := s.(*store.RedisStore); ok {
		return rs.Client(), false, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, false, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), true, nil
}

// NewValidator builds the validator configured by cfg
func NewValidator(cfg *config.Config) *validation.Validator {
	return validation.NewValidator(cfg.MaxTextLength, cfg.RejectDuplicates)
}
