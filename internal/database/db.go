// Package database provides the SQL-backed record store for SQLite and PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a DB
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DefaultSQLitePath is used when no SQLite path is configured
const DefaultSQLitePath = "todos.db"

// CurrentSchemaVersion is the latest schema version. Bump it when adding migrations.
const CurrentSchemaVersion = 1

// DB wraps a database connection with its dialect
type DB struct {
	*sql.DB
	dialect Dialect
}

// New opens a PostgreSQL connection and migrates the schema
func New(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return open(conn, DialectPostgres)
}

// NewSQLite opens (creating if needed) the SQLite file at path and migrates the schema
func NewSQLite(path string) (*DB, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(conn, DialectSQLite)
}

func open(conn *sql.DB, dialect Dialect) (*DB, error) {
	db := &DB{DB: conn, dialect: dialect}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Dialect returns the SQL flavour of the connection
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping verifies the connection is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) schemaV1() string {
	if db.dialect == DialectPostgres {
		return `
		CREATE TABLE IF NOT EXISTS todos (
		  seq        BIGSERIAL PRIMARY KEY,
		  id         UUID NOT NULL UNIQUE,
		  text       TEXT NOT NULL,
		  completed  BOOLEAN NOT NULL DEFAULT FALSE,
		  created_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_todos_completed ON todos(completed);
		`
	}
	return `
	CREATE TABLE IF NOT EXISTS todos (
	  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	  id         TEXT NOT NULL UNIQUE,
	  text       TEXT NOT NULL,
	  completed  BOOLEAN NOT NULL DEFAULT 0,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_todos_completed ON todos(completed);
	`
}

// migrate applies schema migrations tracked in schema_migrations
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: todos table
	if version < 1 {
		for _, stmt := range splitStatements(db.schemaV1()) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration 1 failed: %w", err)
			}
		}
		if err := db.setSchemaVersion(ctx, 1); err != nil {
			return err
		}
	}

	return nil
}

// SchemaVersion returns the applied schema version, 0 for a fresh database
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (db *DB) setSchemaVersion(ctx context.Context, version int) error {
	if _, err := db.ExecContext(ctx, db.rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

func splitStatements(schema string) []string {
	var out []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// isUniqueViolation reports whether err is a unique constraint violation in either dialect
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
