package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Dialect selects the SQL flavour the storage speaks.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// Storage persists the product dictionary, moderation tasks and the decision
// cache in a relational database.
type Storage struct {
	db      *sql.DB
	now     func() time.Time
	dialect Dialect
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStorage opens (creating if needed) a SQLite database at dbPath.
func NewSQLiteStorage(dbPath string) (*Storage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open(string(DialectSQLite), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewWithDB(db, DialectSQLite), nil
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB, dialect Dialect) *Storage {
	return &Storage{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}
}

// Dialect reports the SQL dialect in use.
func (s *Storage) Dialect() Dialect {
	return s.dialect
}

// DB exposes the underlying handle for health checks.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *Storage) rebind(query string) string {
	if s.dialect != DialectPostgres {
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

// timestamp normalizes times before they are bound, so SQLite's text
// representation sorts chronologically.
func (s *Storage) timestamp(t time.Time) time.Time {
	return t.UTC()
}

func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
