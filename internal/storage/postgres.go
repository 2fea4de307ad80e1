package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// NewPostgresStorage connects to PostgreSQL using a lib/pq connection string.
func NewPostgresStorage(ctx context.Context, dsn string) (*Storage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	db, err := sql.Open(string(DialectPostgres), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewWithDB(db, DialectPostgres), nil
}

// synonymsArg encodes a synonym list for the product_dictionary.synonyms
// column: a native text array in PostgreSQL, JSON text in SQLite.
func (s *Storage) synonymsArg(synonyms []string) (any, error) {
	if synonyms == nil {
		synonyms = []string{}
	}
	if s.dialect == DialectPostgres {
		return pq.Array(synonyms), nil
	}

	data, err := json.Marshal(synonyms)
	if err != nil {
		return nil, fmt.Errorf("failed to encode synonyms: %w", err)
	}
	return string(data), nil
}

// synonymsScanner returns a scan destination for the synonyms column and a
// function that decodes it into dst once the row has been scanned.
func (s *Storage) synonymsScanner(dst *[]string) (any, func() error) {
	if s.dialect == DialectPostgres {
		var arr pq.StringArray
		return &arr, func() error {
			*dst = []string(arr)
			return nil
		}
	}

	var raw sql.NullString
	return &raw, func() error {
		if !raw.Valid || raw.String == "" {
			*dst = nil
			return nil
		}
		if err := json.Unmarshal([]byte(raw.String), dst); err != nil {
			return fmt.Errorf("failed to decode synonyms: %w", err)
		}
		return nil
	}
}
