package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(tx *sql.Tx, d Dialect) error
	Description string
	Version     int
}

// columnTypes picks the per-dialect spelling of the few types that differ.
type columnTypes struct {
	timestamp string
	json      string
	textArray string
	real      string
}

func typesFor(d Dialect) columnTypes {
	if d == DialectPostgres {
		return columnTypes{
			timestamp: "TIMESTAMPTZ",
			json:      "JSONB",
			textArray: "TEXT[] NOT NULL DEFAULT '{}'",
			real:      "DOUBLE PRECISION",
		}
	}
	return columnTypes{
		timestamp: "DATETIME",
		json:      "TEXT",
		textArray: "TEXT NOT NULL DEFAULT '[]'",
		real:      "REAL",
	}
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Product dictionary",
		Up: func(tx *sql.Tx, d Dialect) error {
			ct := typesFor(d)
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS product_dictionary (
					id TEXT PRIMARY KEY,
					canonical_name TEXT NOT NULL,
					synonyms ` + ct.textArray + `,
					category TEXT,
					calories ` + ct.real + `,
					protein ` + ct.real + `,
					fat ` + ct.real + `,
					carbohydrates ` + ct.real + `,
					created_at ` + ct.timestamp + ` NOT NULL,
					updated_at ` + ct.timestamp + ` NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_product_dictionary_name ON product_dictionary(canonical_name)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Moderation tasks",
		Up: func(tx *sql.Tx, d Dialect) error {
			ct := typesFor(d)
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS moderation_tasks (
					id TEXT PRIMARY KEY,
					task_type TEXT NOT NULL,
					product_id TEXT,
					suggested_action ` + ct.json + ` NOT NULL,
					confidence ` + ct.real + ` NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'pending',
					created_at ` + ct.timestamp + ` NOT NULL,
					reviewed_at ` + ct.timestamp + `,
					notes TEXT
				)`,
				`CREATE INDEX IF NOT EXISTS idx_moderation_tasks_type_status ON moderation_tasks(task_type, status)`,
			})
		},
	},
	{
		Version:     3,
		Description: "AI decision cache",
		Up: func(tx *sql.Tx, d Dialect) error {
			ct := typesFor(d)
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS ai_decision_cache (
					input_hash TEXT PRIMARY KEY,
					decision_type TEXT NOT NULL,
					result ` + ct.json + ` NOT NULL,
					created_at ` + ct.timestamp + ` NOT NULL,
					expires_at ` + ct.timestamp + ` NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_ai_decision_cache_expires ON ai_decision_cache(expires_at)`,
			})
		},
	},
}

// SchemaVersion returns the highest applied migration version.
func (s *Storage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	if err := s.ensureMigrationTable(ctx); err != nil {
		return 0, err
	}

	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return int(version.Int64), nil
}

// ensureMigrationTable creates the version bookkeeping table, so a fresh
// database reports version 0.
func (s *Storage) ensureMigrationTable(ctx context.Context) error {
	ct := typesFor(s.dialect)
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at `+ct.timestamp+` NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

// Migrate applies all pending migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if upErr := migration.Up(tx, s.dialect); upErr != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
			}
			_, execErr := tx.ExecContext(ctx,
				s.rebind(`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`),
				migration.Version, migration.Description, s.timestamp(s.now()))
			if execErr != nil {
				return fmt.Errorf("failed to record schema version: %w", execErr)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
