package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ingredient-moderator/internal/config"
	"github.com/Veraticus/ingredient-moderator/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on open, so this is mostly useful to prepare
a fresh database or to check where an existing one stands.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	ctx := cmd.Context()

	var (
		store *storage.Storage
		err   error
	)
	if cfg.Database.Driver == config.DriverPostgres {
		store, err = storage.NewPostgresStorage(ctx, cfg.Database.DSN)
	} else {
		store, err = storage.NewSQLiteStorage(cfg.Database.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if status {
		slog.Info("📊 Database migration status",
			"driver", cfg.Database.Driver,
			"current_version", current,
			"latest_version", storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			slog.Warn("Database schema is behind, run `moderator migrate`")
		}
		return nil
	}

	slog.Info("🗄️  Running database migrations...",
		"driver", cfg.Database.Driver,
		"from_version", current)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("✅ Database migrations completed successfully!",
		"version", storage.ExpectedSchemaVersion)
	return nil
}
