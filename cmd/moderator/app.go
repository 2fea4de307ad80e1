package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/ingredient-moderator/internal/config"
	"github.com/Veraticus/ingredient-moderator/internal/decisioncache"
	"github.com/Veraticus/ingredient-moderator/internal/llm"
	"github.com/Veraticus/ingredient-moderator/internal/matcher"
	"github.com/Veraticus/ingredient-moderator/internal/moderation"
	"github.com/Veraticus/ingredient-moderator/internal/productcache"
	"github.com/Veraticus/ingredient-moderator/internal/storage"
)

// app bundles the long-lived components a command needs.
type app struct {
	store     *storage.Storage
	decisions *decisioncache.Cache
	mod       *moderation.Moderator
	closers   []io.Closer
}

// openStore opens the configured database and brings its schema up to date.
func openStore(ctx context.Context, dc config.DatabaseConfig) (*storage.Storage, error) {
	var (
		store *storage.Storage
		err   error
	)
	switch dc.Driver {
	case config.DriverPostgres:
		store, err = storage.NewPostgresStorage(ctx, dc.DSN)
	default:
		store, err = storage.NewSQLiteStorage(dc.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// newDecisionBackend picks the configured decision cache backend.
func newDecisionBackend(ctx context.Context, dc config.DecisionCacheConfig, store *storage.Storage) (decisioncache.Backend, io.Closer, error) {
	switch dc.Backend {
	case config.BackendRedis:
		backend, err := decisioncache.NewRedisBackend(ctx, dc.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect decision cache: %w", err)
		}
		return backend, backend, nil
	case config.BackendMemory:
		backend := decisioncache.NewMemoryBackend(10 * time.Minute)
		return backend, backend, nil
	default:
		return store, nil, nil
	}
}

// newApp wires storage, caches, the reasoning service and the moderator.
// A missing API key leaves the moderator without escalation.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{store: store}

	backend, closer, err := newDecisionBackend(ctx, cfg.DecisionCache, store)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.decisions = decisioncache.New(backend, decisioncache.WithTTL(cfg.DecisionCache.TTL))

	var linker moderation.Linker
	client, err := llm.NewClient(cfg.LLM)
	switch {
	case err == nil:
		linker = llm.NewLinker(client,
			llm.WithTimeout(cfg.LLM.Timeout),
			llm.WithSampleSize(cfg.LLM.SampleSize))
	case cfg.LLM.APIKey == "":
		slog.Warn("No reasoning service API key configured, unresolved names will be reported as errors",
			"provider", cfg.LLM.Provider)
	default:
		_ = a.Close(ctx)
		return nil, err
	}

	a.mod = moderation.New(store, a.decisions, linker,
		moderation.WithConfig(cfg.Moderation),
		moderation.WithDuplicateConfig(cfg.Duplicates),
		moderation.WithMatcher(matcher.NewWithThresholds(cfg.Matching)),
		moderation.WithProductCache(productcache.New(store, productcache.WithTTL(cfg.ProductCache.TTL))),
		moderation.WithQueueOptions(
			moderation.WithDelay(cfg.Queue.Delay),
			moderation.WithBatchSize(cfg.Queue.BatchSize)),
	)
	return a, nil
}

// Close flushes the moderator queue and releases connections.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.mod != nil {
		if err := a.mod.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush queue: %w", err))
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
