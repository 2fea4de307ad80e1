// Package decisioncache memoizes moderation decisions under a content hash
// of their input so identical questions are not escalated twice.
package decisioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/textmatch"
)

// DefaultTTL is how long a decision stays servable.
const DefaultTTL = 24 * time.Hour

// Backend persists decision entries. GetDecision reports a missing entry
// with an error wrapping common.ErrNotFound.
type Backend interface {
	GetDecision(ctx context.Context, hash string) (*model.DecisionEntry, error)
	UpsertDecision(ctx context.Context, entry *model.DecisionEntry) error
	DeleteExpiredDecisions(ctx context.Context, now time.Time) (int64, error)
}

// Hash derives the cache key for input under decision type t. It is stable
// across restarts. Collisions are possible and accepted.
func Hash(input string, t model.DecisionType) string {
	sum := xxhash.Sum64String(string(t) + ":" + textmatch.Normalize(input))
	return strconv.FormatUint(sum, 36)
}

// Cache wraps a Backend with expiry enforcement and JSON encoding.
type Cache struct {
	backend Backend
	now     func() time.Time
	ttl     time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL for Put calls that pass a zero ttl.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache over backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored payload for hash. Missing and expired entries are
// misses; only backend failures are errors.
func (c *Cache) Get(ctx context.Context, hash string) (json.RawMessage, bool, error) {
	entry, err := c.backend.GetDecision(ctx, hash)
	if errors.Is(err, common.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("decision cache get: %w", err)
	}
	if entry == nil || entry.Expired(c.now()) {
		return nil, false, nil
	}
	return entry.Result, true, nil
}

// Put stores result under hash. A zero ttl uses the cache default.
func (c *Cache) Put(ctx context.Context, hash string, t model.DecisionType, result any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("decision cache encode: %w", err)
	}

	now := c.now()
	entry := &model.DecisionEntry{
		InputHash:    hash,
		DecisionType: t,
		Result:       payload,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := c.backend.UpsertDecision(ctx, entry); err != nil {
		return fmt.Errorf("decision cache put: %w", err)
	}
	return nil
}

// Sweep deletes expired entries and reports how many were removed.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	n, err := c.backend.DeleteExpiredDecisions(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("decision cache sweep: %w", err)
	}
	return n, nil
}

// GetResult is Get decoded into a moderation result.
func (c *Cache) GetResult(ctx context.Context, hash string) (*model.ModerationResult, bool, error) {
	raw, ok, err := c.Get(ctx, hash)
	if err != nil || !ok {
		return nil, false, err
	}

	var result model.ModerationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decision cache decode: %w", err)
	}
	return &result, true, nil
}

// PutResult stores a moderation result with the default ttl.
func (c *Cache) PutResult(ctx context.Context, hash string, t model.DecisionType, result model.ModerationResult) error {
	return c.Put(ctx, hash, t, result, 0)
}
