// Package productcache keeps an in-memory, time-bounded mirror of the product
// dictionary indexed by normalized name.
package productcache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/textmatch"
)

// DefaultTTL is how long a loaded catalog is served before reloading.
const DefaultTTL = 5 * time.Minute

// ProductReader bulk-loads the product dictionary.
type ProductReader interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// snapshot is an immutable view of the catalog. A new snapshot is built for
// every change and published atomically.
type snapshot struct {
	loadedAt time.Time
	byID     map[string]*model.Product
	byName   map[string][]string
	order    []string
}

// Cache serves exact-name and bulk lookups from memory.
type Cache struct {
	reader ProductReader
	now    func() time.Time
	snap   atomic.Pointer[snapshot]
	ttl    time.Duration
	mu     sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
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

// New creates an empty cache backed by reader.
func New(reader ProductReader, opts ...Option) *Cache {
	c := &Cache{
		reader: reader,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snap.Store(buildSnapshot(nil, time.Time{}))
	return c
}

// Refresh reloads the catalog when the cache is empty, older than its TTL,
// or force is set. On failure the previous contents stay in place and the
// error is returned for the caller to log.
func (c *Cache) Refresh(ctx context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snap.Load()
	if !force && len(current.order) > 0 && c.now().Sub(current.loadedAt) < c.ttl {
		return nil
	}

	products, err := c.reader.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	next := buildSnapshot(products, c.now())
	c.snap.Store(next)

	slog.Debug("Product cache refreshed",
		"products", len(next.order),
		"indexed_names", len(next.byName))
	return nil
}

// ByExactName returns the product whose canonical name or synonym
// normalizes to the same form as name.
func (c *Cache) ByExactName(name string) (*model.Product, bool) {
	snap := c.snap.Load()
	ids := snap.byName[textmatch.Normalize(name)]
	if len(ids) == 0 {
		return nil, false
	}
	p, ok := snap.byID[ids[0]]
	return p, ok
}

// Get returns the product with id.
func (c *Cache) Get(id string) (*model.Product, bool) {
	p, ok := c.snap.Load().byID[id]
	return p, ok
}

// All returns the cached products in load order. Callers must not mutate
// the returned products.
func (c *Cache) All() []model.Product {
	snap := c.snap.Load()
	out := make([]model.Product, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, *snap.byID[id])
	}
	return out
}

// FindByPrefix returns products whose canonical name or a synonym starts
// with prefix after normalization, sorted by canonical name.
func (c *Cache) FindByPrefix(prefix string, limit int) []model.Product {
	norm := textmatch.Normalize(prefix)
	if norm == "" {
		return nil
	}

	snap := c.snap.Load()
	seen := make(map[string]struct{})
	var out []model.Product
	for name, ids := range snap.byName {
		if !strings.HasPrefix(name, norm) {
			continue
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, *snap.byID[id])
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CanonicalName < out[j].CanonicalName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Invalidate drops one product and makes the next Refresh reload.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snap.Load()
	products := make([]model.Product, 0, len(current.order))
	for _, pid := range current.order {
		if pid != id {
			products = append(products, *current.byID[pid])
		}
	}
	c.snap.Store(buildSnapshot(products, time.Time{}))
}

// RecordSynonym indexes a synonym that was just persisted for product id,
// so lookups see it before the next reload.
func (c *Cache) RecordSynonym(id, synonym string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snap.Load()
	p, ok := current.byID[id]
	if !ok {
		return
	}

	norm := textmatch.Normalize(synonym)
	if slices.Contains(current.byName[norm], id) {
		return
	}

	products := make([]model.Product, 0, len(current.order))
	for _, pid := range current.order {
		if pid == id {
			updated := p.Clone()
			updated.Synonyms = append(updated.Synonyms, synonym)
			products = append(products, updated)
			continue
		}
		products = append(products, *current.byID[pid])
	}
	c.snap.Store(buildSnapshot(products, current.loadedAt))
}

// Status describes the cache for operators.
type Status struct {
	Age          time.Duration `json:"cacheAge"`
	ProductCount int           `json:"productCount"`
	IndexedNames int           `json:"indexedNames"`
	Stale        bool          `json:"isStale"`
}

// Status reports the current size and freshness of the cache.
func (c *Cache) Status() Status {
	snap := c.snap.Load()
	st := Status{
		ProductCount: len(snap.order),
		IndexedNames: len(snap.byName),
		Stale:        true,
	}
	if !snap.loadedAt.IsZero() {
		st.Age = c.now().Sub(snap.loadedAt)
		st.Stale = st.Age >= c.ttl
	}
	return st
}

func buildSnapshot(products []model.Product, loadedAt time.Time) *snapshot {
	snap := &snapshot{
		loadedAt: loadedAt,
		byID:     make(map[string]*model.Product, len(products)),
		byName:   make(map[string][]string, len(products)*2),
		order:    make([]string, 0, len(products)),
	}

	index := func(name, id string) {
		norm := textmatch.Normalize(name)
		if norm == "" || slices.Contains(snap.byName[norm], id) {
			return
		}
		snap.byName[norm] = append(snap.byName[norm], id)
	}

	for i := range products {
		p := products[i].Clone()
		if textmatch.Normalize(p.CanonicalName) == "" {
			slog.Warn("Skipping product without a usable name", "product_id", p.ID)
			continue
		}
		if _, dup := snap.byID[p.ID]; dup {
			continue
		}

		snap.byID[p.ID] = &p
		snap.order = append(snap.order, p.ID)
		index(p.CanonicalName, p.ID)
		for _, syn := range p.Synonyms {
			index(syn, p.ID)
		}
	}

	return snap
}
