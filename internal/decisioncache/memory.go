package decisioncache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// MemoryBackend keeps decisions in process memory. Entries are lost on exit.
type MemoryBackend struct {
	entries map[string]model.DecisionEntry
	stopCh  chan struct{}
	now     func() time.Time
	mu      sync.RWMutex
	once    sync.Once
}

// NewMemoryBackend creates a backend that purges expired entries every
// cleanupInterval. A zero interval disables background cleanup.
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]model.DecisionEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	if cleanupInterval > 0 {
		go b.cleanup(cleanupInterval)
	}
	return b
}

// GetDecision returns the entry for hash, including expired ones; the Cache
// decides servability.
func (b *MemoryBackend) GetDecision(_ context.Context, hash string) (*model.DecisionEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[hash]
	if !ok {
		return nil, fmt.Errorf("decision %s: %w", hash, common.ErrNotFound)
	}
	return &entry, nil
}

// UpsertDecision stores entry, replacing any previous value.
func (b *MemoryBackend) UpsertDecision(_ context.Context, entry *model.DecisionEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[entry.InputHash] = *entry
	return nil
}

// DeleteExpiredDecisions removes entries that expired before now.
func (b *MemoryBackend) DeleteExpiredDecisions(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int64
	for key, entry := range b.entries {
		if entry.ExpiresAt.Before(now) {
			delete(b.entries, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *MemoryBackend) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			_, _ = b.DeleteExpiredDecisions(context.Background(), b.now())
		}
	}
}

// Close stops the cleanup goroutine.
func (b *MemoryBackend) Close() error {
	b.once.Do(func() { close(b.stopCh) })
	return nil
}
