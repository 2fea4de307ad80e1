package productcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ingredient-moderator/internal/model"
)

type fakeReader struct {
	err      error
	products []model.Product
	calls    int
	mu       sync.Mutex
}

func (f *fakeReader) ListProducts(_ context.Context) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.Product(nil), f.products...), nil
}

func (f *fakeReader) set(products []model.Product, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = products
	f.err = err
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestCache(products ...model.Product) (*Cache, *fakeReader, *clock) {
	reader := &fakeReader{products: products}
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(reader, WithClock(clk.Now), WithTTL(5*time.Minute)), reader, clk
}

func TestRefreshHonoursTTL(t *testing.T) {
	cache, reader, clk := newTestCache(model.Product{ID: "1", CanonicalName: "Молоко"})
	ctx := context.Background()

	require.NoError(t, cache.Refresh(ctx, false))
	require.NoError(t, cache.Refresh(ctx, false))
	assert.Equal(t, 1, reader.calls)

	clk.now = clk.now.Add(4 * time.Minute)
	require.NoError(t, cache.Refresh(ctx, false))
	assert.Equal(t, 1, reader.calls)

	clk.now = clk.now.Add(2 * time.Minute)
	require.NoError(t, cache.Refresh(ctx, false))
	assert.Equal(t, 2, reader.calls)

	require.NoError(t, cache.Refresh(ctx, true))
	assert.Equal(t, 3, reader.calls)
}

func TestRefreshReplacesIndex(t *testing.T) {
	cache, reader, _ := newTestCache(model.Product{ID: "1", CanonicalName: "Молоко", Synonyms: []string{"молоко коровье"}})
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx, false))

	p, ok := cache.ByExactName("Молоко коровье")
	require.True(t, ok)
	assert.Equal(t, "1", p.ID)

	reader.set([]model.Product{{ID: "2", CanonicalName: "Сыр"}}, nil)
	require.NoError(t, cache.Refresh(ctx, true))

	_, ok = cache.ByExactName("молоко коровье")
	assert.False(t, ok, "stale synonym must not survive a reload")
	_, ok = cache.ByExactName("СЫР")
	assert.True(t, ok)
}

func TestRefreshFailureKeepsPreviousCache(t *testing.T) {
	cache, reader, _ := newTestCache(model.Product{ID: "1", CanonicalName: "Молоко"})
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx, false))

	boom := errors.New("store down")
	reader.set(nil, boom)
	err := cache.Refresh(ctx, true)
	require.ErrorIs(t, err, boom)

	_, ok := cache.ByExactName("молоко")
	assert.True(t, ok)
	assert.Len(t, cache.All(), 1)
}

func TestEmptyLoadReplacesCache(t *testing.T) {
	cache, reader, _ := newTestCache(model.Product{ID: "1", CanonicalName: "Молоко"})
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx, false))

	reader.set(nil, nil)
	require.NoError(t, cache.Refresh(ctx, true))
	assert.Empty(t, cache.All())

	// An empty cache reloads on every refresh.
	require.NoError(t, cache.Refresh(ctx, false))
	assert.Equal(t, 3, reader.calls)
}

func TestInvalidate(t *testing.T) {
	cache, reader, _ := newTestCache(
		model.Product{ID: "1", CanonicalName: "Молоко"},
		model.Product{ID: "2", CanonicalName: "Сыр"},
	)
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx, false))

	cache.Invalidate("1")
	_, ok := cache.Get("1")
	assert.False(t, ok)
	_, ok = cache.ByExactName("молоко")
	assert.False(t, ok)
	assert.True(t, cache.Status().Stale)

	require.NoError(t, cache.Refresh(ctx, false))
	assert.Equal(t, 2, reader.calls)
	_, ok = cache.Get("1")
	assert.True(t, ok)
}

func TestRecordSynonym(t *testing.T) {
	cache, reader, _ := newTestCache(model.Product{ID: "1", CanonicalName: "Сыр Гауда"})
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx, false))
	before := cache.All()

	cache.RecordSynonym("1", "гауда")
	cache.RecordSynonym("missing", "x")

	p, ok := cache.ByExactName("Гауда")
	require.True(t, ok)
	assert.Equal(t, []string{"гауда"}, p.Synonyms)
	assert.Empty(t, before[0].Synonyms, "earlier snapshots are not mutated")
	assert.Equal(t, 1, reader.calls)
	assert.False(t, cache.Status().Stale)
}

func TestFindByPrefix(t *testing.T) {
	cache, _, _ := newTestCache(
		model.Product{ID: "1", CanonicalName: "Сыр Гауда", Synonyms: []string{"гауда"}},
		model.Product{ID: "2", CanonicalName: "Сыр Чеддер"},
		model.Product{ID: "3", CanonicalName: "Молоко"},
	)
	require.NoError(t, cache.Refresh(context.Background(), false))

	got := cache.FindByPrefix("сыр", 0)
	require.Len(t, got, 2)
	assert.Equal(t, "Сыр Гауда", got[0].CanonicalName)
	assert.Equal(t, "Сыр Чеддер", got[1].CanonicalName)

	assert.Len(t, cache.FindByPrefix("ГАУ", 10), 1)
	assert.Len(t, cache.FindByPrefix("сыр", 1), 1)
	assert.Empty(t, cache.FindByPrefix("  ", 10))
}

func TestStatus(t *testing.T) {
	cache, _, clk := newTestCache(
		model.Product{ID: "1", CanonicalName: "Молоко", Synonyms: []string{"молоко коровье", "МОЛОКО"}},
		model.Product{ID: "2", CanonicalName: " "},
	)
	assert.True(t, cache.Status().Stale)

	require.NoError(t, cache.Refresh(context.Background(), false))
	clk.now = clk.now.Add(time.Minute)

	st := cache.Status()
	assert.Equal(t, 1, st.ProductCount)
	assert.Equal(t, 2, st.IndexedNames)
	assert.Equal(t, time.Minute, st.Age)
	assert.False(t, st.Stale)
	assert.Len(t, cache.All(), 1)
}

func TestConcurrentReadsDuringRefresh(t *testing.T) {
	cache, _, _ := newTestCache(model.Product{ID: "1", CanonicalName: "Молоко"})
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx, false))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = cache.Refresh(ctx, true)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, ok := cache.ByExactName("молоко")
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()
}
