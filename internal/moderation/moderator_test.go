package moderation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/decisioncache"
	"github.com/Veraticus/ingredient-moderator/internal/llm"
	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/storage"
	"github.com/Veraticus/ingredient-moderator/internal/testutil"
	"github.com/Veraticus/ingredient-moderator/internal/testutil/catalog"
)

// fakeLinker answers escalations from a callback and records every batch.
type fakeLinker struct {
	answer   func(inputs []string) (llm.BatchOutcome, error)
	calls    [][]string
	delay    time.Duration
	mu       sync.Mutex
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeLinker) LinkBatch(_ context.Context, inputs []string, _ []model.Product) (llm.BatchOutcome, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.peak.Load()
		if n <= seen || f.peak.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, slices.Clone(inputs))
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.answer(inputs)
}

func (f *fakeLinker) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// answerAll gives every input the same decision.
func answerAll(d llm.LinkDecision) func([]string) (llm.BatchOutcome, error) {
	return func(inputs []string) (llm.BatchOutcome, error) {
		out := llm.BatchOutcome{TokensUsed: 100}
		for i := range inputs {
			decision := d
			decision.Index = i + 1
			out.Decisions = append(out.Decisions, &decision)
		}
		return out, nil
	}
}

type testEnv struct {
	store  *storage.Storage
	linker *fakeLinker
	mod    *Moderator
}

func newTestEnv(t *testing.T, linker *fakeLinker, products ...model.Product) *testEnv {
	t.Helper()
	store := testutil.SetupTestDB(t, products...).Storage

	env := &testEnv{store: store, linker: linker}
	var l Linker
	if linker != nil {
		l = linker
	}
	env.mod = New(store, decisioncache.New(store), l,
		WithQueueOptions(WithDelay(10*time.Millisecond)))
	t.Cleanup(func() { _ = env.mod.Close(context.Background()) })
	return env
}

func (e *testEnv) tasks(t *testing.T, taskType model.TaskType) []model.ModerationTask {
	t.Helper()
	tasks, err := e.store.ListTasks(context.Background(), storage.TaskFilter{Type: taskType})
	require.NoError(t, err)
	return tasks
}

func TestProcessOneSynonymExact(t *testing.T) {
	linker := &fakeLinker{answer: answerAll(llm.LinkDecision{Action: llm.LinkActionSkip})}
	env := newTestEnv(t, linker, model.Product{CanonicalName: "Молоко", Synonyms: []string{"молоко коровье"}})

	result := env.mod.ProcessOne(context.Background(), "молоко коровье")

	assert.True(t, result.Success)
	assert.Equal(t, model.ActionAutoLinked, result.Action)
	require.NotNil(t, result.Confidence)
	assert.InDelta(t, 0.98, *result.Confidence, 1e-9)
	assert.Equal(t, "Молоко", result.ProductName)
	assert.False(t, result.AIUsed)
	assert.Empty(t, linker.Calls())

	stats := env.mod.Stats()
	assert.Equal(t, int64(1), stats.TotalProcessed)
	assert.Equal(t, int64(1), stats.AutoLinked)
}

func TestProcessOneExactCanonical(t *testing.T) {
	env := newTestEnv(t, nil, model.Product{CanonicalName: "Соль"})

	result := env.mod.ProcessOne(context.Background(), "  СОЛЬ ")

	assert.Equal(t, model.ActionAutoLinked, result.Action)
	require.NotNil(t, result.Confidence)
	assert.InDelta(t, 1.0, *result.Confidence, 1e-9)
}

func TestProcessOneContainmentSuggests(t *testing.T) {
	ctx := context.Background()
	linker := &fakeLinker{answer: answerAll(llm.LinkDecision{Action: llm.LinkActionSkip})}
	env := newTestEnv(t, linker, model.Product{CanonicalName: "Сыр Гауда"})

	result := env.mod.ProcessOne(ctx, "Гауда")

	assert.Equal(t, model.ActionSuggested, result.Action)
	require.NotNil(t, result.Confidence)
	assert.Greater(t, *result.Confidence, 0.7)
	assert.Less(t, *result.Confidence, 0.9)
	assert.Empty(t, linker.Calls())

	tasks := env.tasks(t, model.TaskLinkSuggestion)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Гауда", tasks[0].SuggestedAction["ingredientName"])
	assert.Equal(t, "Сыр Гауда", tasks[0].SuggestedAction["suggestedProductName"])

	products, err := env.store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Empty(t, products[0].Synonyms)
}

func TestProcessOneFuzzyAutoLinkGrowsSynonyms(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil, model.Product{CanonicalName: "Mozzarella cheese"})

	result := env.mod.ProcessOne(ctx, "mozarella cheese")
	assert.Equal(t, model.ActionAutoLinked, result.Action)
	require.NotNil(t, result.Confidence)
	assert.GreaterOrEqual(t, *result.Confidence, 0.9)
	assert.Less(t, *result.Confidence, 1.0)

	product, err := env.store.GetProduct(ctx, result.ProductID)
	require.NoError(t, err)
	assert.Equal(t, []string{"mozarella cheese"}, product.Synonyms)

	again := env.mod.ProcessOne(ctx, "Mozarella Cheese")
	assert.Equal(t, model.ActionAutoLinked, again.Action)
	require.NotNil(t, again.Confidence)
	assert.InDelta(t, 0.98, *again.Confidence, 1e-9)

	product, err = env.store.GetProduct(ctx, result.ProductID)
	require.NoError(t, err)
	assert.Len(t, product.Synonyms, 1)
}

func TestProcessOneSkipsShortInput(t *testing.T) {
	linker := &fakeLinker{answer: answerAll(llm.LinkDecision{Action: llm.LinkActionSkip})}
	env := newTestEnv(t, linker)

	for _, name := range []string{"", " ", "a", "  Я  "} {
		result := env.mod.ProcessOne(context.Background(), name)
		assert.Equal(t, model.ActionSkipped, result.Action, name)
		assert.False(t, result.Success)
		assert.False(t, result.AIUsed)
	}

	assert.Empty(t, linker.Calls())
	assert.Equal(t, int64(4), env.mod.Stats().TotalProcessed)
}

func TestProcessOneEscalatesThenHitsCache(t *testing.T) {
	ctx := context.Background()
	linker := &fakeLinker{answer: answerAll(llm.LinkDecision{
		Action:     llm.LinkActionCreate,
		Category:   "fruits",
		Confidence: 0.9,
	})}
	env := newTestEnv(t, linker)

	first := env.mod.ProcessOne(ctx, "Авокадо")
	assert.True(t, first.Success)
	assert.Equal(t, model.ActionSuggested, first.Action)
	assert.True(t, first.AIUsed)
	require.NotNil(t, first.Confidence)
	assert.InDelta(t, 0.9, *first.Confidence, 1e-9)

	tasks := env.tasks(t, model.TaskNewProduct)
	require.Len(t, tasks, 1)
	assert.Equal(t, "fruits", tasks[0].SuggestedAction["suggestedCategory"])
	assert.Equal(t, "Авокадо", tasks[0].SuggestedAction["ingredientName"])

	second := env.mod.ProcessOne(ctx, "авокадо")
	assert.Equal(t, model.ActionSuggested, second.Action)
	assert.True(t, second.AIUsed)

	assert.Len(t, linker.Calls(), 1)
	stats := env.mod.Stats()
	assert.Equal(t, int64(1), stats.AICalls)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(100), stats.TokensUsed)
	assert.Equal(t, int64(2), stats.TotalProcessed)
}

func TestProcessManyBatchDeterminism(t *testing.T) {
	linker := &fakeLinker{answer: answerAll(llm.LinkDecision{Action: llm.LinkActionSkip, Reason: "не еда"})}
	env := newTestEnv(t, linker, model.Product{CanonicalName: "Tomato"})

	results := env.mod.ProcessMany(context.Background(), []string{"Tomato", "Tomatoe", "xyz123"})
	require.Len(t, results, 3)

	assert.Equal(t, model.ActionAutoLinked, results[0].Action)
	require.NotNil(t, results[0].Confidence)
	assert.InDelta(t, 1.0, *results[0].Confidence, 1e-9)
	assert.False(t, results[0].AIUsed)

	assert.Equal(t, model.ActionSuggested, results[1].Action)
	assert.False(t, results[1].AIUsed)

	assert.Equal(t, model.ActionSkipped, results[2].Action)
	assert.True(t, results[2].AIUsed)
	assert.Equal(t, map[string]any{"reason": "не еда"}, results[2].Details)

	calls := linker.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"xyz123"}, calls[0])
}

func TestProcessManyEscalatesInOneCall(t *testing.T) {
	linker := &fakeLinker{answer: answerAll(llm.LinkDecision{Action: llm.LinkActionSkip})}
	env := newTestEnv(t, linker)

	names := make([]string, 25)
	for i := range names {
		names[i] = fmt.Sprintf("item%02d", i)
	}
	results := env.mod.ProcessMany(context.Background(), names)

	require.Len(t, results, len(names))
	calls := linker.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, names, calls[0])
	assert.Equal(t, int64(1), env.mod.Stats().AICalls)
	for _, r := range results {
		assert.Equal(t, model.ActionSkipped, r.Action)
	}
}

func TestProcessManyDoesNotOverlapQueueDrain(t *testing.T) {
	linker := &fakeLinker{
		answer: answerAll(llm.LinkDecision{Action: llm.LinkActionSkip}),
		delay:  30 * time.Millisecond,
	}
	env := newTestEnv(t, linker)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		env.mod.ProcessOne(ctx, "одиночка")
	}()
	require.Eventually(t, func() bool { return linker.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	results := env.mod.ProcessMany(ctx, []string{"первый", "второй"})
	wg.Wait()

	require.Len(t, results, 2)
	assert.Len(t, linker.Calls(), 2)
	assert.Equal(t, int32(1), linker.peak.Load())
}

func TestProcessManyGivesUpWhenContextEnds(t *testing.T) {
	block := make(chan struct{})
	linker := &fakeLinker{answer: func(inputs []string) (llm.BatchOutcome, error) {
		<-block
		return answerAll(llm.LinkDecision{Action: llm.LinkActionSkip})(inputs)
	}}
	env := newTestEnv(t, linker)
	t.Cleanup(func() { close(block) })

	go env.mod.ProcessOne(context.Background(), "одиночка")
	require.Eventually(t, func() bool { return linker.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	results := env.mod.ProcessMany(ctx, []string{"первый"})

	require.Len(t, results, 1)
	assert.Equal(t, model.ActionError, results[0].Action)
	assert.Len(t, linker.Calls(), 1)
}

func TestProcessBatchLimit(t *testing.T) {
	env := newTestEnv(t, nil)

	names := make([]string, 51)
	for i := range names {
		names[i] = "item"
	}

	_, err := env.mod.ProcessBatch(context.Background(), names)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTooManyInputs)

	results, err := env.mod.ProcessBatch(context.Background(), names[:2])
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestEscalationOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("link to known product appends synonym", func(t *testing.T) {
		linker := &fakeLinker{answer: answerAll(llm.LinkDecision{Action: llm.LinkActionLink, MatchedProduct: "Картофель"})}
		env := newTestEnv(t, linker, model.Product{CanonicalName: "Картофель"})

		result := env.mod.ProcessOne(ctx, "бульба")
		assert.Equal(t, model.ActionAutoLinked, result.Action)
		assert.True(t, result.AIUsed)
		require.NotNil(t, result.Confidence)
		assert.InDelta(t, llm.DefaultLinkConfidence, *result.Confidence, 1e-9)

		product, err := env.store.GetProduct(ctx, result.ProductID)
		require.NoError(t, err)
		assert.Equal(t, []string{"бульба"}, product.Synonyms)
	})

	t.Run("link to unknown product suggests", func(t *testing.T) {
		linker := &fakeLinker{answer: answerAll(llm.LinkDecision{
			Action:         llm.LinkActionLink,
			MatchedProduct: "Батат",
			Reason:         "сладкий картофель",
		})}
		env := newTestEnv(t, linker)

		result := env.mod.ProcessOne(ctx, "ямс")
		assert.Equal(t, model.ActionSuggested, result.Action)
		assert.Equal(t, "Батат", result.ProductName)
		assert.Empty(t, result.ProductID)
		require.NotNil(t, result.Confidence)
		assert.InDelta(t, llm.DefaultSuggestionConfidence, *result.Confidence, 1e-9)

		tasks := env.tasks(t, model.TaskLinkSuggestion)
		require.Len(t, tasks, 1)
		assert.Equal(t, "сладкий картофель", tasks[0].SuggestedAction["aiReason"])
	})

	t.Run("missing index errors only that item", func(t *testing.T) {
		linker := &fakeLinker{answer: func(inputs []string) (llm.BatchOutcome, error) {
			return llm.BatchOutcome{Decisions: []*llm.LinkDecision{
				nil,
				{Index: 2, Action: llm.LinkActionSkip},
			}}, nil
		}}
		env := newTestEnv(t, linker)

		results := env.mod.ProcessMany(ctx, []string{"qwe", "rty"})
		assert.Equal(t, model.ActionError, results[0].Action)
		assert.Equal(t, noResultDetails, results[0].Details)
		assert.True(t, results[0].AIUsed)
		assert.Equal(t, model.ActionSkipped, results[1].Action)
		assert.Equal(t, int64(1), env.mod.Stats().Errors)
	})

	t.Run("adapter failure errors every item and is not cached", func(t *testing.T) {
		linker := &fakeLinker{answer: func([]string) (llm.BatchOutcome, error) {
			return llm.BatchOutcome{}, errors.New("OpenAI API error: 500")
		}}
		env := newTestEnv(t, linker)

		results := env.mod.ProcessMany(ctx, []string{"qwe", "rty"})
		for _, r := range results {
			assert.False(t, r.Success)
			assert.Equal(t, model.ActionError, r.Action)
			assert.True(t, r.AIUsed)
			assert.Contains(t, r.Details, "OpenAI API error: 500")
		}
		assert.Equal(t, int64(2), env.mod.Stats().Errors)

		env.mod.ProcessMany(ctx, []string{"qwe"})
		assert.Len(t, linker.Calls(), 2)
	})

	t.Run("no linker configured", func(t *testing.T) {
		env := newTestEnv(t, nil)

		result := env.mod.ProcessOne(ctx, "неизвестное")
		assert.Equal(t, model.ActionError, result.Action)
		assert.Equal(t, notConfiguredDetails, result.Details)
	})
}

func TestStatsReset(t *testing.T) {
	env := newTestEnv(t, nil, model.Product{CanonicalName: "Соль"})

	env.mod.ProcessOne(context.Background(), "соль")
	assert.Equal(t, int64(1), env.mod.Stats().AutoLinked)
	assert.InDelta(t, 100.0, env.mod.Stats().Efficiency(), 1e-9)

	env.mod.ResetStats()
	assert.Equal(t, model.Stats{}, env.mod.Stats())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Suggest = 0.95
	assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.TaskDedup = "deep"
	assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MinInputLength = -1
	assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)
}

func TestProcessManyAgainstFixtureCatalog(t *testing.T) {
	db := testutil.SetupTestDBWithBuilder(t, func(b catalog.Builder) catalog.Builder {
		return b.WithFixture(catalog.FixtureDairy).WithFixture(catalog.FixturePantry)
	})
	mod := New(db.Storage, decisioncache.New(db.Storage), nil)
	t.Cleanup(func() { _ = mod.Close(context.Background()) })

	results := mod.ProcessMany(context.Background(), []string{"гауда", "Кефир", "мука", "Трюфель"})
	require.Len(t, results, 4)

	gouda := db.MustGetProduct(catalog.ProductGouda)
	assert.Equal(t, gouda.ID, results[0].ProductID)
	assert.InDelta(t, 0.98, *results[0].Confidence, 1e-9)

	assert.Equal(t, db.MustGetProduct(catalog.ProductKefir).ID, results[1].ProductID)
	assert.InDelta(t, 1.0, *results[1].Confidence, 1e-9)

	assert.Equal(t, db.MustGetProduct(catalog.ProductFlour).ID, results[2].ProductID)

	assert.Equal(t, model.ActionError, results[3].Action)
	assert.Equal(t, notConfiguredDetails, results[3].Details)
	assert.Equal(t, int64(3), mod.Stats().AutoLinked)
}
