package moderation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/storage"
)

func newTaskStore(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestTaskSinkShallowInsertsAnyway(t *testing.T) {
	ctx := context.Background()
	store := newTaskStore(t)
	sink := NewTaskSink(store, DedupShallow)

	action := map[string]any{"ingredientName": "Гауда", "confidence": 0.81}
	for range 2 {
		created, err := sink.Create(ctx, model.TaskLinkSuggestion, nil, action, 0.81)
		require.NoError(t, err)
		assert.True(t, created)
	}

	tasks, err := store.FindPendingTasks(ctx, model.TaskLinkSuggestion)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestTaskSinkPayloadDedup(t *testing.T) {
	ctx := context.Background()
	store := newTaskStore(t)
	sink := NewTaskSink(store, DedupPayload)

	action := map[string]any{"ingredientName": "Гауда", "confidence": 0.81}

	created, err := sink.Create(ctx, model.TaskLinkSuggestion, nil, action, 0.81)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = sink.Create(ctx, model.TaskLinkSuggestion, nil, map[string]any{"confidence": 0.81, "ingredientName": "Гауда"}, 0.81)
	require.NoError(t, err)
	assert.False(t, created)

	created, err = sink.Create(ctx, model.TaskLinkSuggestion, nil, map[string]any{"ingredientName": "Эдам"}, 0.75)
	require.NoError(t, err)
	assert.True(t, created)

	// Same payload under another type is not a duplicate.
	created, err = sink.Create(ctx, model.TaskNewProduct, nil, action, 0.81)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestTaskSinkUnknownModeFallsBack(t *testing.T) {
	sink := NewTaskSink(newTaskStore(t), DedupMode("deep"))
	assert.Equal(t, DedupShallow, sink.Mode())
}

type failingTaskStore struct {
	createErr error
	findErr   error
	created   int
}

func (f *failingTaskStore) CreateTask(_ context.Context, _ *model.ModerationTask) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created++
	return nil
}

func (f *failingTaskStore) FindPendingTasks(_ context.Context, _ model.TaskType) ([]model.ModerationTask, error) {
	return nil, f.findErr
}

func TestTaskSinkStoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup failure still inserts", func(t *testing.T) {
		store := &failingTaskStore{findErr: errors.New("db locked")}
		created, err := NewTaskSink(store, DedupPayload).Create(ctx, model.TaskNewProduct, nil, nil, 0.8)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 1, store.created)
	})

	t.Run("insert failure is returned", func(t *testing.T) {
		store := &failingTaskStore{createErr: errors.New("disk full")}
		_, err := NewTaskSink(store, DedupShallow).Create(ctx, model.TaskNewProduct, nil, nil, 0.8)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}
