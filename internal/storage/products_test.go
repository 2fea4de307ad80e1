package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
)

func TestProducts(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	calories := 52.0
	milk := &model.Product{CanonicalName: "Молоко", Synonyms: []string{"молоко коровье"}, Category: "dairy", Calories: &calories}
	cheese := &model.Product{CanonicalName: "Сыр Гауда"}

	require.NoError(t, store.CreateProduct(ctx, milk))
	require.NoError(t, store.CreateProduct(ctx, cheese))
	assert.NotEmpty(t, milk.ID)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)

	got, err := store.GetProduct(ctx, milk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Молоко", got.CanonicalName)
	assert.Equal(t, []string{"молоко коровье"}, got.Synonyms)
	assert.Equal(t, "dairy", got.Category)
	require.NotNil(t, got.Calories)
	assert.InDelta(t, 52.0, *got.Calories, 1e-9)
	assert.Nil(t, got.Protein)

	got, err = store.GetProduct(ctx, cheese.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Synonyms)
	assert.Empty(t, got.Category)

	_, err = store.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.CreateProduct(ctx, &model.Product{CanonicalName: ""})
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestAppendSynonym(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	p := &model.Product{CanonicalName: "Сыр Гауда", Synonyms: []string{"гауда"}}
	require.NoError(t, store.CreateProduct(ctx, p))

	tests := []struct {
		name    string
		synonym string
		want    bool
	}{
		{name: "new synonym", synonym: "Сыр гауда твёрдый", want: true},
		{name: "same as canonical", synonym: "сыр  гауда", want: false},
		{name: "already present", synonym: "ГАУДА", want: false},
		{name: "present after yo folding", synonym: "сыр гауда твердый", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := store.AppendSynonym(ctx, p.ID, tt.synonym)
			require.NoError(t, err)
			assert.Equal(t, tt.want, changed)
		})
	}

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"гауда", "Сыр гауда твёрдый"}, got.Synonyms)

	_, err = store.AppendSynonym(ctx, "missing", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
