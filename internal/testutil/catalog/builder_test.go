package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ingredient-moderator/internal/testutil"
	"github.com/Veraticus/ingredient-moderator/internal/testutil/catalog"
)

func TestBuilder_WithProduct(t *testing.T) {
	db := testutil.SetupTestDBWithBuilder(t, func(b catalog.Builder) catalog.Builder {
		return b.WithProduct(catalog.ProductMilk, "dairy", "молоко коровье")
	})

	milk := db.MustGetProduct(catalog.ProductMilk)
	require.NotEmpty(t, milk.ID)

	stored, err := db.Storage.GetProduct(context.Background(), milk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Молоко", stored.CanonicalName)
	assert.Equal(t, "dairy", stored.Category)
	assert.Equal(t, []string{"молоко коровье"}, stored.Synonyms)
}

func TestBuilder_FixturesKeepOrderAndSkipDuplicates(t *testing.T) {
	db := testutil.SetupTestDBWithBuilder(t, func(b catalog.Builder) catalog.Builder {
		return b.WithFixture(catalog.FixtureVegetables).
			WithProduct(catalog.ProductTomato, "fruit").
			WithFixture(catalog.FixturePantry)
	})

	assert.Equal(t, []string{
		"Помидор", "Картофель", "Лук репчатый",
		"Соль", "Сахар", "Мука пшеничная",
	}, db.Products.Names())
	assert.Equal(t, "vegetables", db.MustGetProduct(catalog.ProductTomato).Category)

	all, err := db.Storage.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestAllFixturesBuild(t *testing.T) {
	for _, f := range catalog.AllFixtures() {
		t.Run(f.Name(), func(t *testing.T) {
			db := testutil.SetupTestDBWithBuilder(t, func(b catalog.Builder) catalog.Builder {
				return b.WithFixture(f)
			})
			assert.Len(t, db.Products, len(f.Products()))
		})
	}
}

func TestProductsFind(t *testing.T) {
	products := catalog.Products{{CanonicalName: "Соль"}}
	assert.NotNil(t, products.Find(catalog.ProductSalt))
	assert.Nil(t, products.Find(catalog.ProductSugar))
}
