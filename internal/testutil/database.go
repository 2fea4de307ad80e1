// Package testutil sets up migrated test databases seeded with catalog products.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/storage"
	"github.com/Veraticus/ingredient-moderator/internal/testutil/catalog"
)

// TestDB is a migrated SQLite database private to one test.
type TestDB struct {
	Storage  *storage.Storage
	t        *testing.T
	Products catalog.Products
}

// SetupTestDB creates a database in the test's temp dir and inserts
// products. It is closed when the test ends.
func SetupTestDB(t *testing.T, products ...model.Product) *TestDB {
	t.Helper()

	db := openTestDB(t)
	ctx := context.Background()
	for i := range products {
		if err := db.Storage.CreateProduct(ctx, &products[i]); err != nil {
			t.Fatalf("failed to seed product %q: %v", products[i].CanonicalName, err)
		}
	}
	db.Products = products
	return db
}

// SetupTestDBWithBuilder creates a database seeded through a catalog builder.
//
// Example:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b catalog.Builder) catalog.Builder {
//		return b.WithFixture(catalog.FixtureVegetables)
//	})
func SetupTestDBWithBuilder(t *testing.T, configure func(catalog.Builder) catalog.Builder) *TestDB {
	t.Helper()

	builder := catalog.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}

	db := openTestDB(t)
	products, err := builder.Build(context.Background(), db.Storage)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	db.Products = products
	return db
}

// MustGetProduct returns the seeded product with name or fails the test.
func (db *TestDB) MustGetProduct(name catalog.ProductName) model.Product {
	db.t.Helper()
	return db.Products.MustFind(db.t, name)
}

func openTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "moderator.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return &TestDB{Storage: store, t: t}
}
