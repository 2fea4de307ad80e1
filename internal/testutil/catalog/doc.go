// Package catalog seeds product catalogs for tests.
//
// Products are described by name, category and synonyms and created through
// any store that can insert them:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b catalog.Builder) catalog.Builder {
//		return b.WithFixture(catalog.FixtureDairy).
//			WithProduct("Соль", "spices")
//	})
//
//	milk := db.Products.MustFind(t, catalog.ProductMilk)
//
// Fixtures are fixed sets of products shared by related tests. Building
// the same builder twice creates the products twice.
package catalog
