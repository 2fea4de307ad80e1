package catalog

// Fixture is a named, reusable set of products.
type Fixture interface {
	Name() string
	Products() []Spec
}

type fixture struct {
	name     string
	products []Spec
}

func (f *fixture) Name() string     { return f.name }
func (f *fixture) Products() []Spec { return f.products }

// Product names used by the fixtures.
const (
	ProductMilk       ProductName = "Молоко"
	ProductKefir      ProductName = "Кефир"
	ProductGouda      ProductName = "Сыр Гауда"
	ProductMozzarella ProductName = "Сыр Моцарелла"
	ProductTomato     ProductName = "Помидор"
	ProductPotato     ProductName = "Картофель"
	ProductOnion      ProductName = "Лук репчатый"
	ProductSalt       ProductName = "Соль"
	ProductSugar      ProductName = "Сахар"
	ProductFlour      ProductName = "Мука пшеничная"
)

var (
	// FixtureDairy is milk products with the synonyms recipes commonly use.
	FixtureDairy = &fixture{
		name: "Dairy",
		products: []Spec{
			{Name: ProductMilk, Category: "dairy", Synonyms: []string{"молоко коровье"}},
			{Name: ProductKefir, Category: "dairy"},
			{Name: ProductGouda, Category: "dairy", Synonyms: []string{"гауда"}},
			{Name: ProductMozzarella, Category: "dairy", Synonyms: []string{"моцарелла"}},
		},
	}

	// FixtureVegetables is a few vegetables without synonyms.
	FixtureVegetables = &fixture{
		name: "Vegetables",
		products: []Spec{
			{Name: ProductTomato, Category: "vegetables"},
			{Name: ProductPotato, Category: "vegetables"},
			{Name: ProductOnion, Category: "vegetables"},
		},
	}

	// FixturePantry is dry goods, one of them uncategorized.
	FixturePantry = &fixture{
		name: "Pantry",
		products: []Spec{
			{Name: ProductSalt, Category: "spices"},
			{Name: ProductSugar},
			{Name: ProductFlour, Category: "bakery", Synonyms: []string{"мука"}},
		},
	}
)

// AllFixtures lists every predefined fixture.
func AllFixtures() []Fixture {
	return []Fixture{FixtureDairy, FixtureVegetables, FixturePantry}
}
