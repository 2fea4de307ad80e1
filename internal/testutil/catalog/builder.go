package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// ProductWriter is the part of a store the builder needs.
type ProductWriter interface {
	CreateProduct(ctx context.Context, p *model.Product) error
}

// ProductName is a canonical product name.
type ProductName string

func (n ProductName) String() string {
	return string(n)
}

// Spec describes a product to create.
type Spec struct {
	Name     ProductName
	Category string
	Synonyms []string
}

// Builder accumulates products and creates them in one go.
type Builder interface {
	WithProduct(name ProductName, category string, synonyms ...string) Builder
	WithProducts(specs ...Spec) Builder
	WithFixture(fixture Fixture) Builder
	// Build creates the products in insertion order and returns them with
	// their assigned ids.
	Build(ctx context.Context, store ProductWriter) (Products, error)
}

// Products is a collection of created products.
type Products []model.Product

// Find returns the product with the given canonical name, or nil.
func (p Products) Find(name ProductName) *model.Product {
	for i := range p {
		if p[i].CanonicalName == name.String() {
			return &p[i]
		}
	}
	return nil
}

// MustFind is Find that fails the test when the product is missing.
func (p Products) MustFind(t *testing.T, name ProductName) model.Product {
	t.Helper()
	product := p.Find(name)
	if product == nil {
		t.Fatalf("product %q not found in test data", name)
	}
	return *product
}

// Names returns the canonical names in order.
func (p Products) Names() []string {
	names := make([]string, len(p))
	for i := range p {
		names[i] = p[i].CanonicalName
	}
	return names
}

type productBuilder struct {
	t     *testing.T
	seen  map[ProductName]struct{}
	specs []Spec
}

// NewBuilder creates an empty builder. Adding a name twice keeps the first.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &productBuilder{
		t:    t,
		seen: make(map[ProductName]struct{}),
	}
}

func (b *productBuilder) WithProduct(name ProductName, category string, synonyms ...string) Builder {
	return b.WithProducts(Spec{Name: name, Category: category, Synonyms: synonyms})
}

func (b *productBuilder) WithProducts(specs ...Spec) Builder {
	for _, s := range specs {
		if _, dup := b.seen[s.Name]; dup {
			continue
		}
		b.seen[s.Name] = struct{}{}
		b.specs = append(b.specs, s)
	}
	return b
}

func (b *productBuilder) WithFixture(fixture Fixture) Builder {
	return b.WithProducts(fixture.Products()...)
}

func (b *productBuilder) Build(ctx context.Context, store ProductWriter) (Products, error) {
	b.t.Helper()

	result := make(Products, 0, len(b.specs))
	for _, s := range b.specs {
		p := model.Product{
			CanonicalName: s.Name.String(),
			Category:      s.Category,
			Synonyms:      append([]string(nil), s.Synonyms...),
		}
		if err := store.CreateProduct(ctx, &p); err != nil {
			return nil, fmt.Errorf("failed to create product %q: %w", s.Name, err)
		}
		result = append(result, p)
	}
	return result, nil
}
