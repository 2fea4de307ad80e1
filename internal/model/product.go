// Package model defines the core domain types for ingredient moderation.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Product is a catalog entry that free-text ingredient names are matched against.
type Product struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Calories      *float64
	Protein       *float64
	Fat           *float64
	Carbohydrates *float64
	ID            string
	CanonicalName string
	Category      string
	Synonyms      []string
}

// Validate ensures the product carries the fields the matcher relies on.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.CanonicalName) == "" {
		return fmt.Errorf("canonical name is required")
	}
	for i, s := range p.Synonyms {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("synonym at index %d is empty", i)
		}
	}
	return nil
}

// CategoryOrDefault returns the category, or "other" when none is set.
func (p *Product) CategoryOrDefault() string {
	if p.Category == "" {
		return "other"
	}
	return p.Category
}

// Clone returns a copy whose synonym slice can be mutated independently.
func (p Product) Clone() Product {
	if p.Synonyms != nil {
		p.Synonyms = append([]string(nil), p.Synonyms...)
	}
	return p
}
