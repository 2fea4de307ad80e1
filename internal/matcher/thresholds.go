// Package matcher scores ingredient names against catalog products and finds
// likely duplicates inside the catalog.
package matcher

import "fmt"

// Thresholds holds the confidence constants used by the match rules.
// The values are empirical; DefaultThresholds mirrors production tuning.
type Thresholds struct {
	// Score rules.
	Synonym            float64 `mapstructure:"synonym"`
	ContainsBase       float64 `mapstructure:"contains_base"`
	ContainsSpan       float64 `mapstructure:"contains_span"`
	Stem               float64 `mapstructure:"stem"`
	MinStemLen         int     `mapstructure:"min_stem_len"`
	Levenshtein        float64 `mapstructure:"levenshtein"`
	FuzzySynonym       float64 `mapstructure:"fuzzy_synonym"`
	FuzzySynonymFactor float64 `mapstructure:"fuzzy_synonym_factor"`

	// Duplicate rules.
	DupSynonym       float64 `mapstructure:"dup_synonym"`
	DupMaxDistance   int     `mapstructure:"dup_max_distance"`
	DupMinLongLen    int     `mapstructure:"dup_min_long_len"`
	DupContainsRatio float64 `mapstructure:"dup_contains_ratio"`
	DupMinLen        int     `mapstructure:"dup_min_len"`
	DupMinStemLen    int     `mapstructure:"dup_min_stem_len"`
	DupStem          float64 `mapstructure:"dup_stem"`
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Synonym:            0.98,
		ContainsBase:       0.7,
		ContainsSpan:       0.2,
		Stem:               0.85,
		MinStemLen:         3,
		Levenshtein:        0.7,
		FuzzySynonym:       0.8,
		FuzzySynonymFactor: 0.95,

		DupSynonym:       0.97,
		DupMaxDistance:   2,
		DupMinLongLen:    4,
		DupContainsRatio: 0.7,
		DupMinLen:        4,
		DupMinStemLen:    4,
		DupStem:          0.85,
	}
}

// Validate reports the first confidence outside [0, 1] or negative length.
func (t Thresholds) Validate() error {
	confidences := []struct {
		name  string
		value float64
	}{
		{"synonym", t.Synonym},
		{"contains_base", t.ContainsBase},
		{"contains_span", t.ContainsSpan},
		{"stem", t.Stem},
		{"levenshtein", t.Levenshtein},
		{"fuzzy_synonym", t.FuzzySynonym},
		{"fuzzy_synonym_factor", t.FuzzySynonymFactor},
		{"dup_synonym", t.DupSynonym},
		{"dup_contains_ratio", t.DupContainsRatio},
		{"dup_stem", t.DupStem},
	}
	for _, c := range confidences {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", c.name, c.value)
		}
	}

	lengths := []struct {
		name  string
		value int
	}{
		{"min_stem_len", t.MinStemLen},
		{"dup_max_distance", t.DupMaxDistance},
		{"dup_min_long_len", t.DupMinLongLen},
		{"dup_min_len", t.DupMinLen},
		{"dup_min_stem_len", t.DupMinStemLen},
	}
	for _, l := range lengths {
		if l.value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", l.name, l.value)
		}
	}
	return nil
}
