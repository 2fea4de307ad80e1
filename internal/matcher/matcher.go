package matcher

import (
	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/textmatch"
)

// Matcher applies the match rules with a fixed set of thresholds.
type Matcher struct {
	t Thresholds
}

// New creates a matcher with the default thresholds.
func New() *Matcher {
	return NewWithThresholds(DefaultThresholds())
}

// NewWithThresholds creates a matcher with custom thresholds.
func NewWithThresholds(t Thresholds) *Matcher {
	return &Matcher{t: t}
}

// Thresholds returns the thresholds in use.
func (m *Matcher) Thresholds() Thresholds {
	return m.t
}

// Score evaluates the match rules in order and returns the first that fires,
// or nil when the name does not resemble the product.
func (m *Matcher) Score(name string, product *model.Product) *model.MatchResult {
	normName := textmatch.Normalize(name)
	normCanonical := textmatch.Normalize(product.CanonicalName)

	result := func(confidence float64, mt model.MatchType) *model.MatchResult {
		return &model.MatchResult{
			ProductID:   product.ID,
			ProductName: product.CanonicalName,
			Confidence:  confidence,
			MatchType:   mt,
		}
	}

	if normName == normCanonical {
		return result(1.0, model.MatchExact)
	}

	for _, syn := range product.Synonyms {
		if textmatch.Normalize(syn) == normName {
			return result(m.t.Synonym, model.MatchSynonym)
		}
	}

	if textmatch.ContainsMatch(normName, normCanonical) {
		nameLen := textmatch.RuneLen(normName)
		canonLen := textmatch.RuneLen(normCanonical)
		shorter, longer := min(nameLen, canonLen), max(nameLen, canonLen)
		ratio := 0.0
		if longer > 0 {
			ratio = float64(shorter) / float64(longer)
		}
		return result(m.t.ContainsBase+m.t.ContainsSpan*ratio, model.MatchContains)
	}

	stemName := textmatch.Stem(normName)
	if stemName == textmatch.Stem(normCanonical) && textmatch.RuneLen(stemName) >= m.t.MinStemLen {
		return result(m.t.Stem, model.MatchStem)
	}

	if sim := textmatch.Similarity(normName, normCanonical); sim >= m.t.Levenshtein {
		return result(sim, model.MatchLevenshtein)
	}

	for _, syn := range product.Synonyms {
		if sim := textmatch.Similarity(normName, syn); sim >= m.t.FuzzySynonym {
			return result(sim*m.t.FuzzySynonymFactor, model.MatchSynonym)
		}
	}

	return nil
}

// BestMatch scores name against every product and keeps the highest
// confidence. On equal confidence the product seen first wins.
func (m *Matcher) BestMatch(name string, products []model.Product) *model.MatchResult {
	var best *model.MatchResult
	for i := range products {
		r := m.Score(name, &products[i])
		if r == nil {
			continue
		}
		if best == nil || r.Confidence > best.Confidence {
			best = r
		}
	}
	return best
}
