package matcher

import (
	"slices"

	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/textmatch"
)

type normalizedProduct struct {
	name     string
	stem     string
	synonyms map[string]struct{}
	length   int
}

// DuplicateCandidates compares every unordered pair of products and returns
// the pairs that look like the same item, most confident first. Each pair is
// reported once. The comparison is quadratic in the catalog size.
func (m *Matcher) DuplicateCandidates(products []model.Product) []model.DuplicateCandidate {
	norm := make([]normalizedProduct, len(products))
	for i := range products {
		n := textmatch.Normalize(products[i].CanonicalName)
		syns := make(map[string]struct{}, len(products[i].Synonyms))
		for _, s := range products[i].Synonyms {
			syns[textmatch.Normalize(s)] = struct{}{}
		}
		norm[i] = normalizedProduct{
			name:     n,
			stem:     textmatch.Stem(n),
			synonyms: syns,
			length:   textmatch.RuneLen(n),
		}
	}

	seen := make(map[string]struct{})
	var candidates []model.DuplicateCandidate

	for i := 0; i < len(products); i++ {
		for j := i + 1; j < len(products); j++ {
			key := pairKey(products[i].ID, products[j].ID)
			if _, dup := seen[key]; dup {
				continue
			}

			confidence, mt, ok := m.comparePair(&norm[i], &norm[j])
			if !ok {
				continue
			}

			seen[key] = struct{}{}
			candidates = append(candidates, model.DuplicateCandidate{
				ProductA:   products[i],
				ProductB:   products[j],
				Confidence: confidence,
				MatchType:  mt,
			})
		}
	}

	slices.SortStableFunc(candidates, func(a, b model.DuplicateCandidate) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})

	return candidates
}

func (m *Matcher) comparePair(a, b *normalizedProduct) (float64, model.MatchType, bool) {
	_, aHasB := a.synonyms[b.name]
	_, bHasA := b.synonyms[a.name]
	if aHasB || bHasA {
		return m.t.DupSynonym, model.MatchSynonym, true
	}

	if a.name == b.name {
		return 1.0, model.MatchExact, true
	}

	longer := max(a.length, b.length)
	shorter := min(a.length, b.length)

	if dist := textmatch.Levenshtein(a.name, b.name); dist <= m.t.DupMaxDistance && longer > m.t.DupMinLongLen {
		return 1 - float64(dist)/float64(longer), model.MatchLevenshtein, true
	}

	if textmatch.ContainsMatch(a.name, b.name) && shorter >= m.t.DupMinLen {
		if ratio := float64(shorter) / float64(longer); ratio >= m.t.DupContainsRatio {
			return ratio, model.MatchContains, true
		}
	}

	if a.stem == b.stem && textmatch.RuneLen(a.stem) >= m.t.DupMinStemLen {
		return m.t.DupStem, model.MatchStem, true
	}

	return 0, "", false
}

// pairKey identifies an unordered pair of product ids.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
