package textmatch

import "strings"

// minStemLen is the shortest remainder a suffix may leave behind.
const minStemLen = 3

// russianSuffixes lists common noun and adjective endings, longest first.
var russianSuffixes = []string{
	"ами", "ями", "ому", "ему", "ого", "его", "ыми", "ими",
	"ах", "ях", "ой", "ей", "ую", "юю", "ом", "ем", "ым", "им",
	"ов", "ев", "ий", "ый", "ая", "яя", "ое", "ее",
	"а", "я", "о", "е", "у", "ю", "ы", "и", "й",
}

// Stem strips the first matching inflectional ending from the normalized
// word, as long as at least three characters remain.
func Stem(word string) string {
	normalized := Normalize(word)
	n := RuneLen(normalized)

	for _, suffix := range russianSuffixes {
		if strings.HasSuffix(normalized, suffix) && n-RuneLen(suffix) >= minStemLen {
			return strings.TrimSuffix(normalized, suffix)
		}
	}

	return normalized
}
