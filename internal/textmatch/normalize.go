// Package textmatch provides the string normalization and similarity
// primitives used to compare ingredient names with catalog products.
package textmatch

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// foldYo maps the Cyrillic "ё" onto "е", which catalog data uses interchangeably.
func foldYo(r rune) rune {
	if r == 'ё' {
		return 'е'
	}
	return r
}

// Normalize lower-cases s, folds ё to е, collapses whitespace runs into a
// single space and trims the result. Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// Casers are stateful, so a fresh chain is built per call.
	t := transform.Chain(cases.Lower(language.Und), runes.Map(foldYo))
	lowered, _, err := transform.String(t, s)
	if err != nil {
		lowered = strings.Map(foldYo, strings.ToLower(s))
	}

	return strings.Join(strings.Fields(lowered), " ")
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
