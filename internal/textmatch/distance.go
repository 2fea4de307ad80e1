package textmatch

import "strings"

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Similarity scores a and b in [0,1] as one minus the normalized edit
// distance of their normalized forms. Two empty inputs are identical.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na == nb {
		return 1
	}

	maxLen := max(RuneLen(na), RuneLen(nb))
	if maxLen == 0 {
		return 1
	}

	score := 1 - float64(Levenshtein(na, nb))/float64(maxLen)
	return min(max(score, 0), 1)
}

// ContainsMatch reports whether either normalized form is a substring of the other.
func ContainsMatch(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
