package model

// MatchType names the rule that produced a match.
type MatchType string

// Match rule identifiers.
const (
	MatchExact       MatchType = "exact"
	MatchNormalized  MatchType = "normalized"
	MatchContains    MatchType = "contains"
	MatchLevenshtein MatchType = "levenshtein"
	MatchStem        MatchType = "stem"
	MatchSynonym     MatchType = "synonym"
)

// MatchResult is the outcome of scoring one name against one product.
type MatchResult struct {
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	MatchType   MatchType `json:"matchType"`
	Confidence  float64   `json:"confidence"`
}

// DuplicateCandidate is a pair of catalog products that look like the same thing.
type DuplicateCandidate struct {
	MatchType  MatchType
	ProductA   Product
	ProductB   Product
	Confidence float64
}
