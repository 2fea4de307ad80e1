package model

import (
	"encoding/json"
	"time"
)

// DecisionType scopes a decision cache entry.
type DecisionType string

// Decision types sharing the decision cache.
const (
	DecisionLink      DecisionType = "link"
	DecisionCreate    DecisionType = "create"
	DecisionTranslate DecisionType = "translate"
	DecisionFill      DecisionType = "fill"
)

// DecisionEntry is one memoized decision, addressed by a hash of its input.
type DecisionEntry struct {
	CreatedAt    time.Time
	ExpiresAt    time.Time
	InputHash    string
	DecisionType DecisionType
	Result       json.RawMessage
}

// Expired reports whether the entry is no longer servable at now.
func (e *DecisionEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
