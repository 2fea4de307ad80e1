package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/ingredient-moderator/internal/common"
)

// LinkAction is the reasoning service's verdict for one input.
type LinkAction string

// Link actions understood by the parser. Anything else is treated as skip.
const (
	LinkActionLink   LinkAction = "link"
	LinkActionCreate LinkAction = "create"
	LinkActionSkip   LinkAction = "skip"
)

// Default confidences applied when the service omits one.
const (
	DefaultLinkConfidence       = 0.8
	DefaultSuggestionConfidence = 0.7
	DefaultCreateConfidence     = 0.8
	DefaultSkipConfidence       = 0.5
)

// LinkDecision is one parsed element of a link response.
type LinkDecision struct {
	Action         LinkAction `json:"action"`
	MatchedProduct string     `json:"matchedProduct,omitempty"`
	Category       string     `json:"category,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	Index          int        `json:"index"`
}

// ConfidenceOr returns the stated confidence, or fallback when none was given.
func (d *LinkDecision) ConfidenceOr(fallback float64) float64 {
	if d.Confidence <= 0 {
		return fallback
	}
	return d.Confidence
}

// StripCodeFences removes a leading ```json or ``` fence and a trailing ```.
func StripCodeFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// parseLinkResponse maps a response onto count 1-based slots. Slots the
// service skipped, or whose element could not be decoded, stay nil. The
// first element for an index wins.
func parseLinkResponse(content string, count int) ([]*LinkDecision, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(StripCodeFences(content)), &elements); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON array: %w", common.ErrAdapterResponse, err)
	}

	decisions := make([]*LinkDecision, count)
	for _, raw := range elements {
		var d LinkDecision
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		if d.Index < 1 || d.Index > count || decisions[d.Index-1] != nil {
			continue
		}
		d.Action = normalizeAction(d)
		decisions[d.Index-1] = &d
	}
	return decisions, nil
}

// normalizeAction folds unknown actions, and links without a product name,
// into skip.
func normalizeAction(d LinkDecision) LinkAction {
	switch LinkAction(strings.ToLower(strings.TrimSpace(string(d.Action)))) {
	case LinkActionLink:
		if strings.TrimSpace(d.MatchedProduct) == "" {
			return LinkActionSkip
		}
		return LinkActionLink
	case LinkActionCreate:
		return LinkActionCreate
	default:
		return LinkActionSkip
	}
}
