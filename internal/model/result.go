package model

// Action is the outcome class of a moderation decision.
type Action string

// Moderation actions.
const (
	ActionAutoLinked Action = "auto_linked"
	ActionCreated    Action = "created"
	ActionSuggested  Action = "suggested"
	ActionFilled     Action = "filled"
	ActionSkipped    Action = "skipped"
	ActionError      Action = "error"
)

// ModerationResult is what callers receive for each processed ingredient name.
type ModerationResult struct {
	Confidence  *float64 `json:"confidence,omitempty"`
	Action      Action   `json:"action"`
	ProductID   string   `json:"productId,omitempty"`
	ProductName string   `json:"productName,omitempty"`
	// Details is free-form: a message for errors, a reason or a small map otherwise.
	Details     any      `json:"details,omitempty"`
	TokensUsed  int      `json:"tokensUsed,omitempty"`
	Success     bool     `json:"success"`
	AIUsed      bool     `json:"aiUsed"`
}

// Float returns a pointer to v, for optional confidence fields.
func Float(v float64) *float64 {
	return &v
}

// ErrorResult builds a failed result carrying details for the operator.
func ErrorResult(details string, aiUsed bool) ModerationResult {
	return ModerationResult{
		Success: false,
		Action:  ActionError,
		AIUsed:  aiUsed,
		Details: details,
	}
}
