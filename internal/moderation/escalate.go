package moderation

import (
	"context"
	"log/slog"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/llm"
	"github.com/Veraticus/ingredient-moderator/internal/model"
)

const (
	noResultDetails      = "No AI result for this input"
	notConfiguredDetails = "reasoning service is not configured"
)

// escalate sends inputs to the reasoning service in one call and applies
// each decision. It is the queue's BatchFunc; ProcessMany reaches it through
// RunExclusive.
func (m *Moderator) escalate(ctx context.Context, inputs []string) []model.ModerationResult {
	if len(inputs) == 0 {
		return nil
	}

	if m.linker == nil {
		m.stats.errors.Add(int64(len(inputs)))
		return errorResults(len(inputs), notConfiguredDetails, true)
	}

	m.stats.aiCalls.Add(1)
	outcome, err := m.linker.LinkBatch(ctx, inputs, m.catalog.All())
	m.stats.tokens.Add(int64(outcome.TokensUsed))
	if err != nil {
		m.stats.errors.Add(int64(len(inputs)))
		common.LogError(err, "Escalation failed", common.Fields{"inputs": len(inputs)})
		return errorResults(len(inputs), err.Error(), true)
	}

	results := make([]model.ModerationResult, len(inputs))
	for i, input := range inputs {
		var decision *llm.LinkDecision
		if i < len(outcome.Decisions) {
			decision = outcome.Decisions[i]
		}

		results[i] = m.applyDecision(ctx, input, decision)
		if results[i].Action == model.ActionError {
			m.stats.errors.Add(1)
			continue
		}
		m.cacheResult(ctx, input, results[i])
	}

	slog.Info("Escalated ingredient batch",
		"inputs", len(inputs),
		"tokens", outcome.TokensUsed)
	return results
}

// applyDecision turns one service verdict into a result, performing the
// synonym append or task creation it implies.
func (m *Moderator) applyDecision(ctx context.Context, input string, d *llm.LinkDecision) model.ModerationResult {
	if d == nil {
		return model.ErrorResult(noResultDetails, true)
	}

	switch d.Action {
	case llm.LinkActionLink:
		if p, ok := m.catalog.ByExactName(d.MatchedProduct); ok {
			m.appendSynonym(ctx, p.ID, input)
			return model.ModerationResult{
				Success:     true,
				Action:      model.ActionAutoLinked,
				ProductID:   p.ID,
				ProductName: p.CanonicalName,
				Confidence:  model.Float(d.ConfidenceOr(llm.DefaultLinkConfidence)),
				AIUsed:      true,
			}
		}

		confidence := d.ConfidenceOr(llm.DefaultSuggestionConfidence)
		m.createTask(ctx, model.TaskLinkSuggestion, nil, map[string]any{
			"ingredientName":       input,
			"suggestedProductName": d.MatchedProduct,
			"confidence":           confidence,
			"aiReason":             d.Reason,
		}, confidence)
		return model.ModerationResult{
			Success:     true,
			Action:      model.ActionSuggested,
			ProductName: d.MatchedProduct,
			Confidence:  model.Float(confidence),
			AIUsed:      true,
		}

	case llm.LinkActionCreate:
		confidence := d.ConfidenceOr(llm.DefaultCreateConfidence)
		m.createTask(ctx, model.TaskNewProduct, nil, map[string]any{
			"ingredientName":    input,
			"suggestedCategory": d.Category,
			"confidence":        confidence,
			"aiReason":          d.Reason,
		}, confidence)
		return model.ModerationResult{
			Success:    true,
			Action:     model.ActionSuggested,
			Confidence: model.Float(confidence),
			AIUsed:     true,
			Details:    map[string]any{"category": d.Category, "reason": d.Reason},
		}

	default:
		return model.ModerationResult{
			Success:    true,
			Action:     model.ActionSkipped,
			Confidence: model.Float(d.ConfidenceOr(llm.DefaultSkipConfidence)),
			AIUsed:     true,
			Details:    map[string]any{"reason": d.Reason},
		}
	}
}
