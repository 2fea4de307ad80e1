package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/productcache"
)

// DuplicateConfig bounds the duplicate sweep.
type DuplicateConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	MaxTasks      int     `mapstructure:"max_tasks"`
}

// DefaultDuplicateConfig returns the production sweep limits.
func DefaultDuplicateConfig() DuplicateConfig {
	return DuplicateConfig{
		MinConfidence: 0.85,
		MaxTasks:      50,
	}
}

// RefreshReport summarizes a forced cache refresh.
type RefreshReport struct {
	Status         productcache.Status `json:"status"`
	SweptDecisions int64               `json:"sweptDecisions"`
}

// RefreshCache reloads the catalog and sweeps expired decisions.
func (m *Moderator) RefreshCache(ctx context.Context) (RefreshReport, error) {
	if err := m.catalog.Refresh(ctx, true); err != nil {
		return RefreshReport{Status: m.catalog.Status()}, fmt.Errorf("failed to refresh product cache: %w", err)
	}

	report := RefreshReport{Status: m.catalog.Status()}
	swept, err := m.decisions.Sweep(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to sweep decision cache: %w", err)
	}
	report.SweptDecisions = swept

	common.LogInfo("Caches refreshed", common.Fields{
		"products":        report.Status.ProductCount,
		"swept_decisions": swept,
	})
	return report, nil
}

// CacheStatus describes the product cache.
func (m *Moderator) CacheStatus() productcache.Status {
	return m.catalog.Status()
}

// FindByPrefix looks up cached products by name prefix.
func (m *Moderator) FindByPrefix(prefix string, limit int) []model.Product {
	return m.catalog.FindByPrefix(prefix, limit)
}

// DuplicateReport summarizes a duplicate sweep.
type DuplicateReport struct {
	Candidates      []model.DuplicateCandidate `json:"-"`
	Found           int                        `json:"duplicatesFound"`
	TasksCreated    int                        `json:"tasksCreated"`
	ProductsScanned int                        `json:"productsScanned"`
}

// DetectDuplicates scans the catalog for likely duplicate products and
// files merge suggestions for the strongest candidates.
func (m *Moderator) DetectDuplicates(ctx context.Context) (DuplicateReport, error) {
	if err := m.catalog.Refresh(ctx, false); err != nil {
		return DuplicateReport{}, fmt.Errorf("failed to refresh product cache: %w", err)
	}

	products := m.catalog.All()
	report := DuplicateReport{ProductsScanned: len(products)}

	for _, c := range m.matcher.DuplicateCandidates(products) {
		if c.Confidence >= m.duplicates.MinConfidence {
			report.Candidates = append(report.Candidates, c)
		}
	}
	report.Found = len(report.Candidates)

	limit := len(report.Candidates)
	if m.duplicates.MaxTasks > 0 {
		limit = min(limit, m.duplicates.MaxTasks)
	}

	for _, c := range report.Candidates[:limit] {
		productID := c.ProductA.ID
		created, err := m.tasks.Create(ctx, model.TaskMergeSuggestion, &productID, map[string]any{
			"productName":     c.ProductA.CanonicalName,
			"matchedWithId":   c.ProductB.ID,
			"matchedWithName": c.ProductB.CanonicalName,
			"matchType":       string(c.MatchType),
		}, c.Confidence)
		if err != nil {
			slog.Warn("Failed to create merge suggestion",
				"product_id", productID,
				"matched_with", c.ProductB.ID,
				"error", err)
			continue
		}
		if created {
			report.TasksCreated++
		}
	}

	common.LogInfo("Duplicate sweep finished", common.Fields{
		"products":      report.ProductsScanned,
		"duplicates":    report.Found,
		"tasks_created": report.TasksCreated,
	})
	return report, nil
}
