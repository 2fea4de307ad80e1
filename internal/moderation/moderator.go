// Package moderation decides, for free-text ingredient names, whether they
// identify an existing catalog product, a probable one, or something new.
// Deterministic matching and the decision cache answer most names; the rest
// are batched to the reasoning service.
package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/decisioncache"
	"github.com/Veraticus/ingredient-moderator/internal/llm"
	"github.com/Veraticus/ingredient-moderator/internal/matcher"
	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/productcache"
	"github.com/Veraticus/ingredient-moderator/internal/textmatch"
)

// Config holds the orchestrator thresholds.
type Config struct {
	TaskDedup      DedupMode `mapstructure:"task_dedup"`
	AutoLink       float64   `mapstructure:"auto_link"`
	Suggest        float64   `mapstructure:"suggest"`
	MinInputLength int       `mapstructure:"min_input_length"`
	MaxBatchInputs int       `mapstructure:"max_batch_inputs"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		AutoLink:       0.9,
		Suggest:        0.7,
		MinInputLength: 2,
		TaskDedup:      DedupShallow,
		MaxBatchInputs: 50,
	}
}

// Validate checks threshold ordering and ranges.
func (c Config) Validate() error {
	if c.Suggest < 0 || c.AutoLink > 1 || c.Suggest > c.AutoLink {
		return fmt.Errorf("%w: need 0 <= suggest (%.2f) <= auto_link (%.2f) <= 1",
			common.ErrInvalidConfig, c.Suggest, c.AutoLink)
	}
	if c.MinInputLength < 0 {
		return fmt.Errorf("%w: min_input_length must not be negative", common.ErrInvalidConfig)
	}
	if c.MaxBatchInputs < 0 {
		return fmt.Errorf("%w: max_batch_inputs must not be negative", common.ErrInvalidConfig)
	}
	if c.TaskDedup != "" && !c.TaskDedup.Valid() {
		return fmt.Errorf("%w: unknown task_dedup mode %q", common.ErrInvalidConfig, c.TaskDedup)
	}
	return nil
}

// ProductStore reads the catalog and grows product synonyms.
type ProductStore interface {
	productcache.ProductReader
	AppendSynonym(ctx context.Context, productID, synonym string) (bool, error)
}

// Store is everything the moderator persists through.
type Store interface {
	ProductStore
	TaskStore
}

// Linker escalates a batch of names to the reasoning service.
type Linker interface {
	LinkBatch(ctx context.Context, inputs []string, catalog []model.Product) (llm.BatchOutcome, error)
}

// Moderator orchestrates matching, caching, escalation and task creation.
type Moderator struct {
	store      Store
	catalog    *productcache.Cache
	matcher    *matcher.Matcher
	decisions  *decisioncache.Cache
	linker     Linker
	tasks      *TaskSink
	queue      *BatchQueue
	stats      sessionStats
	cfg        Config
	duplicates DuplicateConfig
	queueOpts  []QueueOption
}

// Option configures a Moderator.
type Option func(*Moderator)

// WithConfig replaces the thresholds.
func WithConfig(cfg Config) Option {
	return func(m *Moderator) {
		m.cfg = cfg
	}
}

// WithMatcher replaces the default matcher.
func WithMatcher(mt *matcher.Matcher) Option {
	return func(m *Moderator) {
		m.matcher = mt
	}
}

// WithProductCache replaces the product cache built over the store.
func WithProductCache(c *productcache.Cache) Option {
	return func(m *Moderator) {
		m.catalog = c
	}
}

// WithQueueOptions configures the escalation queue.
func WithQueueOptions(opts ...QueueOption) Option {
	return func(m *Moderator) {
		m.queueOpts = append(m.queueOpts, opts...)
	}
}

// WithDuplicateConfig sets the duplicate sweep limits.
func WithDuplicateConfig(cfg DuplicateConfig) Option {
	return func(m *Moderator) {
		m.duplicates = cfg
	}
}

// New creates a Moderator. linker may be nil, in which case escalated names
// resolve to error results.
func New(store Store, decisions *decisioncache.Cache, linker Linker, opts ...Option) *Moderator {
	m := &Moderator{
		store:      store,
		decisions:  decisions,
		linker:     linker,
		cfg:        DefaultConfig(),
		duplicates: DefaultDuplicateConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.matcher == nil {
		m.matcher = matcher.New()
	}
	if m.catalog == nil {
		m.catalog = productcache.New(store)
	}
	m.tasks = NewTaskSink(store, m.cfg.TaskDedup)
	m.queue = NewBatchQueue(m.escalate, m.queueOpts...)
	return m
}

// ProcessOne resolves a single ingredient name. Names that need the
// reasoning service wait for the next queue drain.
func (m *Moderator) ProcessOne(ctx context.Context, name string) model.ModerationResult {
	m.refreshCatalog(ctx)
	m.stats.processed.Add(1)

	if result, ok := m.resolveLocally(ctx, name); ok {
		return result
	}

	result, err := m.queue.Enqueue(name).Wait(ctx)
	if err != nil {
		return model.ErrorResult(fmt.Sprintf("gave up waiting for escalation: %v", err), false)
	}
	return result
}

// ProcessMany resolves names in one pass: a single catalog refresh, local
// resolution for every name, then one escalation call for the remainder.
// The call waits for any queue drain in flight and holds off the next one.
// Result i always answers names[i].
func (m *Moderator) ProcessMany(ctx context.Context, names []string) []model.ModerationResult {
	m.refreshCatalog(ctx)

	results := make([]model.ModerationResult, len(names))
	var escalate []int
	for i, name := range names {
		m.stats.processed.Add(1)
		if result, ok := m.resolveLocally(ctx, name); ok {
			results[i] = result
			continue
		}
		escalate = append(escalate, i)
	}

	if len(escalate) > 0 {
		inputs := make([]string, len(escalate))
		for j, idx := range escalate {
			inputs[j] = names[idx]
		}
		escalated, err := m.queue.RunExclusive(ctx, inputs)
		if err != nil {
			escalated = errorResults(len(inputs), "gave up waiting for the reasoning service: "+err.Error(), false)
		}
		for j, result := range escalated {
			results[escalate[j]] = result
		}
	}

	slog.Debug("Processed ingredient batch",
		"inputs", len(names),
		"escalated", len(escalate))
	return results
}

// ProcessBatch is ProcessMany with the configured input cap applied.
func (m *Moderator) ProcessBatch(ctx context.Context, names []string) ([]model.ModerationResult, error) {
	if m.cfg.MaxBatchInputs > 0 && len(names) > m.cfg.MaxBatchInputs {
		return nil, fmt.Errorf("%w: got %d, limit is %d", common.ErrTooManyInputs, len(names), m.cfg.MaxBatchInputs)
	}
	return m.ProcessMany(ctx, names), nil
}

// Stats returns a snapshot of the session counters.
func (m *Moderator) Stats() model.Stats {
	return m.stats.snapshot()
}

// ResetStats zeroes the session counters.
func (m *Moderator) ResetStats() {
	m.stats.reset()
}

// Close flushes the escalation queue.
func (m *Moderator) Close(ctx context.Context) error {
	return m.queue.Close(ctx)
}

func (m *Moderator) refreshCatalog(ctx context.Context) {
	if err := m.catalog.Refresh(ctx, false); err != nil {
		common.LogWarn(err, "Product cache refresh failed, using last good copy", nil)
	}
}

// resolveLocally runs every step that needs no reasoning service: the
// length guard, exact lookup, fuzzy matching and the decision cache.
func (m *Moderator) resolveLocally(ctx context.Context, name string) (model.ModerationResult, bool) {
	if textmatch.RuneLen(textmatch.Normalize(name)) < m.cfg.MinInputLength {
		return model.ModerationResult{Success: false, Action: model.ActionSkipped}, true
	}

	// The index holds synonyms too; a synonym hit reports the synonym
	// confidence rather than 1.0.
	if p, ok := m.catalog.ByExactName(name); ok {
		confidence := 1.0
		if match := m.matcher.Score(name, p); match != nil {
			confidence = match.Confidence
		}
		m.stats.autoLinked.Add(1)
		return model.ModerationResult{
			Success:     true,
			Action:      model.ActionAutoLinked,
			ProductID:   p.ID,
			ProductName: p.CanonicalName,
			Confidence:  model.Float(confidence),
		}, true
	}

	if match := m.matcher.BestMatch(name, m.catalog.All()); match != nil {
		switch {
		case match.Confidence >= m.cfg.AutoLink:
			m.stats.autoLinked.Add(1)
			m.appendSynonym(ctx, match.ProductID, name)
			return model.ModerationResult{
				Success:     true,
				Action:      model.ActionAutoLinked,
				ProductID:   match.ProductID,
				ProductName: match.ProductName,
				Confidence:  model.Float(match.Confidence),
			}, true
		case match.Confidence >= m.cfg.Suggest:
			m.createTask(ctx, model.TaskLinkSuggestion, nil, map[string]any{
				"ingredientName":       name,
				"suggestedProductId":   match.ProductID,
				"suggestedProductName": match.ProductName,
				"confidence":           match.Confidence,
				"matchType":            string(match.MatchType),
			}, match.Confidence)
			return model.ModerationResult{
				Success:     true,
				Action:      model.ActionSuggested,
				ProductID:   match.ProductID,
				ProductName: match.ProductName,
				Confidence:  model.Float(match.Confidence),
			}, true
		}
	}

	cached, ok, err := m.decisions.GetResult(ctx, decisioncache.Hash(name, model.DecisionLink))
	if err != nil {
		slog.Warn("Decision cache lookup failed", "input", name, "error", err)
	}
	if ok {
		m.stats.cacheHits.Add(1)
		return *cached, true
	}

	return model.ModerationResult{}, false
}

// appendSynonym grows the product's synonyms and keeps the in-memory index
// in step. Failures are logged.
func (m *Moderator) appendSynonym(ctx context.Context, productID, name string) {
	appended, err := m.store.AppendSynonym(ctx, productID, name)
	if err != nil {
		common.LogWarn(err, "Failed to append synonym", common.Fields{
			"product_id": productID,
			"synonym":    name,
		})
		return
	}
	if appended {
		m.catalog.RecordSynonym(productID, name)
	}
}

// createTask records a review task. Failures are logged.
func (m *Moderator) createTask(ctx context.Context, taskType model.TaskType, productID *string, action map[string]any, confidence float64) {
	if _, err := m.tasks.Create(ctx, taskType, productID, action, confidence); err != nil {
		common.LogWarn(err, "Failed to create moderation task", common.Fields{
			"task_type": taskType,
		})
	}
}

// cacheResult memoizes a decided result. Error results are not cached.
func (m *Moderator) cacheResult(ctx context.Context, input string, result model.ModerationResult) {
	if result.Action == model.ActionError {
		return
	}
	hash := decisioncache.Hash(input, model.DecisionLink)
	if err := m.decisions.PutResult(ctx, hash, model.DecisionLink, result); err != nil {
		common.LogWarn(err, "Failed to cache decision", common.Fields{
			"input": input,
		})
	}
}
