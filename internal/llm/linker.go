package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/ingredient-moderator/internal/model"
)

const (
	defaultSampleSize  = 100
	defaultCallTimeout = 60 * time.Second
)

// Categories offered to the service for new products.
var productCategories = []string{
	"vegetables", "fruits", "meat", "dairy", "grains", "fish", "bakery",
	"frozen", "drinks", "spices", "canned", "snacks", "other",
}

// BatchOutcome holds one decision slot per submitted input.
type BatchOutcome struct {
	// Decisions is aligned with the inputs; a nil slot had no usable answer.
	Decisions  []*LinkDecision
	TokensUsed int
}

// Linker asks the reasoning service to classify a batch of ingredient names
// against the catalog.
type Linker struct {
	client     Client
	timeout    time.Duration
	sampleSize int
}

// LinkerOption configures a Linker.
type LinkerOption func(*Linker)

// WithTimeout bounds each service call.
func WithTimeout(d time.Duration) LinkerOption {
	return func(l *Linker) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithSampleSize limits how many catalog names are sent as context.
func WithSampleSize(n int) LinkerOption {
	return func(l *Linker) {
		if n > 0 {
			l.sampleSize = n
		}
	}
}

// NewLinker creates a Linker on top of client.
func NewLinker(client Client, opts ...LinkerOption) *Linker {
	l := &Linker{
		client:     client,
		timeout:    defaultCallTimeout,
		sampleSize: defaultSampleSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LinkBatch makes exactly one service call for inputs. An error means the
// call as a whole failed and no decision is usable.
func (l *Linker) LinkBatch(ctx context.Context, inputs []string, catalog []model.Product) (BatchOutcome, error) {
	if len(inputs) == 0 {
		return BatchOutcome{}, nil
	}

	prompt := BuildLinkPrompt(inputs, catalog, l.sampleSize)

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	completion, err := l.client.Complete(callCtx, prompt)
	if err != nil {
		return BatchOutcome{}, fmt.Errorf("reasoning service call failed: %w", err)
	}

	tokens := completion.TokensUsed
	if tokens <= 0 {
		tokens = EstimateTokens(prompt, completion.Text)
	}

	slog.Debug("Reasoning service answered",
		"inputs", len(inputs),
		"tokens", tokens,
		"duration", time.Since(start))

	decisions, err := parseLinkResponse(completion.Text, len(inputs))
	if err != nil {
		return BatchOutcome{TokensUsed: tokens}, err
	}

	return BatchOutcome{Decisions: decisions, TokensUsed: tokens}, nil
}

// BuildLinkPrompt renders the link prompt with up to sampleSize catalog
// names as grounding context.
func BuildLinkPrompt(inputs []string, catalog []model.Product, sampleSize int) string {
	if sampleSize <= 0 || sampleSize > len(catalog) {
		sampleSize = len(catalog)
	}

	names := make([]string, 0, sampleSize)
	for i := range catalog[:sampleSize] {
		names = append(names, fmt.Sprintf("%s (%s)", catalog[i].CanonicalName, catalog[i].CategoryOrDefault()))
	}

	var numbered strings.Builder
	for i, input := range inputs {
		if i > 0 {
			numbered.WriteString("\n")
		}
		fmt.Fprintf(&numbered, "%d. %s", i+1, input)
	}

	return fmt.Sprintf(`Ты помощник для модерации продуктов в приложении рецептов.

Задача: для каждого ингредиента определи, является ли он:
1. Синонимом существующего продукта (укажи какого)
2. Новым уникальным продуктом (нужно создать)
3. Мусором/опечаткой (пропустить)

Список существующих продуктов (примеры): %s

Ингредиенты для анализа:
%s

Верни JSON массив с результатами для каждого ингредиента:
[
  {
    "index": 1,
    "action": "link" | "create" | "skip",
    "matchedProduct": "название если action=link",
    "confidence": 0.0-1.0,
    "reason": "краткое пояснение",
    "category": "категория если action=create (%s)"
  }
]`, strings.Join(names, ", "), numbered.String(), strings.Join(productCategories, "|"))
}
