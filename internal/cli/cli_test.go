package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/moderation"
	"github.com/Veraticus/ingredient-moderator/internal/productcache"
)

func TestRenderResults(t *testing.T) {
	out := RenderResults(
		[]string{"Молоко", "xyz123", "Авокадо"},
		[]model.ModerationResult{
			{Success: true, Action: model.ActionAutoLinked, ProductName: "Молоко", Confidence: model.Float(1)},
			{Success: true, Action: model.ActionSkipped, AIUsed: true, Details: map[string]any{"reason": "мусор"}},
			model.ErrorResult("OpenAI API error: 500", true),
		},
	)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Confidence")
	assert.Contains(t, lines[1], "auto_linked")
	assert.Contains(t, lines[1], "100%")
	assert.Contains(t, lines[2], `{"reason":"мусор"}`)
	assert.Contains(t, lines[2], RobotIcon)
	assert.Contains(t, lines[3], "OpenAI API error: 500")
}

func TestFormatMessages(t *testing.T) {
	assert.Contains(t, FormatTitle("Catalog products (2)"), BasketIcon+" Catalog products (2)")
	assert.Contains(t, FormatError("database is locked"), ErrorIcon+" database is locked")
	assert.Contains(t, FormatSuccess("done"), SuccessIcon+" done")
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := RenderTable([]string{"A", "B"}, [][]string{{"long value", "x"}, {"s"}})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Index(lines[1], "x"), strings.Index(lines[0], "B"))
}

func TestRenderStats(t *testing.T) {
	out := RenderStats(model.Stats{TotalProcessed: 4, AutoLinked: 2, CacheHits: 1, AICalls: 1, TokensUsed: 250})
	assert.Contains(t, out, "Processed: 4")
	assert.Contains(t, out, "Tokens used: 250")
	assert.Contains(t, out, "75.0%")
}

func TestRenderCacheStatus(t *testing.T) {
	assert.Contains(t, RenderCacheStatus(productcache.Status{Stale: true}), "never loaded")

	out := RenderCacheStatus(productcache.Status{ProductCount: 3, IndexedNames: 5, Age: 90 * time.Second})
	assert.Contains(t, out, "Products: 3")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "fresh")
}

func TestRenderDuplicates(t *testing.T) {
	report := moderation.DuplicateReport{
		ProductsScanned: 2,
		Found:           1,
		TasksCreated:    1,
		Candidates: []model.DuplicateCandidate{{
			ProductA:   model.Product{CanonicalName: "Mozzarella"},
			ProductB:   model.Product{CanonicalName: "Mozarella"},
			MatchType:  model.MatchLevenshtein,
			Confidence: 0.9,
		}},
	}

	out := RenderDuplicates(report)
	assert.Contains(t, out, "Merge suggestions filed: 1")
	assert.Contains(t, out, "Mozarella")
	assert.Contains(t, out, "0.90")
}

func TestRenderProductsAndTasks(t *testing.T) {
	products := RenderProducts([]model.Product{{ID: "p1", CanonicalName: "Соль", Synonyms: []string{"соль морская"}}})
	assert.Contains(t, products, "other")
	assert.Contains(t, products, "соль морская")

	tasks := RenderTasks([]model.ModerationTask{{
		ID:              "t1",
		TaskType:        model.TaskNewProduct,
		Status:          model.TaskPending,
		Confidence:      0.8,
		SuggestedAction: map[string]any{"ingredientName": "Авокадо"},
	}})
	assert.Contains(t, tasks, "new_product")
	assert.Contains(t, tasks, "Авокадо")
}

func TestLineReader(t *testing.T) {
	lr := NewLineReader(strings.NewReader("Молоко\n\n  Сыр  \nАвокадо"))

	lines, err := lr.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Молоко", "Сыр", "Авокадо"}, lines)

	_, err = lr.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReaderCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	lr := NewLineReader(pr)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := lr.Next(ctx)
	assert.True(t, errors.Is(err, ErrInputCancelled))
}

func TestInterruptMessage(t *testing.T) {
	var buf bytes.Buffer
	h := NewInterruptHandler(&buf)
	h.summary = func() string { return "3 of 10 names resolved" }

	assert.False(t, h.WasInterrupted())
	h.interrupt()
	h.interrupt()

	assert.True(t, h.WasInterrupted())
	assert.Equal(t, 1, strings.Count(buf.String(), "Moderation interrupted"))
	assert.Contains(t, buf.String(), "3 of 10 names resolved")
}

func TestProgressWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 2, "Moderating")
	p.Add(1)
	p.Add(1)
	p.Finish()
	assert.Contains(t, buf.String(), "Moderating")
}
