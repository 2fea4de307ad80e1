package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/ingredient-moderator/internal/model"
	"github.com/Veraticus/ingredient-moderator/internal/moderation"
	"github.com/Veraticus/ingredient-moderator/internal/productcache"
)

// RenderTable lays rows out in padded columns under a bold header.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range min(len(row), len(widths)) {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = TableHeaderStyle.Width(widths[i] + 2).Render(h)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))

	for _, row := range rows {
		b.WriteString("\n")
		for i := range cells {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			cells[i] = TableCellStyle.Width(widths[i] + 2).Render(value)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return b.String()
}

// RenderResults shows one row per processed name.
func RenderResults(names []string, results []model.ModerationResult) string {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		ai := ""
		if r.AIUsed {
			ai = RobotIcon
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			name,
			ActionStyle(r.Action).Render(string(r.Action)),
			r.ProductName,
			formatConfidence(r.Confidence),
			ai,
			formatDetails(r.Details),
		})
	}
	return RenderTable([]string{"#", "Input", "Action", "Product", "Confidence", "AI", "Details"}, rows)
}

// RenderStats shows session counters in a box.
func RenderStats(s model.Stats) string {
	content := fmt.Sprintf("  • Processed: %d\n", s.TotalProcessed) +
		fmt.Sprintf("  • Auto-linked: %d\n", s.AutoLinked) +
		fmt.Sprintf("  • Decision cache hits: %d\n", s.CacheHits) +
		fmt.Sprintf("  • Reasoning calls: %d %s\n", s.AICalls, RobotIcon) +
		fmt.Sprintf("  • Tokens used: %d\n", s.TokensUsed) +
		fmt.Sprintf("  • Errors: %d\n", s.Errors) +
		fmt.Sprintf("  • Resolved without AI: %.1f%%", s.Efficiency())
	return RenderBox(ChartIcon+" Moderation Summary", content)
}

// RenderCacheStatus describes the product cache.
func RenderCacheStatus(st productcache.Status) string {
	freshness := SuccessStyle.Render("fresh")
	if st.Stale {
		freshness = WarningStyle.Render("stale")
	}
	age := "never loaded"
	if st.Age > 0 {
		age = st.Age.Round(time.Second).String()
	}
	content := fmt.Sprintf("  • Products: %d\n", st.ProductCount) +
		fmt.Sprintf("  • Indexed names: %d\n", st.IndexedNames) +
		fmt.Sprintf("  • Age: %s (%s)", age, freshness)
	return RenderBox("Product Cache", content)
}

// RenderProducts lists catalog products.
func RenderProducts(products []model.Product) string {
	rows := make([][]string, 0, len(products))
	for i := range products {
		p := &products[i]
		rows = append(rows, []string{
			p.ID,
			p.CanonicalName,
			p.CategoryOrDefault(),
			strings.Join(p.Synonyms, ", "),
		})
	}
	return RenderTable([]string{"ID", "Name", "Category", "Synonyms"}, rows)
}

// RenderTasks lists moderation tasks.
func RenderTasks(tasks []model.ModerationTask) string {
	rows := make([][]string, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		rows = append(rows, []string{
			t.ID,
			string(t.TaskType),
			string(t.Status),
			fmt.Sprintf("%.2f", t.Confidence),
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			formatDetails(t.SuggestedAction),
		})
	}
	return RenderTable([]string{"ID", "Type", "Status", "Confidence", "Created", "Suggested action"}, rows)
}

// RenderDuplicates summarizes a duplicate sweep.
func RenderDuplicates(report moderation.DuplicateReport) string {
	rows := make([][]string, 0, len(report.Candidates))
	for _, c := range report.Candidates {
		rows = append(rows, []string{
			c.ProductA.CanonicalName,
			c.ProductB.CanonicalName,
			string(c.MatchType),
			fmt.Sprintf("%.2f", c.Confidence),
		})
	}

	summary := fmt.Sprintf("  • Products scanned: %d\n", report.ProductsScanned) +
		fmt.Sprintf("  • Likely duplicates: %d\n", report.Found) +
		fmt.Sprintf("  • Merge suggestions filed: %d", report.TasksCreated)

	out := RenderBox(LinkIcon+" Duplicate Sweep", summary)
	if len(rows) > 0 {
		out += "\n" + RenderTable([]string{"Product", "Matched with", "Rule", "Confidence"}, rows)
	}
	return out
}

func formatConfidence(c *float64) string {
	if c == nil {
		return SubtleStyle.Render("-")
	}
	return fmt.Sprintf("%.0f%%", *c*100)
}

func formatDetails(details any) string {
	switch d := details.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprintf("%v", d)
		}
		return string(raw)
	}
}
