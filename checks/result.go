package checks

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/erraggy/wmtools/internal/issues"
	"github.com/erraggy/wmtools/webmap"
)

// AnalysisResult contains the issues found in one web map.
type AnalysisResult struct {
	DocumentID string `json:"webmap_id" yaml:"webmap_id"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	// Issues are sorted by category, location, field and message.
	Issues []Issue `json:"issues" yaml:"issues"`
	// Stats counts the layers, tables and groups of the tree
	Stats         webmap.Stats `json:"stats" yaml:"stats"`
	CriticalCount int          `json:"critical_count" yaml:"critical_count"`
	WarningCount  int          `json:"warning_count" yaml:"warning_count"`
	InfoCount     int          `json:"info_count" yaml:"info_count"`
	Thresholds    Thresholds   `json:"thresholds" yaml:"thresholds"`
	AnalyzedAt    time.Time    `json:"analyzed_at" yaml:"analyzed_at"`
}

// finalize sorts the issues and recomputes the counts.
func (r *AnalysisResult) finalize() {
	order := make(map[Category]int)
	for i, c := range issues.AllCategories() {
		order[c] = i
	}
	slices.SortStableFunc(r.Issues, func(a, b Issue) int {
		return cmp.Or(
			cmp.Compare(order[a.Category], order[b.Category]),
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.LayerID, b.LayerID),
			cmp.Compare(a.Field, b.Field),
			cmp.Compare(b.Severity, a.Severity),
			cmp.Compare(a.Message, b.Message),
		)
	})
	r.CriticalCount, r.WarningCount, r.InfoCount = 0, 0, 0
	for _, i := range r.Issues {
		switch i.Severity {
		case SeverityCritical:
			r.CriticalCount++
		case SeverityWarning:
			r.WarningCount++
		default:
			r.InfoCount++
		}
	}
}

// ByCategory groups the issues by category.
func (r *AnalysisResult) ByCategory() map[Category][]Issue {
	out := make(map[Category][]Issue)
	for _, i := range r.Issues {
		out[i.Category] = append(out[i.Category], i)
	}
	return out
}

// ForLayer returns the issues of one layer.
func (r *AnalysisResult) ForLayer(layerID string) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.LayerID == layerID {
			out = append(out, i)
		}
	}
	return out
}

// HasCritical reports whether any issue is critical.
func (r *AnalysisResult) HasCritical() bool {
	return r.CriticalCount > 0
}

// CSVHeader is the header row matching [AnalysisResult.Rows].
var CSVHeader = []string{
	"webmap_id", "category", "severity", "layer_id", "layer_title",
	"path", "field", "message", "recommendation", "suggestion",
}

// Rows renders one row per issue for tabular export.
func (r *AnalysisResult) Rows() [][]string {
	rows := make([][]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		rows = append(rows, []string{
			r.DocumentID,
			string(i.Category),
			i.Severity.String(),
			i.LayerID,
			i.LayerTitle,
			i.Path,
			i.Field,
			i.Message,
			i.Recommendation,
			i.Suggestion,
		})
	}
	return rows
}

// Summary returns a one-line summary of the counts.
func (r *AnalysisResult) Summary() string {
	return fmt.Sprintf("%d issues (%d critical, %d warnings, %d info)",
		len(r.Issues), r.CriticalCount, r.WarningCount, r.InfoCount)
}
