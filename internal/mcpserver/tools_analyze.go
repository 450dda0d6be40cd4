package mcpserver

import (
	"context"
	"fmt"

	"github.com/erraggy/wmtools/checks"
	"github.com/erraggy/wmtools/internal/issues"
	"github.com/erraggy/wmtools/internal/severity"
	"github.com/erraggy/wmtools/score"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type analyzeInput struct {
	WebMap               webmapInput `json:"webmap"                           jsonschema:"The web map to analyze"`
	RecordCountThreshold int         `json:"record_count_threshold,omitempty" jsonschema:"Report layers with more records than this (default 10000)"`
	LayerCountThreshold  int         `json:"layer_count_threshold,omitempty"  jsonschema:"Report maps with more layers and tables than this (default 15)"`
	Category             string      `json:"category,omitempty"               jsonschema:"Only return issues of this category, e.g. popup-configuration"`
	MinSeverity          string      `json:"min_severity,omitempty"           jsonschema:"Only return issues at or above this severity: info, warning or critical"`
	Offset               int         `json:"offset,omitempty"                 jsonschema:"Skip the first N issues (for pagination)"`
	Limit                int         `json:"limit,omitempty"                  jsonschema:"Maximum number of issues to return (default 100)"`
}

type issueSummary struct {
	Category       string `json:"category"`
	Severity       string `json:"severity"`
	LayerID        string `json:"layer_id,omitempty"`
	LayerTitle     string `json:"layer_title,omitempty"`
	Path           string `json:"path,omitempty"`
	Field          string `json:"field,omitempty"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation,omitempty"`
	Suggestion     string `json:"suggestion,omitempty"`
}

type deductionSummary struct {
	Category string  `json:"category"`
	Issues   int     `json:"issues"`
	Points   float64 `json:"points"`
}

type analyzeOutput struct {
	DocumentID    string             `json:"document_id,omitempty"`
	Title         string             `json:"title,omitempty"`
	Score         int                `json:"score"`
	Grade         string             `json:"grade"`
	LayerCount    int                `json:"layer_count"`
	TableCount    int                `json:"table_count"`
	GroupCount    int                `json:"group_count"`
	MaxDepth      int                `json:"max_depth"`
	CriticalCount int                `json:"critical_count"`
	WarningCount  int                `json:"warning_count"`
	InfoCount     int                `json:"info_count"`
	IssueCount    int                `json:"issue_count"`
	Matched       int                `json:"matched"`
	Returned      int                `json:"returned"`
	Issues        []issueSummary     `json:"issues,omitempty"`
	Deductions    []deductionSummary `json:"deductions,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
}

func handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input analyzeInput) (*mcp.CallToolResult, analyzeOutput, error) {
	minSev := severity.SeverityInfo
	if input.MinSeverity != "" {
		s, err := severity.Parse(input.MinSeverity)
		if err != nil {
			return errResult(err), analyzeOutput{}, nil
		}
		minSev = s
	}
	if input.Category != "" && !knownCategory(input.Category) {
		return errResult(fmt.Errorf("unknown category %q", input.Category)), analyzeOutput{}, nil
	}

	doc, err := input.WebMap.resolve(ctx)
	if err != nil {
		return errResult(err), analyzeOutput{}, nil
	}

	opts := cfg.App.CheckOptions()
	if input.RecordCountThreshold > 0 {
		opts = append(opts, checks.WithRecordCountThreshold(input.RecordCountThreshold))
	}
	if input.LayerCountThreshold > 0 {
		opts = append(opts, checks.WithLayerCountThreshold(input.LayerCountThreshold))
	}
	result := checks.New(opts...).Analyze(ctx, doc)
	sc := score.Calculate(result)

	output := analyzeOutput{
		DocumentID:    result.DocumentID,
		Title:         result.Title,
		Score:         sc.Value,
		Grade:         string(sc.Grade),
		LayerCount:    result.Stats.LayerCount,
		TableCount:    result.Stats.TableCount,
		GroupCount:    result.Stats.GroupCount,
		MaxDepth:      result.Stats.MaxDepth,
		CriticalCount: result.CriticalCount,
		WarningCount:  result.WarningCount,
		InfoCount:     result.InfoCount,
		IssueCount:    len(result.Issues),
		Warnings:      doc.Warnings,
	}

	var matched []issueSummary
	for _, iss := range result.Issues {
		if iss.Severity < minSev || (input.Category != "" && string(iss.Category) != input.Category) {
			continue
		}
		matched = append(matched, summarizeIssue(iss))
	}
	output.Matched = len(matched)
	output.Issues = paginate(matched, input.Offset, input.Limit)
	output.Returned = len(output.Issues)

	output.Deductions = makeSlice[deductionSummary](len(sc.Deductions))
	for _, d := range sc.Deductions {
		output.Deductions = append(output.Deductions, deductionSummary{
			Category: string(d.Category),
			Issues:   d.Issues,
			Points:   d.Points,
		})
	}
	return nil, output, nil
}

func summarizeIssue(iss issues.Issue) issueSummary {
	return issueSummary{
		Category:       string(iss.Category),
		Severity:       iss.Severity.String(),
		LayerID:        iss.LayerID,
		LayerTitle:     iss.LayerTitle,
		Path:           iss.Path,
		Field:          iss.Field,
		Message:        iss.Message,
		Recommendation: iss.Recommendation,
		Suggestion:     iss.Suggestion,
	}
}

func knownCategory(name string) bool {
	for _, c := range issues.AllCategories() {
		if string(c) == name {
			return true
		}
	}
	return false
}
