package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHandleAnalyze tests scoring and stats for the projects fixture.
func TestHandleAnalyze(t *testing.T) {
	docCache.reset()
	res, out, err := handleAnalyze(context.Background(), nil, analyzeInput{
		WebMap: webmapInput{Content: projectsContent(t), ID: "projects"},
	})
	require.NoError(t, err)
	require.Nil(t, res)

	assert.Equal(t, "projects", out.DocumentID)
	assert.Equal(t, 3, out.LayerCount)
	assert.Equal(t, 0, out.TableCount)
	assert.Equal(t, 1, out.GroupCount)
	assert.Equal(t, out.CriticalCount+out.WarningCount+out.InfoCount, out.IssueCount)
	assert.Equal(t, out.IssueCount, out.Matched)
	assert.Equal(t, out.Matched, out.Returned)
	assert.NotEmpty(t, out.Grade)
	assert.GreaterOrEqual(t, out.Score, 0)
	assert.LessOrEqual(t, out.Score, 100)
	if out.IssueCount > 0 {
		assert.Less(t, out.Score, 100)
		assert.NotEmpty(t, out.Deductions)
	}
}

// TestHandleAnalyze_MetadataAndFilters tests service checks with metadata
// and the category and severity filters.
func TestHandleAnalyze_MetadataAndFilters(t *testing.T) {
	docCache.reset()
	in := analyzeInput{
		WebMap: webmapInput{
			Content:  projectsContent(t),
			Metadata: `{"active": {"service": {"capabilities": "Query", "record_count": 50000}}}`,
		},
		Category: "record-count",
	}

	_, out, err := handleAnalyze(context.Background(), nil, in)
	require.NoError(t, err)
	require.Equal(t, 1, out.Matched)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, "active", out.Issues[0].LayerID)
	assert.Equal(t, "record-count", out.Issues[0].Category)

	in.RecordCountThreshold = 100000
	_, out, err = handleAnalyze(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Matched)
	assert.Empty(t, out.Issues)

	in.Category = ""
	in.RecordCountThreshold = 0
	in.MinSeverity = "critical"
	_, out, err = handleAnalyze(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, out.CriticalCount, out.Matched)
	for _, iss := range out.Issues {
		assert.Equal(t, "critical", iss.Severity)
	}
}

// TestHandleAnalyze_Pagination tests offset/limit over the issue list.
func TestHandleAnalyze_Pagination(t *testing.T) {
	docCache.reset()
	_, all, err := handleAnalyze(context.Background(), nil, analyzeInput{WebMap: webmapInput{Content: projectsContent(t)}})
	require.NoError(t, err)
	require.GreaterOrEqual(t, all.Matched, 2)

	_, page, err := handleAnalyze(context.Background(), nil, analyzeInput{
		WebMap: webmapInput{Content: projectsContent(t)},
		Offset: 1,
		Limit:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, all.Matched, page.Matched)
	require.Len(t, page.Issues, 1)
	assert.Equal(t, all.Issues[1], page.Issues[0])
}

// TestHandleAnalyze_Errors tests invalid inputs.
func TestHandleAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   analyzeInput
		message string
	}{
		{"unknown severity", analyzeInput{WebMap: webmapInput{Content: "{}"}, MinSeverity: "fatal"}, "fatal"},
		{"unknown category", analyzeInput{WebMap: webmapInput{Content: "{}"}, Category: "colors"}, "unknown category"},
		{"no source", analyzeInput{}, "exactly one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := handleAnalyze(context.Background(), nil, tt.input)
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.True(t, res.IsError)
			assert.Contains(t, textContent(t, res), tt.message)
		})
	}
}
