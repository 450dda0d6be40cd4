package checks

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/erraggy/wmtools/internal/issues"
	"github.com/erraggy/wmtools/internal/testutil"
	"github.com/erraggy/wmtools/webmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var asOf = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func parse(t *testing.T, raw map[string]any, opts ...webmap.Option) *webmap.Document {
	t.Helper()
	doc, err := webmap.FromMap(raw, opts...)
	require.NoError(t, err)
	return doc
}

// tidyLayer builds a layer that passes every layer check without metadata.
func tidyLayer(id, title string) map[string]any {
	l := testutil.WithPopup(testutil.FeatureLayer(id, title,
		testutil.Field("parcel_id", "Parcel ID", "esriFieldTypeString")), "{parcel_id}", 1)
	l["minScale"] = 50000.0
	l["maxScale"] = 1000.0
	return l
}

// TestAnalyze_UnboundedLayerWithoutPopup tests the visibility and popup
// scenario and that repeated runs agree.
func TestAnalyze_UnboundedLayerWithoutPopup(t *testing.T) {
	doc := parse(t, testutil.WebMap([]map[string]any{
		testutil.FeatureLayer("a", "Parcels", testutil.Field("parcel_id", "Parcel ID", "esriFieldTypeString")),
	}))
	engine := New(WithAsOf(asOf))

	first := engine.Analyze(context.Background(), doc)
	second := engine.Analyze(context.Background(), doc)

	assert.Equal(t, first.Issues, second.Issues)
	assert.ElementsMatch(t,
		[]Category{issues.CategoryVisibility, issues.CategoryPopup},
		categories(first.ForLayer("a")))
	assert.Equal(t, 1, first.WarningCount)
	assert.Equal(t, 1, first.InfoCount)
	assert.Equal(t, "$.operationalLayers[0]", first.Issues[0].Path)
}

// TestAnalyze_PopupFieldInfosWithoutVisibleKey tests that field infos
// omitting the visible key count toward the popup field limit and that an
// empty popupInfo reports a missing popup.
func TestAnalyze_PopupFieldInfosWithoutVisibleKey(t *testing.T) {
	infos := make([]any, 0, 20)
	for i := range 20 {
		infos = append(infos, map[string]any{"fieldName": fmt.Sprintf("f%d", i)})
	}
	crowded := tidyLayer("crowded", "Crowded")
	crowded["popupInfo"] = map[string]any{"title": "{f0}", "fieldInfos": infos}
	empty := tidyLayer("empty", "Empty")
	empty["popupInfo"] = map[string]any{}

	result := New(WithAsOf(asOf)).Analyze(context.Background(), parse(t, testutil.WebMap([]map[string]any{crowded, empty})))

	found := result.ForLayer("crowded")
	require.Len(t, found, 1)
	assert.Equal(t, issues.CategoryPopup, found[0].Category)
	assert.Equal(t, SeverityWarning, found[0].Severity)
	assert.Equal(t, "popup shows 20 fields", found[0].Message)

	found = result.ForLayer("empty")
	require.Len(t, found, 1)
	assert.Equal(t, SeverityWarning, found[0].Severity)
	assert.Equal(t, "no popup configured", found[0].Message)
}

// TestAnalyze_NameOnlyFields tests that name-only field lists are not
// reported for missing aliases while cryptic names still are.
func TestAnalyze_NameOnlyFields(t *testing.T) {
	layer := tidyLayer("legacy", "Legacy")
	layer["layerDefinition"].(map[string]any)["fields"] = []any{"parcel_id", "owner_name", "fld_zone"}

	found := New(WithAsOf(asOf)).Analyze(context.Background(), parse(t, testutil.WebMap([]map[string]any{layer}))).
		ByCategory()[issues.CategoryFieldAlias]

	require.Len(t, found, 1)
	assert.Equal(t, "fld_zone", found[0].Field)
	assert.Contains(t, found[0].Message, "cryptic")
}

// TestAnalyze_LayerCount tests the document-level layer count warning.
func TestAnalyze_LayerCount(t *testing.T) {
	build := func(layers, tables int, grouped bool) *webmap.Document {
		var ls []map[string]any
		for i := range layers {
			ls = append(ls, tidyLayer(fmt.Sprintf("l%d", i), fmt.Sprintf("Layer %d", i)))
		}
		var ts []map[string]any
		for i := range tables {
			ts = append(ts, testutil.Table(fmt.Sprintf("t%d", i), fmt.Sprintf("Table %d", i)))
		}
		if grouped {
			ls = []map[string]any{testutil.Group("g", "Group", ls...)}
		}
		return parse(t, testutil.WebMap(ls, ts...))
	}
	tests := []struct {
		name string
		doc  *webmap.Document
		want int
	}{
		{"sixteen layers", build(16, 0, false), 1},
		{"fifteen layers", build(15, 0, false), 0},
		{"layers and tables", build(10, 6, false), 1},
		{"nested layers count, groups do not", build(15, 0, true), 0},
		{"nested over threshold", build(16, 0, true), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().Analyze(context.Background(), tt.doc)
			found := result.ByCategory()[issues.CategoryLayerCount]
			require.Len(t, found, tt.want)
			if tt.want > 0 {
				assert.Equal(t, SeverityWarning, found[0].Severity)
				assert.True(t, found[0].IsDocumentLevel())
			}
		})
	}

	result := New(WithLayerCountThreshold(20)).Analyze(context.Background(), build(16, 0, false))
	assert.Empty(t, result.ByCategory()[issues.CategoryLayerCount])
}

func metadataDoc(t *testing.T) *webmap.Document {
	t.Helper()
	created := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	meta := map[string]webmap.LayerMetadata{
		"a": {
			CreatedDate: &created,
			Service: &webmap.ServiceInfo{
				Capabilities:       "Create",
				SupportsStatistics: true,
				SupportsOrderBy:    true,
				SupportsPagination: true,
				RecordCount:        intPtr(20000),
			},
		},
		"b": {
			Service: &webmap.ServiceInfo{Capabilities: "Query"},
		},
	}
	b := tidyLayer("b", "Inspection Points")
	return parse(t, testutil.WebMap([]map[string]any{tidyLayer("a", "Parcels"), b}), webmap.WithMetadata(meta))
}

// TestAnalyze_ServiceMetadata tests the metadata-driven checks.
func TestAnalyze_ServiceMetadata(t *testing.T) {
	result := New(WithAsOf(asOf)).Analyze(context.Background(), metadataDoc(t))

	assert.Equal(t,
		[]Category{issues.CategoryQuery, issues.CategoryRecordCount, issues.CategoryLayerAge},
		categories(result.ForLayer("a")))
	assert.ElementsMatch(t,
		[]Category{issues.CategoryEditing, issues.CategoryDrawing},
		categories(result.ForLayer("b")))
	assert.Equal(t, 2, result.CriticalCount)
	assert.True(t, result.HasCritical())
}

// TestAnalyze_OrderInsensitive tests that check order does not change the result.
func TestAnalyze_OrderInsensitive(t *testing.T) {
	doc := metadataDoc(t)
	forward := New(WithAsOf(asOf)).Analyze(context.Background(), doc)

	reversed := slices.Clone(DefaultChecks())
	slices.Reverse(reversed)
	backward := New(WithAsOf(asOf), WithChecks(reversed...)).Analyze(context.Background(), doc)

	assert.Equal(t, forward.Issues, backward.Issues)
}

// TestAnalyze_SkipsNonQueryable tests that groups and tile layers are not checked.
func TestAnalyze_SkipsNonQueryable(t *testing.T) {
	result := New().Analyze(context.Background(), parse(t, testutil.ProjectsWebMap()))

	assert.Empty(t, result.ForLayer("projects"))
	assert.Empty(t, result.ForLayer("hillshade"))
	assert.NotEmpty(t, result.ForLayer("active"))
	assert.NotEmpty(t, result.ForLayer("archive"))

	reserved := result.ByCategory()[issues.CategoryReservedName]
	var fields []string
	for _, i := range reserved {
		fields = append(fields, i.Field)
	}
	assert.ElementsMatch(t, []string{"status", "name"}, fields)
	assert.Equal(t, 3, result.Stats.LayerCount)
	assert.Equal(t, 1, result.Stats.GroupCount)
}

// TestAnalyze_Structural tests walker signals becoming issues.
func TestAnalyze_Structural(t *testing.T) {
	t.Run("repeated node", func(t *testing.T) {
		doc := parse(t, testutil.WebMap([]map[string]any{tidyLayer("a", "A")}))
		doc.Layers = append(doc.Layers, doc.Layers[0])

		found := New().Analyze(context.Background(), doc).ByCategory()[issues.CategoryStructural]
		require.Len(t, found, 1)
		assert.Equal(t, "$.operationalLayers[1]", found[0].Path)
		assert.Contains(t, found[0].Message, "more than once")
	})

	t.Run("depth", func(t *testing.T) {
		doc := parse(t, testutil.WebMap([]map[string]any{
			testutil.Group("g1", "Outer", testutil.Group("g2", "Inner", tidyLayer("deep", "Deep"))),
		}))
		found := New(WithDepthWarning(1)).Analyze(context.Background(), doc).ByCategory()[issues.CategoryStructural]
		require.Len(t, found, 1)
		assert.Equal(t, "deep", found[0].LayerID)
		assert.Equal(t, SeverityWarning, found[0].Severity)
		assert.Contains(t, found[0].Message, "1 levels")
	})
}

// TestAnalyze_NilDocument tests the empty result.
func TestAnalyze_NilDocument(t *testing.T) {
	result := New(WithAsOf(asOf)).Analyze(context.Background(), nil)
	require.NotNil(t, result)
	assert.Empty(t, result.Issues)
	assert.Equal(t, asOf, result.AnalyzedAt)
}

// TestAnalyze_Span tests that analysis is traced.
func TestAnalyze_Span(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	New().Analyze(context.Background(), parse(t, testutil.ProjectsWebMap(), webmap.WithDocumentID("wm1")))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "checks.Analyze", spans[0].Name())
}

// TestAnalysisResult_Export tests the tabular rows and summary.
func TestAnalysisResult_Export(t *testing.T) {
	doc := parse(t, testutil.WebMap([]map[string]any{
		testutil.FeatureLayer("a", "Parcels", testutil.Field("parcel_id", "Parcel ID", "esriFieldTypeString")),
	}), webmap.WithDocumentID("wm1"))
	result := New().Analyze(context.Background(), doc)

	rows := result.Rows()
	require.Len(t, rows, len(result.Issues))
	for _, row := range rows {
		assert.Len(t, row, len(CSVHeader))
		assert.Equal(t, "wm1", row[0])
	}
	assert.Equal(t, "2 issues (0 critical, 1 warnings, 1 info)", result.Summary())
}
