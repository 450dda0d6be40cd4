package checks

import (
	"testing"
	"time"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/internal/issues"
	"github.com/erraggy/wmtools/webmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func featureNode(id, title string, fields ...webmap.FieldInfo) *webmap.LayerNode {
	return &webmap.LayerNode{ID: id, Title: title, Kind: webmap.KindFeatureLayer, Fields: fields}
}

func targetFor(n *webmap.LayerNode) Target {
	return Target{Node: n, Fields: fieldindex.New(n.Fields), Path: "$.operationalLayers[0]"}
}

func categories(found []Issue) []Category {
	out := make([]Category, 0, len(found))
	for _, i := range found {
		out = append(out, i.Category)
	}
	return out
}

// TestRecordImpact tests the impact bands.
func TestRecordImpact(t *testing.T) {
	tests := []struct {
		n    int
		want Impact
	}{
		{0, ImpactLow},
		{4999, ImpactLow},
		{5000, ImpactMedium},
		{10000, ImpactMedium},
		{10001, ImpactHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecordImpact(tt.n), "records=%d", tt.n)
	}
}

// TestRecordCount tests threshold gating and band severities.
func TestRecordCount(t *testing.T) {
	tests := []struct {
		name      string
		service   *webmap.ServiceInfo
		threshold int
		want      []Severity
	}{
		{"no service", nil, DefaultRecordCountThreshold, nil},
		{"no count", &webmap.ServiceInfo{}, DefaultRecordCountThreshold, nil},
		{"at default threshold", &webmap.ServiceInfo{RecordCount: intPtr(10000)}, DefaultRecordCountThreshold, nil},
		{"above default threshold", &webmap.ServiceInfo{RecordCount: intPtr(12000)}, DefaultRecordCountThreshold, []Severity{SeverityCritical}},
		{"low band above lowered threshold", &webmap.ServiceInfo{RecordCount: intPtr(3000)}, 1000, []Severity{SeverityInfo}},
		{"medium band above lowered threshold", &webmap.ServiceInfo{RecordCount: intPtr(6000)}, 1000, []Severity{SeverityWarning}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := featureNode("a", "A")
			n.Service = tt.service
			found := RecordCount(targetFor(n), Thresholds{RecordCount: tt.threshold})
			require.Len(t, found, len(tt.want))
			for i, sev := range tt.want {
				assert.Equal(t, sev, found[i].Severity)
				assert.Equal(t, issues.CategoryRecordCount, found[i].Category)
			}
		})
	}

	n := featureNode("a", "A")
	n.Service = &webmap.ServiceInfo{RecordCount: intPtr(12345)}
	found := RecordCount(targetFor(n), DefaultThresholds())
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "12,345")
	assert.Contains(t, found[0].Message, "high impact")
	assert.Equal(t, "a", found[0].LayerID)
	assert.Equal(t, "$.operationalLayers[0]", found[0].Path)
}

// TestLayerAge tests the fixed two-year limit.
func TestLayerAge(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		created *time.Time
		want    int
	}{
		{"unknown", nil, 0},
		{"recent", timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), 0},
		{"exactly two years", timePtr(asOf.Add(-MaxLayerAge)), 0},
		{"old", timePtr(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := featureNode("a", "A")
			n.CreatedDate = tt.created
			found := LayerAge(targetFor(n), Thresholds{AsOf: asOf})
			require.Len(t, found, tt.want)
			if tt.want > 0 {
				assert.Equal(t, SeverityInfo, found[0].Severity)
				assert.Contains(t, found[0].Message, "2023-06-01")
			}
		})
	}
}

// TestReservedNames tests case-insensitive detection, one issue per field.
func TestReservedNames(t *testing.T) {
	n := featureNode("a", "A",
		webmap.FieldInfo{Name: "OBJECTID", Type: webmap.FieldTypeOID},
		webmap.FieldInfo{Name: "Select"},
		webmap.FieldInfo{Name: "select"},
		webmap.FieldInfo{Name: "selection"},
		webmap.FieldInfo{Name: "owner"},
	)
	found := ReservedNames(targetFor(n), DefaultThresholds())
	require.Len(t, found, 3)
	assert.Equal(t, "OBJECTID", found[0].Field)
	assert.Equal(t, "Select", found[1].Field)
	assert.Equal(t, "select", found[2].Field)
	for _, i := range found {
		assert.Equal(t, SeverityWarning, i.Severity)
		assert.Equal(t, issues.CategoryReservedName, i.Category)
	}
	assert.Equal(t, found[0].Severity, found[1].Severity)
	assert.Equal(t, found[0].Recommendation, found[1].Recommendation)
}

// TestFieldAliases tests alias findings carry suggestions.
func TestFieldAliases(t *testing.T) {
	n := featureNode("a", "A",
		webmap.FieldInfo{Name: "GlobalID", Type: webmap.FieldTypeGlobalID},
		webmap.FieldInfo{Name: "owner_nm", Alias: "owner_nm"},
		webmap.FieldInfo{Name: "fld_type", Alias: "Type"},
		webmap.FieldInfo{Name: "parcel_id", Alias: "Parcel ID"},
	)
	found := FieldAliases(targetFor(n), DefaultThresholds())
	require.Len(t, found, 2)
	assert.Equal(t, "owner_nm", found[0].Field)
	assert.Equal(t, fieldindex.SuggestAlias("owner_nm"), found[0].Suggestion)
	assert.Contains(t, found[0].Message, "no descriptive alias")
	assert.Equal(t, "fld_type", found[1].Field)
	assert.Equal(t, "Field Type", found[1].Suggestion)
	assert.Contains(t, found[1].Message, "cryptic")
	for _, i := range found {
		assert.Equal(t, SeverityInfo, i.Severity)
	}
}

// TestDrawingOptimization tests advanced query and tile caching detection.
func TestDrawingOptimization(t *testing.T) {
	full := webmap.ServiceInfo{SupportsStatistics: true, SupportsOrderBy: true, SupportsPagination: true}
	tests := []struct {
		name    string
		service *webmap.ServiceInfo
		want    int
	}{
		{"no service", nil, 0},
		{"optimized", &full, 0},
		{"missing pagination", &webmap.ServiceInfo{SupportsStatistics: true, SupportsOrderBy: true}, 1},
		{"tile caching disabled", &webmap.ServiceInfo{SupportsStatistics: true, SupportsOrderBy: true, SupportsPagination: true, TileMaxRecordCount: intPtr(0)}, 1},
		{"tile caching enabled", &webmap.ServiceInfo{SupportsStatistics: true, SupportsOrderBy: true, SupportsPagination: true, TileMaxRecordCount: intPtr(4000)}, 0},
		{"both", &webmap.ServiceInfo{TileMaxRecordCount: intPtr(0)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := featureNode("a", "A")
			n.Service = tt.service
			found := DrawingOptimization(targetFor(n), DefaultThresholds())
			assert.Len(t, found, tt.want)
			for _, i := range found {
				assert.Equal(t, SeverityInfo, i.Severity)
			}
		})
	}
}

// TestQueryCapability tests the critical query check.
func TestQueryCapability(t *testing.T) {
	n := featureNode("a", "A")
	assert.Empty(t, QueryCapability(targetFor(n), DefaultThresholds()))

	n.Service = &webmap.ServiceInfo{Capabilities: "Query,Extract"}
	assert.Empty(t, QueryCapability(targetFor(n), DefaultThresholds()))

	n.Service = &webmap.ServiceInfo{Capabilities: "Create,Update"}
	found := QueryCapability(targetFor(n), DefaultThresholds())
	require.Len(t, found, 1)
	assert.Equal(t, SeverityCritical, found[0].Severity)
}

// TestEditingCapability tests keyword matching against capabilities.
func TestEditingCapability(t *testing.T) {
	tests := []struct {
		title string
		caps  string
		want  int
	}{
		{"Hydrant Inspections", "Query", 1},
		{"Field Survey Points", "Query,Create", 0},
		{"Data Entry", "Query,Editing", 0},
		{"Parcels", "Query", 0},
		{"SURVEY", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			n := featureNode("a", tt.title)
			n.Service = &webmap.ServiceInfo{Capabilities: tt.caps}
			found := EditingCapability(targetFor(n), DefaultThresholds())
			assert.Len(t, found, tt.want)
		})
	}

	assert.Empty(t, EditingCapability(targetFor(featureNode("a", "Survey")), DefaultThresholds()))
}

// TestVisibilityRange tests unbounded and broad ranges.
func TestVisibilityRange(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		want     []Severity
	}{
		{"unbounded", 0, 0, []Severity{SeverityInfo}},
		{"reasonable", 50000, 1000, nil},
		{"very broad", 5000000, 1000, []Severity{SeverityWarning}},
		{"only min", 50000, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := featureNode("a", "A")
			n.MinScale, n.MaxScale = tt.min, tt.max
			found := VisibilityRange(targetFor(n), DefaultThresholds())
			require.Len(t, found, len(tt.want))
			for i, sev := range tt.want {
				assert.Equal(t, sev, found[i].Severity)
			}
		})
	}

	table := &webmap.LayerNode{ID: "t", Kind: webmap.KindTable}
	assert.Empty(t, VisibilityRange(targetFor(table), DefaultThresholds()))
}

// TestPopupConfiguration tests the popup rules.
func TestPopupConfiguration(t *testing.T) {
	manyFields := make([]webmap.PopupField, 0, 16)
	for range 16 {
		manyFields = append(manyFields, webmap.PopupField{FieldName: "f", Visible: true})
	}
	tests := []struct {
		name  string
		popup *webmap.PopupConfig
		want  []Severity
	}{
		{"none", nil, []Severity{SeverityWarning}},
		{"good", &webmap.PopupConfig{Title: "{name}", FieldInfos: []webmap.PopupField{{FieldName: "name", Visible: true}}}, nil},
		{"no title", &webmap.PopupConfig{FieldInfos: []webmap.PopupField{{FieldName: "name", Visible: true}}}, []Severity{SeverityInfo}},
		{"no fields", &webmap.PopupConfig{Title: "x"}, []Severity{SeverityInfo}},
		{"no title and no fields", &webmap.PopupConfig{}, []Severity{SeverityInfo, SeverityInfo}},
		{"too many fields", &webmap.PopupConfig{Title: "x", FieldInfos: manyFields}, []Severity{SeverityWarning}},
		{"many hidden fields", &webmap.PopupConfig{Title: "x", FieldInfos: append(manyFields[:15:15], webmap.PopupField{FieldName: "g"})}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := featureNode("a", "A")
			n.Popup = tt.popup
			found := PopupConfiguration(targetFor(n), DefaultThresholds())
			require.Len(t, found, len(tt.want))
			for i, sev := range tt.want {
				assert.Equal(t, sev, found[i].Severity)
				assert.Equal(t, issues.CategoryPopup, found[i].Category)
			}
		})
	}
}

// TestDefaultChecks tests that every layer check has a distinct category.
func TestDefaultChecks(t *testing.T) {
	seen := map[Category]bool{}
	for _, c := range DefaultChecks() {
		require.NotNil(t, c.Run)
		assert.False(t, seen[c.Category], "duplicate %s", c.Category)
		seen[c.Category] = true
	}
	assert.Len(t, seen, 9)
	assert.Len(t, DefaultDocumentChecks(), 1)
}
