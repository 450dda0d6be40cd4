package forms

import (
	"errors"
	"testing"

	"github.com/erraggy/wmtools/internal/testutil"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inspectionsURL = "https://services.example.com/arcgis/rest/services/inspections/FeatureServer/0"

func layerUpdatesDoc(t *testing.T) *webmap.Document {
	t.Helper()
	return parse(t, testutil.WebMap([]map[string]any{
		testutil.Group("projects", "Projects",
			testutil.FeatureLayer("active", "Active Projects", "project_number", "status"),
			testutil.FeatureLayer("archive", "Archive", "status"),
		),
		testutil.FeatureLayer("inspections", "Inspections", "inspected_on"),
		testutil.FeatureLayer("parcels", "Parcels", "parcel_id"),
	}))
}

func layerUpdates() map[string]FieldUpdate {
	return map[string]FieldUpdate{
		"active": {
			FieldName:       "project_number",
			ExpressionName:  "expr/set-project-number",
			ExpressionValue: "123456",
			GroupName:       "Project Info",
		},
		"archive": {
			FieldName:       "status",
			ExpressionName:  "expr/set-status",
			ExpressionValue: "closed",
			Label:           "Project Status",
			Editable:        true,
		},
		inspectionsURL: {
			FieldName:      "project_number",
			ExpressionName: "expr/set-project-number",
		},
		"retired": {
			FieldName:      "status",
			ExpressionName: "expr/set-status",
		},
	}
}

// TestLayerUpdater_PerLayerSettings tests that each layer gets its own
// field, group, label and expression in one pass.
func TestLayerUpdater_PerLayerSettings(t *testing.T) {
	doc := layerUpdatesDoc(t)

	result, err := NewLayerUpdater(layerUpdates(), mutation.Apply).Update(doc)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Outcomes, 4)

	assert.Equal(t, "active", result.Outcomes[0].LayerID)
	assert.Equal(t, "project_number", result.Outcomes[0].Field)
	assert.True(t, result.Outcomes[0].Applied)

	assert.Equal(t, "archive", result.Outcomes[1].LayerID)
	assert.Equal(t, "status", result.Outcomes[1].Field)
	assert.True(t, result.Outcomes[1].Applied)

	assert.Equal(t, "inspections", result.Outcomes[2].LayerID)
	assert.Equal(t, mutation.ReasonFieldNotPresent, result.Outcomes[2].SkippedReason)

	assert.Equal(t, "retired", result.Outcomes[3].LayerID)
	assert.Equal(t, mutation.ReasonLayerNotFound, result.Outcomes[3].SkippedReason)

	elem, parent := doc.FindByID("active").Form().FindField("project_number")
	require.NotNil(t, elem)
	require.NotNil(t, parent)
	assert.Equal(t, "Project Info", parent.Label)
	assert.Equal(t, webmap.ExprSystemFalse, elem.EditableExpression)

	elem, parent = doc.FindByID("archive").Form().FindField("status")
	require.NotNil(t, elem)
	require.NotNil(t, parent)
	assert.Equal(t, webmap.DefaultGroupName, parent.Label)
	assert.Equal(t, "Project Status", elem.Label)
	assert.Equal(t, "expr/set-status", elem.ValueExpression)
	assert.Equal(t, webmap.ExprSystemTrue, elem.EditableExpression)

	assert.Nil(t, doc.FindByID("inspections").Form())
	assert.Nil(t, doc.FindByID("parcels").Form())

	info, ok := doc.ExpressionInfo("expr/set-project-number")
	require.True(t, ok)
	assert.Equal(t, `"123456"`, info.Expression)
	info, ok = doc.ExpressionInfo("expr/set-status")
	require.True(t, ok)
	assert.Equal(t, `"closed"`, info.Expression)
	assert.True(t, doc.HasExpressionInfo(webmap.ExprSystemTrue))
	assert.True(t, doc.HasExpressionInfo(webmap.ExprSystemFalse))
}

// TestLayerUpdater_MatchesURL tests that a layer can be keyed by its
// service URL.
func TestLayerUpdater_MatchesURL(t *testing.T) {
	doc := layerUpdatesDoc(t)
	updates := map[string]FieldUpdate{
		inspectionsURL: {FieldName: "inspected_on", ExpressionName: "expr/today"},
	}

	result, err := NewLayerUpdater(updates, mutation.Apply).Update(doc)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "inspections", result.Outcomes[0].LayerID)
	assert.True(t, result.Outcomes[0].Applied)
	assert.True(t, doc.HasExpressionInfo("expr/today"))
}

// TestLayerUpdater_DryRunAndIdempotence tests that a dry run leaves the
// document alone and that a repeated apply changes nothing.
func TestLayerUpdater_DryRunAndIdempotence(t *testing.T) {
	doc := layerUpdatesDoc(t)
	before, err := doc.MarshalJSON()
	require.NoError(t, err)

	dry, err := NewLayerUpdater(layerUpdates(), mutation.DryRun).Update(doc)
	require.NoError(t, err)
	assert.True(t, dry.Success)
	assert.False(t, dry.Changed())
	assert.Equal(t, mutation.ReasonDryRun, dry.Outcomes[0].SkippedReason)
	after, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))

	lu := NewLayerUpdater(layerUpdates(), mutation.Apply)
	_, err = lu.Update(doc)
	require.NoError(t, err)
	second, err := lu.Update(doc)
	require.NoError(t, err)
	assert.False(t, second.Changed())
	assert.Equal(t, mutation.ReasonUnchanged, second.Outcomes[0].SkippedReason)
	assert.Equal(t, mutation.ReasonUnchanged, second.Outcomes[1].SkippedReason)
}

// TestLayerUpdater_Validation tests configuration errors.
func TestLayerUpdater_Validation(t *testing.T) {
	doc := layerUpdatesDoc(t)
	tests := []struct {
		name    string
		updates map[string]FieldUpdate
		message string
	}{
		{"no layers", nil, "at least one layer"},
		{"missing field", map[string]FieldUpdate{"active": {ExpressionName: "expr/x"}}, `layer "active"`},
		{"missing expression", map[string]FieldUpdate{"active": {FieldName: "status"}}, "expression name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayerUpdater(tt.updates, mutation.Apply).Update(doc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, wmerrors.ErrValidation))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
	_, err := NewLayerUpdater(layerUpdates(), mutation.Apply).Update(nil)
	assert.Error(t, err)
}

// TestParseLayerUpdates tests decoding YAML and JSON layer updates.
func TestParseLayerUpdates(t *testing.T) {
	yamlDoc := []byte(`
active:
  field_name: project_number
  expression_name: expr/set-project-number
  expression_value: "123456"
  group_name: Project Info
archive:
  field_name: status
  expression_name: expr/set-status
  field_label: Project Status
  editable: true
`)
	updates, err := ParseLayerUpdates(yamlDoc)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, FieldUpdate{
		FieldName:       "project_number",
		ExpressionName:  "expr/set-project-number",
		ExpressionValue: "123456",
		GroupName:       "Project Info",
	}, updates["active"])
	assert.Equal(t, "Project Status", updates["archive"].Label)
	assert.True(t, updates["archive"].Editable)

	updates, err = ParseLayerUpdates([]byte(`{"active": {"field_name": "status", "expression_name": "expr/s"}}`))
	require.NoError(t, err)
	assert.Equal(t, "status", updates["active"].FieldName)

	_, err = ParseLayerUpdates([]byte("active: [unterminated"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, wmerrors.ErrParse))
}

// TestLayerUpdater_Mutate tests the mode override.
func TestLayerUpdater_Mutate(t *testing.T) {
	doc := layerUpdatesDoc(t)
	lu := NewLayerUpdater(layerUpdates(), mutation.DryRun)
	result, err := lu.Mutate(doc, mutation.Apply)
	require.NoError(t, err)
	assert.True(t, result.Changed())
	assert.Equal(t, mutation.DryRun, lu.Mode)
}
