// Package testutil provides web map fixtures for unit tests.
//
// Builders return fresh maps on every call so tests can mutate them freely.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.yaml.in/yaml/v4"
)

// Field builds a field object in the current {name, type, alias} representation.
// An empty alias is omitted.
func Field(name, alias, fieldType string) map[string]any {
	f := map[string]any{"name": name, "type": fieldType}
	if alias != "" {
		f["alias"] = alias
	}
	return f
}

// FeatureLayer builds an ArcGISFeatureLayer. Each field is either a plain
// name string (legacy representation) or a map from [Field].
func FeatureLayer(id, title string, fields ...any) map[string]any {
	return map[string]any{
		"id":        id,
		"title":     title,
		"layerType": "ArcGISFeatureLayer",
		"url":       "https://services.example.com/arcgis/rest/services/" + id + "/FeatureServer/0",
		"layerDefinition": map[string]any{
			"definitionExpression": "",
			"fields":               fieldList(fields),
		},
	}
}

// Table builds a table entry for the web map's tables array.
func Table(id, title string, fields ...any) map[string]any {
	return map[string]any{
		"id":    id,
		"title": title,
		"url":   "https://services.example.com/arcgis/rest/services/" + id + "/FeatureServer/1",
		"layerDefinition": map[string]any{
			"fields": fieldList(fields),
		},
	}
}

// Group builds a GroupLayer containing children.
func Group(id, title string, children ...map[string]any) map[string]any {
	layers := make([]any, 0, len(children))
	for _, c := range children {
		layers = append(layers, c)
	}
	return map[string]any{
		"id":        id,
		"title":     title,
		"layerType": "GroupLayer",
		"layers":    layers,
	}
}

// TileLayer builds a non-queryable tiled layer.
func TileLayer(id, title string) map[string]any {
	return map[string]any{
		"id":        id,
		"title":     title,
		"layerType": "ArcGISTiledMapServiceLayer",
		"url":       "https://tiles.example.com/arcgis/rest/services/" + id + "/MapServer",
	}
}

// WebMap builds a web map document from operational layers and tables.
func WebMap(layers []map[string]any, tables ...map[string]any) map[string]any {
	ops := make([]any, 0, len(layers))
	for _, l := range layers {
		ops = append(ops, l)
	}
	doc := map[string]any{
		"operationalLayers": ops,
		"version":           "2.31",
	}
	if len(tables) > 0 {
		tbls := make([]any, 0, len(tables))
		for _, t := range tables {
			tbls = append(tbls, t)
		}
		doc["tables"] = tbls
	}
	return doc
}

// WithPopup sets a popupInfo with the given title and number of visible fields.
func WithPopup(layer map[string]any, title string, visibleFields int) map[string]any {
	infos := make([]any, 0, visibleFields)
	for i := range visibleFields {
		infos = append(infos, map[string]any{
			"fieldName": "field_" + string(rune('a'+i%26)),
			"visible":   true,
		})
	}
	popup := map[string]any{"fieldInfos": infos}
	if title != "" {
		popup["title"] = title
	}
	layer["popupInfo"] = popup
	return layer
}

// WithForm sets a formInfo with the given form elements.
func WithForm(layer map[string]any, elements ...map[string]any) map[string]any {
	list := make([]any, 0, len(elements))
	for _, e := range elements {
		list = append(list, e)
	}
	layer["formInfo"] = map[string]any{"formElements": list}
	return layer
}

// FieldElement builds a field form element.
func FieldElement(fieldName, label, valueExpression string) map[string]any {
	e := map[string]any{
		"type":               "field",
		"fieldName":          fieldName,
		"label":              label,
		"editableExpression": "expr/system/false",
		"inputType":          map[string]any{"type": "text-box", "maxLength": 255, "minLength": 0},
	}
	if valueExpression != "" {
		e["valueExpression"] = valueExpression
	}
	return e
}

// GroupElement builds a group form element.
func GroupElement(label string, elements ...map[string]any) map[string]any {
	list := make([]any, 0, len(elements))
	for _, e := range elements {
		list = append(list, e)
	}
	return map[string]any{"type": "group", "label": label, "elements": list}
}

// ProjectsWebMap is the canonical two-layer group fixture: "active" carries
// project_number, "archive" does not, plus a tiled basemap-like layer.
func ProjectsWebMap() map[string]any {
	return WebMap([]map[string]any{
		Group("projects", "Projects",
			FeatureLayer("active", "Active Projects", "project_number", "status"),
			FeatureLayer("archive", "Archive", "name"),
		),
		TileLayer("hillshade", "Hillshade"),
	})
}

// MustJSON marshals v or fails the test.
func MustJSON(t testing.TB, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal fixture to JSON: %v", err)
	}
	return data
}

// WriteTempJSON marshals a document to JSON and writes it to dir/name.
// When dir is empty a fresh t.TempDir() is used. Returns the file path.
func WriteTempJSON(t testing.TB, dir, name string, doc any) string {
	t.Helper()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal document to JSON: %v", err)
	}
	return writeTemp(t, dir, name, data)
}

// WriteTempYAML marshals a document to YAML and writes it to dir/name.
func WriteTempYAML(t testing.TB, dir, name string, doc any) string {
	t.Helper()
	data, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal document to YAML: %v", err)
	}
	return writeTemp(t, dir, name, data)
}

func writeTemp(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write temporary file: %v", err)
	}
	return path
}

func fieldList(fields []any) []any {
	list := make([]any, 0, len(fields))
	list = append(list, fields...)
	return list
}
