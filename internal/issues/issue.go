// Package issues provides the issue type emitted by web map checks.
package issues

import (
	"fmt"

	"github.com/erraggy/wmtools/internal/severity"
)

// Category identifies which check produced an issue.
type Category string

// Check categories. Structural and editing issues come from the tree walk and
// the data-collection capability check rather than the core check table.
const (
	CategoryRecordCount  Category = "record-count"
	CategoryLayerAge     Category = "layer-age"
	CategoryReservedName Category = "reserved-keyword"
	CategoryLayerCount   Category = "layer-count"
	CategoryDrawing      Category = "drawing-optimization"
	CategoryQuery        Category = "query-capability"
	CategoryVisibility   Category = "visibility-range"
	CategoryPopup        Category = "popup-configuration"
	CategoryFieldAlias   Category = "field-alias"
	CategoryEditing      Category = "editing-capability"
	CategoryStructural   Category = "structural"
)

// AllCategories lists every category in report order.
func AllCategories() []Category {
	return []Category{
		CategoryStructural,
		CategoryLayerCount,
		CategoryQuery,
		CategoryEditing,
		CategoryRecordCount,
		CategoryDrawing,
		CategoryVisibility,
		CategoryPopup,
		CategoryReservedName,
		CategoryFieldAlias,
		CategoryLayerAge,
	}
}

// Issue represents a single finding about a web map or one of its layers.
// Issues are values and are never modified after a check returns them.
type Issue struct {
	// Category is the check that produced the issue
	Category Category `json:"category" yaml:"category"`
	// Severity indicates the severity level of the issue
	Severity severity.Severity `json:"severity" yaml:"severity"`
	// LayerID is the layer the issue concerns; empty for document-level issues
	LayerID string `json:"layer_id,omitempty" yaml:"layer_id,omitempty"`
	// LayerTitle is the layer's display title
	LayerTitle string `json:"layer_title,omitempty" yaml:"layer_title,omitempty"`
	// Path is the JSON path of the layer (e.g., "$.operationalLayers[2].layers[0]")
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Field is the field name for field-level issues
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
	// Message is a human-readable description of the issue
	Message string `json:"message" yaml:"message"`
	// Recommendation describes how to resolve the issue
	Recommendation string `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	// Suggestion is a concrete replacement value, such as a suggested alias
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// String returns a formatted string representation of the issue.
// Uses different symbols based on severity level:
// - "✗" for Critical severity
// - "⚠" for Warning severity
// - "ℹ" for Info severity
func (i Issue) String() string {
	var symbol string
	switch i.Severity {
	case severity.SeverityCritical:
		symbol = "✗"
	case severity.SeverityWarning:
		symbol = "⚠"
	case severity.SeverityInfo:
		symbol = "ℹ"
	default:
		symbol = "?"
	}

	result := fmt.Sprintf("%s [%s] %s: %s", symbol, i.Category, i.Location(), i.Message)
	if i.Recommendation != "" {
		result += fmt.Sprintf("\n    Recommendation: %s", i.Recommendation)
	}
	if i.Suggestion != "" {
		result += fmt.Sprintf("\n    Suggestion: %s", i.Suggestion)
	}
	return result
}

// Location returns the most specific human-readable location of the issue:
// "title (id).field", "title (id)", the JSON path, or "document".
func (i Issue) Location() string {
	var loc string
	switch {
	case i.LayerTitle != "" && i.LayerID != "":
		loc = fmt.Sprintf("%s (%s)", i.LayerTitle, i.LayerID)
	case i.LayerID != "":
		loc = i.LayerID
	case i.Path != "":
		loc = i.Path
	default:
		return "document"
	}
	if i.Field != "" {
		loc += "." + i.Field
	}
	return loc
}

// IsDocumentLevel reports whether the issue concerns the whole web map.
func (i Issue) IsDocumentLevel() bool {
	return i.LayerID == "" && i.Path == ""
}
