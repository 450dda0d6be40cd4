package forms

import (
	"fmt"
	"slices"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/walker"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
	"go.yaml.in/yaml/v4"
)

// LayerUpdater applies a different field update to each configured layer in
// a single pass over the document.
type LayerUpdater struct {
	// Updates maps a layer ID or service URL to the update for that layer.
	// IDs are matched first.
	Updates map[string]FieldUpdate
	Mode    mutation.Mode
	Logger  webmap.Logger
}

// NewLayerUpdater creates a LayerUpdater.
func NewLayerUpdater(updates map[string]FieldUpdate, mode mutation.Mode) *LayerUpdater {
	return &LayerUpdater{Updates: updates, Mode: mode}
}

// ParseLayerUpdates decodes a YAML or JSON object keyed by layer ID or URL:
//
//	active:
//	  field_name: project_number
//	  expression_name: expr/set-project-number
//	  expression_value: "123456"
//	  group_name: Project Info
func ParseLayerUpdates(data []byte) (map[string]FieldUpdate, error) {
	var updates map[string]FieldUpdate
	if err := yaml.Unmarshal(data, &updates); err != nil {
		return nil, &wmerrors.ParseError{Message: "invalid layer updates", Cause: err}
	}
	return updates, nil
}

// Validate checks that at least one layer is configured and that every
// update names a field and an expression.
func (lu *LayerUpdater) Validate() error {
	if len(lu.Updates) == 0 {
		return &wmerrors.ValidationError{Field: "layers", Message: "at least one layer update is required"}
	}
	for _, key := range lu.keys() {
		u := Updater{FieldUpdate: lu.Updates[key]}
		if err := u.Validate(); err != nil {
			return fmt.Errorf("layer %q: %w", key, err)
		}
	}
	return nil
}

func (lu *LayerUpdater) keys() []string {
	keys := make([]string, 0, len(lu.Updates))
	for k := range lu.Updates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// updateFor returns the update configured for node and the key it matched.
func (lu *LayerUpdater) updateFor(node *webmap.LayerNode) (FieldUpdate, string, bool) {
	if u, ok := lu.Updates[node.ID]; ok && node.ID != "" {
		return u, node.ID, true
	}
	if u, ok := lu.Updates[node.URL]; ok && node.URL != "" {
		return u, node.URL, true
	}
	return FieldUpdate{}, "", false
}

// Update applies each layer's update in pre-order. Layers without an update
// produce no outcome; a configured key that matches no feature layer or table
// is reported once with ReasonLayerNotFound. When at least one layer changes,
// the value expressions of the changed layers and the system expressions are
// added to the document.
func (lu *LayerUpdater) Update(doc *webmap.Document) (*mutation.Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("forms: nil document")
	}
	if err := lu.Validate(); err != nil {
		return nil, fmt.Errorf("forms: %w", err)
	}
	log := webmap.OrNop(lu.Logger).With("webmap", doc.ID, "layers", len(lu.Updates), "mode", lu.Mode.String())

	result := mutation.NewResult(lu.Mode)
	cache := fieldindex.NewCache()
	matched := make(map[string]bool, len(lu.Updates))
	var changed []FieldUpdate
	err := walker.WalkDocument(doc,
		walker.WithLayerHandler(func(wc *walker.WalkContext, node *webmap.LayerNode) walker.Action {
			if !node.IsQueryable() {
				return walker.Continue
			}
			fu, key, ok := lu.updateFor(node)
			if !ok {
				return walker.Continue
			}
			matched[key] = true
			u := &Updater{FieldUpdate: fu, Mode: lu.Mode}
			out := u.UpdateField(node, cache.For(node))
			log.Debug("form update decision",
				"layer", node.ID,
				"path", wc.JSONPath,
				"field", fu.FieldName,
				"applied", out.Applied,
				"reason", out.SkippedReason)
			if out.Applied {
				changed = append(changed, fu)
			}
			result.Add(out)
			return walker.Continue
		}),
		walker.WithStructuralHandler(func(reason string, node *webmap.LayerNode, path string) {
			log.Warn("structural problem in layer tree", "reason", reason, "layer", node.ID, "path", path)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("forms: %w", err)
	}

	for _, key := range lu.keys() {
		if matched[key] {
			continue
		}
		log.Warn("configured layer not found", "layer", key)
		result.Add(mutation.Outcome{
			LayerID:       key,
			Field:         lu.Updates[key].FieldName,
			SkippedReason: mutation.ReasonLayerNotFound,
		})
	}

	if result.Changed() {
		for _, fu := range changed {
			if addValueExpression(doc, fu.ExpressionName, fu.ExpressionValue) {
				log.Info("added expression", "name", fu.ExpressionName)
			}
		}
		if added := doc.EnsureSystemExpressions(); len(added) > 0 {
			log.Info("added system expressions", "names", added)
		}
	}
	log.Info("per-layer form update complete",
		"outcomes", len(result.Outcomes),
		"applied", len(result.Applied()),
		"success", result.Success)
	return result, nil
}

// Mutate runs the per-layer update in mode over doc.
func (lu *LayerUpdater) Mutate(doc *webmap.Document, mode mutation.Mode) (*mutation.Result, error) {
	cp := *lu
	cp.Mode = mode
	return cp.Update(doc)
}
