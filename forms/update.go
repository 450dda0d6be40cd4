package forms

import (
	"fmt"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/walker"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
)

// FieldUpdate describes the field element to add or update.
type FieldUpdate struct {
	// FieldName is the layer field the element edits. Required.
	FieldName string `json:"field_name" yaml:"field_name"`
	// ExpressionName is the value expression, e.g. "expr/set-project-number". Required.
	ExpressionName string `json:"expression_name" yaml:"expression_name"`
	// ExpressionValue is the constant the expression returns when it has to
	// be created. A random placeholder is used when empty.
	ExpressionValue string `json:"expression_value,omitempty" yaml:"expression_value,omitempty"`
	// GroupName is the group the element belongs in. Defaults to "Metadata".
	GroupName string `json:"group_name,omitempty" yaml:"group_name,omitempty"`
	// Label overrides the element label. New elements default to the
	// humanized field name; existing labels are kept unless Label is set.
	Label string `json:"field_label,omitempty" yaml:"field_label,omitempty"`
	// Editable selects the system true or false editable expression.
	Editable bool `json:"editable,omitempty" yaml:"editable,omitempty"`
}

// Updater adds or updates a field element on every layer carrying the field.
type Updater struct {
	FieldUpdate
	Mode   mutation.Mode
	Logger webmap.Logger
}

// NewUpdater creates an Updater.
func NewUpdater(u FieldUpdate, mode mutation.Mode) *Updater {
	return &Updater{FieldUpdate: u, Mode: mode}
}

// Validate checks the required fields.
func (u *Updater) Validate() error {
	if u.FieldName == "" {
		return &wmerrors.ValidationError{Field: "field", Message: "field name is required"}
	}
	if u.ExpressionName == "" {
		return &wmerrors.ValidationError{Field: "expression_name", Message: "expression name is required"}
	}
	return nil
}

func (u *Updater) group() string {
	if u.GroupName == "" {
		return webmap.DefaultGroupName
	}
	return u.GroupName
}

func (u *Updater) editableExpression() string {
	if u.Editable {
		return webmap.ExprSystemTrue
	}
	return webmap.ExprSystemFalse
}

// newElement builds the default field element for fieldName.
func (u *Updater) newElement(fieldName string) *webmap.FormElement {
	label := u.Label
	if label == "" {
		label = fieldindex.Humanize(fieldName)
	}
	return &webmap.FormElement{
		Type:               webmap.ElementField,
		FieldName:          fieldName,
		Label:              label,
		ValueExpression:    u.ExpressionName,
		EditableExpression: u.editableExpression(),
		Extra: map[string]any{
			"inputType": map[string]any{
				"type":      "text-box",
				"maxLength": 255,
				"minLength": 0,
			},
		},
	}
}

// UpdateField adds or updates the field element on one node. In Apply mode
// the node's form is written back; the document's expressions are handled
// by Update.
func (u *Updater) UpdateField(node *webmap.LayerNode, idx *fieldindex.Index) mutation.Outcome {
	out := mutation.Outcome{
		LayerID: node.ID,
		Title:   node.Title,
		Field:   u.FieldName,
	}
	if !node.IsQueryable() {
		out.SkippedReason = mutation.ReasonNotQueryable
		return out
	}
	field, ok := idx.Get(u.FieldName)
	if !ok {
		out.SkippedReason = mutation.ReasonFieldNotPresent
		return out
	}
	out.Eligible = true
	out.NewValue = u.ExpressionName

	form, detail := workingForm(node)
	elem, parent := form.FindField(field.Name)
	if elem == nil {
		elem = u.newElement(field.Name)
		placeElement(form, elem, []string{u.group()})
	} else {
		out.PreviousValue = elem.ValueExpression
		if parent == nil || parent.Label != u.group() {
			form.RemoveField(field.Name)
			g, _ := form.EnsureGroup(u.group())
			g.Elements = append(g.Elements, elem)
		}
		elem.ValueExpression = u.ExpressionName
		elem.EditableExpression = u.editableExpression()
		if u.Label != "" {
			elem.Label = u.Label
		}
	}

	switch {
	case !needsWrite(node, form):
		out.SkippedReason = mutation.ReasonUnchanged
		return out
	case u.Mode.IsDryRun():
		out.SkippedReason = mutation.ReasonDryRun
	default:
		node.SetForm(form)
		out.Applied = true
	}
	out.Detail = detail
	return out
}

// Update applies the field update to every feature layer and table of doc.
// When at least one layer changes, the value expression and the system
// expressions are added to the document.
func (u *Updater) Update(doc *webmap.Document) (*mutation.Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("forms: nil document")
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("forms: %w", err)
	}
	log := webmap.OrNop(u.Logger).With("webmap", doc.ID, "field", u.FieldName, "mode", u.Mode.String())

	result := mutation.NewResult(u.Mode)
	cache := fieldindex.NewCache()
	err := walker.WalkDocument(doc,
		walker.WithLayerHandler(func(wc *walker.WalkContext, node *webmap.LayerNode) walker.Action {
			if !node.IsQueryable() {
				return walker.Continue
			}
			out := u.UpdateField(node, cache.For(node))
			log.Debug("form update decision",
				"layer", node.ID,
				"path", wc.JSONPath,
				"applied", out.Applied,
				"reason", out.SkippedReason)
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

	if result.Changed() {
		if addValueExpression(doc, u.ExpressionName, u.ExpressionValue) {
			log.Info("added expression", "name", u.ExpressionName)
		}
		if added := doc.EnsureSystemExpressions(); len(added) > 0 {
			log.Info("added system expressions", "names", added)
		}
	}
	log.Info("form update complete",
		"outcomes", len(result.Outcomes),
		"applied", len(result.Applied()),
		"success", result.Success)
	return result, nil
}

// Mutate runs the update in mode over doc.
func (u *Updater) Mutate(doc *webmap.Document, mode mutation.Mode) (*mutation.Result, error) {
	cp := *u
	cp.Mode = mode
	return cp.Update(doc)
}
