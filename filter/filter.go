package filter

import (
	"fmt"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/walker"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
)

// Patcher replaces definition expressions on layers that carry a target field.
type Patcher struct {
	// TargetField is the field a layer must have to be patched. Matching is
	// case-insensitive.
	TargetField string
	// Expression is written as the layer's definition expression.
	Expression string
	// Mode selects between writing and reporting.
	Mode mutation.Mode
	// Logger receives per-layer decisions. Defaults to a no-op logger.
	Logger webmap.Logger
}

// New creates a Patcher.
func New(targetField, expression string, mode mutation.Mode) *Patcher {
	return &Patcher{
		TargetField: targetField,
		Expression:  expression,
		Mode:        mode,
	}
}

// Validate checks that the patcher has a target field.
func (p *Patcher) Validate() error {
	if p.TargetField == "" {
		return &wmerrors.ValidationError{Field: "field", Message: "target field is required"}
	}
	return nil
}

// ApplyNode patches a single node using idx for the field lookup.
func (p *Patcher) ApplyNode(node *webmap.LayerNode, idx *fieldindex.Index) mutation.Outcome {
	out := mutation.Outcome{
		LayerID:       node.ID,
		Title:         node.Title,
		Field:         p.TargetField,
		PreviousValue: node.DefinitionExpression,
	}
	if !node.IsQueryable() {
		out.SkippedReason = mutation.ReasonNotQueryable
		return out
	}
	if !idx.HasField(p.TargetField) {
		out.SkippedReason = mutation.ReasonFieldNotPresent
		return out
	}

	out.Eligible = true
	out.NewValue = p.Expression
	if p.Mode.IsDryRun() {
		out.SkippedReason = mutation.ReasonDryRun
		return out
	}
	// Apply overwrites unconditionally, even when the expression matches.
	if node.DefinitionExpression == p.Expression {
		out.Unchanged = true
		out.Detail = mutation.DetailUnchanged
	}
	node.SetDefinitionExpression(p.Expression)
	out.Applied = true
	return out
}

// Patch applies the patcher to every feature layer and table of doc, in
// pre-order. Groups and other layer kinds produce no outcome.
func (p *Patcher) Patch(doc *webmap.Document) (*mutation.Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("filter: nil document")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	log := webmap.OrNop(p.Logger).With("webmap", doc.ID, "field", p.TargetField, "mode", p.Mode.String())

	result := mutation.NewResult(p.Mode)
	cache := fieldindex.NewCache()
	err := walker.WalkDocument(doc,
		walker.WithLayerHandler(func(wc *walker.WalkContext, node *webmap.LayerNode) walker.Action {
			if !node.IsQueryable() {
				return walker.Continue
			}
			out := p.ApplyNode(node, cache.For(node))
			log.Debug("filter decision",
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
		return nil, fmt.Errorf("filter: %w", err)
	}
	log.Info("filter patch complete",
		"outcomes", len(result.Outcomes),
		"applied", len(result.Applied()),
		"success", result.Success)
	return result, nil
}

// Mutate runs the patcher in mode over doc.
func (p *Patcher) Mutate(doc *webmap.Document, mode mutation.Mode) (*mutation.Result, error) {
	cp := *p
	cp.Mode = mode
	return cp.Patch(doc)
}
