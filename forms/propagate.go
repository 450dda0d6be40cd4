package forms

import (
	"fmt"
	"slices"
	"strings"

	"github.com/erraggy/wmtools/fieldindex"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/walker"
	"github.com/erraggy/wmtools/webmap"
	"github.com/erraggy/wmtools/wmerrors"
)

// Propagator copies field elements from a source layer's form to other layers.
type Propagator struct {
	// SourceTitle names the source layer. Titles compare case-sensitively and
	// the first match in pre-order wins.
	SourceTitle string
	// TargetTitles restricts the targets. Empty means every feature layer and
	// table other than the source.
	TargetTitles []string
	// FieldNames restricts the copied fields. Empty means every field element
	// of the source form.
	FieldNames []string
	Mode       mutation.Mode
	Logger     webmap.Logger
}

// sourceElement is a field element of the source form with the labels of its
// enclosing groups, outermost first (empty at the top level).
type sourceElement struct {
	elem   *webmap.FormElement
	groups []string
}

// Run resolves the source and targets by title and propagates.
func (p *Propagator) Run(doc *webmap.Document) (*mutation.Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("forms: nil document")
	}
	if p.SourceTitle == "" {
		return nil, fmt.Errorf("forms: %w", &wmerrors.ValidationError{Field: "source", Message: "source layer title is required"})
	}
	source := doc.FindByTitle(p.SourceTitle)
	if source == nil {
		return nil, fmt.Errorf("forms: %w", &wmerrors.NotFoundError{Kind: "layer", ID: p.SourceTitle})
	}

	var targets []*webmap.LayerNode
	for _, n := range walker.All(doc.Roots()) {
		if n == source || !n.IsQueryable() {
			continue
		}
		if len(p.TargetTitles) > 0 && !slices.Contains(p.TargetTitles, n.Title) {
			continue
		}
		targets = append(targets, n)
	}
	return p.Propagate(doc, source, targets, p.FieldNames)
}

// Mutate runs the propagation in mode over doc.
func (p *Propagator) Mutate(doc *webmap.Document, mode mutation.Mode) (*mutation.Result, error) {
	cp := *p
	cp.Mode = mode
	return cp.Run(doc)
}

// Propagate copies the requested field elements of source's form into each
// target. An empty fieldNames copies every field element of the source.
//
// Outcomes are reported per target and field. A requested field missing from
// the source form is reported once, under the source layer. A target whose
// schema lacks a field is skipped for that field and its form is left alone.
func (p *Propagator) Propagate(doc *webmap.Document, source *webmap.LayerNode, targets []*webmap.LayerNode, fieldNames []string) (*mutation.Result, error) {
	if doc == nil || source == nil {
		return nil, fmt.Errorf("forms: nil document or source layer")
	}
	if source.Form() == nil {
		return nil, fmt.Errorf("forms: %w", &wmerrors.NotFoundError{Kind: "form", ID: source.ID})
	}
	log := webmap.OrNop(p.Logger).With("webmap", doc.ID, "source", source.ID, "mode", p.Mode.String())

	elements := make(map[string]sourceElement)
	var order []string
	for _, e := range source.Form().FieldElements() {
		key := strings.ToLower(e.FieldName)
		if _, dup := elements[key]; dup {
			continue
		}
		elements[key] = sourceElement{elem: e, groups: source.Form().GroupPath(e.FieldName)}
		order = append(order, e.FieldName)
	}

	requested := fieldNames
	if len(requested) == 0 {
		requested = order
	}

	result := mutation.NewResult(p.Mode)
	var present []string
	for _, name := range requested {
		if _, ok := elements[strings.ToLower(name)]; ok {
			present = append(present, name)
			continue
		}
		result.Add(mutation.Outcome{
			LayerID:       source.ID,
			Title:         source.Title,
			Field:         name,
			SkippedReason: mutation.ReasonNotInSource,
		})
	}

	var referenced []string
	for _, target := range targets {
		outcomes, refs := p.propagateTo(target, present, elements, fieldindex.Build(target), source)
		for _, o := range outcomes {
			log.Debug("form propagation decision",
				"layer", o.LayerID,
				"field", o.Field,
				"applied", o.Applied,
				"reason", o.SkippedReason)
			result.Add(o)
		}
		referenced = append(referenced, refs...)
	}

	if !p.Mode.IsDryRun() && result.Changed() {
		if added := ensureReferenced(doc, referenced); len(added) > 0 {
			log.Info("added expressions", "names", added)
		}
	}
	log.Info("form propagation complete",
		"targets", len(targets),
		"outcomes", len(result.Outcomes),
		"applied", len(result.Applied()),
		"success", result.Success)
	return result, nil
}

// propagateTo copies fields into one target and writes its form at most once.
// It returns the outcomes and the expressions referenced by changed elements.
func (p *Propagator) propagateTo(target *webmap.LayerNode, fields []string, elements map[string]sourceElement, idx *fieldindex.Index, source *webmap.LayerNode) ([]mutation.Outcome, []string) {
	newOutcome := func(field string) mutation.Outcome {
		return mutation.Outcome{LayerID: target.ID, Title: target.Title, Field: field}
	}
	var outcomes []mutation.Outcome
	if target == source {
		o := newOutcome("")
		o.SkippedReason = mutation.ReasonSourceLayer
		return append(outcomes, o), nil
	}
	if !target.IsQueryable() {
		o := newOutcome("")
		o.SkippedReason = mutation.ReasonNotQueryable
		return append(outcomes, o), nil
	}

	form, detail := workingForm(target)
	var changed []int
	var refs []string
	for _, name := range fields {
		o := newOutcome(name)
		field, ok := idx.Get(name)
		if !ok {
			o.SkippedReason = mutation.ReasonFieldNotPresent
			outcomes = append(outcomes, o)
			continue
		}
		o.Eligible = true

		se := elements[strings.ToLower(name)]
		cp := se.elem.DeepCopy()
		cp.FieldName = field.Name

		existing, parent := form.FindField(field.Name)
		o.PreviousValue = elementJSON(existing)
		o.NewValue = elementJSON(cp)
		if existing != nil && inContainer(form, parent, se.groups) && existing.Equal(cp) {
			o.SkippedReason = mutation.ReasonUnchanged
			outcomes = append(outcomes, o)
			continue
		}
		placeElement(form, cp, se.groups)
		refs = append(refs, cp.Expressions()...)
		changed = append(changed, len(outcomes))
		outcomes = append(outcomes, o)
	}

	if len(changed) == 0 {
		return outcomes, nil
	}
	for i, at := range changed {
		if p.Mode.IsDryRun() {
			outcomes[at].SkippedReason = mutation.ReasonDryRun
		} else {
			outcomes[at].Applied = true
		}
		if i == 0 {
			outcomes[at].Detail = detail
		}
	}
	if !p.Mode.IsDryRun() {
		target.SetForm(form)
	}
	return outcomes, refs
}
