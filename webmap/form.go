package webmap

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// System expression names shared by every form.
const (
	ExprSystemTrue  = "expr/system/true"
	ExprSystemFalse = "expr/system/false"
)

// DefaultGroupName is the group new field elements are placed in when the
// caller does not name one.
const DefaultGroupName = "Metadata"

// FormSource records where a layer's effective form is defined.
type FormSource int

const (
	// FormSourceNone means neither the web map nor the layer item defines a form.
	FormSourceNone FormSource = iota
	// FormSourceLayer means only the layer item defines a form. It is copied
	// into the web map the first time the form is written.
	FormSourceLayer
	// FormSourceWebMap means the web map document defines the form.
	FormSourceWebMap
)

// String returns the name of the form source.
func (s FormSource) String() string {
	switch s {
	case FormSourceLayer:
		return "layer"
	case FormSourceWebMap:
		return "webmap"
	default:
		return "none"
	}
}

// MarshalText encodes the form source by name.
func (s FormSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ElementType distinguishes field elements from group elements.
type ElementType string

const (
	ElementField ElementType = "field"
	ElementGroup ElementType = "group"
)

// FormElement is either a field element (FieldName set) or a group element
// (Elements set). Keys this type does not model, such as inputType or domain,
// are kept in Extra and written back unchanged.
type FormElement struct {
	Type               ElementType
	FieldName          string
	Label              string
	Description        string
	ValueExpression    string
	EditableExpression string
	VisibleExpression  string
	Elements           []*FormElement
	Extra              map[string]any
}

// IsGroup reports whether the element is a group element.
func (e *FormElement) IsGroup() bool {
	return e.Type == ElementGroup
}

// Editable reports whether the element is editable through the system true expression.
func (e *FormElement) Editable() bool {
	return e.EditableExpression == ExprSystemTrue
}

// Expressions returns the non-empty expression names the element references.
func (e *FormElement) Expressions() []string {
	var names []string
	for _, n := range []string{e.ValueExpression, e.EditableExpression, e.VisibleExpression} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// DeepCopy returns an independent copy of the element and its children.
func (e *FormElement) DeepCopy() *FormElement {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Extra = deepCopyMap(e.Extra)
	if e.Elements != nil {
		cp.Elements = make([]*FormElement, len(e.Elements))
		for i, child := range e.Elements {
			cp.Elements[i] = child.DeepCopy()
		}
	}
	return &cp
}

// Equal reports whether two elements serialize identically.
func (e *FormElement) Equal(other *FormElement) bool {
	if e == nil || other == nil {
		return e == other
	}
	a, errA := json.Marshal(e.ToMap())
	b, errB := json.Marshal(other.ToMap())
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// ToMap renders the element in web map JSON form.
func (e *FormElement) ToMap() map[string]any {
	m := deepCopyMap(e.Extra)
	if m == nil {
		m = make(map[string]any)
	}
	setString(m, "type", string(e.Type))
	setString(m, "fieldName", e.FieldName)
	setString(m, "label", e.Label)
	setString(m, "description", e.Description)
	setString(m, "valueExpression", e.ValueExpression)
	setString(m, "editableExpression", e.EditableExpression)
	setString(m, "visibleExpression", e.VisibleExpression)
	if e.IsGroup() || e.Elements != nil {
		children := make([]any, 0, len(e.Elements))
		for _, child := range e.Elements {
			children = append(children, child.ToMap())
		}
		m["elements"] = children
	}
	return m
}

var formElementKeys = []string{
	"type", "fieldName", "label", "description",
	"valueExpression", "editableExpression", "visibleExpression", "elements",
}

// ParseFormElement builds a FormElement from its web map JSON form.
func ParseFormElement(m map[string]any) *FormElement {
	e := &FormElement{
		Type:               ElementType(stringValue(m, "type")),
		FieldName:          stringValue(m, "fieldName"),
		Label:              stringValue(m, "label"),
		Description:        stringValue(m, "description"),
		ValueExpression:    stringValue(m, "valueExpression"),
		EditableExpression: stringValue(m, "editableExpression"),
		VisibleExpression:  stringValue(m, "visibleExpression"),
	}
	if e.Type == "" && e.FieldName != "" {
		e.Type = ElementField
	}
	if children, ok := m["elements"].([]any); ok {
		if e.Type == "" {
			e.Type = ElementGroup
		}
		e.Elements = make([]*FormElement, 0, len(children))
		for _, c := range children {
			if cm, ok := c.(map[string]any); ok {
				e.Elements = append(e.Elements, ParseFormElement(cm))
			}
		}
	}
	e.Extra = extraKeys(m, formElementKeys)
	return e
}

// FormConfig is a layer's editing form.
type FormConfig struct {
	// Source is where the form was resolved from; it is not serialized.
	Source   FormSource
	Title    string
	Elements []*FormElement
	Extra    map[string]any
}

// NewFormConfig returns an empty form.
func NewFormConfig() *FormConfig {
	return &FormConfig{Elements: []*FormElement{}}
}

// ParseFormConfig builds a FormConfig from a formInfo object.
func ParseFormConfig(m map[string]any, source FormSource) *FormConfig {
	fc := &FormConfig{
		Source:   source,
		Title:    stringValue(m, "title"),
		Elements: []*FormElement{},
		Extra:    extraKeys(m, []string{"title", "formElements"}),
	}
	for _, item := range sliceValue(m, "formElements") {
		if em, ok := item.(map[string]any); ok {
			fc.Elements = append(fc.Elements, ParseFormElement(em))
		}
	}
	return fc
}

// ToMap renders the form as a formInfo object.
func (f *FormConfig) ToMap() map[string]any {
	m := deepCopyMap(f.Extra)
	if m == nil {
		m = make(map[string]any)
	}
	setString(m, "title", f.Title)
	elements := make([]any, 0, len(f.Elements))
	for _, e := range f.Elements {
		elements = append(elements, e.ToMap())
	}
	m["formElements"] = elements
	return m
}

// MarshalJSON encodes the form as a formInfo object.
func (f *FormConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ToMap())
}

// UnmarshalJSON decodes a formInfo object. The source is left unset.
func (f *FormConfig) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*f = *ParseFormConfig(m, FormSourceNone)
	return nil
}

// DeepCopy returns an independent copy of the form.
func (f *FormConfig) DeepCopy() *FormConfig {
	if f == nil {
		return nil
	}
	cp := &FormConfig{
		Source:   f.Source,
		Title:    f.Title,
		Elements: make([]*FormElement, len(f.Elements)),
		Extra:    deepCopyMap(f.Extra),
	}
	for i, e := range f.Elements {
		cp.Elements[i] = e.DeepCopy()
	}
	return cp
}

// Equal reports whether two forms serialize identically. Source is ignored.
func (f *FormConfig) Equal(other *FormConfig) bool {
	if f == nil || other == nil {
		return f == other
	}
	a, errA := json.Marshal(f.ToMap())
	b, errB := json.Marshal(other.ToMap())
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// FindField returns the field element for fieldName anywhere in the form,
// together with the group that directly contains it (nil at the top level).
// Field names compare case-insensitively.
func (f *FormConfig) FindField(fieldName string) (elem, parent *FormElement) {
	return findField(f.Elements, nil, fieldName)
}

func findField(elements []*FormElement, parent *FormElement, fieldName string) (*FormElement, *FormElement) {
	for _, e := range elements {
		if !e.IsGroup() && e.FieldName != "" && strings.EqualFold(e.FieldName, fieldName) {
			return e, parent
		}
		if len(e.Elements) > 0 {
			if found, p := findField(e.Elements, e, fieldName); found != nil {
				return found, p
			}
		}
	}
	return nil, nil
}

// FindGroup returns the first group labeled label at any depth, in pre-order.
func (f *FormConfig) FindGroup(label string) *FormElement {
	return findGroup(f.Elements, label)
}

func findGroup(elements []*FormElement, label string) *FormElement {
	for _, e := range elements {
		if !e.IsGroup() {
			continue
		}
		if e.Label == label {
			return e
		}
		if g := findGroup(e.Elements, label); g != nil {
			return g
		}
	}
	return nil
}

// EnsureGroup returns the group labeled label, appending a new top-level
// group when none exists at any depth.
func (f *FormConfig) EnsureGroup(label string) (group *FormElement, created bool) {
	if g := f.FindGroup(label); g != nil {
		if g.Elements == nil {
			g.Elements = []*FormElement{}
		}
		return g, false
	}
	g := &FormElement{Type: ElementGroup, Label: label, Elements: []*FormElement{}}
	f.Elements = append(f.Elements, g)
	return g, true
}

// GroupPath returns the labels of the groups enclosing the field element for
// fieldName, outermost first. It returns nil for a top-level or missing field.
func (f *FormConfig) GroupPath(fieldName string) []string {
	path, _ := groupPath(f.Elements, fieldName)
	return path
}

func groupPath(elements []*FormElement, fieldName string) ([]string, bool) {
	for _, e := range elements {
		if !e.IsGroup() && e.FieldName != "" && strings.EqualFold(e.FieldName, fieldName) {
			return nil, true
		}
		if len(e.Elements) > 0 {
			if inner, ok := groupPath(e.Elements, fieldName); ok {
				return append([]string{e.Label}, inner...), true
			}
		}
	}
	return nil, false
}

// FindGroupPath returns the innermost group of the chain labels, outermost
// first, or nil when the chain is empty or incomplete. The outermost label
// matches at any depth as in FindGroup; each further label matches a direct
// child group of the previous one.
func (f *FormConfig) FindGroupPath(labels []string) *FormElement {
	if len(labels) == 0 {
		return nil
	}
	g := f.FindGroup(labels[0])
	for _, label := range labels[1:] {
		if g == nil {
			return nil
		}
		g = childGroup(g, label)
	}
	return g
}

// EnsureGroupPath returns the innermost group of the chain labels, creating
// the missing links. The outermost group is resolved by EnsureGroup and
// nested groups are appended to their parent. It returns nil for an empty
// chain.
func (f *FormConfig) EnsureGroupPath(labels []string) (group *FormElement, created bool) {
	if len(labels) == 0 {
		return nil, false
	}
	group, created = f.EnsureGroup(labels[0])
	for _, label := range labels[1:] {
		next := childGroup(group, label)
		if next == nil {
			next = &FormElement{Type: ElementGroup, Label: label}
			group.Elements = append(group.Elements, next)
			created = true
		}
		if next.Elements == nil {
			next.Elements = []*FormElement{}
		}
		group = next
	}
	return group, created
}

func childGroup(g *FormElement, label string) *FormElement {
	for _, e := range g.Elements {
		if e.IsGroup() && e.Label == label {
			return e
		}
	}
	return nil
}

// RemoveField detaches the field element for fieldName from wherever it is
// and returns it, or nil when the form has no such element.
func (f *FormConfig) RemoveField(fieldName string) *FormElement {
	elem, parent := f.FindField(fieldName)
	if elem == nil {
		return nil
	}
	if parent == nil {
		f.Elements = removeElement(f.Elements, elem)
	} else {
		parent.Elements = removeElement(parent.Elements, elem)
	}
	return elem
}

func removeElement(elements []*FormElement, target *FormElement) []*FormElement {
	out := elements[:0]
	for _, e := range elements {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// FieldElements returns every field element in pre-order.
func (f *FormConfig) FieldElements() []*FormElement {
	var out []*FormElement
	var visit func([]*FormElement)
	visit = func(elements []*FormElement) {
		for _, e := range elements {
			if e.IsGroup() {
				visit(e.Elements)
				continue
			}
			if e.FieldName != "" {
				out = append(out, e)
			}
		}
	}
	visit(f.Elements)
	return out
}

func setString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func extraKeys(m map[string]any, known []string) map[string]any {
	var extra map[string]any
	for k, v := range m {
		if slices.Contains(known, k) {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = deepCopyValue(v)
	}
	return extra
}
