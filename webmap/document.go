package webmap

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v4"
)

// SourceFormat is the encoding a document was read from.
type SourceFormat string

const (
	SourceFormatJSON SourceFormat = "json"
	SourceFormatYAML SourceFormat = "yaml"
)

// Top-level web map keys.
const (
	keyOperationalLayers = "operationalLayers"
	keyTables            = "tables"
	keyExpressionInfos   = "expressionInfos"
)

// ExpressionInfo is one entry of the web map's expressionInfos.
type ExpressionInfo struct {
	Name       string `json:"name" yaml:"name"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Expression string `json:"expression" yaml:"expression"`
	ReturnType string `json:"returnType,omitempty" yaml:"returnType,omitempty"`
}

func (e ExpressionInfo) toMap() map[string]any {
	m := map[string]any{"name": e.Name, "expression": e.Expression}
	setString(m, "title", e.Title)
	setString(m, "returnType", e.ReturnType)
	return m
}

// SystemExpressions returns the true/false expressions that editable
// expressions refer to.
func SystemExpressions() []ExpressionInfo {
	return []ExpressionInfo{
		{Name: ExprSystemFalse, Title: "False", Expression: "false", ReturnType: "boolean"},
		{Name: ExprSystemTrue, Title: "True", Expression: "true", ReturnType: "boolean"},
	}
}

// Document is a parsed web map: the layer tree plus the underlying JSON,
// which is what gets written back.
type Document struct {
	// ID is the portal item ID or file stem
	ID string
	// Title is the portal item title, when known
	Title string
	// SourcePath is the file the document was read from
	SourcePath string
	// SourceFormat is the encoding the document was read from
	SourceFormat SourceFormat
	// Layers are the top-level operational layers
	Layers []*LayerNode
	// Tables are the top-level tables
	Tables []*LayerNode
	// Warnings are non-fatal problems found while building the tree
	Warnings []string

	raw      map[string]any
	metadata map[string]LayerMetadata
}

// Roots returns the operational layers followed by the tables.
func (d *Document) Roots() []*LayerNode {
	roots := make([]*LayerNode, 0, len(d.Layers)+len(d.Tables))
	roots = append(roots, d.Layers...)
	return append(roots, d.Tables...)
}

// Raw returns the document JSON. Callers must not modify it directly.
func (d *Document) Raw() map[string]any {
	return d.raw
}

// Metadata returns the collaborator-supplied metadata for a layer ID.
func (d *Document) Metadata(layerID string) (LayerMetadata, bool) {
	m, ok := d.metadata[layerID]
	return m, ok
}

// FindByID returns the first node with the given ID in pre-order.
func (d *Document) FindByID(id string) *LayerNode {
	return d.find(func(n *LayerNode) bool { return n.ID == id })
}

// FindByTitle returns the first node with the given title in pre-order.
// Titles compare case-sensitively.
func (d *Document) FindByTitle(title string) *LayerNode {
	return d.find(func(n *LayerNode) bool { return n.Title == title })
}

func (d *Document) find(match func(*LayerNode) bool) *LayerNode {
	seen := make(map[*LayerNode]bool)
	stack := reversed(d.Roots())
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		if match(n) {
			return n
		}
		stack = append(stack, reversed(n.Children)...)
	}
	return nil
}

func reversed(nodes []*LayerNode) []*LayerNode {
	out := make([]*LayerNode, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

// ExpressionInfos returns the document's expressionInfos.
func (d *Document) ExpressionInfos() []ExpressionInfo {
	var infos []ExpressionInfo
	for _, item := range sliceValue(d.raw, keyExpressionInfos) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		infos = append(infos, ExpressionInfo{
			Name:       stringValue(m, "name"),
			Title:      stringValue(m, "title"),
			Expression: stringValue(m, "expression"),
			ReturnType: stringValue(m, "returnType"),
		})
	}
	return infos
}

// ExpressionInfo returns the expression named name.
func (d *Document) ExpressionInfo(name string) (ExpressionInfo, bool) {
	for _, e := range d.ExpressionInfos() {
		if e.Name == name {
			return e, true
		}
	}
	return ExpressionInfo{}, false
}

// HasExpressionInfo reports whether an expression named name exists.
func (d *Document) HasExpressionInfo(name string) bool {
	_, ok := d.ExpressionInfo(name)
	return ok
}

// AddExpressionInfo appends info unless an expression with the same name
// exists. It reports whether the expression was added.
func (d *Document) AddExpressionInfo(info ExpressionInfo) bool {
	if d.HasExpressionInfo(info.Name) {
		return false
	}
	if d.raw == nil {
		d.raw = make(map[string]any)
	}
	d.raw[keyExpressionInfos] = append(sliceValue(d.raw, keyExpressionInfos), info.toMap())
	return true
}

// EnsureSystemExpressions adds the system true/false expressions when missing
// and returns the names it added.
func (d *Document) EnsureSystemExpressions() []string {
	var added []string
	for _, e := range SystemExpressions() {
		if d.AddExpressionInfo(e) {
			added = append(added, e.Name)
		}
	}
	return added
}

// DeepCopy returns a document that shares no mutable state with d.
func (d *Document) DeepCopy() *Document {
	meta := make(map[string]LayerMetadata, len(d.metadata))
	for id, m := range d.metadata {
		meta[id] = m.DeepCopy()
	}
	cp := build(deepCopyMap(d.raw), meta, NopLogger{})
	cp.ID = d.ID
	cp.Title = d.Title
	cp.SourcePath = d.SourcePath
	cp.SourceFormat = d.SourceFormat
	cp.Warnings = append([]string(nil), d.Warnings...)
	return cp
}

// MarshalJSON encodes the document JSON, including any applied mutations.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.raw)
}

// Marshal encodes the document in the requested format. JSON output is indented.
func (d *Document) Marshal(format SourceFormat) ([]byte, error) {
	switch format {
	case SourceFormatYAML:
		return yaml.Marshal(d.raw)
	case SourceFormatJSON, "":
		return json.MarshalIndent(d.raw, "", "  ")
	default:
		return nil, fmt.Errorf("webmap: unsupported format %q", format)
	}
}

// Stats summarizes the tree.
type Stats struct {
	LayerCount int `json:"layer_count" yaml:"layer_count"`
	TableCount int `json:"table_count" yaml:"table_count"`
	GroupCount int `json:"group_count" yaml:"group_count"`
	MaxDepth   int `json:"max_depth" yaml:"max_depth"`
}

// Stats counts the nodes of the tree. Nodes reachable twice are counted once.
func (d *Document) Stats() Stats {
	var st Stats
	type entry struct {
		node  *LayerNode
		depth int
	}
	seen := make(map[*LayerNode]bool)
	var stack []entry
	for _, r := range reversed(d.Roots()) {
		stack = append(stack, entry{r, 1})
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[e.node] {
			continue
		}
		seen[e.node] = true
		st.MaxDepth = max(st.MaxDepth, e.depth)
		switch e.node.Kind {
		case KindGroupLayer:
			st.GroupCount++
		case KindTable:
			st.TableCount++
		default:
			st.LayerCount++
		}
		for _, c := range reversed(e.node.Children) {
			stack = append(stack, entry{c, e.depth + 1})
		}
	}
	return st
}

// build constructs the layer tree from document JSON. Missing or malformed
// keys degrade to empty values and a warning; they never fail the build.
func build(raw map[string]any, metadata map[string]LayerMetadata, logger Logger) *Document {
	d := &Document{raw: raw, metadata: metadata}
	if d.metadata == nil {
		d.metadata = make(map[string]LayerMetadata)
	}
	b := &builder{doc: d, logger: logger, seenIDs: make(map[string]string)}

	if _, ok := raw[keyOperationalLayers]; !ok {
		d.Warnings = append(d.Warnings, "document has no operationalLayers")
	}
	for i, item := range sliceValue(raw, keyOperationalLayers) {
		path := fmt.Sprintf("$.%s[%d]", keyOperationalLayers, i)
		if n := b.node(item, path, nil, false); n != nil {
			d.Layers = append(d.Layers, n)
		}
	}
	for i, item := range sliceValue(raw, keyTables) {
		path := fmt.Sprintf("$.%s[%d]", keyTables, i)
		if n := b.node(item, path, nil, true); n != nil {
			d.Tables = append(d.Tables, n)
		}
	}
	return d
}

type builder struct {
	doc     *Document
	logger  Logger
	seenIDs map[string]string
}

func (b *builder) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.doc.Warnings = append(b.doc.Warnings, msg)
	b.logger.Warn("webmap: "+msg)
}

func (b *builder) node(item any, path string, parent *LayerNode, isTable bool) *LayerNode {
	m, ok := item.(map[string]any)
	if !ok {
		b.warn("%s: expected an object, got %T", path, item)
		return nil
	}
	n := &LayerNode{
		ID:        stringValue(m, "id"),
		Title:     stringValue(m, "title"),
		LayerType: stringValue(m, "layerType"),
		URL:       stringValue(m, "url"),
		raw:       m,
		parent:    parent,
	}
	if n.ID == "" {
		b.warn("%s: layer has no id", path)
	} else if first, dup := b.seenIDs[n.ID]; dup {
		b.warn("%s: duplicate layer id %q (first seen at %s)", path, n.ID, first)
	} else {
		b.seenIDs[n.ID] = path
	}

	_, hasChildren := m["layers"].([]any)
	switch {
	case isTable:
		n.Kind = KindTable
	case n.LayerType == "GroupLayer" || (n.LayerType == "" && hasChildren):
		n.Kind = KindGroupLayer
	case n.LayerType == "ArcGISFeatureLayer" || (n.LayerType == "" && strings.Contains(n.URL, "/FeatureServer")):
		n.Kind = KindFeatureLayer
	default:
		n.Kind = KindOther
	}

	def := mapValue(m, "layerDefinition")
	n.DefinitionExpression = stringValue(def, "definitionExpression")
	fields, warnings := normalizeFields(def["fields"])
	for _, w := range warnings {
		b.warn("%s.layerDefinition.%s", path, w)
	}
	n.MinScale, _ = numberValue(m, "minScale")
	n.MaxScale, _ = numberValue(m, "maxScale")
	n.Popup = parsePopup(mapValue(m, "popupInfo"))

	meta, hasMeta := b.doc.metadata[n.ID]
	if len(fields) == 0 && hasMeta {
		fields = append([]FieldInfo(nil), meta.Fields...)
	}
	n.Fields = fields
	if hasMeta {
		n.CreatedDate = meta.CreatedDate
		n.Service = meta.Service
	}

	switch {
	case mapValue(m, "formInfo") != nil:
		n.formSource = FormSourceWebMap
		n.form = ParseFormConfig(mapValue(m, "formInfo"), FormSourceWebMap)
	case hasMeta && meta.ItemForm != nil:
		n.formSource = FormSourceLayer
		n.form = meta.ItemForm.DeepCopy()
		n.form.Source = FormSourceLayer
	default:
		n.formSource = FormSourceNone
	}

	for i, child := range sliceValue(m, "layers") {
		if c := b.node(child, fmt.Sprintf("%s.layers[%d]", path, i), n, false); c != nil {
			n.Children = append(n.Children, c)
		}
	}
	if len(n.Children) > 0 && n.Kind != KindGroupLayer {
		b.warn("%s: layer %q of type %q has nested layers; treating it as a group", path, n.ID, n.LayerType)
		n.Kind = KindGroupLayer
	}
	return n
}
