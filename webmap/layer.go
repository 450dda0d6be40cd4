package webmap

import (
	"strings"
	"time"

	"github.com/erraggy/wmtools/wmerrors"
)

// LayerKind classifies a node in the layer tree.
type LayerKind int

const (
	// KindOther covers basemaps, tile, image and vector tile layers.
	KindOther LayerKind = iota
	// KindFeatureLayer is a queryable feature layer.
	KindFeatureLayer
	// KindTable is a non-spatial table.
	KindTable
	// KindGroupLayer holds nested layers.
	KindGroupLayer
)

// String returns the name of the layer kind.
func (k LayerKind) String() string {
	switch k {
	case KindFeatureLayer:
		return "FeatureLayer"
	case KindTable:
		return "Table"
	case KindGroupLayer:
		return "GroupLayer"
	default:
		return "Other"
	}
}

// MarshalText encodes the kind by name.
func (k LayerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ServiceInfo is the subset of a feature service layer's REST metadata the
// checks consume. Pointer fields are nil when the portal did not report them.
type ServiceInfo struct {
	// Capabilities is the comma-separated capability list ("Query,Create,Update").
	Capabilities       string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	SupportsStatistics bool   `json:"supports_statistics" yaml:"supports_statistics"`
	SupportsOrderBy    bool   `json:"supports_order_by" yaml:"supports_order_by"`
	SupportsPagination bool   `json:"supports_pagination" yaml:"supports_pagination"`
	TileMaxRecordCount *int   `json:"tile_max_record_count,omitempty" yaml:"tile_max_record_count,omitempty"`
	MaxRecordCount     *int   `json:"max_record_count,omitempty" yaml:"max_record_count,omitempty"`
	RecordCount        *int   `json:"record_count,omitempty" yaml:"record_count,omitempty"`
}

// HasCapability reports whether the capability list contains name,
// compared case-insensitively as a whole token.
func (s *ServiceInfo) HasCapability(name string) bool {
	if s == nil {
		return false
	}
	for _, c := range strings.Split(s.Capabilities, ",") {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return true
		}
	}
	return false
}

// LayerMetadata is item and service metadata fetched by the collaborator for
// one layer, keyed by layer ID when passed to [WithMetadata].
type LayerMetadata struct {
	CreatedDate *time.Time   `json:"created_date,omitempty" yaml:"created_date,omitempty"`
	Fields      []FieldInfo  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Service     *ServiceInfo `json:"service,omitempty" yaml:"service,omitempty"`
	// ItemForm is the form defined on the layer item itself.
	ItemForm *FormConfig `json:"item_form,omitempty" yaml:"-"`
}

// DeepCopy returns an independent copy of the metadata.
func (m LayerMetadata) DeepCopy() LayerMetadata {
	cp := LayerMetadata{
		Fields:   append([]FieldInfo(nil), m.Fields...),
		ItemForm: m.ItemForm.DeepCopy(),
	}
	if m.CreatedDate != nil {
		t := *m.CreatedDate
		cp.CreatedDate = &t
	}
	if m.Service != nil {
		s := *m.Service
		s.TileMaxRecordCount = copyInt(m.Service.TileMaxRecordCount)
		s.MaxRecordCount = copyInt(m.Service.MaxRecordCount)
		s.RecordCount = copyInt(m.Service.RecordCount)
		cp.Service = &s
	}
	return cp
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// PopupField is one entry of a popup's fieldInfos.
type PopupField struct {
	FieldName string `json:"field_name" yaml:"field_name"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Visible   bool   `json:"visible" yaml:"visible"`
}

// PopupConfig is the read-only view of a layer's popupInfo.
type PopupConfig struct {
	Title      string       `json:"title,omitempty" yaml:"title,omitempty"`
	FieldInfos []PopupField `json:"field_infos,omitempty" yaml:"field_infos,omitempty"`
}

// VisibleFieldCount returns the number of fieldInfos marked visible.
func (p *PopupConfig) VisibleFieldCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, f := range p.FieldInfos {
		if f.Visible {
			n++
		}
	}
	return n
}

// parsePopup returns nil for an absent or empty popupInfo. A field info
// without a visible key is shown, matching how map viewers render it.
func parsePopup(m map[string]any) *PopupConfig {
	if len(m) == 0 {
		return nil
	}
	p := &PopupConfig{Title: stringValue(m, "title")}
	for _, item := range sliceValue(m, "fieldInfos") {
		fm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p.FieldInfos = append(p.FieldInfos, PopupField{
			FieldName: stringValue(fm, "fieldName"),
			Label:     stringValue(fm, "label"),
			Visible:   boolValue(fm, "visible", true),
		})
	}
	return p
}

// LayerNode is one operational layer, table or group layer.
//
// Exported fields are a typed snapshot of the node's JSON taken when the tree
// was built. Mutations go through [LayerNode.SetDefinitionExpression] and
// [LayerNode.SetForm] so the snapshot and the document JSON stay in step.
type LayerNode struct {
	ID                   string
	Title                string
	Kind                 LayerKind
	LayerType            string
	URL                  string
	Fields               []FieldInfo
	Popup                *PopupConfig
	DefinitionExpression string
	// MinScale and MaxScale are 0 when unbounded.
	MinScale    float64
	MaxScale    float64
	CreatedDate *time.Time
	Service     *ServiceInfo
	Children    []*LayerNode

	raw        map[string]any
	parent     *LayerNode
	form       *FormConfig
	formSource FormSource
}

// IsGroup reports whether the node is a group layer.
func (n *LayerNode) IsGroup() bool {
	return n.Kind == KindGroupLayer
}

// IsQueryable reports whether the node is a feature layer or table.
func (n *LayerNode) IsQueryable() bool {
	return n.Kind == KindFeatureLayer || n.Kind == KindTable
}

// Parent returns the group layer that contains n, or nil at the top level.
func (n *LayerNode) Parent() *LayerNode {
	return n.parent
}

// FormSource returns where the node's effective form is defined.
func (n *LayerNode) FormSource() FormSource {
	return n.formSource
}

// Form returns the node's effective form, or nil when FormSource is
// FormSourceNone. Callers that intend to change the form must work on a
// DeepCopy and hand it back through SetForm.
func (n *LayerNode) Form() *FormConfig {
	return n.form
}

// SetDefinitionExpression overwrites the layer's definition expression,
// creating layerDefinition when the layer has none.
func (n *LayerNode) SetDefinitionExpression(expr string) {
	n.DefinitionExpression = expr
	if n.raw == nil {
		n.raw = make(map[string]any)
	}
	def := mapValue(n.raw, "layerDefinition")
	if def == nil {
		def = make(map[string]any)
		n.raw["layerDefinition"] = def
	}
	def["definitionExpression"] = expr
}

// SetForm writes form into the web map's formInfo for this layer. A form that
// was resolved from the layer item becomes a web map form from here on.
func (n *LayerNode) SetForm(form *FormConfig) {
	if n.raw == nil {
		n.raw = make(map[string]any)
	}
	form.Source = FormSourceWebMap
	n.raw["formInfo"] = form.ToMap()
	n.form = form
	n.formSource = FormSourceWebMap
}

// AddChild appends child to a group layer. The tree must stay a tree:
// inserting a node beneath itself or one of its descendants returns a cycle
// error, and inserting a node that already has a parent returns a duplicate
// error. Neither case modifies the tree.
func (n *LayerNode) AddChild(child *LayerNode) error {
	if child == nil {
		return &wmerrors.StructuralError{ParentID: n.ID, Message: "nil child"}
	}
	for p := n; p != nil; p = p.parent {
		if p == child {
			return &wmerrors.StructuralError{LayerID: child.ID, ParentID: n.ID, IsCycle: true}
		}
	}
	if child.parent != nil || n.containsDirect(child) {
		return &wmerrors.StructuralError{LayerID: child.ID, ParentID: n.ID, IsDuplicate: true}
	}
	if !n.IsGroup() {
		return &wmerrors.StructuralError{LayerID: child.ID, ParentID: n.ID, Message: "parent is not a group layer"}
	}
	child.parent = n
	n.Children = append(n.Children, child)
	if n.raw == nil {
		n.raw = make(map[string]any)
	}
	if child.raw == nil {
		child.raw = child.toRaw()
	}
	n.raw["layers"] = append(sliceValue(n.raw, "layers"), child.raw)
	return nil
}

func (n *LayerNode) containsDirect(child *LayerNode) bool {
	for _, c := range n.Children {
		if c == child {
			return true
		}
	}
	return false
}

// toRaw renders a programmatically built node as layer JSON.
func (n *LayerNode) toRaw() map[string]any {
	m := map[string]any{}
	setString(m, "id", n.ID)
	setString(m, "title", n.Title)
	setString(m, "url", n.URL)
	layerType := n.LayerType
	if layerType == "" {
		switch n.Kind {
		case KindGroupLayer:
			layerType = "GroupLayer"
		case KindFeatureLayer:
			layerType = "ArcGISFeatureLayer"
		}
	}
	setString(m, "layerType", layerType)
	if n.DefinitionExpression != "" || len(n.Fields) > 0 {
		def := map[string]any{}
		setString(def, "definitionExpression", n.DefinitionExpression)
		if len(n.Fields) > 0 {
			fields := make([]any, 0, len(n.Fields))
			for _, f := range n.Fields {
				field := map[string]any{"name": f.Name}
				setString(field, "alias", f.Alias)
				fields = append(fields, field)
			}
			def["fields"] = fields
		}
		m["layerDefinition"] = def
	}
	if n.form != nil {
		m["formInfo"] = n.form.ToMap()
	}
	return m
}
