package forms

import (
	"encoding/json"

	"github.com/erraggy/wmtools/webmap"
)

// Details reported on the first outcome of a layer whose form source changed.
const (
	DetailPromoted = "layer item form copied into web map"
	DetailCreated  = "new form created"
)

// workingForm returns an editable copy of node's effective form and a note
// describing any source change the write will cause.
func workingForm(node *webmap.LayerNode) (*webmap.FormConfig, string) {
	switch node.FormSource() {
	case webmap.FormSourceWebMap:
		return node.Form().DeepCopy(), ""
	case webmap.FormSourceLayer:
		return node.Form().DeepCopy(), DetailPromoted
	default:
		return webmap.NewFormConfig(), DetailCreated
	}
}

// needsWrite reports whether form differs from what the web map holds for node.
func needsWrite(node *webmap.LayerNode, form *webmap.FormConfig) bool {
	if node.FormSource() != webmap.FormSourceWebMap {
		return true
	}
	return !form.Equal(node.Form())
}

// inContainer reports whether parent is the container path resolves to: the
// top level for an empty path, otherwise the innermost group of the chain.
func inContainer(form *webmap.FormConfig, parent *webmap.FormElement, path []string) bool {
	if len(path) == 0 {
		return parent == nil
	}
	return parent != nil && parent == form.FindGroupPath(path)
}

// placeElement puts elem into the group chain path, outermost label first, or
// at the top level when path is empty, replacing any existing element for the
// same field. An element already in the right container keeps its position.
func placeElement(form *webmap.FormConfig, elem *webmap.FormElement, path []string) {
	existing, parent := form.FindField(elem.FieldName)
	if existing != nil && inContainer(form, parent, path) {
		container := &form.Elements
		if parent != nil {
			container = &parent.Elements
		}
		for i, e := range *container {
			if e == existing {
				(*container)[i] = elem
				return
			}
		}
	}
	if existing != nil {
		form.RemoveField(elem.FieldName)
	}
	if len(path) == 0 {
		form.Elements = append(form.Elements, elem)
		return
	}
	g, _ := form.EnsureGroupPath(path)
	g.Elements = append(g.Elements, elem)
}

func elementJSON(e *webmap.FormElement) string {
	if e == nil {
		return ""
	}
	data, err := json.Marshal(e.ToMap())
	if err != nil {
		return ""
	}
	return string(data)
}
