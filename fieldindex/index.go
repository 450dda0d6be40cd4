package fieldindex

import (
	"strings"

	"github.com/erraggy/wmtools/webmap"
)

// Index is an immutable, case-insensitive view over a layer's fields.
// Building an index twice from the same fields yields identical content.
type Index struct {
	fields []webmap.FieldInfo
	// byName maps the lowercased name to the first field with that name.
	byName map[string]int
}

// New builds an index over fields. The slice is copied.
func New(fields []webmap.FieldInfo) *Index {
	idx := &Index{
		fields: append([]webmap.FieldInfo(nil), fields...),
		byName: make(map[string]int, len(fields)),
	}
	for i, f := range idx.fields {
		key := strings.ToLower(f.Name)
		if _, exists := idx.byName[key]; !exists {
			idx.byName[key] = i
		}
	}
	return idx
}

// Build indexes the fields of node. A nil node yields an empty index.
func Build(node *webmap.LayerNode) *Index {
	if node == nil {
		return New(nil)
	}
	return New(node.Fields)
}

// HasField reports whether a field named name exists, ignoring case.
func (idx *Index) HasField(name string) bool {
	_, ok := idx.byName[strings.ToLower(name)]
	return ok
}

// Get returns the field named name, ignoring case.
func (idx *Index) Get(name string) (webmap.FieldInfo, bool) {
	i, ok := idx.byName[strings.ToLower(name)]
	if !ok {
		return webmap.FieldInfo{}, false
	}
	return idx.fields[i], true
}

// Fields returns a copy of the indexed fields in their original order.
func (idx *Index) Fields() []webmap.FieldInfo {
	return append([]webmap.FieldInfo(nil), idx.fields...)
}

// Names returns the field names in their original order.
func (idx *Index) Names() []string {
	names := make([]string, len(idx.fields))
	for i, f := range idx.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of indexed fields.
func (idx *Index) Len() int {
	return len(idx.fields)
}

// ReservedNameViolations returns the fields whose names are reserved words,
// in field order. System fields such as OBJECTID and SHAPE_LENGTH are
// included.
func (idx *Index) ReservedNameViolations() []webmap.FieldInfo {
	var out []webmap.FieldInfo
	for _, f := range idx.fields {
		if IsReserved(f.Name) {
			out = append(out, f)
		}
	}
	return out
}
