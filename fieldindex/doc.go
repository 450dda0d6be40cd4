// Package fieldindex provides per-layer field lookup for checks and mutators.
//
// An [Index] is built once from a layer's already-normalized field list and
// answers case-insensitive name lookups. It also knows the reserved-word
// table used by the reserved keyword check and the alias quality rules used
// by the field alias check. No network access happens here: the index only
// sees field metadata the caller has already fetched.
//
//	idx := fieldindex.Build(node)
//	if idx.HasField("project_number") {
//	    // patch the layer
//	}
//	for _, f := range idx.ReservedNameViolations() {
//	    fmt.Println("reserved:", f.Name)
//	}
package fieldindex
