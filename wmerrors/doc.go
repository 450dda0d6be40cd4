// Package wmerrors provides structured error types for wmtools.
//
// Import path: github.com/erraggy/wmtools/wmerrors
//
// This package enables programmatic error handling via [errors.Is] and [errors.As],
// allowing callers to distinguish document problems from portal failures.
//
// # Error Types
//
//   - [ParseError]: JSON/YAML decoding failures and documents that are not web maps
//   - [StructuralError]: cyclic or duplicated layer references in the layer tree
//   - [NotFoundError]: a web map, layer or form source that does not exist
//   - [PersistError]: the document store rejected a write
//   - [ValidationError]: invalid mutation inputs (empty field name, unknown group)
//   - [ConfigError]: invalid configuration or options
//
// # Sentinel Errors
//
// Each error type has a corresponding sentinel error for use with errors.Is():
//
//   - [ErrParse]: Matches any [ParseError]
//   - [ErrStructure]: Matches any [StructuralError]
//   - [ErrCycle]: Matches [StructuralError] with IsCycle=true
//   - [ErrNotFound]: Matches any [NotFoundError]
//   - [ErrPersist]: Matches any [PersistError]
//   - [ErrValidation]: Matches any [ValidationError]
//   - [ErrConfig]: Matches any [ConfigError]
//
// # Usage
//
//	doc, err := store.Fetch(ctx, id)
//	if errors.Is(err, wmerrors.ErrNotFound) {
//	    // report and move on to the next web map
//	}
//
//	var se *wmerrors.StructuralError
//	if errors.As(err, &se) && se.IsCycle {
//	    log.Printf("layer %s would create a cycle", se.LayerID)
//	}
package wmerrors
