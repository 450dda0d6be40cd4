// Package checks analyzes a web map for performance and usability problems.
//
// Each check is a pure function of one layer, its field index and the
// configured thresholds. The [Engine] walks the layer tree, runs every layer
// check against each feature layer and table, runs the document checks once,
// and returns the issues in a canonical order so the result does not depend
// on the order the checks ran in.
//
// # Checks
//
//   - record-count: service record count above the threshold
//   - layer-age: layer created more than two years ago
//   - reserved-keyword: field names that are SQL or platform reserved words
//   - field-alias: missing, redundant or cryptic field aliases
//   - drawing-optimization: missing advanced query support or tile caching
//   - query-capability: layer cannot be queried
//   - editing-capability: data-collection layer without editing enabled
//   - visibility-range: unbounded or very broad scale range
//   - popup-configuration: missing or overloaded popups
//   - layer-count: too many layers and tables in the web map
//   - structural: cycles or pathological nesting found while walking
//
// Service-based checks (record count, drawing, query, editing) need layer
// metadata supplied through [webmap.WithMetadata]; without it they report
// nothing for that layer.
//
// # Example
//
//	result := checks.New(checks.WithRecordCountThreshold(5000)).Analyze(ctx, doc)
//	for _, issue := range result.Issues {
//		fmt.Println(issue)
//	}
package checks
