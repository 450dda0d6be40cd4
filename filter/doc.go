// Package filter rewrites layer definition expressions across a web map.
//
// A [Patcher] targets every feature layer and table whose field list contains
// the target field and replaces its definition expression with a new one.
// The previous expression is overwritten, never combined with the new one,
// so patching twice with the same arguments leaves the same result as
// patching once. Layers without the field are reported as skipped with the
// reason "field not present".
//
// # Quick Start
//
//	p := filter.New("project_number", "project_number = '123456'", mutation.Apply)
//	result, err := p.Patch(doc)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, o := range result.Outcomes {
//		fmt.Println(o)
//	}
//
// Or patch a file in one call, leaving the parsed input untouched:
//
//	res, err := filter.PatchWithOptions(
//		filter.WithFilePath("webmap.json"),
//		filter.WithField("project_number"),
//		filter.WithExpression("project_number = '123456'"),
//		filter.WithMode(mutation.DryRun),
//	)
//
// In [mutation.DryRun] mode each eligible layer is reported with the exact
// expression that would be written and the document is not changed.
package filter
