// Package wmtools provides tooling for maintaining web map documents hosted by a
// GIS portal.
//
// A web map is a JSON document describing a tree of operational layers and tables,
// their popups, editing forms and query filters. wmtools parses that tree, walks it,
// and either analyzes it for performance and usability problems or applies targeted,
// dry-run capable edits.
//
// # Packages
//
//   - webmap: parse web map documents into a typed layer tree and write them back
//   - walker: depth-first traversal of the layer tree with cycle and depth protection
//   - fieldindex: per-layer field lookup, reserved-word and alias-quality detection
//   - filter: rewrite definition expressions on layers that carry a target field
//   - forms: update and propagate editing form elements and expressions
//   - checks: independent diagnostic checks producing severity-tagged issues
//   - score: aggregate issues into a 0-100 score and letter grade
//   - session: batch runs across many web maps with per-layer outcomes
//   - portal: document stores backed by the local filesystem or a portal REST API
//
// # Quick Start
//
// Analyze a web map saved on disk:
//
//	doc, err := webmap.ParseWithOptions(webmap.WithFilePath("webmap.json"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	result := checks.New().Analyze(context.Background(), doc)
//	s := score.Calculate(result)
//	fmt.Printf("%d (%s)\n", s.Value, s.Grade)
//
// Patch a filter without writing anything:
//
//	p := filter.New("project_number", "project_number = '123456'", mutation.DryRun)
//	res, err := p.Patch(doc)
//
// # Modes
//
// Every mutator takes an explicit [mutation.Mode]. [mutation.DryRun] computes and
// reports the same decisions as [mutation.Apply] but leaves the document untouched
// and never triggers a persistence call.
package wmtools
