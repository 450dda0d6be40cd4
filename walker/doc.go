// Package walker provides a traversal API for web map layer trees.
//
// The walker visits every operational layer, table and group layer of a
// document depth-first in pre-order: a node's children are visited before
// its next sibling. Handlers receive each node and may act on groups and
// leaves uniformly.
//
// # Quick Start
//
// Collect the IDs of every feature layer, including nested ones:
//
//	doc, _ := webmap.ParseWithOptions(webmap.WithFilePath("webmap.json"))
//
//	var ids []string
//	err := walker.WalkDocument(doc,
//	    walker.WithLayerHandler(func(wc *walker.WalkContext, n *webmap.LayerNode) walker.Action {
//	        if n.Kind == webmap.KindFeatureLayer {
//	            ids = append(ids, n.ID)
//	        }
//	        return walker.Continue
//	    }),
//	)
//
// # Flow Control
//
// Handlers return an [Action] to control traversal:
//
//   - [Continue]: continue traversing children and siblings normally
//   - [SkipChildren]: skip all children of the current group, continue with siblings
//   - [Stop]: stop the entire walk immediately
//
// # Lazy Iteration
//
// [All] returns an iter.Seq2 over the same sequence. Breaking out of the
// range loop stops the walk:
//
//	for wc, n := range walker.All(doc.Roots()) {
//	    if n.ID == target {
//	        break
//	    }
//	}
//
// # Structural Protection
//
// Each walk keeps a set of visited nodes. A node reached a second time is
// not visited again and its subtree is not re-entered; the walk reports it
// to the [StructuralHandler] with reason "cycle" and carries on. Nodes
// nested deeper than the depth warning threshold (default 50) are still
// visited, but the first node on each branch past the threshold is reported
// with reason "depth".
//
// Walks are restartable: walking the same tree twice yields the same sequence.
package walker
