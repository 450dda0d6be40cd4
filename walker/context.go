package walker

import (
	"context"

	"github.com/erraggy/wmtools/webmap"
)

// WalkContext provides contextual information about the current node being visited.
// It follows the http.Request pattern for context access.
type WalkContext struct {
	// JSONPath is the full JSON path to the current node.
	// Example: "$.operationalLayers[0].layers[1]"
	JSONPath string

	// Depth is the nesting level: 0 for top-level layers and tables.
	Depth int

	// Parent is the group the node was reached through, nil at the top level.
	Parent *webmap.LayerNode

	ctx context.Context
}

// Context returns the context.Context for cancellation and deadline propagation.
// Returns context.Background() if no context was set.
func (wc *WalkContext) Context() context.Context {
	if wc.ctx == nil {
		return context.Background()
	}
	return wc.ctx
}

// WithContext returns a shallow copy of WalkContext with the new context.
func (wc *WalkContext) WithContext(ctx context.Context) *WalkContext {
	wc2 := *wc
	wc2.ctx = ctx
	return &wc2
}

// IsTopLevel reports whether the node is a root of the tree.
func (wc *WalkContext) IsTopLevel() bool {
	return wc.Depth == 0
}
