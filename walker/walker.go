package walker

import (
	"context"
	"fmt"
	"iter"

	"github.com/erraggy/wmtools/webmap"
)

// Action controls the walker's behavior after visiting a node.
type Action int

const (
	// Continue continues walking normally, visiting children and siblings.
	Continue Action = iota

	// SkipChildren skips all children of the current node but continues with siblings.
	SkipChildren

	// Stop stops the walk immediately. No more nodes will be visited.
	Stop
)

// IsValid returns true if the action is one of the defined constants.
func (a Action) IsValid() bool {
	return a >= Continue && a <= Stop
}

// String returns a string representation of the action.
func (a Action) String() string {
	switch a {
	case Continue:
		return "Continue"
	case SkipChildren:
		return "SkipChildren"
	case Stop:
		return "Stop"
	default:
		return fmt.Sprintf("Action(%d)", a)
	}
}

// Structural reasons passed to a StructuralHandler.
const (
	// ReasonCycle means the node was already visited in this walk.
	ReasonCycle = "cycle"
	// ReasonDepth means the node is nested deeper than the depth warning threshold.
	ReasonDepth = "depth"
)

// DefaultDepthWarning is the nesting depth past which a depth warning is reported.
const DefaultDepthWarning = 50

// LayerHandler is called for every non-group node: feature layers, tables and
// other layers.
type LayerHandler func(wc *WalkContext, node *webmap.LayerNode) Action

// GroupHandler is called for every group layer before its children.
type GroupHandler func(wc *WalkContext, group *webmap.LayerNode) Action

// LayerPostHandler is called for every visited node after its children.
// It is not called for nodes whose handler returned Stop.
type LayerPostHandler func(wc *WalkContext, node *webmap.LayerNode)

// StructuralHandler is called when the walker detects a structural problem.
// The reason is either "cycle" when the node was already visited, or "depth"
// when the node crosses the depth warning threshold.
type StructuralHandler func(reason string, node *webmap.LayerNode, path string)

// Walker traverses layer trees and calls handlers for each node.
type Walker struct {
	onLayer      LayerHandler
	onGroup      GroupHandler
	onPost       LayerPostHandler
	onStructural StructuralHandler

	depthWarning int
	userCtx      context.Context
}

// New creates a new Walker with default settings.
func New() *Walker {
	return &Walker{
		depthWarning: DefaultDepthWarning,
	}
}

// Option configures the Walker.
type Option func(*Walker)

// WithLayerHandler sets the handler for non-group nodes.
func WithLayerHandler(fn LayerHandler) Option {
	return func(w *Walker) { w.onLayer = fn }
}

// WithGroupHandler sets the handler for group layers.
func WithGroupHandler(fn GroupHandler) Option {
	return func(w *Walker) { w.onGroup = fn }
}

// WithLayerPostHandler sets the handler called after a node's children.
func WithLayerPostHandler(fn LayerPostHandler) Option {
	return func(w *Walker) { w.onPost = fn }
}

// WithStructuralHandler sets the handler called for cycles and excessive depth.
func WithStructuralHandler(fn StructuralHandler) Option {
	return func(w *Walker) { w.onStructural = fn }
}

// WithDepthWarning sets the depth warning threshold.
// If depth is not positive, the default (50) is kept.
func WithDepthWarning(depth int) Option {
	return func(w *Walker) {
		if depth > 0 {
			w.depthWarning = depth
		}
	}
}

// WithUserContext sets the context made available to handlers via wc.Context().
func WithUserContext(ctx context.Context) Option {
	return func(w *Walker) {
		w.userCtx = ctx
	}
}

// Walk traverses roots and calls registered handlers for each node.
// Roots are typically [webmap.Document.Roots]: operational layers followed by tables.
func Walk(roots []*webmap.LayerNode, opts ...Option) error {
	w := New()
	for _, opt := range opts {
		opt(w)
	}
	return w.run(roots, w.dispatch)
}

// WalkDocument walks every operational layer and table of doc.
func WalkDocument(doc *webmap.Document, opts ...Option) error {
	if doc == nil {
		return fmt.Errorf("walker: nil Document")
	}
	return Walk(doc.Roots(), opts...)
}

// All returns a lazy pre-order sequence of every node, groups included.
// Layer and group handlers are not used; a structural handler still is.
// The WalkContext yielded with each node must not be retained past the
// iteration step that produced it.
func All(roots []*webmap.LayerNode, opts ...Option) iter.Seq2[*WalkContext, *webmap.LayerNode] {
	return func(yield func(*WalkContext, *webmap.LayerNode) bool) {
		w := New()
		for _, opt := range opts {
			opt(w)
		}
		_ = w.run(roots, func(wc *WalkContext, n *webmap.LayerNode) Action {
			if !yield(wc, n) {
				return Stop
			}
			return Continue
		})
	}
}

func (w *Walker) dispatch(wc *WalkContext, n *webmap.LayerNode) Action {
	if n.IsGroup() {
		if w.onGroup != nil {
			return w.onGroup(wc, n)
		}
		return Continue
	}
	if w.onLayer != nil {
		return w.onLayer(wc, n)
	}
	return Continue
}

// frame is one pending entry of the explicit traversal stack.
type frame struct {
	node   *webmap.LayerNode
	parent *webmap.LayerNode
	path   string
	depth  int
	// post marks the entry that fires the post handler once children are done.
	post bool
	wc   *WalkContext
}

// run performs an iterative pre-order traversal over an explicit stack.
func (w *Walker) run(roots []*webmap.LayerNode, visit func(*WalkContext, *webmap.LayerNode) Action) error {
	visited := make(map[*webmap.LayerNode]bool)

	stack := make([]frame, 0, len(roots))
	layerIdx, tableIdx := 0, 0
	rootFrames := make([]frame, 0, len(roots))
	for _, r := range roots {
		if r == nil {
			continue
		}
		var path string
		if r.Kind == webmap.KindTable {
			path = fmt.Sprintf("$.tables[%d]", tableIdx)
			tableIdx++
		} else {
			path = fmt.Sprintf("$.operationalLayers[%d]", layerIdx)
			layerIdx++
		}
		rootFrames = append(rootFrames, frame{node: r, path: path})
	}
	for i := len(rootFrames) - 1; i >= 0; i-- {
		stack = append(stack, rootFrames[i])
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.post {
			w.onPost(f.wc, f.node)
			continue
		}
		if visited[f.node] {
			w.structural(ReasonCycle, f.node, f.path)
			continue
		}
		visited[f.node] = true

		if f.depth == w.depthWarning+1 {
			w.structural(ReasonDepth, f.node, f.path)
		}

		wc := &WalkContext{
			JSONPath: f.path,
			Depth:    f.depth,
			Parent:   f.parent,
			ctx:      w.userCtx,
		}
		action := visit(wc, f.node)
		if !action.IsValid() {
			return fmt.Errorf("walker: handler returned invalid action %s at %s", action, f.path)
		}
		if action == Stop {
			return nil
		}
		if w.onPost != nil {
			stack = append(stack, frame{node: f.node, post: true, wc: wc})
		}
		if action == SkipChildren {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			child := f.node.Children[i]
			if child == nil {
				continue
			}
			stack = append(stack, frame{
				node:   child,
				parent: f.node,
				path:   fmt.Sprintf("%s.layers[%d]", f.path, i),
				depth:  f.depth + 1,
			})
		}
	}
	return nil
}

func (w *Walker) structural(reason string, n *webmap.LayerNode, path string) {
	if w.onStructural != nil {
		w.onStructural(reason, n, path)
	}
}
