package walker

import "github.com/erraggy/wmtools/webmap"

// LayerInfo contains information about a collected node.
type LayerInfo struct {
	// Node is the collected node.
	Node *webmap.LayerNode

	// JSONPath is the full JSON path to the node.
	JSONPath string

	// Depth is the nesting level, 0 at the top level.
	Depth int
}

// LayerCollector holds nodes collected during a walk.
type LayerCollector struct {
	// All contains every node in pre-order.
	All []*LayerInfo

	// Groups contains only group layers.
	Groups []*LayerInfo

	// Layers contains non-group, non-table nodes.
	Layers []*LayerInfo

	// Tables contains only tables.
	Tables []*LayerInfo

	// Queryable contains feature layers and tables, the nodes mutators target.
	Queryable []*LayerInfo

	// ByID provides lookup by layer ID.
	// If multiple nodes share an ID, only the first one is stored.
	ByID map[string]*LayerInfo
}

// CollectLayers walks the document and collects all nodes.
func CollectLayers(doc *webmap.Document) *LayerCollector {
	c := &LayerCollector{
		All:  make([]*LayerInfo, 0),
		ByID: make(map[string]*LayerInfo),
	}
	if doc == nil {
		return c
	}

	for wc, n := range All(doc.Roots()) {
		info := &LayerInfo{Node: n, JSONPath: wc.JSONPath, Depth: wc.Depth}
		c.All = append(c.All, info)
		if _, exists := c.ByID[n.ID]; !exists && n.ID != "" {
			c.ByID[n.ID] = info
		}

		switch n.Kind {
		case webmap.KindGroupLayer:
			c.Groups = append(c.Groups, info)
		case webmap.KindTable:
			c.Tables = append(c.Tables, info)
		default:
			c.Layers = append(c.Layers, info)
		}
		if n.IsQueryable() {
			c.Queryable = append(c.Queryable, info)
		}
	}
	return c
}
