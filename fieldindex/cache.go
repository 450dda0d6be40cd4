package fieldindex

import "github.com/erraggy/wmtools/webmap"

// Cache holds one index per node for the duration of a run. It is not safe
// for concurrent use.
type Cache struct {
	indexes map[*webmap.LayerNode]*Index
	builds  int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{indexes: make(map[*webmap.LayerNode]*Index)}
}

// For returns the index for node, building it on first use.
func (c *Cache) For(node *webmap.LayerNode) *Index {
	if idx, ok := c.indexes[node]; ok {
		return idx
	}
	idx := Build(node)
	c.indexes[node] = idx
	c.builds++
	return idx
}

// Invalidate drops the cached index for node.
func (c *Cache) Invalidate(node *webmap.LayerNode) {
	delete(c.indexes, node)
}

// Builds returns how many indexes the cache has built.
func (c *Cache) Builds() int {
	return c.builds
}
