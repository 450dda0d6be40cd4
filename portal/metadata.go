package portal

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/erraggy/wmtools/webmap"
)

// maxMetadataRequests bounds concurrent layer lookups per document.
const maxMetadataRequests = 4

// layerRef is a layer of the web map that points at a service or an item.
type layerRef struct {
	ID     string
	URL    string
	ItemID string
}

// serviceLayer is the subset of a feature service layer description the
// checks consume.
type serviceLayer struct {
	Capabilities              string             `json:"capabilities"`
	MaxRecordCount            *int               `json:"maxRecordCount"`
	TileMaxRecordCount        *int               `json:"tileMaxRecordCount"`
	Fields                    []webmap.FieldInfo `json:"fields"`
	AdvancedQueryCapabilities struct {
		SupportsStatistics bool `json:"supportsStatistics"`
		SupportsOrderBy    bool `json:"supportsOrderBy"`
		SupportsPagination bool `json:"supportsPagination"`
	} `json:"advancedQueryCapabilities"`
}

// itemData is the layer item's data, where item-level forms live.
type itemData struct {
	Layers []struct {
		ID       any            `json:"id"`
		FormInfo map[string]any `json:"formInfo"`
	} `json:"layers"`
	Tables []struct {
		ID       any            `json:"id"`
		FormInfo map[string]any `json:"formInfo"`
	} `json:"tables"`
}

// layerMetadata looks up every referenced layer. Lookups that fail are
// logged and leave that layer's metadata partial; they never fail the fetch.
func (c *Client) layerMetadata(ctx context.Context, raw map[string]any) map[string]webmap.LayerMetadata {
	refs := collectLayerRefs(raw)
	out := make(map[string]webmap.LayerMetadata, len(refs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxMetadataRequests)

	for _, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			meta := c.fetchLayerMetadata(ctx, ref)
			mu.Lock()
			out[ref.ID] = meta
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func (c *Client) fetchLayerMetadata(ctx context.Context, ref layerRef) webmap.LayerMetadata {
	var meta webmap.LayerMetadata
	log := c.logger().With("layer_id", ref.ID)

	if isServiceURL(ref.URL) {
		var svc serviceLayer
		if err := c.get(ctx, ref.URL, nil, &svc); err != nil {
			log.Warn("fetching layer service metadata", "url", ref.URL, "error", err)
		} else {
			meta.Service = &webmap.ServiceInfo{
				Capabilities:       svc.Capabilities,
				SupportsStatistics: svc.AdvancedQueryCapabilities.SupportsStatistics,
				SupportsOrderBy:    svc.AdvancedQueryCapabilities.SupportsOrderBy,
				SupportsPagination: svc.AdvancedQueryCapabilities.SupportsPagination,
				TileMaxRecordCount: svc.TileMaxRecordCount,
				MaxRecordCount:     svc.MaxRecordCount,
			}
			for _, f := range svc.Fields {
				if f.Alias == "" {
					f.Alias = f.Name
				}
				meta.Fields = append(meta.Fields, f)
			}
			if n, err := c.recordCount(ctx, ref.URL); err != nil {
				log.Warn("counting layer records", "url", ref.URL, "error", err)
			} else {
				meta.Service.RecordCount = &n
			}
		}
	}

	if ref.ItemID != "" {
		var item itemInfo
		if err := c.get(ctx, c.itemURL(ref.ItemID), nil, &item); err != nil {
			log.Warn("fetching layer item", "item_id", ref.ItemID, "error", err)
		} else {
			meta.CreatedDate = parseEpochMillis(item.Created)
		}
		var data itemData
		if err := c.get(ctx, c.itemURL(ref.ItemID)+"/data", nil, &data); err != nil {
			log.Debug("layer item has no data", "item_id", ref.ItemID, "error", err)
		} else {
			meta.ItemForm = data.form(layerIndex(ref.URL))
		}
	}
	return meta
}

func (c *Client) recordCount(ctx context.Context, layerURL string) (int, error) {
	q := url.Values{
		"where":           {"1=1"},
		"returnCountOnly": {"true"},
	}
	var res struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, strings.TrimRight(layerURL, "/")+"/query", q, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// form returns the form defined for the sublayer with the given index, or the
// only form in the item when the index is unknown.
func (d itemData) form(index string) *webmap.FormConfig {
	var forms []map[string]any
	for _, l := range d.Layers {
		if l.FormInfo == nil {
			continue
		}
		if index != "" && idString(l.ID) == index {
			return webmap.ParseFormConfig(l.FormInfo, webmap.FormSourceLayer)
		}
		forms = append(forms, l.FormInfo)
	}
	for _, t := range d.Tables {
		if t.FormInfo == nil {
			continue
		}
		if index != "" && idString(t.ID) == index {
			return webmap.ParseFormConfig(t.FormInfo, webmap.FormSourceLayer)
		}
		forms = append(forms, t.FormInfo)
	}
	if index == "" && len(forms) == 1 {
		return webmap.ParseFormConfig(forms[0], webmap.FormSourceLayer)
	}
	return nil
}

func idString(v any) string {
	switch id := v.(type) {
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case string:
		return id
	}
	return ""
}

func isServiceURL(u string) bool {
	return strings.Contains(u, "/FeatureServer")
}

// collectLayerRefs lists the layers and tables of the raw document in
// pre-order, descending into group layers.
func collectLayerRefs(raw map[string]any) []layerRef {
	var refs []layerRef
	seen := make(map[string]bool)
	var visit func(items []any)
	visit = func(items []any) {
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, _ := m["id"].(string)
			u, _ := m["url"].(string)
			itemID, _ := m["itemId"].(string)
			if id != "" && !seen[id] && (u != "" || itemID != "") {
				seen[id] = true
				refs = append(refs, layerRef{ID: id, URL: u, ItemID: itemID})
			}
			if children, ok := m["layers"].([]any); ok {
				visit(children)
			}
		}
	}
	for _, key := range []string{"operationalLayers", "tables"} {
		if items, ok := raw[key].([]any); ok {
			visit(items)
		}
	}
	return refs
}
