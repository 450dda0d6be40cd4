// Package portal provides the stores that load and save web maps for a
// mutation session: a directory of JSON or YAML files and a client for a
// portal's REST content API.
//
// Both implement [session.Store] and [session.Copier].
//
// # File store
//
// A [FileStore] keeps each web map in <id>.json (or <id>.yaml). Layer metadata
// the checks need (service capabilities, record counts, creation dates and
// item forms) can be supplied in an optional <id>.meta.json side file:
//
//	{
//	  "title": "Road Inspections",
//	  "layers": {
//	    "roads-1": {"created_date": "2021-03-01T00:00:00Z", "service": {"capabilities": "Query"}}
//	  }
//	}
//
// # REST client
//
// A [Client] fetches the item and its data, then the service metadata of
// every feature layer in the map. Writes go through the owner's item update
// endpoint.
//
//	c, err := portal.NewClient("https://www.arcgis.com", portal.WithToken(tok))
//	doc, err := c.Fetch(ctx, "4f2e...")
package portal
