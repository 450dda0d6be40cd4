// Package mcpserver implements an MCP (Model Context Protocol) server
// that exposes wmtools capabilities as MCP tools over stdio.
package mcpserver

import (
	"context"
	"regexp"

	"github.com/erraggy/wmtools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `wmtools MCP server: analyzes web maps and patches their filters and forms.

Every mutating tool is a dry run unless apply=true. Dry runs report exactly what would change.

Configuration: All defaults are configurable via WMTOOLS_* environment variables set in your MCP client config.

Key settings:
- WMTOOLS_RECORD_THRESHOLD (default: 10000): record count above which a layer is reported
- WMTOOLS_LAYER_THRESHOLD (default: 15): layer count above which a map is reported
- WMTOOLS_DEPTH_WARNING (default: 50): group nesting depth reported as a structural issue
- WMTOOLS_CACHE_ENABLED (default: true): disable document caching entirely
- WMTOOLS_CACHE_FILE_TTL (default: 15m): cache TTL for local files
- WMTOOLS_CACHE_URL_TTL (default: 5m): cache TTL for URL inputs
- WMTOOLS_LIST_LIMIT (default: 100): default result limit for issue and outcome lists
- WMTOOLS_ALLOW_PRIVATE_IPS (default: false): allow url inputs on private networks

Caching: Parsed web maps are cached per session. File entries use path+mtime as key. Tools always work on a copy, so a dry run never affects later calls.`

// Run starts the MCP server over stdio and blocks until the client disconnects
// or the context is cancelled.
func Run(ctx context.Context) error {
	if cfg.CacheEnabled {
		docCache.startSweeper(ctx, cfg.CacheSweepInterval)
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "wmtools", Version: wmtools.Version()},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	registerAllTools(server)
	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerAllTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze",
		Description: "Analyze a web map for performance and configuration problems. Returns a 0-100 score, a letter grade, per-category deductions and the issues found (record counts, layer age, reserved field names, field aliases, drawing optimization, query and editing capability, visibility ranges, popups, layer count, tree structure). Filter by category or severity and use offset/limit to paginate issues. Service-based checks need per-layer metadata.",
	}, handleAnalyze)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "patch_filter",
		Description: "Set the definition expression (filter) of every feature layer and table that has the given field. Layers without the field are skipped and left unchanged. Dry run unless apply=true. Use output to write the patched document to a file or include_document to return it.",
	}, handlePatchFilter)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_form",
		Description: "Add or update a form field element on every layer that has the given field, with a value expression and an editable flag. New elements go into the named group (default Metadata). The value expression and the system true/false expressions are added to the map when something changes. Dry run unless apply=true.",
	}, handleUpdateForm)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_form_layers",
		Description: "Add or update form field elements with different settings per layer in one pass. layers maps a layer ID or service URL to {field_name, expression_name, expression_value, group_name, field_label, editable}. Configured layers missing from the map are reported. Dry run unless apply=true.",
	}, handleUpdateFormLayers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "propagate_form",
		Description: "Copy field elements from the form of a source layer (matched by title) to other layers that have the same fields, keeping their groups and referenced expressions. Limit targets by title and fields by name. Dry run unless apply=true.",
	}, handlePropagateForm)
}

// paginate applies offset/limit pagination to a slice, returning the
// requested page. A non-positive limit defaults to cfg.ListLimit.
func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		limit = cfg.ListLimit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end < offset || end > len(items) { // overflow or beyond slice
		end = len(items)
	}
	return items[offset:end]
}

// makeSlice returns nil when n is 0 (preserving omitempty JSON semantics),
// otherwise returns make([]T, 0, n) for pre-allocated appending.
func makeSlice[T any](n int) []T {
	if n == 0 {
		return nil
	}
	return make([]T, 0, n)
}

// sanitizeError strips absolute filesystem paths from error messages
// to prevent leaking internal directory structure to MCP clients.
var pathPattern = regexp.MustCompile(`(?:/(?:home|tmp|var|Users|etc|opt|usr|private|root|mnt|srv|run|snap|nix)[a-zA-Z0-9._/-]*)`)

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return pathPattern.ReplaceAllString(err.Error(), "<path>")
}

// errResult creates an MCP error result from an error.
func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitizeError(err)}},
	}
}
