package mcpserver

import (
	"context"

	"github.com/erraggy/wmtools/filter"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type patchFilterInput struct {
	WebMap          webmapInput `json:"webmap"                     jsonschema:"The web map to patch"`
	Field           string      `json:"field"                      jsonschema:"Only layers with this field (case-insensitive) are patched"`
	Expression      string      `json:"expression"                 jsonschema:"The definition expression to set, e.g. project_number = '123456'"`
	Apply           bool        `json:"apply,omitempty"            jsonschema:"Apply the changes. Without it the tool only reports what would change."`
	IncludeDocument bool        `json:"include_document,omitempty" jsonschema:"Include the resulting document in the output (apply only)"`
	Output          string      `json:"output,omitempty"           jsonschema:"File path to write the resulting document to (apply only)"`
	Offset          int         `json:"offset,omitempty"           jsonschema:"Skip the first N outcomes (for pagination)"`
	Limit           int         `json:"limit,omitempty"            jsonschema:"Maximum number of outcomes to return (default 100)"`
}

func (in patchFilterInput) write() writeOptions {
	return writeOptions{Apply: in.Apply, IncludeDocument: in.IncludeDocument, Output: in.Output, Offset: in.Offset, Limit: in.Limit}
}

func handlePatchFilter(ctx context.Context, _ *mcp.CallToolRequest, input patchFilterInput) (*mcp.CallToolResult, mutationOutput, error) {
	doc, err := input.WebMap.resolve(ctx)
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}

	res, err := filter.PatchWithOptions(
		filter.WithDocument(doc),
		filter.WithField(input.Field),
		filter.WithExpression(input.Expression),
		filter.WithMode(input.write().mode()),
	)
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}

	output, err := buildMutationOutput(res.Document, res.Result, input.write())
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}
	return nil, output, nil
}
