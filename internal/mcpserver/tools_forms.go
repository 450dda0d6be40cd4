package mcpserver

import (
	"context"

	"github.com/erraggy/wmtools/forms"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type updateFormInput struct {
	WebMap          webmapInput `json:"webmap"                     jsonschema:"The web map to update"`
	Field           string      `json:"field"                      jsonschema:"The field the form element edits"`
	ExpressionName  string      `json:"expression_name"            jsonschema:"Value expression name, e.g. expr/set-project-number"`
	ExpressionValue string      `json:"expression_value,omitempty" jsonschema:"Constant the value expression returns when it is created (random placeholder when omitted)"`
	Group           string      `json:"group,omitempty"            jsonschema:"Form group for the element (default Metadata)"`
	Label           string      `json:"label,omitempty"            jsonschema:"Element label; existing labels are kept unless set"`
	Editable        bool        `json:"editable,omitempty"         jsonschema:"Make the field editable in the form"`
	Apply           bool        `json:"apply,omitempty"            jsonschema:"Apply the changes. Without it the tool only reports what would change."`
	IncludeDocument bool        `json:"include_document,omitempty" jsonschema:"Include the resulting document in the output (apply only)"`
	Output          string      `json:"output,omitempty"           jsonschema:"File path to write the resulting document to (apply only)"`
	Offset          int         `json:"offset,omitempty"           jsonschema:"Skip the first N outcomes (for pagination)"`
	Limit           int         `json:"limit,omitempty"            jsonschema:"Maximum number of outcomes to return (default 100)"`
}

func (in updateFormInput) write() writeOptions {
	return writeOptions{Apply: in.Apply, IncludeDocument: in.IncludeDocument, Output: in.Output, Offset: in.Offset, Limit: in.Limit}
}

func handleUpdateForm(ctx context.Context, _ *mcp.CallToolRequest, input updateFormInput) (*mcp.CallToolResult, mutationOutput, error) {
	doc, err := input.WebMap.resolve(ctx)
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}

	u := forms.NewUpdater(forms.FieldUpdate{
		FieldName:       input.Field,
		ExpressionName:  input.ExpressionName,
		ExpressionValue: input.ExpressionValue,
		GroupName:       input.Group,
		Label:           input.Label,
		Editable:        input.Editable,
	}, input.write().mode())
	res, err := u.Update(doc)
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}

	output, err := buildMutationOutput(doc, res, input.write())
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}
	return nil, output, nil
}

type updateFormLayersInput struct {
	WebMap          webmapInput                  `json:"webmap"                     jsonschema:"The web map to update"`
	Layers          map[string]forms.FieldUpdate `json:"layers"                     jsonschema:"Update per layer, keyed by layer ID or service URL"`
	Apply           bool                         `json:"apply,omitempty"            jsonschema:"Apply the changes. Without it the tool only reports what would change."`
	IncludeDocument bool                         `json:"include_document,omitempty" jsonschema:"Include the resulting document in the output (apply only)"`
	Output          string                       `json:"output,omitempty"           jsonschema:"File path to write the resulting document to (apply only)"`
	Offset          int                          `json:"offset,omitempty"           jsonschema:"Skip the first N outcomes (for pagination)"`
	Limit           int                          `json:"limit,omitempty"            jsonschema:"Maximum number of outcomes to return (default 100)"`
}

func (in updateFormLayersInput) write() writeOptions {
	return writeOptions{Apply: in.Apply, IncludeDocument: in.IncludeDocument, Output: in.Output, Offset: in.Offset, Limit: in.Limit}
}

func handleUpdateFormLayers(ctx context.Context, _ *mcp.CallToolRequest, input updateFormLayersInput) (*mcp.CallToolResult, mutationOutput, error) {
	doc, err := input.WebMap.resolve(ctx)
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}

	res, err := forms.NewLayerUpdater(input.Layers, input.write().mode()).Update(doc)
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}

	output, err := buildMutationOutput(doc, res, input.write())
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}
	return nil, output, nil
}

type propagateFormInput struct {
	WebMap          webmapInput `json:"webmap"                     jsonschema:"The web map to update"`
	Source          string      `json:"source"                     jsonschema:"Title of the layer whose form is copied (case-sensitive, first match)"`
	Targets         []string    `json:"targets,omitempty"          jsonschema:"Titles of the layers to update; all other feature layers and tables when omitted"`
	Fields          []string    `json:"fields,omitempty"           jsonschema:"Field names to copy; every field element of the source form when omitted"`
	Apply           bool        `json:"apply,omitempty"            jsonschema:"Apply the changes. Without it the tool only reports what would change."`
	IncludeDocument bool        `json:"include_document,omitempty" jsonschema:"Include the resulting document in the output (apply only)"`
	Output          string      `json:"output,omitempty"           jsonschema:"File path to write the resulting document to (apply only)"`
	Offset          int         `json:"offset,omitempty"           jsonschema:"Skip the first N outcomes (for pagination)"`
	Limit           int         `json:"limit,omitempty"            jsonschema:"Maximum number of outcomes to return (default 100)"`
}

func (in propagateFormInput) write() writeOptions {
	return writeOptions{Apply: in.Apply, IncludeDocument: in.IncludeDocument, Output: in.Output, Offset: in.Offset, Limit: in.Limit}
}

func handlePropagateForm(ctx context.Context, _ *mcp.CallToolRequest, input propagateFormInput) (*mcp.CallToolResult, mutationOutput, error) {
	doc, err := input.WebMap.resolve(ctx)
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}

	p := &forms.Propagator{
		SourceTitle:  input.Source,
		TargetTitles: input.Targets,
		FieldNames:   input.Fields,
		Mode:         input.write().mode(),
	}
	res, err := p.Run(doc)
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}

	output, err := buildMutationOutput(doc, res, input.write())
	if err != nil {
		return errResult(err), mutationOutput{}, nil
	}
	return nil, output, nil
}
