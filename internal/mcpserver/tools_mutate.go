package mcpserver

import (
	"fmt"

	"github.com/erraggy/wmtools/internal/fileutil"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/webmap"
)

// writeOptions are the output controls shared by every mutating tool.
type writeOptions struct {
	Apply           bool
	IncludeDocument bool
	Output          string
	Offset          int
	Limit           int
}

func (w writeOptions) mode() mutation.Mode {
	return mutation.ModeFor(!w.Apply)
}

type outcomeSummary struct {
	LayerID       string `json:"layer_id"`
	Title         string `json:"title,omitempty"`
	Field         string `json:"field,omitempty"`
	Applied       bool   `json:"applied"`
	Unchanged     bool   `json:"unchanged,omitempty"`
	Eligible      bool   `json:"eligible"`
	PreviousValue string `json:"previous_value,omitempty"`
	NewValue      string `json:"new_value,omitempty"`
	SkippedReason string `json:"skipped_reason,omitempty"`
	Detail        string `json:"detail,omitempty"`
	Error         string `json:"error,omitempty"`
}

type mutationOutput struct {
	DocumentID string           `json:"document_id,omitempty"`
	Mode       string           `json:"mode"`
	Success    bool             `json:"success"`
	Changed    bool             `json:"changed"`
	Total      int              `json:"total"`
	Applied    int              `json:"applied"`
	Eligible   int              `json:"eligible"`
	Returned   int              `json:"returned"`
	Outcomes   []outcomeSummary `json:"outcomes,omitempty"`
	WrittenTo  string           `json:"written_to,omitempty"`
	Document   string           `json:"document,omitempty"`
}

// buildMutationOutput summarizes res and, when applying, writes or inlines
// the resulting document.
func buildMutationOutput(doc *webmap.Document, res *mutation.Result, w writeOptions) (mutationOutput, error) {
	output := mutationOutput{
		DocumentID: doc.ID,
		Mode:       res.Mode.String(),
		Success:    res.Success,
		Changed:    res.Changed(),
		Total:      len(res.Outcomes),
		Applied:    len(res.Applied()),
	}

	all := makeSlice[outcomeSummary](len(res.Outcomes))
	for _, o := range res.Outcomes {
		if o.Eligible {
			output.Eligible++
		}
		all = append(all, outcomeSummary{
			LayerID:       o.LayerID,
			Title:         o.Title,
			Field:         o.Field,
			Applied:       o.Applied,
			Unchanged:     o.Unchanged,
			Eligible:      o.Eligible,
			PreviousValue: o.PreviousValue,
			NewValue:      o.NewValue,
			SkippedReason: o.SkippedReason,
			Detail:        o.Detail,
			Error:         o.Error,
		})
	}
	output.Outcomes = paginate(all, w.Offset, w.Limit)
	output.Returned = len(output.Outcomes)

	if res.Mode.IsDryRun() || (w.Output == "" && !w.IncludeDocument) {
		return output, nil
	}
	format := doc.SourceFormat
	if format == "" {
		format = webmap.SourceFormatJSON
	}
	data, err := doc.Marshal(format)
	if err != nil {
		return mutationOutput{}, err
	}
	if w.Output != "" {
		if err := fileutil.WriteAtomic(w.Output, data, fileutil.OwnerReadWrite); err != nil {
			return mutationOutput{}, fmt.Errorf("failed to write output file: %w", err)
		}
		output.WrittenTo = w.Output
	}
	if w.IncludeDocument {
		output.Document = string(data)
	}
	return output, nil
}
