package commands

import (
	"fmt"
	"io"

	"github.com/erraggy/wmtools/checks"
	"github.com/erraggy/wmtools/internal/cliutil"
	"github.com/erraggy/wmtools/session"
	"github.com/spf13/cobra"
)

// AnalyzeFlags contains flags for the analyze command.
type AnalyzeFlags struct {
	Format          string
	RecordThreshold int
	LayerThreshold  int
}

// NewAnalyzeCmd creates the analyze subcommand.
func NewAnalyzeCmd(g *GlobalFlags) *cobra.Command {
	flags := &AnalyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [--format text|json|yaml|csv] [webmap-id...]",
		Short: "Score web maps and report performance and configuration issues",
		Long: `Analyze web maps for performance and configuration problems and print a
0-100 score with a letter grade, the deductions per category and every issue
found. Without ids every web map in --dir is analyzed. Record counts, layer
age, drawing and capability checks need per-layer service metadata from the
portal or an <id>.meta.json side file.`,
		Example: `  wmtools analyze --dir maps
  wmtools analyze --portal https://www.arcgis.com/sharing/rest --format json 3f2a9c
  wmtools analyze --format csv --record-threshold 5000 wm1 wm2 > issues.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, g, flags, args)
		},
	}
	cmd.Flags().StringVarP(&flags.Format, "format", "f", cliutil.FormatText, "output format: text, json, yaml or csv")
	cmd.Flags().IntVar(&flags.RecordThreshold, "record-threshold", 0, "report layers with more records than this (default from configuration)")
	cmd.Flags().IntVar(&flags.LayerThreshold, "layer-threshold", 0, "report maps with more layers and tables than this (default from configuration)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, g *GlobalFlags, flags *AnalyzeFlags, args []string) error {
	if err := cliutil.ValidateOutputFormat(flags.Format,
		cliutil.FormatText, cliutil.FormatJSON, cliutil.FormatYAML, cliutil.FormatCSV); err != nil {
		return err
	}
	e, err := g.setup(cmd)
	if err != nil {
		return err
	}
	defer e.close(cmd.Context())

	ids, err := e.ids(args)
	if err != nil {
		return err
	}
	opts := append(e.cfg.CheckOptions(), checks.WithLogger(e.log))
	if flags.RecordThreshold > 0 {
		opts = append(opts, checks.WithRecordCountThreshold(flags.RecordThreshold))
	}
	if flags.LayerThreshold > 0 {
		opts = append(opts, checks.WithLayerCountThreshold(flags.LayerThreshold))
	}
	reports := e.session(e.cfg.Mode(), false).Analyze(cmd.Context(), ids, checks.New(opts...))

	w := cmd.OutOrStdout()
	switch flags.Format {
	case cliutil.FormatText:
		writeReportsText(w, reports)
	case cliutil.FormatCSV:
		var rows [][]string
		for _, r := range reports {
			if r.Result != nil {
				rows = append(rows, r.Result.Rows()...)
			}
		}
		if err := cliutil.OutputCSV(w, checks.CSVHeader, rows); err != nil {
			return err
		}
	default:
		if err := cliutil.OutputStructured(w, reports, flags.Format); err != nil {
			return err
		}
	}

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d web maps could not be analyzed", failed, len(reports))
	}
	return nil
}

func writeReportsText(w io.Writer, reports []session.Report) {
	for _, r := range reports {
		title := r.WebMapID
		if r.Title != "" {
			title = fmt.Sprintf("%s (%s)", r.WebMapID, r.Title)
		}
		cliutil.Heading(w, title)
		if r.Err != nil {
			cliutil.Writef(w, "✗ could not load: %v\n\n", r.Err)
			continue
		}
		res := r.Result
		cliutil.Writef(w, "Score: %d (%s)\n", r.Score.Value, r.Score.Grade)
		cliutil.Writef(w, "Layers: %d, tables: %d, groups: %d, max depth: %d\n",
			res.Stats.LayerCount, res.Stats.TableCount, res.Stats.GroupCount, res.Stats.MaxDepth)
		cliutil.Writef(w, "Issues: %s\n", res.Summary())
		if len(r.Score.Deductions) > 0 {
			cliutil.Writef(w, "\nDeductions:\n")
			for _, d := range r.Score.Deductions {
				cliutil.Writef(w, "  %-22s %3d issue(s)  -%.1f\n", d.Category, d.Issues, d.Points)
			}
		}
		if len(res.Issues) > 0 {
			cliutil.Writef(w, "\n")
			for _, iss := range res.Issues {
				cliutil.Writef(w, "%s\n", iss)
			}
		}
		cliutil.Writef(w, "\n")
	}
}
