package commands

import (
	"fmt"
	"io"

	"github.com/erraggy/wmtools/internal/cliutil"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/session"
	"github.com/spf13/cobra"
)

// MutateFlags are the flags shared by every mutating command.
type MutateFlags struct {
	Apply    bool
	SaveCopy bool
	Format   string
}

func addMutateFlags(cmd *cobra.Command, flags *MutateFlags) {
	cmd.Flags().BoolVar(&flags.Apply, "apply", false, "write the changes (default: dry run unless the configuration sets debug: false)")
	cmd.Flags().BoolVar(&flags.SaveCopy, "copy", false, "save each changed web map as a copy titled with the configured suffix")
	cmd.Flags().StringVarP(&flags.Format, "format", "f", cliutil.FormatText, "output format: text, json or yaml")
}

// runBatch runs one job per web map with mutator and reports the result.
// It returns an error when any document failed.
func runBatch(cmd *cobra.Command, g *GlobalFlags, flags *MutateFlags, args []string, newMutator func(e *env, mode mutation.Mode) session.Mutator) error {
	if err := cliutil.ValidateOutputFormat(flags.Format, cliutil.FormatText, cliutil.FormatJSON, cliutil.FormatYAML); err != nil {
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
	mode := e.mode(flags.Apply)
	mutator := newMutator(e, mode)
	jobs := make([]session.Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, session.Job{WebMapID: id, Mutator: mutator})
	}

	batch := e.session(mode, flags.SaveCopy).Run(cmd.Context(), jobs)
	if flags.Format == cliutil.FormatText {
		writeBatchText(cmd.OutOrStdout(), batch)
	} else if err := cliutil.OutputStructured(cmd.OutOrStdout(), batch, flags.Format); err != nil {
		return err
	}

	if failed := batch.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d web maps failed", len(failed), len(batch.Documents))
	}
	return nil
}

func writeBatchText(w io.Writer, batch *session.BatchResult) {
	cliutil.Heading(w, fmt.Sprintf("Run %s (%s)", batch.RunID, batch.Mode))

	var applied, skipped, failed int
	for _, d := range batch.Documents {
		if d.Title != "" {
			cliutil.Writef(w, "%s (%s)\n", d.WebMapID, d.Title)
		} else {
			cliutil.Writef(w, "%s\n", d.WebMapID)
		}
		if d.Err != nil {
			cliutil.Writef(w, "  ✗ %s failed: %v\n\n", d.Stage, d.Err)
			continue
		}
		for _, o := range d.Result.Outcomes {
			writeOutcome(w, o)
			switch {
			case o.Failed():
				failed++
			case o.Applied:
				applied++
			default:
				skipped++
			}
		}
		switch {
		case d.CopyID != "":
			cliutil.Writef(w, "  saved as copy %s\n", d.CopyID)
		case d.Persisted:
			cliutil.Writef(w, "  saved\n")
		}
		cliutil.Writef(w, "\n")
	}
	cliutil.Writef(w, "%d applied, %d skipped, %d failed across %d web maps\n",
		applied, skipped, failed, len(batch.Documents))
}

func writeOutcome(w io.Writer, o mutation.Outcome) {
	symbol := "-"
	switch {
	case o.Failed():
		symbol = "✗"
	case o.Applied:
		symbol = "✓"
	}
	cliutil.Writef(w, "  %s %s\n", symbol, o)
}
