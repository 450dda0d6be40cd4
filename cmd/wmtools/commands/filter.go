package commands

import (
	"github.com/erraggy/wmtools/filter"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/session"
	"github.com/spf13/cobra"
)

// FilterFlags contains flags for the filter command.
type FilterFlags struct {
	MutateFlags
	Field      string
	Expression string
}

// NewFilterCmd creates the filter subcommand.
func NewFilterCmd(g *GlobalFlags) *cobra.Command {
	flags := &FilterFlags{}
	cmd := &cobra.Command{
		Use:   "filter --field F --expression E [--apply] [webmap-id...]",
		Short: "Set the definition expression of every layer that has a field",
		Long: `Set the definition expression (filter) of every feature layer and table that
has the given field. The field is matched case-insensitively. Layers without
the field are reported as skipped and left unchanged. Without ids every web
map in --dir is processed.`,
		Example: `  wmtools filter --field project_number --expression "project_number = '123456'" wm1 wm2
  wmtools filter --field project_number --expression "project_number = '123456'" --apply --dir maps`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, &flags.MutateFlags, args, func(e *env, mode mutation.Mode) session.Mutator {
				p := filter.New(flags.Field, flags.Expression, mode)
				p.Logger = e.log
				return p
			})
		},
	}
	cmd.Flags().StringVar(&flags.Field, "field", "", "only layers with this field are patched")
	cmd.Flags().StringVar(&flags.Expression, "expression", "", "the definition expression to set")
	addMutateFlags(cmd, &flags.MutateFlags)
	_ = cmd.MarkFlagRequired("field")
	return cmd
}
