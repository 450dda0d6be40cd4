package commands

import (
	"github.com/erraggy/wmtools"
	"github.com/erraggy/wmtools/internal/cliutil"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliutil.Writef(cmd.OutOrStdout(), "%s\n", wmtools.BuildInfo())
			return nil
		},
	}
}
