package commands

import (
	"github.com/erraggy/wmtools/internal/mcpserver"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the mcp subcommand.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server over stdio exposing the analyze,
patch_filter, update_form and propagate_form tools. Settings come from
WMTOOLS_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return mcpserver.Run(cmd.Context())
		},
	}
}
