// Package commands implements the wmtools CLI commands.
package commands

import (
	"github.com/erraggy/wmtools"
	"github.com/spf13/cobra"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	Dir        string
	PortalURL  string
}

// NewRootCmd creates the root wmtools command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &GlobalFlags{}
	root := &cobra.Command{
		Use:   "wmtools",
		Short: "wmtools - analyze and patch ArcGIS web maps",
		Long: `wmtools analyzes web maps for performance and configuration problems and
patches layer filters and forms across many maps at once.

Web maps are read from a directory of <id>.json files (--dir) or from a
portal (--portal). Mutating commands are dry runs unless --apply is given
or the configuration sets debug: false.`,
		Version:       wmtools.Version(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "YAML configuration file")
	pf.StringVar(&flags.LogLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.StringVar(&flags.Dir, "dir", ".", "directory holding web map files")
	pf.StringVar(&flags.PortalURL, "portal", "", "portal sharing REST URL, e.g. https://www.arcgis.com/sharing/rest (overrides --dir)")

	root.AddCommand(NewAnalyzeCmd(flags))
	root.AddCommand(NewFilterCmd(flags))
	root.AddCommand(NewFormCmd(flags))
	root.AddCommand(NewMCPCmd())
	root.AddCommand(NewVersionCmd())
	return root
}
