package commands

import (
	"fmt"
	"os"

	"github.com/erraggy/wmtools/forms"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/session"
	"github.com/spf13/cobra"
)

// NewFormCmd creates the form command group.
func NewFormCmd(g *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Update and propagate layer form elements",
	}
	cmd.AddCommand(NewFormUpdateCmd(g))
	cmd.AddCommand(NewFormUpdateLayersCmd(g))
	cmd.AddCommand(NewFormPropagateCmd(g))
	return cmd
}

// FormUpdateFlags contains flags for the form update command.
type FormUpdateFlags struct {
	MutateFlags
	Field          string
	ExpressionName string
	Value          string
	Group          string
	Label          string
	Editable       bool
}

// NewFormUpdateCmd creates the form update subcommand.
func NewFormUpdateCmd(g *GlobalFlags) *cobra.Command {
	flags := &FormUpdateFlags{}
	cmd := &cobra.Command{
		Use:   "update --field F --expression-name N [flags] [webmap-id...]",
		Short: "Add or update a form field element on every layer that has a field",
		Long: `Add or update the form element of a field on every feature layer and table
that has it. New elements go into the named group (default Metadata) and an
existing element outside that group is moved into it. The value expression
is added to the web map when something changes; --value sets the constant it
returns when it is created.`,
		Example: `  wmtools form update --field project_number --expression-name expr/set-project-number --value 123456 wm1
  wmtools form update --field status --expression-name expr/set-status --editable --apply wm1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, &flags.MutateFlags, args, func(e *env, mode mutation.Mode) session.Mutator {
				u := forms.NewUpdater(forms.FieldUpdate{
					FieldName:       flags.Field,
					ExpressionName:  flags.ExpressionName,
					ExpressionValue: flags.Value,
					GroupName:       flags.Group,
					Label:           flags.Label,
					Editable:        flags.Editable,
				}, mode)
				u.Logger = e.log
				return u
			})
		},
	}
	cmd.Flags().StringVar(&flags.Field, "field", "", "the field the form element edits")
	cmd.Flags().StringVar(&flags.ExpressionName, "expression-name", "", "value expression name, e.g. expr/set-project-number")
	cmd.Flags().StringVar(&flags.Value, "value", "", "constant returned by a newly created value expression")
	cmd.Flags().StringVar(&flags.Group, "group", "", "form group for the element (default Metadata)")
	cmd.Flags().StringVar(&flags.Label, "label", "", "element label; existing labels are kept unless set")
	cmd.Flags().BoolVar(&flags.Editable, "editable", false, "make the field editable in the form")
	addMutateFlags(cmd, &flags.MutateFlags)
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("expression-name")
	return cmd
}

// FormUpdateLayersFlags contains flags for the form update-layers command.
type FormUpdateLayersFlags struct {
	MutateFlags
	Layers string
}

// NewFormUpdateLayersCmd creates the form update-layers subcommand.
func NewFormUpdateLayersCmd(g *GlobalFlags) *cobra.Command {
	flags := &FormUpdateLayersFlags{}
	cmd := &cobra.Command{
		Use:   "update-layers --layers FILE [flags] [webmap-id...]",
		Short: "Add or update form field elements with different settings per layer",
		Long: `Add or update form field elements using a YAML or JSON file that maps a layer
ID or service URL to its update:

  active:
    field_name: project_number
    expression_name: expr/set-project-number
    expression_value: "123456"
    group_name: Project Info
  archive:
    field_name: status
    expression_name: expr/set-status
    field_label: Status
    editable: true

Layers not in the file are left alone. Configured layers missing from a web
map are reported.`,
		Example: `  wmtools form update-layers --layers layers.yaml wm1
  wmtools form update-layers --layers layers.json --apply wm1 wm2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(flags.Layers)
			if err != nil {
				return fmt.Errorf("reading layer updates: %w", err)
			}
			updates, err := forms.ParseLayerUpdates(data)
			if err != nil {
				return err
			}
			if err := forms.NewLayerUpdater(updates, mutation.DryRun).Validate(); err != nil {
				return err
			}
			return runBatch(cmd, g, &flags.MutateFlags, args, func(e *env, mode mutation.Mode) session.Mutator {
				lu := forms.NewLayerUpdater(updates, mode)
				lu.Logger = e.log
				return lu
			})
		},
	}
	cmd.Flags().StringVar(&flags.Layers, "layers", "", "YAML or JSON file of updates keyed by layer ID or URL")
	addMutateFlags(cmd, &flags.MutateFlags)
	_ = cmd.MarkFlagRequired("layers")
	return cmd
}

// FormPropagateFlags contains flags for the form propagate command.
type FormPropagateFlags struct {
	MutateFlags
	Source  string
	Targets []string
	Fields  []string
}

// NewFormPropagateCmd creates the form propagate subcommand.
func NewFormPropagateCmd(g *GlobalFlags) *cobra.Command {
	flags := &FormPropagateFlags{}
	cmd := &cobra.Command{
		Use:   "propagate --source TITLE [--target T]... [--fields a,b] [webmap-id...]",
		Short: "Copy form elements from one layer to the other layers of a map",
		Long: `Copy field elements from the form of the source layer, matched by title, to
the other feature layers and tables that have the same fields. Elements keep
their group and the expressions they reference are copied along.`,
		Example: `  wmtools form propagate --source "Active Projects" --fields project_number,status wm1
  wmtools form propagate --source "Active Projects" --target Archive --apply wm1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, &flags.MutateFlags, args, func(e *env, mode mutation.Mode) session.Mutator {
				return &forms.Propagator{
					SourceTitle:  flags.Source,
					TargetTitles: flags.Targets,
					FieldNames:   flags.Fields,
					Mode:         mode,
					Logger:       e.log,
				}
			})
		},
	}
	cmd.Flags().StringVar(&flags.Source, "source", "", "title of the layer whose form is copied")
	cmd.Flags().StringArrayVar(&flags.Targets, "target", nil, "title of a layer to update (repeatable; default all other layers)")
	cmd.Flags().StringSliceVar(&flags.Fields, "fields", nil, "field names to copy (default every field element of the source form)")
	addMutateFlags(cmd, &flags.MutateFlags)
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
