package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/swirl/internal/ir"
	"github.com/roach88/swirl/internal/mutate"
)

// defaultDescription is stored for macros created without --desc.
const defaultDescription = "No description"

// MacroOptions holds flags shared by create and edit.
type MacroOptions struct {
	*RootOptions
	Name        string
	Vars        string // Comma separated, or a ['a', 'b=2'] list
	Formula     string
	Description string
}

func (o *MacroOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Name, "name", "", "macro name")
	cmd.Flags().StringVar(&o.Vars, "vars", "", "variables, e.g. \"n, m=2\"")
	cmd.Flags().StringVar(&o.Formula, "formula", "", "formula expression")
	cmd.Flags().StringVar(&o.Description, "desc", "", "description")
}

// data converts the flags to mutate.MacroData. Variables stay nil unless
// --vars was given so that edit keeps the current list.
func (o *MacroOptions) data(cmd *cobra.Command) (mutate.MacroData, error) {
	data := mutate.MacroData{
		Name:        o.Name,
		Formula:     o.Formula,
		Description: o.Description,
	}
	if cmd.Flags().Changed("vars") {
		vars, err := mutate.ParseVariables(o.Vars)
		if err != nil {
			return mutate.MacroData{}, err
		}
		data.Variables = vars
	}
	return data, nil
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MacroOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a macro",
		Long: `Create a macro owned by --owner.

The macro is validated and test built together with the current
environment before its record is written. The id is derived from the
owner and name.

Examples:
  swirl create --name addOne --vars n --formula "n + 1"
  swirl create --name scale --vars "x, by=2" --formula "x * by" --desc "Scale x"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("formula")

	return cmd
}

func runCreate(opts *MacroOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := opts.data(cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	data.OwnerID = opts.Config.Owner
	if data.Variables == nil {
		data.Variables = mutate.Variables{}
	}
	if data.Description == "" {
		data.Description = defaultDescription
	}

	ws, err := openWorkspace(opts.RootOptions)
	if err != nil {
		return formatter.Fail(err)
	}
	defer ws.Close()

	m, err := ws.mutator().Create(cmd.Context(), data)
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Done(m, "Created macro %s %s", m.Name, dimStyle.Render(m.ID))
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MacroOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a macro",
		Long: `Edit the macro with the given id. Only the given flags change.

Renaming a macro changes its id; the record file is renamed with it.

Examples:
  swirl edit 3f2a... --formula "n + 2"
  swirl edit 3f2a... --name increment`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args[0], cmd)
		},
	}

	opts.bind(cmd)

	return cmd
}

func runEdit(opts *MacroOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := opts.data(cmd)
	if err != nil {
		return formatter.Fail(err)
	}

	ws, err := openWorkspace(opts.RootOptions)
	if err != nil {
		return formatter.Fail(err)
	}
	defer ws.Close()

	m, err := ws.mutator().Edit(cmd.Context(), id, data)
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Done(m, "Edited macro %s %s", m.Name, dimStyle.Render(m.ID))
}

// DeleteResult reports a deleted record.
type DeleteResult struct {
	Kind ir.RecordKind `json:"kind"`
	ID   string        `json:"id"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a macro",
		Long: `Delete the macro record with the given id and invalidate the cache.

Nothing is resolved; the next command that needs the scope resolves the
remaining records.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
}

func runDelete(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return formatter.Fail(err)
	}
	defer ws.Close()

	if err := ws.mutator().Delete(cmd.Context(), id); err != nil {
		return formatter.Fail(err)
	}
	return formatter.Done(DeleteResult{Kind: ir.KindMacro, ID: id}, "Deleted macro %s", id)
}
