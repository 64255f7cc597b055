package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/swirl/internal/ir"
	"github.com/roach88/swirl/internal/resolver"
)

// ResolveResult summarizes a successful resolve.
type ResolveResult struct {
	Generation string   `json:"generation"`
	Packages   []string `json:"packages"`
	Macros     []string `json:"macros"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the record directory and refresh the cache",
		Long: `Load every record in the record directory, compile and self test all
packages and macros, and replace the cache with the result.

Malformed record files are skipped with a warning. Any validation,
build or dependency cycle error aborts the resolve and leaves the cache
unchanged.

Exit codes:
  0 - Resolved
  1 - A record was rejected
  2 - Command error (unreadable directory, cache failure)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, cmd)
		},
	}
}

func runResolve(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return formatter.Fail(err)
	}
	defer ws.Close()

	formatter.VerboseLog("Resolving %s", ws.store.Dir())
	res, err := ws.resolve(cmd.Context())
	if err != nil {
		return formatter.Fail(err)
	}
	return outputResolve(formatter, res)
}

func outputResolve(formatter *OutputFormatter, res *resolver.Result) error {
	names := make([]string, len(res.Environment.Packages))
	for i, p := range res.Environment.Packages {
		names[i] = p.Name
	}
	result := ResolveResult{
		Generation: res.Generation,
		Packages:   names,
		Macros:     ir.MacroNames(res.Environment.Macros),
	}
	return formatter.Done(result, "Resolved %d package(s), %d macro(s) %s",
		len(result.Packages), len(result.Macros), dimStyle.Render("generation "+result.Generation))
}
