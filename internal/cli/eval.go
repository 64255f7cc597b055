package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// EvalResult is the value of an evaluated expression.
type EvalResult struct {
	Expr  string `json:"expr"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

func (r EvalResult) String() string {
	return r.Value
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expr>",
		Short: "Evaluate an expression against the resolved scope",
		Long: `Evaluate an expression with every macro and package in scope.

The cached scope is used when present; otherwise the record directory is
resolved and cached first.

Examples:
  swirl eval "addOne(5) + minusOne(3)"
  swirl eval "science.square(4)" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(rootOpts, args[0], cmd)
		},
	}
}

func runEval(opts *RootOptions, src string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return formatter.Fail(err)
	}
	defer ws.Close()

	scope, err := ws.scope(cmd.Context())
	if err != nil {
		return formatter.Fail(err)
	}

	v, err := scope.Evaluate(src, opts.Config.Limits())
	if err != nil {
		return formatter.Fail(fmt.Errorf("eval %q: %w", src, err))
	}
	return formatter.Success(EvalResult{Expr: src, Value: v.String(), Kind: v.Kind()})
}
