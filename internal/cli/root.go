// Package cli implements the swirl command line: resolving record
// directories, editing macros and evaluating queries against the cached
// scope.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/swirl/internal/config"
	"github.com/roach88/swirl/internal/logging"
)

// RootOptions holds global flags for all commands. Config is filled in
// before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	EnvPath    string
	CachePath  string
	Owner      string

	Config config.Config
}

// NewRootCommand creates the root command for the swirl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "swirl",
		Short: "swirl - user-defined macros for a safe expression language",
		Long: `Resolve directories of macro and package records into a compiled scope
and evaluate expressions against it.

Settings come from .swirl.yaml (or --config), SWIRL_* environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", config.DefaultFormat, "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default .swirl.yaml)")
	flags.StringVar(&opts.EnvPath, "envpath", config.DefaultEnvPath, "record directory")
	flags.StringVar(&opts.CachePath, "cachepath", config.DefaultCachePath, "cache directory")
	flags.StringVar(&opts.Owner, "owner", config.DefaultOwner, "owner of created macros")

	// Add subcommands
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// load merges the config file, environment and flags into opts.Config and
// installs the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	v := viper.New()
	for _, name := range []string{"verbose", "format", "envpath", "cachepath", "owner"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg, err := config.Load(v, o.ConfigFile)
	if err != nil {
		// Format may itself be the problem, so report in text.
		f := &OutputFormatter{Format: "text", Writer: cmd.ErrOrStderr()}
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}

	o.Config = cfg
	o.Verbose = cfg.Verbose
	o.Format = cfg.Format
	logging.Setup(logging.Options{
		Verbose: cfg.Verbose,
		JSON:    cfg.Format == "json",
		Writer:  cmd.ErrOrStderr(),
	})
	return nil
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
