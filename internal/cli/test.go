package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/swirl/internal/harness"
	"github.com/roach88/swirl/internal/ir"
	"github.com/roach88/swirl/internal/records"
	"github.com/roach88/swirl/internal/resolver"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on the file name)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>...",
		Short: "Run query scenarios",
		Long: `Run scenario files: resolve each scenario's records and inline macros,
then evaluate its queries and compare the results.

Directories are searched for *.yaml files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  swirl test ./scenarios
  swirl test ./scenarios --filter "arith*"
  swirl test arithmetic.yaml --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := findScenarioFiles(paths, opts.Filter)
	if err != nil {
		return formatter.Fail(err)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	for _, file := range files {
		formatter.VerboseLog("Running %s", file)
		sr := runScenario(opts, file, cmd)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		if err := outputTestJSON(formatter, result); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// runScenario loads, resolves and runs one scenario. Load and resolve
// failures fail the scenario.
func runScenario(opts *TestOptions, file string, cmd *cobra.Command) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(err error) ScenarioResult {
		sr.Errors = append(sr.Errors, fmt.Sprintf("%s: %v", ErrorCode(err), err))
		return sr
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail(err)
	}
	sr.Name = scenario.Name

	env := ir.Environment{}
	if scenario.Records != "" {
		store, err := records.Open(scenario.Records)
		if err != nil {
			return fail(err)
		}
		if env, err = store.LoadEnvironment(); err != nil {
			return fail(err)
		}
	}

	res, err := resolver.Resolve(cmd.Context(), scenario.Apply(env), resolver.Options{
		Seed:   opts.Config.Seed,
		Limits: opts.Config.Limits(),
	})
	if err != nil {
		return fail(err)
	}

	run := harness.Run(scenario, res.Scope, opts.Config.Limits())
	sr.Pass = run.Pass
	sr.Errors = run.Errors
	return sr
}

// findScenarioFiles expands directories to their *.yaml files and applies
// the filter to file names. The result is sorted and deduplicated.
func findScenarioFiles(paths []string, filter string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(path string) error {
		if filter != "" {
			ok, err := filepath.Match(filter, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				return nil
			}
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
		return nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path not found: %w", err)
		}
		if !info.IsDir() {
			if err := add(p); err != nil {
				return nil, err
			}
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.yaml"))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if err := add(m); err != nil {
				return nil, err
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}
	resp := CLIResponse{Status: status, Data: result}
	if result.Failed > 0 {
		resp.Error = &CLIError{
			Code:    ErrCodeScenario,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

func outputTestText(formatter *OutputFormatter, result TestResult) {
	w := formatter.Writer
	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "%s %s\n", okStyle.Render("✓"), sr.Name)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("✗"), sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
