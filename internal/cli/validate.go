package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/swirl/internal/compiler"
	"github.com/roach88/swirl/internal/ir"
	"github.com/roach88/swirl/internal/records"
)

// ValidationIssue is one problem found in a record.
type ValidationIssue struct {
	Record  string `json:"record"` // Record file name
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Records int               `json:"records"`
	Issues  []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate records without building them",
		Long: `Check every record in the record directory without compiling formulas.

Reports malformed files, invalid names and variables, duplicate
top-level names and dependency cycles. Faster than resolve for
development feedback, and unlike resolve it reports every problem
instead of stopping at the first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	store, err := records.Open(opts.Config.EnvPath)
	if err != nil {
		return formatter.Fail(err)
	}

	recs, loadErrs := store.LoadAll()
	var issues []ValidationIssue
	for _, err := range loadErrs {
		var me *records.MalformedRecordError
		if !errors.As(err, &me) {
			return formatter.Fail(err)
		}
		issues = append(issues, issue(me.Path, err))
	}
	formatter.VerboseLog("Loaded %d record(s) from %s", len(recs), store.Dir())

	issues = append(issues, validateRecords(recs)...)
	if len(issues) > 0 {
		return outputValidationIssues(formatter, len(recs), issues)
	}
	return formatter.Done(ValidationResult{Valid: true, Records: len(recs)}, "All %d record(s) valid", len(recs))
}

// validateRecords checks names, top-level collisions and package cycles.
func validateRecords(recs []records.Record) []ValidationIssue {
	var (
		issues []ValidationIssue
		pkgs   []ir.Package
		seen   = map[string]string{} // top-level name -> record file
	)
	claim := func(path, name string) {
		if prev, ok := seen[name]; ok {
			issues = append(issues, issue(path, fmt.Errorf("%w (also in %s)",
				&compiler.NameAlreadyUsedError{Name: name}, filepath.Base(prev))))
			return
		}
		seen[name] = path
	}

	for _, rec := range recs {
		switch rec.Kind {
		case ir.KindPackage:
			p := rec.Package
			if err := compiler.ValidateName(p.Name); err != nil {
				issues = append(issues, issue(rec.Path, err))
			}
			for _, m := range p.Macros {
				for _, err := range compiler.Validate(m) {
					issues = append(issues, issue(rec.Path, fmt.Errorf("%s.%s: %w", p.Name, m.Name, err)))
				}
			}
			claim(rec.Path, p.Name)
			pkgs = append(pkgs, *p)
		case ir.KindMacro:
			for _, err := range compiler.Validate(*rec.Macro) {
				issues = append(issues, issue(rec.Path, err))
			}
			claim(rec.Path, rec.Macro.Name)
		}
	}

	for _, c := range compiler.AnalyzeCycles(pkgs) {
		issues = append(issues, ValidationIssue{Code: ErrCodeDependencyCycle, Message: c.Err().Error()})
	}
	return issues
}

func issue(path string, err error) ValidationIssue {
	return ValidationIssue{Record: filepath.Base(path), Code: ErrorCode(err), Message: err.Error()}
}

// outputValidationIssues outputs every issue found.
func outputValidationIssues(formatter *OutputFormatter, count int, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Records: count, Issues: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, failStyle.Render("✗")+" Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, is := range issues {
		if is.Record != "" {
			fmt.Fprintln(formatter.Writer, dimStyle.Render(is.Record))
		}
		fmt.Fprintf(formatter.Writer, "  %s %s\n\n", codeStyle.Render(is.Code+":"), is.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
}
