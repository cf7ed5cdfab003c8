package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/metricalg/internal/catalog"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid" yaml:"valid"`
	Metrics   []string          `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	FileCount int               `json:"file_count,omitempty" yaml:"file_count,omitempty"`
	Errors    []ValidationIssue `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ValidationIssue is one catalog problem.
type ValidationIssue struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <metrics-dir>",
		Short: "Validate a directory of metric definitions",
		Long: `Validate CUE metric definitions against the catalog schema.

Checks formula syntax, reserved and duplicate names, references to
undefined metrics and reference cycles. Definitions may refer to the
standard catalog.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := catalog.Standard()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load standard catalog", err)
	}

	loadResult, loadErrors := catalog.LoadDir(reg, dir)
	if len(loadErrors) == 0 {
		formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)
		return outputValidateSuccess(formatter, loadResult)
	}

	issues := make([]ValidationIssue, 0, len(loadErrors))
	for _, err := range loadErrors {
		issues = append(issues, toIssue(err))
	}

	// Directory-level problems are command errors, not invalid metrics.
	if len(issues) == 1 && isDirectoryError(issues[0].Code) {
		return outputValidateError(formatter, issues[0].Code, issues[0].Message, nil)
	}
	return outputValidationErrors(formatter, issues)
}

func toIssue(err error) ValidationIssue {
	var loadErr *catalog.LoadError
	if !errors.As(err, &loadErr) {
		return ValidationIssue{Code: catalog.ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		issue.File = loadErr.Pos.Filename()
		issue.Line = loadErr.Pos.Line()
	}
	return issue
}

func isDirectoryError(code string) bool {
	switch code {
	case catalog.ErrCodeNotFound, catalog.ErrCodeNoFiles, catalog.ErrCodeScanError:
		return true
	}
	return false
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, res *catalog.LoadResult) error {
	if formatter.Structured() {
		return formatter.Success(ValidationResult{
			Valid:     true,
			Metrics:   res.Metrics,
			FileCount: res.FileCount,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ All metrics valid (%d metric(s) in %d file(s))\n", len(res.Metrics), res.FileCount)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Structured() {
		result := ValidationResult{
			Valid:  false,
			Errors: issues,
		}
		if err := formatter.Failure(issues[0].Code, issues[0].Message, result); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
