package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/metricalg/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name" yaml:"name"`
	Pass   bool     `json:"pass" yaml:"pass"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	note string // text-mode suffix or hint
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios" yaml:"scenarios"`
	Passed    int              `json:"passed" yaml:"passed"`
	Failed    int              `json:"failed" yaml:"failed"`
	Total     int              `json:"total" yaml:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario|dir>...",
		Short: "Run scenario files",
		Long: `Run YAML scenarios of equivalence checks and sweeps.

Each scenario runs against a fresh registry (standard catalog plus the
scenario's own metrics) and an in-memory results database. When
golden/<scenario>.golden exists next to a scenario file, the trace must
match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  metricalg test ./scenarios
  metricalg test ./scenarios --filter "precision*"
  metricalg test ./scenarios/f1.yaml --update
  metricalg test ./scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := harness.ExpandScenarioPaths(args)
	if err != nil {
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", notFound.Path))
		}
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if files, err = filterScenarios(files, opts.Filter); err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	if len(files) == 0 && !formatter.Structured() {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	simp, err := opts.config().Simplifier.NewSimplifier(opts.logger())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure simplifier", err)
	}
	runner := scenarioRunner{
		update: opts.Update,
		opts:   []harness.Option{harness.WithSimplifier(simp), harness.WithLogger(opts.logger())},
	}

	for _, file := range files {
		formatter.VerboseLog("Running %s", file)
		sr := runner.run(file)
		if !formatter.Structured() {
			printScenario(cmd.OutOrStdout(), sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.Structured() {
		return outputTestStructured(formatter, result)
	}
	return outputTestText(cmd, result)
}

// filterScenarios keeps files whose base name (without extension) matches
// the glob pattern.
func filterScenarios(files []string, filter string) ([]string, error) {
	if filter == "" {
		return files, nil
	}
	var out []string
	for _, path := range files {
		matched, err := filepath.Match(filter, scenarioBase(path))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, path)
		}
	}
	return out, nil
}

func scenarioBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type scenarioRunner struct {
	update bool
	opts   []harness.Option
}

// run loads and executes one scenario file, then updates or checks its
// golden trace.
func (r scenarioRunner) run(file string) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: scenarioBase(file), Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)}}
	}
	res := ScenarioResult{Name: scenario.Name}

	result, err := harness.Run(scenario, r.opts...)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}
	trace, err := harness.MarshalSnapshot(scenario.Name, result)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to marshal trace: %v", err)}
		return res
	}

	golden := goldenPath(file)
	switch {
	case r.update:
		if err := writeGolden(golden, trace); err != nil {
			res.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return res
		}
		if result.Pass {
			res.note = " (golden updated)"
		}
	default:
		want, err := os.ReadFile(golden)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			res.Errors = []string{fmt.Sprintf("failed to read golden file: %v", err)}
			return res
		}
		if err == nil && !bytes.Equal(want, trace) {
			res.Errors = append([]string{"trace does not match golden file"}, result.Errors...)
			res.note = "Golden file mismatch (run with --update to regenerate)"
			return res
		}
	}

	res.Errors = result.Errors
	res.Pass = result.Pass
	return res
}

func printScenario(w io.Writer, sr ScenarioResult) {
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s%s\n", sr.Name, sr.note)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	if sr.note != "" {
		fmt.Fprintf(w, "  %s\n", sr.note)
		return
	}
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// goldenPath maps dir/name.yaml to dir/golden/name.golden.
func goldenPath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", scenarioBase(scenarioFile)+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func outputTestStructured(formatter *OutputFormatter, result TestResult) error {
	if result.Failed == 0 {
		return formatter.Success(result)
	}
	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := formatter.Failure(ErrCodeTestFailed, msg, result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
