package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/metricalg/internal/catalog"
	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/confusion"
	"github.com/roach88/metricalg/internal/expr"
	"github.com/roach88/metricalg/internal/registry"
	"github.com/roach88/metricalg/internal/simplify"
	"github.com/roach88/metricalg/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Witness  bool   // search for a differing matrix
	MaxTrue  int    // witness search bound on TP+FN (0 = config)
	MaxFalse int    // witness search bound on FP+TN (0 = config)
	DB       string // results database (empty = config store.path)
}

// CheckOutput is the result of the check command.
type CheckOutput struct {
	MetricA      string         `json:"metric_a" yaml:"metric_a"`
	MetricB      string         `json:"metric_b" yaml:"metric_b"`
	Verdict      string         `json:"verdict" yaml:"verdict"`
	Residual     string         `json:"residual" yaml:"residual"`
	Witness      *WitnessOutput `json:"witness,omitempty" yaml:"witness,omitempty"`
	ComparisonID string         `json:"comparison_id,omitempty" yaml:"comparison_id,omitempty"`
}

// WitnessOutput is a matrix where two metrics differ.
type WitnessOutput struct {
	Matrix confusion.Matrix `json:"matrix" yaml:"matrix"`
	Value  string           `json:"value" yaml:"value"` // exact, "n/d"
	Float  float64          `json:"float" yaml:"float"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <metric-a> <metric-b>",
		Short: "Decide whether two metrics are algebraically equivalent",
		Long: `Decide whether two metrics are the same function of the confusion
matrix by simplifying the difference of their expanded formulas.

With --witness, a non-equivalent result also reports the first small
matrix where the metrics differ.

Exit codes:
  0 - Metrics are equivalent
  1 - Metrics are not equivalent
  2 - Command error (unknown metric, simplifier failure, etc.)

Examples:
  metricalg check TPR Sensitivity
  metricalg check Precision Specificity --witness
  metricalg check F1 BalancedAccuracy --db results.db --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Witness, "witness", false, "search for a matrix where the metrics differ")
	cmd.Flags().IntVar(&opts.MaxTrue, "max-true", 0, "witness search bound on actual positives (default from config)")
	cmd.Flags().IntVar(&opts.MaxFalse, "max-false", 0, "witness search bound on actual negatives (default from config)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the comparison in this SQLite database")

	return cmd
}

func runCheck(opts *CheckOptions, a, b string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := opts.loadRegistry(formatter)
	if err != nil {
		return err
	}

	var checkerOpts []checker.Option
	if opts.Witness {
		bounds := resolveBounds(opts.config().Witness.Bounds(), opts.MaxTrue, opts.MaxFalse)
		if err := bounds.Validate(); err != nil {
			_ = formatter.Error(ErrCodeInvalidMatrix, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid witness bounds", err)
		}
		checkerOpts = append(checkerOpts, checker.WithWitnessSearch(bounds))
	}
	chk, err := opts.newChecker(reg, checkerOpts...)
	if err != nil {
		return err
	}

	res, err := chk.AreEquivalent(ctx, a, b)
	if err != nil {
		return checkError(formatter, err)
	}

	out := CheckOutput{
		MetricA:  res.MetricA,
		MetricB:  res.MetricB,
		Verdict:  string(res.Verdict),
		Residual: expr.String(res.Residual),
	}
	if res.Witness != nil {
		out.Witness = &WitnessOutput{
			Matrix: res.Witness.Matrix,
			Value:  res.Witness.Value.RatString(),
			Float:  res.Witness.Float(),
		}
	}

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = opts.config().Store.Path
	}
	if dbPath != "" {
		id, err := recordComparison(ctx, dbPath, reg, res)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record comparison", err)
		}
		out.ComparisonID = id
		formatter.VerboseLog("Recorded comparison %s in %s", id, dbPath)
	}

	if !res.Equivalent() {
		msg := fmt.Sprintf("%s and %s are not equivalent", a, b)
		if formatter.Structured() {
			if err := formatter.Failure(ErrCodeNotEquivalent, msg, out); err != nil {
				return err
			}
		} else {
			writeCheckText(formatter, out)
		}
		return NewExitError(ExitFailure, msg)
	}

	if formatter.Structured() {
		return formatter.Success(out)
	}
	writeCheckText(formatter, out)
	return nil
}

func writeCheckText(f *OutputFormatter, out CheckOutput) {
	w := f.Writer
	if out.Verdict == string(checker.Equivalent) {
		fmt.Fprintf(w, "✓ %s ≡ %s\n", out.MetricA, out.MetricB)
		return
	}
	fmt.Fprintf(w, "✗ %s ≢ %s\n", out.MetricA, out.MetricB)
	fmt.Fprintf(w, "  residual: %s\n", out.Residual)
	if out.Witness != nil {
		fmt.Fprintf(w, "  witness:  %s → %s (%g)\n", out.Witness.Matrix, out.Witness.Value, out.Witness.Float)
	}
}

// checkError maps checker failures to exit errors.
func checkError(f *OutputFormatter, err error) error {
	if errors.Is(err, registry.ErrUnknownMetric) {
		return metricError(f, err)
	}
	if errors.Is(err, simplify.ErrSimplification) {
		_ = f.Error(ErrCodeSimplification, err.Error(), nil)
		return WrapExitError(ExitCommandError, "simplification failed", err)
	}
	_ = f.Error(catalog.ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "check failed", err)
}

// recordComparison stores res, returning its comparison ID.
func recordComparison(ctx context.Context, dbPath string, reg *registry.Registry, res *checker.Result) (string, error) {
	fa, err := reg.Expand(res.MetricA)
	if err != nil {
		return "", err
	}
	fb, err := reg.Expand(res.MetricB)
	if err != nil {
		return "", err
	}
	c, err := store.NewComparison(res, fa, fb)
	if err != nil {
		return "", err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	if _, err := st.WriteComparison(ctx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}

// resolveBounds applies non-zero flag overrides to configured bounds.
func resolveBounds(b confusion.Bounds, maxTrue, maxFalse int) confusion.Bounds {
	if maxTrue != 0 {
		b.MaxTotalTrue = maxTrue
	}
	if maxFalse != 0 {
		b.MaxTotalFalse = maxFalse
	}
	return b
}

// NewWitnessCommand creates the witness command.
func NewWitnessCommand(rootOpts *RootOptions) *cobra.Command {
	var matrix string

	cmd := &cobra.Command{
		Use:   "witness <metric-a> <metric-b> --matrix tp,fp,fn,tn",
		Short: "Evaluate the difference of two metrics at one matrix",
		Long: `Evaluate metric-a minus metric-b at a concrete confusion matrix.

The difference is computed exactly from the expanded formulas, so it is
undefined wherever either metric divides by zero.

Examples:
  metricalg witness Precision Specificity --matrix 0,1,0,1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWitness(rootOpts, args[0], args[1], matrix, cmd)
		},
	}

	cmd.Flags().StringVar(&matrix, "matrix", "", "confusion matrix as tp,fp,fn,tn")
	_ = cmd.MarkFlagRequired("matrix")

	return cmd
}

// DifferenceOutput is the result of the witness command.
type DifferenceOutput struct {
	MetricA    string           `json:"metric_a" yaml:"metric_a"`
	MetricB    string           `json:"metric_b" yaml:"metric_b"`
	Matrix     confusion.Matrix `json:"matrix" yaml:"matrix"`
	ValueA     string           `json:"value_a" yaml:"value_a"`
	ValueB     string           `json:"value_b" yaml:"value_b"`
	Difference string           `json:"difference" yaml:"difference"`
	Float      float64          `json:"float" yaml:"float"`
}

func runWitness(opts *RootOptions, a, b, matrix string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, err := confusion.Parse(matrix)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidMatrix, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid matrix", err)
	}

	reg, err := opts.loadRegistry(formatter)
	if err != nil {
		return err
	}
	fa, err := reg.Expand(a)
	if err != nil {
		return metricError(formatter, err)
	}
	fb, err := reg.Expand(b)
	if err != nil {
		return metricError(formatter, err)
	}

	out := DifferenceOutput{MetricA: a, MetricB: b, Matrix: m}
	var undefined []string
	for _, side := range []struct {
		name    string
		formula expr.Expr
		dst     *string
	}{{a, fa, &out.ValueA}, {b, fb, &out.ValueB}} {
		v, err := expr.Eval(side.formula, m.Env())
		if err != nil {
			undefined = append(undefined, side.name)
			continue
		}
		*side.dst = v.RatString()
	}
	if len(undefined) > 0 {
		msg := fmt.Sprintf("%s undefined at %s", strings.Join(undefined, " and "), m)
		_ = formatter.Error(ErrCodeDivisionByZero, msg, nil)
		return WrapExitError(ExitCommandError, msg, expr.ErrDivisionByZero)
	}

	residual := expr.Sub{X: fa, Y: fb}
	exact, err := checker.WitnessExact(residual, m)
	if err != nil {
		_ = formatter.Error(ErrCodeDivisionByZero, err.Error(), nil)
		return WrapExitError(ExitCommandError, "difference undefined", err)
	}
	out.Difference = exact.RatString()
	out.Float, _ = checker.WitnessDifference(residual, m)

	if formatter.Structured() {
		return formatter.Success(out)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "%s\n", m)
	fmt.Fprintf(w, "  %s = %s\n", a, out.ValueA)
	fmt.Fprintf(w, "  %s = %s\n", b, out.ValueB)
	fmt.Fprintf(w, "  difference = %s (%g)\n", out.Difference, out.Float)
	return nil
}

// NewClassesCommand creates the classes command.
func NewClassesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes [metric...]",
		Short: "Group metrics into equivalence classes",
		Long: `Group the named metrics (default: every registered metric) into
classes of algebraically equivalent metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runClasses(opts *RootOptions, names []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := opts.loadRegistry(formatter)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = reg.Names()
	}
	chk, err := opts.newChecker(reg)
	if err != nil {
		return err
	}

	classes, err := chk.Classes(ctx, names)
	if err != nil {
		return checkError(formatter, err)
	}

	if formatter.Structured() {
		return formatter.Success(classes)
	}
	for _, class := range classes {
		fmt.Fprintln(formatter.Writer, strings.Join(class, " ≡ "))
	}
	return nil
}
