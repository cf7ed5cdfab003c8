package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/metricalg/internal/confusion"
	"github.com/roach88/metricalg/internal/plot"
	"github.com/roach88/metricalg/internal/registry"
	"github.com/roach88/metricalg/internal/store"
	"github.com/roach88/metricalg/internal/sweep"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	MaxTrue  int    // bound on TP+FN (0 = config)
	MaxFalse int    // bound on FP+TN (0 = config)
	DB       string // results database (empty = config store.path)
	Plot     string // scatter plot output file
	Table    bool   // print every point as TSV instead of the summary
}

// SweepOutput is the result of the sweep command.
type SweepOutput struct {
	MetricA    string           `json:"metric_a" yaml:"metric_a"`
	MetricB    string           `json:"metric_b" yaml:"metric_b"`
	Bounds     confusion.Bounds `json:"bounds" yaml:"bounds"`
	Candidates int              `json:"candidates" yaml:"candidates"`
	Points     int              `json:"points" yaml:"points"`
	Excluded   int              `json:"excluded" yaml:"excluded"`

	MinA float64 `json:"min_a" yaml:"min_a"`
	MaxA float64 `json:"max_a" yaml:"max_a"`
	MinB float64 `json:"min_b" yaml:"min_b"`
	MaxB float64 `json:"max_b" yaml:"max_b"`

	// Correlation is omitted when undefined.
	Correlation *float64 `json:"correlation,omitempty" yaml:"correlation,omitempty"`
	DistinctA   int      `json:"distinct_a" yaml:"distinct_a"`
	DistinctB   int      `json:"distinct_b" yaml:"distinct_b"`
	Functional  bool     `json:"functional" yaml:"functional"`

	Divergence *sweep.Divergence `json:"divergence,omitempty" yaml:"divergence,omitempty"`
	Violations int               `json:"violations" yaml:"violations"`

	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Plot  string `json:"plot,omitempty" yaml:"plot,omitempty"`
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep <metric-a> <metric-b>",
		Short: "Evaluate two metrics over every small confusion matrix",
		Long: `Enumerate every confusion matrix with 1..max-true actual positives and
1..max-false actual negatives, evaluate both metrics, and summarize how
they relate. Matrices where either metric divides by zero are excluded.

Examples:
  metricalg sweep F1 BalancedAccuracy
  metricalg sweep F1 BalancedAccuracy --max-true 10 --max-false 10 --plot f1_ba.png
  metricalg sweep Precision Recall --table > points.tsv
  metricalg sweep F1 MCC --db results.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxTrue, "max-true", 0, "largest number of actual positives (default from config)")
	cmd.Flags().IntVar(&opts.MaxFalse, "max-false", 0, "largest number of actual negatives (default from config)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the sweep in this SQLite database")
	cmd.Flags().StringVar(&opts.Plot, "plot", "", "write a scatter plot (png, svg, pdf, ...)")
	cmd.Flags().BoolVar(&opts.Table, "table", false, "print every point as tab-separated values")

	return cmd
}

func runSweep(opts *SweepOptions, a, b string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	bounds := resolveBounds(opts.config().Sweep.Bounds(), opts.MaxTrue, opts.MaxFalse)
	if err := bounds.Validate(); err != nil {
		_ = formatter.Error(ErrCodeInvalidMatrix, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid sweep bounds", err)
	}

	if opts.Plot != "" {
		if _, err := plot.FormatOf(opts.Plot); err != nil {
			_ = formatter.Error(ErrCodePlot, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid plot file", err)
		}
	}

	reg, err := opts.loadRegistry(formatter)
	if err != nil {
		return err
	}

	seq, err := sweep.Sweep(reg, a, b, bounds)
	if err != nil {
		return metricError(formatter, err)
	}
	points := slices.Collect(seq)
	formatter.VerboseLog("Evaluated %d of %d matrices", len(points), bounds.Candidates())

	out := newSweepOutput(a, b, bounds, points)

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = opts.config().Store.Path
	}
	if dbPath != "" {
		id, err := recordSweep(ctx, dbPath, reg, a, b, bounds, points)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record sweep", err)
		}
		out.RunID = id
		formatter.VerboseLog("Recorded sweep run %s in %s", id, dbPath)
	}

	if opts.Plot != "" {
		if err := plot.Save(opts.Plot, a, b, slices.Values(points)); err != nil {
			_ = formatter.Error(ErrCodePlot, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write plot", err)
		}
		out.Plot = opts.Plot
		formatter.VerboseLog("Wrote plot to %s", opts.Plot)
	}

	if formatter.Structured() {
		return formatter.Success(out)
	}
	if opts.Table {
		return sweep.WriteTable(formatter.Writer, a, b, slices.Values(points))
	}
	writeSweepText(formatter, out)
	return nil
}

func newSweepOutput(a, b string, bounds confusion.Bounds, points []sweep.Point) SweepOutput {
	s := sweep.Summarize(a, b, bounds, slices.Values(points))
	out := SweepOutput{
		MetricA:     a,
		MetricB:     b,
		Bounds:      bounds,
		Candidates:  s.Candidates,
		Points:      s.Points,
		Excluded:    s.Excluded,
		MinA:        s.MinA,
		MaxA:        s.MaxA,
		MinB:        s.MinB,
		MaxB:        s.MaxB,
		DistinctA:   s.DistinctA,
		DistinctB:   s.DistinctB,
		Functional:  s.Functional,
		Correlation: s.Correlation,
		Violations:  len(sweep.Violations(slices.Values(points))),
	}
	if d, ok := sweep.FindDivergence(slices.Values(points)); ok {
		out.Divergence = &d
	}
	return out
}

func writeSweepText(f *OutputFormatter, out SweepOutput) {
	w := f.Writer
	fmt.Fprintf(w, "%s vs %s (max true %d, max false %d)\n",
		out.MetricA, out.MetricB, out.Bounds.MaxTotalTrue, out.Bounds.MaxTotalFalse)
	fmt.Fprintf(w, "  matrices:    %d evaluated, %d excluded of %d\n", out.Points, out.Excluded, out.Candidates)
	if out.Points > 0 {
		fmt.Fprintf(w, "  %s range: [%g, %g], %d distinct\n", out.MetricA, out.MinA, out.MaxA, out.DistinctA)
		fmt.Fprintf(w, "  %s range: [%g, %g], %d distinct\n", out.MetricB, out.MinB, out.MaxB, out.DistinctB)
	}
	if out.Correlation != nil {
		fmt.Fprintf(w, "  correlation: %.6f\n", *out.Correlation)
	}
	if out.Divergence != nil {
		d := out.Divergence
		fmt.Fprintf(w, "  divergent:   %s=%g at %s, %s=%g at %s (%s=%g at both)\n",
			out.MetricA, d.First.A, d.First.Matrix, out.MetricA, d.Second.A, d.Second.Matrix, out.MetricB, d.First.B)
	} else {
		fmt.Fprintf(w, "  functional:  %s is determined by %s on this grid\n", out.MetricA, out.MetricB)
	}
	if out.Violations > 0 {
		fmt.Fprintf(w, "  violations:  %d point(s) with %s <= 0 and %s > 0.5\n", out.Violations, out.MetricA, out.MetricB)
	}
	if out.RunID != "" {
		fmt.Fprintf(w, "  run:         %s\n", out.RunID)
	}
	if out.Plot != "" {
		fmt.Fprintf(w, "  plot:        %s\n", out.Plot)
	}
}

// recordSweep stores a sweep run and its points, returning the run ID.
func recordSweep(ctx context.Context, dbPath string, reg *registry.Registry, a, b string, bounds confusion.Bounds, points []sweep.Point) (string, error) {
	fa, err := reg.Expand(a)
	if err != nil {
		return "", err
	}
	fb, err := reg.Expand(b)
	if err != nil {
		return "", err
	}
	run, err := store.NewSweepRun(a, fa, b, fb, bounds)
	if err != nil {
		return "", err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	run, err = st.WriteSweep(ctx, run, slices.Values(points))
	if err != nil {
		return "", err
	}
	return run.ID, nil
}
