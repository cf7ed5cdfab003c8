package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/store"
	"github.com/roach88/metricalg/internal/sweep"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB     string // results database (empty = config store.path)
	Points string // print the points of this run
	Delete string // delete this run
}

// HistoryOutput lists recorded results.
type HistoryOutput struct {
	Runs        []store.SweepRun   `json:"runs" yaml:"runs"`
	Comparisons []store.Comparison `json:"comparisons" yaml:"comparisons"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [metric-a metric-b]",
		Short: "List recorded checks and sweeps",
		Long: `List the comparisons and sweep runs recorded by check --db and
sweep --db, oldest first. With two metric names, only comparisons of that
ordered pair are listed.

Examples:
  metricalg history --db results.db
  metricalg history Precision Specificity --db results.db
  metricalg history --db results.db --points <run-id>
  metricalg history --db results.db --delete <run-id>`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return NewExitError(ExitCommandError, fmt.Sprintf("accepts 0 or 2 arg(s), received %d", len(args)))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "results database (default from config)")
	cmd.Flags().StringVar(&opts.Points, "points", "", "print the points of a sweep run as tab-separated values")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete a sweep run and its points")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = opts.config().Store.Path
	}
	if dbPath == "" {
		_ = formatter.Error(ErrCodeStore, "no database: pass --db or set store.path", nil)
		return NewExitError(ExitCommandError, "no database configured")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	switch {
	case opts.Delete != "":
		if err := st.DeleteSweepRun(ctx, opts.Delete); err != nil {
			return storeError(formatter, err)
		}
		if formatter.Structured() {
			return formatter.Success(map[string]string{"deleted": opts.Delete})
		}
		fmt.Fprintf(formatter.Writer, "Deleted sweep run %s\n", opts.Delete)
		return nil

	case opts.Points != "":
		run, err := st.ReadSweepRun(ctx, opts.Points)
		if err != nil {
			return storeError(formatter, err)
		}
		points, err := st.ReadSweepPoints(ctx, opts.Points)
		if err != nil {
			return storeError(formatter, err)
		}
		if formatter.Structured() {
			return formatter.Success(points)
		}
		return sweep.WriteTable(formatter.Writer, run.MetricA, run.MetricB, slices.Values(points))
	}

	var out HistoryOutput
	if len(args) == 2 {
		out.Runs = []store.SweepRun{}
		out.Comparisons, err = st.ReadComparisonsFor(ctx, args[0], args[1])
	} else {
		out.Runs, err = st.ListSweepRuns(ctx)
		if err == nil {
			out.Comparisons, err = st.ReadComparisons(ctx)
		}
	}
	if err != nil {
		return storeError(formatter, err)
	}

	if formatter.Structured() {
		return formatter.Success(out)
	}

	w := formatter.Writer
	if len(out.Comparisons) == 0 && len(out.Runs) == 0 {
		fmt.Fprintln(w, "No recorded results.")
		return nil
	}
	for _, c := range out.Comparisons {
		mark := "≢"
		if c.Verdict == checker.Equivalent {
			mark = "≡"
		}
		fmt.Fprintf(w, "check  %s %s %s  %s\n", c.MetricA, mark, c.MetricB, c.ID)
	}
	for _, r := range out.Runs {
		fmt.Fprintf(w, "sweep  %s vs %s (%dx%d, %d/%d points)  %s\n",
			r.MetricA, r.MetricB, r.Bounds.MaxTotalTrue, r.Bounds.MaxTotalFalse, r.Points, r.Candidates, r.ID)
	}
	return nil
}

func storeError(f *OutputFormatter, err error) error {
	_ = f.Error(ErrCodeStore, err.Error(), nil)
	if errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, "not found", err)
	}
	return WrapExitError(ExitCommandError, "store query failed", err)
}
