package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/metricalg/internal/catalog"
	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/config"
	"github.com/roach88/metricalg/internal/registry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "text" | "json" | "yaml"
	ConfigFile  string
	MetricsDirs []string

	// Config and Logger are set by the root command before any subcommand
	// runs. Subcommands built on their own fall back to defaults.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// CLI error codes that are not catalog load codes.
const (
	ErrCodeUnknownMetric  = "E_UNKNOWN_METRIC"
	ErrCodeNotEquivalent  = "E_NOT_EQUIVALENT"
	ErrCodeSimplification = "E_SIMPLIFICATION"
	ErrCodeInvalidMatrix  = "E_INVALID_MATRIX"
	ErrCodeDivisionByZero = "E_DIVISION_BY_ZERO"
	ErrCodeStore          = "E_STORE"
	ErrCodePlot           = "E_PLOT"
	ErrCodeTestFailed     = "E_TEST_FAILED"
)

// NewRootCommand creates the root command for the metricalg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "metricalg",
		Short: "metricalg - symbolic algebra for classification metrics",
		Long: `Define classification metrics as formulas over a confusion matrix,
decide whether two metrics are algebraically equivalent, and sweep
small confusion matrices to compare how two metrics behave.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg

			level := cfg.Log.SlogLevel()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: ./metricalg.yaml)")
	cmd.PersistentFlags().StringArrayVar(&opts.MetricsDirs, "metrics", nil, "directory of CUE metric definitions (repeatable)")

	// Add subcommands
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewWitnessCommand(opts))
	cmd.AddCommand(NewClassesCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) config() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting structured output
		Verbose:   o.Verbose,
	}
}

// loadRegistry builds the standard catalog and layers the configured and
// flagged metric directories on top, in that order.
func (o *RootOptions) loadRegistry(f *OutputFormatter) (*registry.Registry, error) {
	reg, err := catalog.Standard()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load standard catalog", err)
	}

	dirs := append(slices.Clone(o.config().Catalog.Dirs), o.MetricsDirs...)
	for _, dir := range dirs {
		res, errs := catalog.LoadDir(reg, dir)
		if len(errs) > 0 {
			_ = f.Error(loadErrorCode(errs[0]), fmt.Sprintf("failed to load metrics from %s", dir), errorStrings(errs))
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load metrics from %s", dir), errors.Join(errs...))
		}
		f.VerboseLog("Loaded %d metric(s) from %d file(s) in %s", len(res.Metrics), res.FileCount, dir)
	}
	return reg, nil
}

// newChecker builds a checker over reg with the configured simplifier.
func (o *RootOptions) newChecker(reg *registry.Registry, opts ...checker.Option) (*checker.Checker, error) {
	simp, err := o.config().Simplifier.NewSimplifier(o.logger())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure simplifier", err)
	}
	opts = append([]checker.Option{checker.WithLogger(o.logger())}, opts...)
	return checker.New(reg, simp, opts...), nil
}

// metricError reports a registry lookup failure and returns the exit error.
func metricError(f *OutputFormatter, err error) error {
	if errors.Is(err, registry.ErrUnknownMetric) {
		_ = f.Error(ErrCodeUnknownMetric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown metric", err)
	}
	_ = f.Error(catalog.ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "metric lookup failed", err)
}

func loadErrorCode(err error) string {
	var loadErr *catalog.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return catalog.ErrCodeGeneric
}

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
