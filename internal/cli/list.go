package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/metricalg/internal/expr"
	"github.com/roach88/metricalg/internal/registry"
)

// MetricInfo describes one registered metric.
type MetricInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Formula     string   `json:"formula" yaml:"formula"`
	Expanded    string   `json:"expanded,omitempty" yaml:"expanded,omitempty"`
	Refs        []string `json:"refs,omitempty" yaml:"refs,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
}

func newMetricInfo(m registry.Metric, detailed bool) MetricInfo {
	info := MetricInfo{
		Name:        m.Name,
		Formula:     expr.String(m.Formula),
		Description: m.Description,
	}
	if detailed {
		info.Expanded = expr.String(m.Expanded)
		info.Refs = expr.Refs(m.Formula)
		info.ID = m.ID
	}
	return info
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered metrics",
		Long: `List every registered metric in definition order: the standard
catalog first, then metrics loaded from --metrics directories.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}

	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := opts.loadRegistry(formatter)
	if err != nil {
		return err
	}

	metrics := reg.Metrics()
	infos := make([]MetricInfo, len(metrics))
	for i, m := range metrics {
		infos[i] = newMetricInfo(m, false)
	}

	if formatter.Structured() {
		return formatter.Success(infos)
	}

	width := 0
	for _, info := range infos {
		width = max(width, len(info.Name))
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%-*s  %s\n", width, info.Name, info.Formula)
	}
	return nil
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <metric>",
		Short: "Show a metric's formula and expansion",
		Long: `Show a metric's formula as written, its expansion over the base
symbols A (TP), B (FP), C (FN) and D (TN), and its formula ID.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runShow(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := opts.loadRegistry(formatter)
	if err != nil {
		return err
	}

	m, err := reg.Lookup(name)
	if err != nil {
		return metricError(formatter, err)
	}
	info := newMetricInfo(m, true)

	if formatter.Structured() {
		return formatter.Success(info)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s\n", info.Name)
	if info.Description != "" {
		fmt.Fprintf(w, "  %s\n", info.Description)
	}
	fmt.Fprintf(w, "  formula:  %s\n", info.Formula)
	if len(info.Refs) > 0 {
		fmt.Fprintf(w, "  expanded: %s\n", info.Expanded)
	}
	fmt.Fprintf(w, "  id:       %s\n", info.ID)
	return nil
}
