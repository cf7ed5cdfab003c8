package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"slices"

	"github.com/roach88/metricalg/internal/catalog"
	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/expr"
	"github.com/roach88/metricalg/internal/registry"
	"github.com/roach88/metricalg/internal/simplify"
	"github.com/roach88/metricalg/internal/store"
	"github.com/roach88/metricalg/internal/sweep"
	"github.com/roach88/metricalg/internal/testutil"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	registry *registry.Registry
	checker  *checker.Checker
	store    *store.Store
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	simplifier simplify.Simplifier
	logger     *slog.Logger
}

// WithSimplifier overrides the default in-process rational simplifier.
func WithSimplifier(s simplify.Simplifier) Option {
	return func(o *options) {
		o.simplifier = s
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh registry and a fresh in-memory
// database. A returned error means the scenario could not be set up
// (bad metric file, store failure); failed expectations are reported in
// Result.Errors instead.
//
// Execution flow:
// 1. Load the standard catalog, metric files and inline definitions
// 2. Run checks in order
// 3. Run sweeps in order, persisting each run
// 4. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{
		simplifier: simplify.NewRational(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	reg, err := loadRegistry(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequenceIDGenerator("run")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	bounds := DefaultWitnessBounds
	if scenario.WitnessBounds != nil {
		bounds = *scenario.WitnessBounds
	}

	h := &Harness{
		registry: reg,
		checker: checker.New(reg, o.simplifier,
			checker.WithLogger(o.logger),
			checker.WithWitnessSearch(bounds),
		),
		store:  st,
		logger: o.logger,
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Checks {
		if err := h.executeCheck(ctx, step, result); err != nil {
			result.AddError(fmt.Sprintf("checks[%d]: %v", i, err))
		}
	}

	for i, step := range scenario.Sweeps {
		if err := h.executeSweep(ctx, step, result); err != nil {
			result.AddError(fmt.Sprintf("sweeps[%d]: %v", i, err))
		}
	}

	actx := &AssertionContext{
		Registry: reg,
		Checker:  h.checker,
		Ctx:      ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace),
	)
	return result, nil
}

// loadRegistry builds the scenario's metric registry.
func loadRegistry(scenario *Scenario) (*registry.Registry, error) {
	reg, err := catalog.Standard()
	if err != nil {
		return nil, err
	}

	for _, path := range scenario.Metrics {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read metric file: %w", err)
		}
		if _, errs := catalog.LoadSource(reg, path, src); len(errs) > 0 {
			return nil, fmt.Errorf("load %s: %w", path, errs[0])
		}
	}

	for _, d := range scenario.Define {
		var opts []registry.DefineOption
		if d.Description != "" {
			opts = append(opts, registry.WithDescription(d.Description))
		}
		if err := reg.DefineString(d.Name, d.Formula, opts...); err != nil {
			return nil, fmt.Errorf("define %s: %w", d.Name, err)
		}
	}
	return reg, nil
}

// executeCheck runs one equivalence check and validates its expectation.
// The event is recorded even when the expectation fails.
func (h *Harness) executeCheck(ctx context.Context, step CheckStep, result *Result) error {
	res, err := h.checker.AreEquivalent(ctx, step.A, step.B)
	if err != nil {
		return err
	}

	event := TraceEvent{
		Type:     EventCheck,
		MetricA:  step.A,
		MetricB:  step.B,
		Verdict:  res.Verdict,
		Residual: expr.String(res.Residual),
	}

	var failure error
	if string(res.Verdict) != step.Expect {
		failure = fmt.Errorf("%s vs %s: expected %s, got %s", step.A, step.B, step.Expect, res.Verdict)
	}

	switch {
	case step.Witness != nil:
		event.Witness = &WitnessEvent{Matrix: *step.Witness}
		value, err := checker.WitnessExact(res.Residual, *step.Witness)
		switch {
		case err != nil:
			if failure == nil {
				failure = fmt.Errorf("%s vs %s at %s: %w", step.A, step.B, step.Witness, err)
			}
		default:
			event.Witness.Value = value.RatString()
			if failure == nil {
				failure = checkDifference(step, value)
			}
		}
	case res.Witness != nil:
		event.Witness = &WitnessEvent{Matrix: res.Witness.Matrix, Value: res.Witness.Value.RatString()}
	}

	result.addEvent(event)
	h.logger.Debug("check executed", "a", step.A, "b", step.B, "verdict", res.Verdict)
	return failure
}

// checkDifference compares the residual at the step's witness against the
// expected difference, or requires it to be non-zero when none is given.
func checkDifference(step CheckStep, value *big.Rat) error {
	if step.Difference == "" {
		if value.Sign() == 0 {
			return fmt.Errorf("%s vs %s: residual is zero at %s", step.A, step.B, step.Witness)
		}
		return nil
	}
	want, ok := new(big.Rat).SetString(step.Difference)
	if !ok {
		return fmt.Errorf("invalid difference %q", step.Difference)
	}
	if value.Cmp(want) != 0 {
		return fmt.Errorf("%s vs %s at %s: expected difference %s, got %s",
			step.A, step.B, step.Witness, want.RatString(), value.RatString())
	}
	return nil
}

// executeSweep runs, persists and summarizes one sweep.
func (h *Harness) executeSweep(ctx context.Context, step SweepStep, result *Result) error {
	points, err := sweep.Sweep(h.registry, step.A, step.B, step.Bounds)
	if err != nil {
		return err
	}

	fa, err := h.registry.Expand(step.A)
	if err != nil {
		return err
	}
	fb, err := h.registry.Expand(step.B)
	if err != nil {
		return err
	}
	run, err := store.NewSweepRun(step.A, fa, step.B, fb, step.Bounds)
	if err != nil {
		return err
	}
	run, err = h.store.WriteSweep(ctx, run, points)
	if err != nil {
		return err
	}

	stored, err := h.store.ReadSweepPoints(ctx, run.ID)
	if err != nil {
		return err
	}
	storedSeq := slices.Values(stored)

	summary := sweep.Summarize(step.A, step.B, step.Bounds, storedSeq)
	_, divergent := sweep.FindDivergence(storedSeq)
	ev := &SweepEvent{
		RunID:      run.ID,
		Candidates: summary.Candidates,
		Points:     summary.Points,
		Excluded:   summary.Excluded,
		Violations: len(sweep.Violations(storedSeq)),
		Divergent:  divergent,
		Functional: summary.Functional,
	}
	result.addEvent(TraceEvent{
		Type:    EventSweep,
		MetricA: step.A,
		MetricB: step.B,
		Sweep:   ev,
	})
	h.logger.Debug("sweep executed", "a", step.A, "b", step.B, "run_id", run.ID, "points", ev.Points)

	if step.Expect == nil {
		return nil
	}
	return checkSweep(step, ev)
}

func checkSweep(step SweepStep, ev *SweepEvent) error {
	e := step.Expect
	pair := step.A + " vs " + step.B
	if e.Points != nil && *e.Points != ev.Points {
		return fmt.Errorf("%s: expected %d points, got %d", pair, *e.Points, ev.Points)
	}
	if e.Excluded != nil && *e.Excluded != ev.Excluded {
		return fmt.Errorf("%s: expected %d excluded, got %d", pair, *e.Excluded, ev.Excluded)
	}
	if e.Violations != nil && *e.Violations != ev.Violations {
		return fmt.Errorf("%s: expected %d violations, got %d", pair, *e.Violations, ev.Violations)
	}
	if e.Divergent != nil && *e.Divergent != ev.Divergent {
		return fmt.Errorf("%s: expected divergent=%t, got %t", pair, *e.Divergent, ev.Divergent)
	}
	if e.Functional != nil && *e.Functional != ev.Functional {
		return fmt.Errorf("%s: expected functional=%t, got %t", pair, *e.Functional, ev.Functional)
	}
	return nil
}
