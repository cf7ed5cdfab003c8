package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/expr"
	"github.com/roach88/metricalg/internal/registry"
)

// AssertionContext gives assertions access to the scenario's registry and
// checker.
type AssertionContext struct {
	Registry *registry.Registry
	Checker  *checker.Checker
	Ctx      context.Context
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventCheck:
				fmt.Fprintf(&buf, "  [%d] check %s %s: %s\n", event.Seq, event.MetricA, event.MetricB, event.Verdict)
			case EventSweep:
				fmt.Fprintf(&buf, "  [%d] sweep %s %s\n", event.Seq, event.MetricA, event.MetricB)
			}
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertClasses:
			err = assertClasses(result.Trace, a, actx)
		case AssertVerdictCount:
			err = assertVerdictCount(result.Trace, a)
		case AssertExpansion:
			err = assertExpansion(result.Trace, a, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertClasses partitions the metrics and compares against the expected
// classes. Classes and members are compared in order.
func assertClasses(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	got, err := actx.Checker.Classes(actx.Ctx, a.Metrics)
	if err != nil {
		return err
	}
	equal := slices.EqualFunc(got, a.Classes, func(x, y []string) bool {
		return slices.Equal(x, y)
	})
	if equal {
		return nil
	}
	return &AssertionError{
		Type:     AssertClasses,
		Expected: formatClasses(a.Classes),
		Actual:   formatClasses(got),
		Trace:    trace,
	}
}

func formatClasses(classes [][]string) string {
	parts := make([]string, len(classes))
	for i, c := range classes {
		parts[i] = "{" + strings.Join(c, ", ") + "}"
	}
	return strings.Join(parts, " ")
}

// assertVerdictCount counts check events with the given verdict.
func assertVerdictCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventCheck && string(event.Verdict) == a.Verdict {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertVerdictCount,
		Expected: fmt.Sprintf("%d checks with verdict %s", a.Count, a.Verdict),
		Actual:   fmt.Sprintf("%d checks", count),
		Trace:    trace,
	}
}

// assertExpansion compares the printed expansion of a metric.
func assertExpansion(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	e, err := actx.Registry.Expand(a.Metric)
	if err != nil {
		return err
	}
	got := expr.String(e)
	if got == a.Formula {
		return nil
	}
	return &AssertionError{
		Type:     AssertExpansion,
		Expected: fmt.Sprintf("%s = %s", a.Metric, a.Formula),
		Actual:   fmt.Sprintf("%s = %s", a.Metric, got),
	}
}
