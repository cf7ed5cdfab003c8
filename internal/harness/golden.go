package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/metricalg/internal/expr"
)

// MarshalSnapshot renders a result's trace as canonical JSON:
//
//	{"scenario_name": ..., "trace": [event, ...]}
//
// Events carry only strings, integers and booleans, so the bytes are
// stable across runs and platforms.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	events := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		events[i] = snapshotEvent(e)
	}
	return expr.MarshalCanonicalValue(map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	})
}

func snapshotEvent(e TraceEvent) map[string]any {
	m := map[string]any{
		"type":     e.Type,
		"seq":      e.Seq,
		"metric_a": e.MetricA,
		"metric_b": e.MetricB,
	}
	if e.Verdict != "" {
		m["verdict"] = string(e.Verdict)
		m["residual"] = e.Residual
	}
	if w := e.Witness; w != nil {
		m["witness"] = map[string]any{
			"matrix": map[string]any{"tp": w.Matrix.TP, "fp": w.Matrix.FP, "fn": w.Matrix.FN, "tn": w.Matrix.TN},
			"value":  w.Value,
		}
	}
	if sw := e.Sweep; sw != nil {
		m["run_id"] = sw.RunID
		m["candidates"] = sw.Candidates
		m["points"] = sw.Points
		m["excluded"] = sw.Excluded
		m["violations"] = sw.Violations
		m["divergent"] = sw.Divergent
		m["functional"] = sw.Functional
	}
	return m
}

// RunWithGolden runs scenario and asserts its trace against
// testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden is RunWithGolden for a result that already exists.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenarioName, data)
	return nil
}
