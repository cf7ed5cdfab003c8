package harness

import (
	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/confusion"
)

// Trace event types.
const (
	EventCheck = "check"
	EventSweep = "sweep"
)

// TraceEvent records one executed check or sweep.
type TraceEvent struct {
	Type    string `json:"type"` // "check" or "sweep"
	Seq     int64  `json:"seq"`
	MetricA string `json:"metric_a"`
	MetricB string `json:"metric_b"`

	// Check fields.
	Verdict  checker.Verdict `json:"verdict,omitempty"`
	Residual string          `json:"residual,omitempty"`
	Witness  *WitnessEvent   `json:"witness,omitempty"`

	// Sweep fields.
	Sweep *SweepEvent `json:"sweep,omitempty"`
}

// WitnessEvent is a matrix and the exact residual there. Value is empty
// when the residual is undefined at Matrix.
type WitnessEvent struct {
	Matrix confusion.Matrix `json:"matrix"`
	Value  string           `json:"value"`
}

// SweepEvent summarizes a sweep step.
type SweepEvent struct {
	RunID      string `json:"run_id"`
	Candidates int    `json:"candidates"`
	Points     int    `json:"points"`
	Excluded   int    `json:"excluded"`
	Violations int    `json:"violations"`
	Divergent  bool   `json:"divergent"`
	Functional bool   `json:"functional"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all checks and sweeps in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends e with the next sequence number.
func (r *Result) addEvent(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}
