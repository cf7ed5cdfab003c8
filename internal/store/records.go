package store

import (
	"fmt"

	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/confusion"
	"github.com/roach88/metricalg/internal/expr"
)

// SweepRun describes one persisted sweep.
//
// FormulaA and FormulaB are FormulaIDs of the expanded formulas, so a run
// records which definitions it was computed against.
type SweepRun struct {
	ID         string           `json:"id" yaml:"id"`
	MetricA    string           `json:"metric_a" yaml:"metric_a"`
	MetricB    string           `json:"metric_b" yaml:"metric_b"`
	FormulaA   string           `json:"formula_a" yaml:"formula_a"`
	FormulaB   string           `json:"formula_b" yaml:"formula_b"`
	Bounds     confusion.Bounds `json:"bounds" yaml:"bounds"`
	Candidates int              `json:"candidates" yaml:"candidates"`
	Points     int              `json:"points" yaml:"points"`
	Seq        int64            `json:"seq" yaml:"seq"`
}

// NewSweepRun fills the identity fields of a run from the expanded formulas.
// ID and Seq are assigned by WriteSweep.
func NewSweepRun(metricA string, formulaA expr.Expr, metricB string, formulaB expr.Expr, b confusion.Bounds) (SweepRun, error) {
	idA, err := expr.FormulaID(formulaA)
	if err != nil {
		return SweepRun{}, fmt.Errorf("sweep run %s: %w", metricA, err)
	}
	idB, err := expr.FormulaID(formulaB)
	if err != nil {
		return SweepRun{}, fmt.Errorf("sweep run %s: %w", metricB, err)
	}
	return SweepRun{
		MetricA:    metricA,
		MetricB:    metricB,
		FormulaA:   idA,
		FormulaB:   idB,
		Bounds:     b,
		Candidates: b.Candidates(),
	}, nil
}

// Comparison is a persisted equivalence check.
type Comparison struct {
	ID       string           `json:"id" yaml:"id"`
	MetricA  string           `json:"metric_a" yaml:"metric_a"`
	MetricB  string           `json:"metric_b" yaml:"metric_b"`
	FormulaA string           `json:"formula_a" yaml:"formula_a"`
	FormulaB string           `json:"formula_b" yaml:"formula_b"`
	Verdict  checker.Verdict  `json:"verdict" yaml:"verdict"`
	Residual string           `json:"residual" yaml:"residual"`
	Witness  *checker.Witness `json:"-" yaml:"-"`
	Seq      int64            `json:"seq" yaml:"seq"`
}

// NewComparison builds a Comparison from a checker result and the expanded
// formulas it was computed from. The ID is the ComparisonID of the pair.
func NewComparison(res *checker.Result, formulaA, formulaB expr.Expr) (Comparison, error) {
	idA, err := expr.FormulaID(formulaA)
	if err != nil {
		return Comparison{}, fmt.Errorf("comparison %s: %w", res.MetricA, err)
	}
	idB, err := expr.FormulaID(formulaB)
	if err != nil {
		return Comparison{}, fmt.Errorf("comparison %s: %w", res.MetricB, err)
	}
	id, err := expr.ComparisonID(res.MetricA, idA, res.MetricB, idB)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		ID:       id,
		MetricA:  res.MetricA,
		MetricB:  res.MetricB,
		FormulaA: idA,
		FormulaB: idB,
		Verdict:  res.Verdict,
		Residual: expr.String(res.Residual),
		Witness:  res.Witness,
	}, nil
}
