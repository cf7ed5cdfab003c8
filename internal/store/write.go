package store

import (
	"context"
	"fmt"
	"iter"

	"github.com/roach88/metricalg/internal/sweep"
)

// WriteSweep stores a run and its points in one transaction.
//
// The run's ID (when empty), Seq and Points are assigned here; the
// returned SweepRun carries them. Points are numbered from 1 in the order
// the sequence yields them. If ctx is cancelled mid-sequence nothing is
// written.
func (s *Store) WriteSweep(ctx context.Context, run SweepRun, points iter.Seq[sweep.Point]) (SweepRun, error) {
	if err := run.Bounds.Validate(); err != nil {
		return SweepRun{}, fmt.Errorf("write sweep: %w", err)
	}
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SweepRun{}, fmt.Errorf("write sweep: begin: %w", err)
	}
	defer tx.Rollback()

	run.Seq, err = nextSeq(ctx, tx, "sweep_runs")
	if err != nil {
		return SweepRun{}, fmt.Errorf("write sweep: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sweep_runs
		(id, metric_a, metric_b, formula_a, formula_b, max_total_true, max_total_false, candidates, points, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`,
		run.ID,
		run.MetricA,
		run.MetricB,
		run.FormulaA,
		run.FormulaB,
		run.Bounds.MaxTotalTrue,
		run.Bounds.MaxTotalFalse,
		run.Candidates,
		run.Seq,
	)
	if err != nil {
		return SweepRun{}, fmt.Errorf("write sweep run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sweep_points (run_id, seq, tp, fp, fn, tn, value_a, value_b)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return SweepRun{}, fmt.Errorf("write sweep points: prepare: %w", err)
	}
	defer stmt.Close()

	count := 0
	for p := range points {
		if err := ctx.Err(); err != nil {
			return SweepRun{}, fmt.Errorf("write sweep points: %w", err)
		}
		count++
		m := p.Matrix
		if _, err := stmt.ExecContext(ctx, run.ID, count, m.TP, m.FP, m.FN, m.TN, p.A, p.B); err != nil {
			return SweepRun{}, fmt.Errorf("write sweep point %d: %w", count, err)
		}
	}
	run.Points = count

	if _, err := tx.ExecContext(ctx, `UPDATE sweep_runs SET points = ? WHERE id = ?`, count, run.ID); err != nil {
		return SweepRun{}, fmt.Errorf("write sweep run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return SweepRun{}, fmt.Errorf("write sweep: commit: %w", err)
	}
	return run, nil
}

// WriteComparison stores a comparison. Uses ON CONFLICT(id) DO NOTHING:
// rechecking the same pair against the same formulas is a no-op, and the
// returned bool reports whether a row was inserted.
//
// c.Seq is ignored; the stored seq is assigned here.
func (s *Store) WriteComparison(ctx context.Context, c Comparison) (bool, error) {
	witness, err := marshalWitness(c.Witness)
	if err != nil {
		return false, fmt.Errorf("write comparison: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write comparison: begin: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "comparisons")
	if err != nil {
		return false, fmt.Errorf("write comparison: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO comparisons
		(id, metric_a, metric_b, formula_a, formula_b, verdict, residual, witness, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.MetricA,
		c.MetricB,
		c.FormulaA,
		c.FormulaB,
		string(c.Verdict),
		c.Residual,
		witness,
		seq,
	)
	if err != nil {
		return false, fmt.Errorf("write comparison: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write comparison: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write comparison: commit: %w", err)
	}
	return n > 0, nil
}
