package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/sweep"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadSweepRun returns the run with the given ID, or ErrNotFound.
func (s *Store) ReadSweepRun(ctx context.Context, id string) (SweepRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, metric_a, metric_b, formula_a, formula_b, max_total_true, max_total_false, candidates, points, seq
		FROM sweep_runs
		WHERE id = ?
	`, id)
	run, err := scanSweepRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SweepRun{}, fmt.Errorf("sweep run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return SweepRun{}, err
	}
	return run, nil
}

// ListSweepRuns returns every run, oldest first.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSweepRuns(ctx context.Context) ([]SweepRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, metric_a, metric_b, formula_a, formula_b, max_total_true, max_total_false, candidates, points, seq
		FROM sweep_runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sweep runs: %w", err)
	}
	defer rows.Close()

	runs := []SweepRun{}
	for rows.Next() {
		run, err := scanSweepRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep runs: %w", err)
	}
	return runs, nil
}

// ReadSweepPoints returns the points of a run in enumeration order.
// An unknown run yields ErrNotFound.
func (s *Store) ReadSweepPoints(ctx context.Context, runID string) ([]sweep.Point, error) {
	if _, err := s.ReadSweepRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tp, fp, fn, tn, value_a, value_b
		FROM sweep_points
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query sweep points: %w", err)
	}
	defer rows.Close()

	points := []sweep.Point{}
	for rows.Next() {
		var p sweep.Point
		m := &p.Matrix
		if err := rows.Scan(&m.TP, &m.FP, &m.FN, &m.TN, &p.A, &p.B); err != nil {
			return nil, fmt.Errorf("scan sweep point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep points: %w", err)
	}
	return points, nil
}

// DeleteSweepRun removes a run and, through the foreign key cascade, its
// points. Deleting an unknown run yields ErrNotFound.
func (s *Store) DeleteSweepRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sweep_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sweep run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sweep run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sweep run %q: %w", id, ErrNotFound)
	}
	return nil
}

func scanSweepRun(row rowScanner) (SweepRun, error) {
	var run SweepRun
	err := row.Scan(
		&run.ID,
		&run.MetricA,
		&run.MetricB,
		&run.FormulaA,
		&run.FormulaB,
		&run.Bounds.MaxTotalTrue,
		&run.Bounds.MaxTotalFalse,
		&run.Candidates,
		&run.Points,
		&run.Seq,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return SweepRun{}, err
	}
	if err != nil {
		return SweepRun{}, fmt.Errorf("scan sweep run: %w", err)
	}
	return run, nil
}

// ReadComparison returns the comparison with the given ID, or ErrNotFound.
func (s *Store) ReadComparison(ctx context.Context, id string) (Comparison, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, metric_a, metric_b, formula_a, formula_b, verdict, residual, witness, seq
		FROM comparisons
		WHERE id = ?
	`, id)
	c, err := scanComparison(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Comparison{}, fmt.Errorf("comparison %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Comparison{}, err
	}
	return c, nil
}

// ReadComparisons returns every stored comparison, oldest first.
func (s *Store) ReadComparisons(ctx context.Context) ([]Comparison, error) {
	return s.queryComparisons(ctx, `
		SELECT id, metric_a, metric_b, formula_a, formula_b, verdict, residual, witness, seq
		FROM comparisons
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ReadComparisonsFor returns the comparisons of metricA against metricB
// (in that order), oldest first.
func (s *Store) ReadComparisonsFor(ctx context.Context, metricA, metricB string) ([]Comparison, error) {
	return s.queryComparisons(ctx, `
		SELECT id, metric_a, metric_b, formula_a, formula_b, verdict, residual, witness, seq
		FROM comparisons
		WHERE metric_a = ? AND metric_b = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, metricA, metricB)
}

func (s *Store) queryComparisons(ctx context.Context, query string, args ...any) ([]Comparison, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	comparisons := []Comparison{}
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		comparisons = append(comparisons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparisons: %w", err)
	}
	return comparisons, nil
}

func scanComparison(row rowScanner) (Comparison, error) {
	var (
		c       Comparison
		verdict string
		witness sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.MetricA,
		&c.MetricB,
		&c.FormulaA,
		&c.FormulaB,
		&verdict,
		&c.Residual,
		&witness,
		&c.Seq,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Comparison{}, err
	}
	if err != nil {
		return Comparison{}, fmt.Errorf("scan comparison: %w", err)
	}
	c.Verdict = checker.Verdict(verdict)
	c.Witness, err = unmarshalWitness(witness)
	if err != nil {
		return Comparison{}, fmt.Errorf("comparison %s: %w", c.ID, err)
	}
	return c, nil
}
