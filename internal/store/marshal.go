package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/roach88/metricalg/internal/checker"
	"github.com/roach88/metricalg/internal/confusion"
	"github.com/roach88/metricalg/internal/expr"
)

// witnessRecord is the JSON shape of the comparisons.witness column.
type witnessRecord struct {
	Matrix confusion.Matrix `json:"matrix"`
	Value  string           `json:"value"`
}

// marshalWitness encodes w as canonical JSON. A nil witness becomes NULL.
// The value is stored as an exact "num/den" string because canonical JSON
// forbids floats.
func marshalWitness(w *checker.Witness) (sql.NullString, error) {
	if w == nil {
		return sql.NullString{}, nil
	}
	if w.Value == nil {
		return sql.NullString{}, fmt.Errorf("marshal witness: nil value")
	}
	data, err := expr.MarshalCanonicalValue(map[string]any{
		"matrix": map[string]any{
			"tp": w.Matrix.TP,
			"fp": w.Matrix.FP,
			"fn": w.Matrix.FN,
			"tn": w.Matrix.TN,
		},
		"value": w.Value.RatString(),
	})
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal witness: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalWitness decodes the witness column. NULL yields nil.
func unmarshalWitness(ns sql.NullString) (*checker.Witness, error) {
	if !ns.Valid {
		return nil, nil
	}
	var rec witnessRecord
	if err := json.Unmarshal([]byte(ns.String), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal witness: %w", err)
	}
	value, ok := new(big.Rat).SetString(rec.Value)
	if !ok {
		return nil, fmt.Errorf("unmarshal witness: bad value %q", rec.Value)
	}
	return &checker.Witness{Matrix: rec.Matrix, Value: value}, nil
}
