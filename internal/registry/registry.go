// Package registry holds the named metric formulas.
//
// A Registry maps metric names to symbolic expressions over the four base
// counts. Formulas may reference metrics that were defined earlier, so
// composition is possible (PPV is built from Sensitivity and Prevalence) but
// recursion is not. Entries are immutable once defined and the registry is
// safe for concurrent readers.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/metricalg/internal/expr"
)

var (
	// ErrUnknownMetric is returned when a name is not registered.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrDuplicateMetric is returned when a name is already registered.
	ErrDuplicateMetric = errors.New("duplicate metric")

	// ErrInvalidExpression aliases expr.ErrInvalidExpression so callers
	// need only one import to match it.
	ErrInvalidExpression = expr.ErrInvalidExpression
)

// MetricError describes a failed registry operation on a named metric.
type MetricError struct {
	Op   string // "define", "lookup", "expand"
	Name string
	Err  error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *MetricError) Unwrap() error {
	return e.Err
}

// Metric is a registered formula.
type Metric struct {
	Name        string
	Description string

	// Formula is the expression as written, possibly containing references.
	Formula expr.Expr

	// Expanded has every reference inlined and uses only base symbols.
	Expanded expr.Expr

	// ID is the formula ID of Expanded.
	ID string
}

// DefineOption customizes a definition.
type DefineOption func(*Metric)

// WithDescription attaches a human-readable description.
func WithDescription(desc string) DefineOption {
	return func(m *Metric) {
		m.Description = desc
	}
}

// Registry stores metric formulas in definition order.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Define stores a formula under name.
//
// The formula may use the base symbols A, B, C, D, constants, arithmetic and
// references to metrics already in the registry. Fails with:
//   - ErrDuplicateMetric if the name is taken
//   - ErrUnknownMetric if a reference is not defined yet
//   - ErrInvalidExpression if the name or formula is malformed
func (r *Registry) Define(name string, formula expr.Expr, opts ...DefineOption) error {
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		return &MetricError{Op: "define", Name: name, Err: err}
	}
	if formula == nil {
		return &MetricError{Op: "define", Name: name, Err: fmt.Errorf("%w: nil formula", ErrInvalidExpression)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.metrics[name]; exists {
		return &MetricError{Op: "define", Name: name, Err: ErrDuplicateMetric}
	}

	expanded, err := expr.Resolve(formula, func(ref string) (expr.Expr, error) {
		m, ok := r.metrics[normalizeName(ref)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, ref)
		}
		return m.Expanded, nil
	})
	if err != nil {
		return &MetricError{Op: "define", Name: name, Err: err}
	}

	id, err := expr.FormulaID(expanded)
	if err != nil {
		return &MetricError{Op: "define", Name: name, Err: err}
	}

	m := Metric{
		Name:     name,
		Formula:  formula,
		Expanded: expanded,
		ID:       id,
	}
	for _, opt := range opts {
		opt(&m)
	}

	r.metrics[name] = m
	r.order = append(r.order, name)
	return nil
}

// DefineString parses src and defines it under name.
func (r *Registry) DefineString(name, src string, opts ...DefineOption) error {
	formula, err := expr.Parse(src)
	if err != nil {
		return &MetricError{Op: "define", Name: normalizeName(name), Err: err}
	}
	return r.Define(name, formula, opts...)
}

// Lookup returns the named metric or ErrUnknownMetric.
func (r *Registry) Lookup(name string) (Metric, error) {
	name = normalizeName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metrics[name]
	if !ok {
		return Metric{}, &MetricError{Op: "lookup", Name: name, Err: ErrUnknownMetric}
	}
	return m, nil
}

// Expand returns the named formula with every reference inlined.
func (r *Registry) Expand(name string) (expr.Expr, error) {
	m, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return m.Expanded, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// Names returns metric names in definition order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Metrics returns all metrics in definition order.
func (r *Registry) Metrics() []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metric, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.metrics[name])
	}
	return out
}

// Len returns the number of registered metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// normalizeName NFC-normalizes a metric name so that visually identical
// names are the same key.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// validateName requires a name that Parse would read back as a reference.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty metric name", ErrInvalidExpression)
	}
	if expr.IsBaseSymbol(name) {
		return fmt.Errorf("%w: %q is a base symbol", ErrInvalidExpression, name)
	}
	e, err := expr.Parse(name)
	if err != nil {
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidExpression, name)
	}
	if ref, ok := e.(expr.Ref); !ok || ref.Name != name {
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidExpression, name)
	}
	return nil
}
