package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/metricalg/internal/expr"
)

// MetricSpec is a compiled metric declaration.
type MetricSpec struct {
	Name        string
	Description string

	// Source is the formula string as written in CUE.
	Source  string
	Formula expr.Expr

	// Refs lists the metrics the formula references, in order of first use.
	Refs []string

	Pos token.Pos
}

// CompileMetric parses a CUE value into a MetricSpec.
//
// The value should be the metric struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`metric: Recall: formula: "A / (A + C)"`)
//	spec, err := CompileMetric(v.LookupPath(cue.ParsePath("metric.Recall")))
func CompileMetric(v cue.Value) (*MetricSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &MetricSpec{Pos: v.Pos()}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labelName(labels[len(labels)-1])
	}

	formulaVal := v.LookupPath(cue.ParsePath("formula"))
	if !formulaVal.Exists() {
		return nil, &CompileError{
			Field:   "formula",
			Message: "formula is required",
			Pos:     v.Pos(),
		}
	}
	source, err := formulaVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if strings.TrimSpace(source) == "" {
		return nil, &CompileError{
			Field:   "formula",
			Message: "formula must be non-empty",
			Pos:     formulaVal.Pos(),
		}
	}
	formula, err := expr.Parse(source)
	if err != nil {
		return nil, &CompileError{
			Field:   "formula.syntax",
			Message: fmt.Sprintf("invalid formula %q: %v", source, err),
			Pos:     formulaVal.Pos(),
		}
	}
	spec.Source = source
	spec.Formula = formula
	spec.Refs = expr.Refs(formula)

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Description = desc
	}

	return spec, nil
}

// CompileCatalog compiles every field under "metric" in declaration order.
// All errors are collected; specs that fail to compile are left out.
func CompileCatalog(v cue.Value) ([]MetricSpec, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	metricsVal := v.LookupPath(cue.ParsePath("metric"))
	if !metricsVal.Exists() {
		return nil, nil
	}

	iter, err := metricsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		specs []MetricSpec
		errs  []error
	)
	for iter.Next() {
		spec, err := CompileMetric(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if verrs := Validate(spec); len(verrs) > 0 {
			for _, ve := range verrs {
				errs = append(errs, ve)
			}
			continue
		}
		specs = append(specs, *spec)
	}
	return specs, errs
}

func labelName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
