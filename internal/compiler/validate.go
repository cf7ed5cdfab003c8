package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/metricalg/internal/expr"
)

// Validation error codes (E200-E299)
const (
	ErrSchemaViolation  = "E200" // CUE value does not satisfy #Metric
	ErrFormulaEmpty     = "E201" // formula is required and must be non-empty
	ErrFormulaSyntax    = "E202" // formula does not parse
	ErrUnknownReference = "E203" // formula references an undefined metric
	ErrReferenceCycle   = "E204" // metrics reference each other
	ErrReservedName     = "E205" // metric named after a base symbol
	ErrDuplicateName    = "E206" // metric defined twice across catalogs
	ErrInvalidName      = "E207" // metric name is not an identifier
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled metric on its own.
// References are checked by Order, which sees the whole catalog.
// Returns all errors found (does not fail-fast).
func Validate(spec *MetricSpec) []ValidationError {
	var errs []ValidationError
	line := 0
	if spec.Pos.IsValid() {
		line = spec.Pos.Line()
	}
	field := "metric." + spec.Name

	switch {
	case spec.Name == "":
		errs = append(errs, ValidationError{
			Field:   "metric",
			Message: "metric name is required",
			Code:    ErrInvalidName,
			Line:    line,
		})
	case expr.IsBaseSymbol(spec.Name):
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%q is a base symbol and cannot name a metric", spec.Name),
			Code:    ErrReservedName,
			Line:    line,
		})
	case !isIdentifier(spec.Name):
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%q is not a valid identifier", spec.Name),
			Code:    ErrInvalidName,
			Line:    line,
		})
	}

	if strings.TrimSpace(spec.Source) == "" || spec.Formula == nil {
		errs = append(errs, ValidationError{
			Field:   field + ".formula",
			Message: "formula is required and must be non-empty",
			Code:    ErrFormulaEmpty,
			Line:    line,
		})
	}

	return errs
}

// isIdentifier reports whether name would parse back as a metric reference.
func isIdentifier(name string) bool {
	e, err := expr.Parse(name)
	if err != nil {
		return false
	}
	ref, ok := e.(expr.Ref)
	return ok && ref.Name == name
}

// CodeFor maps a CompileError field to a validation code.
func CodeFor(field string) string {
	switch field {
	case "formula":
		return ErrFormulaEmpty
	case "formula.syntax":
		return ErrFormulaSyntax
	default:
		return ErrSchemaViolation
	}
}
