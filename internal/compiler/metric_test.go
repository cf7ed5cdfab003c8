package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricalg/internal/expr"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return v
}

func TestCompileMetricBasic(t *testing.T) {
	v := compileString(t, `
		metric: F1: {
			formula:     "2 * Precision * Recall / (Precision + Recall)"
			description: "Harmonic mean of precision and recall"
		}
	`)

	spec, err := CompileMetric(v.LookupPath(cue.ParsePath("metric.F1")))
	require.NoError(t, err)

	assert.Equal(t, "F1", spec.Name)
	assert.Equal(t, "Harmonic mean of precision and recall", spec.Description)
	assert.Equal(t, "2 * Precision * Recall / (Precision + Recall)", spec.Source)
	assert.Equal(t, []string{"Precision", "Recall"}, spec.Refs)
	assert.Equal(t, spec.Source, expr.String(spec.Formula))
	assert.True(t, spec.Pos.IsValid())
}

func TestCompileMetricQuotedLabel(t *testing.T) {
	v := compileString(t, `metric: "Recall": formula: "A / (A + C)"`)

	iter, err := v.LookupPath(cue.ParsePath("metric")).Fields()
	require.NoError(t, err)
	require.True(t, iter.Next())

	spec, err := CompileMetric(iter.Value())
	require.NoError(t, err)
	assert.Equal(t, "Recall", spec.Name)
}

func TestCompileMetricMissingFormula(t *testing.T) {
	v := compileString(t, `metric: Bad: description: "no formula"`)

	_, err := CompileMetric(v.LookupPath(cue.ParsePath("metric.Bad")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "formula", ce.Field)
	assert.Contains(t, err.Error(), "required")
	assert.Equal(t, ErrFormulaEmpty, CodeFor(ce.Field))
}

func TestCompileMetricEmptyFormula(t *testing.T) {
	v := compileString(t, `metric: Bad: formula: "   "`)

	_, err := CompileMetric(v.LookupPath(cue.ParsePath("metric.Bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty")
}

func TestCompileMetricSyntaxError(t *testing.T) {
	v := compileString(t, `metric: Bad: formula: "A / (B +"`)

	_, err := CompileMetric(v.LookupPath(cue.ParsePath("metric.Bad")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "formula.syntax", ce.Field)
	assert.Equal(t, ErrFormulaSyntax, CodeFor(ce.Field))
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "test.cue:1:")
}

func TestCompileMetricFormulaNotString(t *testing.T) {
	v := compileString(t, `metric: Bad: formula: 42`)

	_, err := CompileMetric(v.LookupPath(cue.ParsePath("metric.Bad")))
	require.Error(t, err)
}

func TestCompileCatalogDeclarationOrder(t *testing.T) {
	v := compileString(t, `
		metric: {
			Sensitivity: formula: "A / (A + C)"
			Specificity: formula: "D / (B + D)"
			BalancedAccuracy: formula: "(Sensitivity + Specificity) / 2"
		}
	`)

	specs, errs := CompileCatalog(v)
	require.Empty(t, errs)
	require.Len(t, specs, 3)
	assert.Equal(t, "Sensitivity", specs[0].Name)
	assert.Equal(t, "Specificity", specs[1].Name)
	assert.Equal(t, "BalancedAccuracy", specs[2].Name)
}

func TestCompileCatalogCollectsErrors(t *testing.T) {
	v := compileString(t, `
		metric: {
			Good: formula: "A / (A + B)"
			Empty: formula: ""
			A: formula: "B"
			Broken: formula: "A +"
		}
	`)

	specs, errs := CompileCatalog(v)
	require.Len(t, specs, 1)
	assert.Equal(t, "Good", specs[0].Name)
	require.Len(t, errs, 3)

	var ve ValidationError
	require.ErrorAs(t, errs[1], &ve)
	assert.Equal(t, ErrReservedName, ve.Code)
}

func TestCompileCatalogNoMetrics(t *testing.T) {
	specs, errs := CompileCatalog(compileString(t, `other: 1`))
	assert.Empty(t, specs)
	assert.Empty(t, errs)
}
