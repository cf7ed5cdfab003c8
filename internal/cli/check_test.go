package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricalg/internal/confusion"
)

func TestCheckEquivalent(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCheckCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"TPR", "Sensitivity"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ TPR ≡ Sensitivity")
}

func TestCheckBayesForms(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"PPV", "Precision"},
		{"ScoreTrueGTFalse", "BalancedAccuracy"},
		{"ScoreTrueGTFalse", "AUC"},
		{"Recall", "Sensitivity"},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			buf := &bytes.Buffer{}
			cmd := NewCheckCommand(&RootOptions{Format: "json"})
			cmd.SetOut(buf)
			cmd.SetArgs([]string{tt.a, tt.b})

			require.NoError(t, cmd.Execute())

			var out CheckOutput
			require.NoError(t, json.Unmarshal(decodeResponse(t, buf).Data, &out))
			assert.Equal(t, "equivalent", out.Verdict)
			assert.Equal(t, "0", out.Residual)
		})
	}
}

func TestCheckNotEquivalentWithWitness(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCheckCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Precision", "Specificity", "--witness", "--max-true", "1", "--max-false", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotEquivalent, resp.Error.Code)

	var out CheckOutput
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.Equal(t, "not_equivalent", out.Verdict)
	assert.Equal(t, "(A * B - B * D) / ((A + B) * (B + D))", out.Residual)
	require.NotNil(t, out.Witness)
	assert.Equal(t, confusion.Matrix{TP: 1, FP: 1}, out.Witness.Matrix)
	assert.Equal(t, "1/2", out.Witness.Value)
	assert.InDelta(t, 0.5, out.Witness.Float, 1e-12)
}

func TestCheckNotEquivalentText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCheckCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Precision", "Specificity"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Precision ≢ Specificity")
	assert.Contains(t, buf.String(), "residual:")
	assert.NotContains(t, buf.String(), "witness:")
}

func TestCheckUnknownMetric(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCheckCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Foo", "TPR"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeUnknownMetric)
}

func TestCheckRecordsComparison(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")

	for range 2 {
		buf := &bytes.Buffer{}
		cmd := NewCheckCommand(&RootOptions{Format: "json"})
		cmd.SetOut(buf)
		cmd.SetArgs([]string{"Precision", "Specificity", "--witness", "--db", dbPath})
		require.Error(t, cmd.Execute())

		var out CheckOutput
		require.NoError(t, json.Unmarshal(decodeResponse(t, buf).Data, &out))
		assert.Len(t, out.ComparisonID, 64)
	}

	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())

	var hist HistoryOutput
	require.NoError(t, json.Unmarshal(decodeResponse(t, buf).Data, &hist))
	require.Len(t, hist.Comparisons, 1, "the same comparison is recorded once")
	assert.Equal(t, "Precision", hist.Comparisons[0].MetricA)
	assert.Empty(t, hist.Runs)
}

func TestWitnessDifference(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewWitnessCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Precision", "Specificity", "--matrix", "0,1,0,1"})

	require.NoError(t, cmd.Execute())

	var out DifferenceOutput
	require.NoError(t, json.Unmarshal(decodeResponse(t, buf).Data, &out))
	assert.Equal(t, confusion.Matrix{FP: 1, TN: 1}, out.Matrix)
	assert.Equal(t, "0", out.ValueA)
	assert.Equal(t, "1/2", out.ValueB)
	assert.Equal(t, "-1/2", out.Difference)
	assert.InDelta(t, -0.5, out.Float, 1e-12)
}

func TestWitnessText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewWitnessCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"TPR", "Sensitivity", "--matrix", "3,1,2,4"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "TP=3 FP=1 FN=2 TN=4")
	assert.Contains(t, buf.String(), "difference = 0 (0)")
}

func TestWitnessErrors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		code   string
		output string
	}{
		{"malformed matrix", []string{"Precision", "Recall", "--matrix", "1,2,3"}, ErrCodeInvalidMatrix, "tp,fp,fn,tn"},
		{"negative count", []string{"Precision", "Recall", "--matrix", "1,-2,3,4"}, ErrCodeInvalidMatrix, "negative"},
		{"undefined metric value", []string{"Precision", "Recall", "--matrix", "0,0,1,1"}, ErrCodeDivisionByZero, "Precision undefined"},
		{"unknown metric", []string{"Precision", "Nope", "--matrix", "1,1,1,1"}, ErrCodeUnknownMetric, "Nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			cmd := NewWitnessCommand(&RootOptions{Format: "text"})
			cmd.SetOut(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, buf.String(), tt.code)
			assert.Contains(t, buf.String(), tt.output)
		})
	}
}

func TestClasses(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewClassesCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Precision", "Recall", "PPV", "TPR", "Sensitivity"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Precision ≡ PPV\nRecall ≡ TPR ≡ Sensitivity\n", buf.String())
}

func TestClassesAllMetricsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewClassesCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var classes [][]string
	require.NoError(t, json.Unmarshal(decodeResponse(t, buf).Data, &classes))
	require.NotEmpty(t, classes)
	assert.Equal(t, []string{"Sensitivity", "TPR", "Recall"}, classes[0])

	total := 0
	for _, c := range classes {
		total += len(c)
	}
	assert.Equal(t, 18, total)
}
