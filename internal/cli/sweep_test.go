package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricalg/internal/sweep"
)

func runSweepJSON(t *testing.T, args ...string) SweepOutput {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSweepCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	resp := decodeResponse(t, buf)
	require.Equal(t, "ok", resp.Status)
	var out SweepOutput
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestSweepF1BalancedAccuracy(t *testing.T) {
	out := runSweepJSON(t, "F1", "BalancedAccuracy")

	assert.Equal(t, 400, out.Candidates)
	assert.Equal(t, 300, out.Points)
	assert.Equal(t, 100, out.Excluded)
	assert.Equal(t, 0, out.Violations)
	assert.False(t, out.Functional)
	require.NotNil(t, out.Divergence)
	assert.InDelta(t, out.Divergence.First.B, out.Divergence.Second.B, sweep.Tolerance)
	assert.NotEqual(t, out.Divergence.First.A, out.Divergence.Second.A)
	require.NotNil(t, out.Correlation)
	assert.Greater(t, *out.Correlation, 0.0)
	assert.Empty(t, out.RunID)
}

func TestSweepSynonymsAreFunctional(t *testing.T) {
	out := runSweepJSON(t, "TPR", "Sensitivity", "--max-true", "2", "--max-false", "2")

	assert.Equal(t, 25, out.Candidates)
	assert.True(t, out.Functional)
	assert.Nil(t, out.Divergence)
	require.NotNil(t, out.Correlation)
	assert.InDelta(t, 1.0, *out.Correlation, 1e-9)
}

func TestSweepText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSweepCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Precision", "Recall", "--max-true", "1", "--max-false", "1"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Precision vs Recall (max true 1, max false 1)")
	assert.Contains(t, output, "3 evaluated, 1 excluded of 4")
	assert.Contains(t, output, "divergent:")
}

func TestSweepTable(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSweepCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Precision", "Recall", "--max-true", "1", "--max-false", "1", "--table"})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "tp\tfp\tfn\ttn\tPrecision\tRecall", lines[0])
}

func TestSweepInvalidBounds(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSweepCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"F1", "Recall", "--max-true=-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeInvalidMatrix)
}

func TestSweepUnknownMetric(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSweepCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"F1", "Nope"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeUnknownMetric)
}

func TestSweepPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f1_ba.png")
	out := runSweepJSON(t, "F1", "BalancedAccuracy", "--max-true", "3", "--max-false", "3", "--plot", path)

	assert.Equal(t, path, out.Plot)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSweepPlotUnsupportedFormatRecordsNothing(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "results.db")
	buf := &bytes.Buffer{}
	cmd := NewSweepCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"F1", "Recall", "--db", db, "--plot", filepath.Join(dir, "out.bmp")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodePlot)
	assert.NoFileExists(t, db)
}

func TestSweepRecordAndHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	out := runSweepJSON(t, "Precision", "Recall", "--max-true", "1", "--max-false", "1", "--db", dbPath)
	require.NotEmpty(t, out.RunID)

	// Listing
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "sweep  Precision vs Recall (1x1, 3/4 points)  "+out.RunID)

	// Stored points come back in sweep order
	buf.Reset()
	cmd = NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--points", out.RunID})
	require.NoError(t, cmd.Execute())

	direct := &bytes.Buffer{}
	sweepCmd := NewSweepCommand(&RootOptions{Format: "text"})
	sweepCmd.SetOut(direct)
	sweepCmd.SetArgs([]string{"Precision", "Recall", "--max-true", "1", "--max-false", "1", "--table"})
	require.NoError(t, sweepCmd.Execute())
	assert.Equal(t, direct.String(), buf.String())

	// Delete
	buf.Reset()
	cmd = NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--delete", out.RunID})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Deleted sweep run "+out.RunID)

	buf.Reset()
	cmd = NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--points", out.RunID})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeStore)
}

func TestHistoryPairFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	for _, pair := range [][]string{{"TPR", "Sensitivity"}, {"PPV", "Precision"}} {
		cmd := NewCheckCommand(&RootOptions{Format: "json"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(append(pair, "--db", dbPath))
		require.NoError(t, cmd.Execute())
	}

	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"PPV", "Precision", "--db", dbPath})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "check  PPV ≡ Precision")
	assert.NotContains(t, buf.String(), "TPR")
}

func TestHistoryErrors(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		cmd := NewHistoryCommand(&RootOptions{Format: "text"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("one metric", func(t *testing.T) {
		cmd := NewHistoryCommand(&RootOptions{Format: "text"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"F1", "--db", filepath.Join(t.TempDir(), "r.db")})
		err := cmd.Execute()
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("empty", func(t *testing.T) {
		buf := &bytes.Buffer{}
		cmd := NewHistoryCommand(&RootOptions{Format: "text"})
		cmd.SetOut(buf)
		cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "r.db")})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, buf.String(), "No recorded results.")
	})
}
