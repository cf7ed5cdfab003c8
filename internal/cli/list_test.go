package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestListText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewListCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Sensitivity")
	assert.Contains(t, output, "A / (A + C)")
	assert.Contains(t, output, "2 * Precision * Recall / (Precision + Recall)")
}

func TestListJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewListCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	resp := decodeResponse(t, buf)
	assert.Equal(t, "ok", resp.Status)

	var infos []MetricInfo
	require.NoError(t, json.Unmarshal(resp.Data, &infos))
	require.NotEmpty(t, infos)
	assert.Equal(t, "Sensitivity", infos[0].Name)
	assert.Equal(t, "F1", infos[len(infos)-1].Name)
}

func TestListIncludesMetricsDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.cue", "package metrics\n\nmetric: Youden: formula: \"TPR - FPR\"\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", MetricsDirs: []string{dir}}
	cmd := NewListCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var infos []MetricInfo
	require.NoError(t, json.Unmarshal(decodeResponse(t, buf).Data, &infos))
	assert.Equal(t, "Youden", infos[len(infos)-1].Name)
}

func TestListBadMetricsDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", "package metrics\n\nmetric: X: formula: \"Nope + A\"\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", MetricsDirs: []string{dir}}
	cmd := NewListCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E203")
}

func TestShowText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewShowCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"F1"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "F1")
	assert.Contains(t, output, "formula:  2 * Precision * Recall / (Precision + Recall)")
	assert.Contains(t, output, "expanded:")
	assert.Contains(t, output, "id:")
}

func TestShowBaseMetricHasNoExpansionLine(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewShowCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Sensitivity"})

	require.NoError(t, cmd.Execute())
	assert.NotContains(t, buf.String(), "expanded:")
	assert.Contains(t, buf.String(), "Share of actual positives predicted positive")
}

func TestShowYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "yaml"}
	cmd := NewShowCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"F1"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `yaml:"status"`
		Data   MetricInfo `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "F1", resp.Data.Name)
	assert.Equal(t, []string{"Precision", "Recall"}, resp.Data.Refs)
	assert.Len(t, resp.Data.ID, 64)
}

func TestShowUnknownMetric(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewShowCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Nope"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnknownMetric, resp.Error.Code)
}
