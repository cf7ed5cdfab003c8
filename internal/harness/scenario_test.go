package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricalg/internal/confusion"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/precision_family.yaml")
	require.NoError(t, err)

	assert.Equal(t, "precision_family", scenario.Name)
	require.NotNil(t, scenario.WitnessBounds)
	assert.Equal(t, confusion.Bounds{MaxTotalTrue: 1, MaxTotalFalse: 1}, *scenario.WitnessBounds)
	require.Len(t, scenario.Checks, 2)
	assert.Equal(t, "Specificity", scenario.Checks[1].B)
	require.Len(t, scenario.Sweeps, 1)
	require.NotNil(t, scenario.Sweeps[0].Expect)
	assert.Equal(t, 3, *scenario.Sweeps[0].Expect.Points)
	assert.Nil(t, scenario.Sweeps[0].Expect.Violations)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, [][]string{{"Precision", "PPV"}, {"Recall", "TPR"}}, scenario.Assertions[1].Classes)
}

func TestLoadScenario_ResolvesMetricPaths(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/custom_metrics.yaml")
	require.NoError(t, err)
	require.Len(t, scenario.Metrics, 1)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "custom.cue"), scenario.Metrics[0])
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.cue"), []byte(`metric: X: formula: "A"`), 0o644))

	path := writeScenario(t, t.TempDir(), `
name: based
description: "metric file from another directory"
metrics: [m.cue]
checks:
  - { a: X, b: TPR, expect: not_equivalent }
`)
	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "m.cue"), scenario.Metrics[0])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\ncheck: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: y\nchecks: [{a: A1, b: B1, expect: equivalent}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nchecks: [{a: A1, b: B1, expect: equivalent}]\n",
			wantErr: "description is required",
		},
		{
			name:    "nothing to do",
			content: "name: x\ndescription: y\n",
			wantErr: "at least one of checks, sweeps or assertions",
		},
		{
			name:    "bad verdict",
			content: "name: x\ndescription: y\nchecks: [{a: P, b: Q, expect: same}]\n",
			wantErr: "expect must be",
		},
		{
			name:    "missing metric name",
			content: "name: x\ndescription: y\nchecks: [{a: P, expect: equivalent}]\n",
			wantErr: "a and b are required",
		},
		{
			name:    "difference without witness",
			content: "name: x\ndescription: y\nchecks: [{a: P, b: Q, expect: not_equivalent, difference: \"1\"}]\n",
			wantErr: "difference requires witness",
		},
		{
			name:    "negative witness",
			content: "name: x\ndescription: y\nchecks: [{a: P, b: Q, expect: not_equivalent, witness: {tp: -1, fp: 0, fn: 0, tn: 1}}]\n",
			wantErr: "witness",
		},
		{
			name:    "zero sweep bounds",
			content: "name: x\ndescription: y\nsweeps: [{a: P, b: Q, bounds: {max_total_true: 0, max_total_false: 1}}]\n",
			wantErr: "sweeps[0].bounds",
		},
		{
			name:    "bad witness bounds",
			content: "name: x\ndescription: y\nwitness_bounds: {max_total_true: 1}\nchecks: [{a: P, b: Q, expect: equivalent}]\n",
			wantErr: "witness_bounds",
		},
		{
			name:    "missing metric file",
			content: "name: x\ndescription: y\nmetrics: [nope.cue]\nchecks: [{a: P, b: Q, expect: equivalent}]\n",
			wantErr: "metric file not found",
		},
		{
			name:    "incomplete define",
			content: "name: x\ndescription: y\ndefine: [{name: X}]\nchecks: [{a: P, b: Q, expect: equivalent}]\n",
			wantErr: "define[0]",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: y\nassertions: [{type: trace_order}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "classes without classes",
			content: "name: x\ndescription: y\nassertions: [{type: classes, metrics: [P]}]\n",
			wantErr: "classes list is required",
		},
		{
			name:    "verdict_count bad verdict",
			content: "name: x\ndescription: y\nassertions: [{type: verdict_count, verdict: maybe, count: 1}]\n",
			wantErr: "unknown verdict",
		},
		{
			name:    "expansion without formula",
			content: "name: x\ndescription: y\nassertions: [{type: expansion, metric: F1}]\n",
			wantErr: "metric and formula are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandScenarioPaths(t *testing.T) {
	paths, err := ExpandScenarioPaths([]string{"testdata/scenarios"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "custom_metrics.yaml"),
		filepath.Join("testdata", "scenarios", "f1_balanced_accuracy.yaml"),
		filepath.Join("testdata", "scenarios", "precision_family.yaml"),
	}, paths)

	paths, err = ExpandScenarioPaths([]string{"testdata/scenarios/precision_family.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"testdata/scenarios/precision_family.yaml"}, paths)
}

func TestExpandScenarioPaths_Missing(t *testing.T) {
	_, err := ExpandScenarioPaths([]string{"testdata/nope.yaml"})
	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "testdata/nope.yaml", nf.Path)
}
