package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricalg/internal/sweep"
)

var samplePoints = []sweep.Point{
	{A: 0.5, B: 0.75},
	{A: 0.667, B: 0.5},
	{A: 1, B: 1},
}

func TestScatter(t *testing.T) {
	p, err := Scatter("F1", "BalancedAccuracy", slices.Values(samplePoints))
	require.NoError(t, err)
	assert.Equal(t, "F1", p.X.Label.Text)
	assert.Equal(t, "BalancedAccuracy", p.Y.Label.Text)
	assert.Equal(t, "BalancedAccuracy vs F1 (3 points)", p.Title.Text)
}

func TestScatterNoPoints(t *testing.T) {
	_, err := Scatter("F1", "BalancedAccuracy", slices.Values([]sweep.Point(nil)))
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.png")
	require.NoError(t, Save(path, "F1", "BalancedAccuracy", slices.Values(samplePoints)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "svg", "F1", "BalancedAccuracy", slices.Values(samplePoints)))
	assert.Contains(t, buf.String(), "<svg")
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, "bmp2", "F1", "BalancedAccuracy", slices.Values(samplePoints))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Zero(t, buf.Len())
}

func TestSaveUnsupportedExtension(t *testing.T) {
	for _, name := range []string{"sweep.bmp", "sweep"} {
		path := filepath.Join(t.TempDir(), name)
		err := Save(path, "F1", "BalancedAccuracy", slices.Values(samplePoints))
		assert.ErrorIs(t, err, ErrUnsupportedFormat, name)
		assert.NoFileExists(t, path)
	}
}

func TestSaveNoPointsWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.svg")
	err := Save(path, "F1", "BalancedAccuracy", slices.Values([]sweep.Point(nil)))
	assert.ErrorIs(t, err, ErrNoPoints)
	assert.NoFileExists(t, path)
}

func TestFormatOf(t *testing.T) {
	format, err := FormatOf("out/sweep.PNG")
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	format, err = FormatOf("sweep.svg")
	require.NoError(t, err)
	assert.Equal(t, "svg", format)

	_, err = FormatOf("sweep")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
