// Package plot renders sweep points as a scatter plot.
package plot

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/roach88/metricalg/internal/sweep"
)

var (
	// ErrNoPoints is returned when there is nothing to draw.
	ErrNoPoints = errors.New("no points to plot")

	// ErrUnsupportedFormat is returned for an image format gonum/plot
	// cannot encode.
	ErrUnsupportedFormat = errors.New("unsupported plot format")
)

// Default canvas size.
const (
	DefaultWidth  = 5 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

// Scatter builds a plot with metricA on the x axis and metricB on the y axis.
func Scatter(metricA, metricB string, points iter.Seq[sweep.Point]) (*gonumplot.Plot, error) {
	var xys plotter.XYs
	for p := range points {
		xys = append(xys, plotter.XY{X: p.A, Y: p.B})
	}
	if len(xys) == 0 {
		return nil, ErrNoPoints
	}

	p := gonumplot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s (%d points)", metricB, metricA, len(xys))
	p.X.Label.Text = metricA
	p.Y.Label.Text = metricB
	p.Add(plotter.NewGrid())

	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)

	return p, nil
}

// Save renders the scatter plot to path in the format named by its
// extension. Nothing is written when the format is unsupported or there
// are no points.
func Save(path, metricA, metricB string, points iter.Seq[sweep.Point]) (err error) {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	p, err := Scatter(metricA, metricB, points)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("save plot: %w", cerr)
		}
	}()
	return render(f, format, p)
}

// Write renders the scatter plot to w in the given format.
func Write(w io.Writer, format, metricA, metricB string, points iter.Seq[sweep.Point]) error {
	if !supported[format] {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	p, err := Scatter(metricA, metricB, points)
	if err != nil {
		return err
	}
	return render(w, format, p)
}

func render(w io.Writer, format string, p *gonumplot.Plot) error {
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
	if err != nil {
		return fmt.Errorf("plot format %q: %w", format, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// supported lists the formats gonum/plot can encode.
var supported = map[string]bool{
	"png": true, "svg": true, "pdf": true, "eps": true,
	"jpg": true, "jpeg": true, "tif": true, "tiff": true,
}

// FormatOf returns the image format implied by a file name, or
// ErrUnsupportedFormat.
func FormatOf(path string) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !supported[format] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
	return format, nil
}
