// Package report plots the distribution of accepted registration offsets.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there are no offsets to plot.
var ErrNoData = errors.New("no offsets to plot")

const maxBins = 20

// HistogramFilename is the output name of a panel's offset histogram.
func HistogramFilename(panelID string) string {
	return fmt.Sprintf("Panel %s Offsets.png", panelID)
}

// Bins returns the bin count used for n offsets.
func Bins(n int) int {
	b := int(math.Ceil(math.Sqrt(float64(n))))
	return max(1, min(b, maxBins))
}

// Histogram writes a histogram of offsets (mils) for one panel to path. The
// image format follows the file extension. A vertical line marks the mean
// and, when bound is positive, a dashed one the plausibility bound.
func Histogram(panelID string, offsets []float64, bound float64, path string) error {
	if len(offsets) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Panel %s - Registration Offsets (n=%d)", panelID, len(offsets))
	p.X.Label.Text = "Offset (mils)"
	p.Y.Label.Text = "Pairs"

	h, err := plotter.NewHist(plotter.Values(offsets), Bins(len(offsets)))
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	h.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(h)

	top := 0.0
	for _, b := range h.Bins {
		top = math.Max(top, b.Weight)
	}

	mean := stat.Mean(offsets, nil)
	meanLine, err := verticalLine(mean, top)
	if err != nil {
		return err
	}
	meanLine.Color = color.RGBA{R: 220, G: 0, B: 0, A: 255}
	p.Add(meanLine)
	p.Legend.Add(fmt.Sprintf("mean %.2f", mean), meanLine)

	if bound > 0 {
		boundLine, err := verticalLine(bound, top)
		if err != nil {
			return err
		}
		boundLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(boundLine)
		p.Legend.Add(fmt.Sprintf("bound %g", bound), boundLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save histogram: %w", err)
	}
	return nil
}

func verticalLine(x, height float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: height}})
	if err != nil {
		return nil, fmt.Errorf("failed to build line: %w", err)
	}
	l.Width = vg.Points(1)
	return l, nil
}
