package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/xray-registration/internal/panel"
	"github.com/ironsheep/xray-registration/internal/stats"
)

// MosaicFilename is the output name of a panel's registration image.
func MosaicFilename(panelID string) string {
	return fmt.Sprintf("Panel %s Registration.png", panelID)
}

// cell returns the mosaic cell of a quadrant: TR top-right, TL top-left, BL
// bottom-left, BR bottom-right.
func cell(q panel.Quadrant) image.Point {
	switch q {
	case panel.TopRight:
		return image.Pt(1, 0)
	case panel.BottomLeft:
		return image.Pt(0, 1)
	case panel.BottomRight:
		return image.Pt(1, 1)
	default:
		return image.Pt(0, 0)
	}
}

// Mosaic composes the annotated quadrants of a panel into a 2x2 image with
// the panel number and overall statistics in the middle.
//
// Cells are sized from the first available quadrant in processing order;
// other quadrants are resized to fit. Missing quadrants stay black and failed
// ones are marked. Mosaic returns nil when no quadrant was measured.
func Mosaic(res *panel.PanelResult, maxOffset float64) *image.NRGBA {
	var w, h int
	for _, q := range panel.Quadrants {
		if r, ok := res.Quadrants[q]; ok && r.Image != nil {
			w, h = r.Image.Bounds().Dx(), r.Image.Bounds().Dy()
			break
		}
	}
	if w == 0 || h == 0 {
		return nil
	}

	canvas := imaging.New(2*w, 2*h, color.Black)
	for _, q := range panel.Quadrants {
		r, ok := res.Quadrants[q]
		if !ok || r.Image == nil {
			continue
		}
		img := Image(r, maxOffset)
		if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
			img = imaging.Resize(img, w, h, imaging.Lanczos)
		}
		c := cell(q)
		canvas = imaging.Paste(canvas, img, image.Pt(c.X*w, c.Y*h))
	}
	for _, e := range res.Errors {
		c := cell(e.Quadrant)
		DrawText(canvas, c.X*w+textLeft, c.Y*h+statLineY, fmt.Sprintf("%s failed: %s", e.Quadrant, e.File), BadOffsetColor)
	}

	drawPanelStats(canvas, w, h, res.Panel, res.Statistic)
	return canvas
}

func drawPanelStats(img *image.NRGBA, w, h int, panelID string, s stats.Statistic) {
	values := [3]string{stats.NotApplicableText, stats.NotApplicableText, stats.NotApplicableText}
	if mean, min, max, ok := s.Value(); ok {
		values = [3]string{fmt.Sprintf("%.2f", mean), fmt.Sprintf("%.2f", min), fmt.Sprintf("%.2f", max)}
	}
	lines := []string{
		"Panel " + panelID,
		"Overall Avg: " + values[0] + "mils",
		"Overall Min: " + values[1] + "mils",
		"Overall Max: " + values[2] + "mils",
	}
	x, y := w-70, h-2*lineSpacing
	for i, line := range lines {
		DrawText(img, x, y+i*lineSpacing, line, TextColor)
	}
}

// Save writes img to path; the format follows the file extension.
func Save(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
