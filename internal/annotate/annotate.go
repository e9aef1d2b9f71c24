// Package annotate draws measurement overlays on X-ray images and composes
// the four quadrants of a panel into one registration mosaic.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/xray-registration/internal/contour"
	"github.com/ironsheep/xray-registration/internal/feature"
	"github.com/ironsheep/xray-registration/internal/panel"
	"github.com/ironsheep/xray-registration/internal/stats"
)

// Palette colours.
var (
	RingColor  = colorful.Color{R: 0, G: 1, B: 1}
	HoleColor  = colorful.Color{R: 0, G: 200.0 / 255, B: 0}
	CrossColor = colorful.Color{R: 1, G: 0, B: 0}
	TextColor  = colorful.Color{R: 1, G: 1, B: 0}

	// Offset lines blend from good to bad as the offset approaches the
	// plausibility bound.
	GoodOffsetColor = colorful.Color{R: 0.2, G: 0.9, B: 0.2}
	BadOffsetColor  = colorful.Color{R: 1, G: 0, B: 0.4}
)

// crossArm is the half-length of a centroid cross in pixels.
const crossArm = 3

// Text layout, in pixels from the top-left corner. Baselines.
const (
	textLeft    = 60
	statLineY   = 25
	fileLineY   = 40
	lineSpacing = 15
)

// OffsetColor grades an offset against bound. A non-positive bound yields
// the good colour.
func OffsetColor(offset, bound float64) color.Color {
	if bound <= 0 {
		return GoodOffsetColor
	}
	t := math.Max(0, math.Min(1, offset/bound))
	return GoodOffsetColor.BlendLab(BadOffsetColor, t).Clamped()
}

// StatLine renders a statistic the way it is printed on images.
func StatLine(s stats.Statistic, nominal float64) string {
	mean, min, max, ok := s.Value()
	if !ok {
		return fmt.Sprintf("Avg Offset: %s     Min Offset: %s     Max Offset: %s     Hole Diam: %gmils",
			stats.NotApplicableText, stats.NotApplicableText, stats.NotApplicableText, nominal)
	}
	return fmt.Sprintf("Avg Offset: %.2fmils     Min Offset: %.2fmils     Max Offset: %.2fmils     Hole Diam: %gmils",
		mean, min, max, nominal)
}

// Image returns a copy of the measured image with rings, holes, centroids,
// contour ids and the image statistic drawn on it.
//
// Only contours taking part in a ring/hole candidate are outlined. Each
// calibrated pair is joined by a line graded by its physical offset.
func Image(res *panel.ImageResult, maxOffset float64) *image.NRGBA {
	out := imaging.Clone(res.Image)

	drawn := make(map[int]bool)
	outline := func(id int) {
		if drawn[id] {
			return
		}
		drawn[id] = true
		c, ok := res.Registry.Contour(id)
		if !ok {
			return
		}
		clr := HoleColor
		if res.Labels.Is(id, feature.Ring) {
			clr = RingColor
		}
		drawPolygon(out, c.Points, clr)
		if len(c.Points) > 0 {
			p := c.Points[0]
			DrawText(out, p.X, p.Y, fmt.Sprint(id), TextColor)
		}
	}
	for _, cand := range res.Pairing.Candidates {
		outline(cand.RingID)
		outline(cand.HoleID)
	}

	for _, p := range res.Calibration.Accepted {
		drawLine(out, toPixel(p.RingCentroid), toPixel(p.HoleCentroid), OffsetColor(p.PhysicalOffset, maxOffset))
		drawCross(out, toPixel(p.RingCentroid), CrossColor)
		drawCross(out, toPixel(p.HoleCentroid), CrossColor)
	}
	for _, r := range res.Calibration.Rejected {
		drawCross(out, toPixel(r.RingCentroid), CrossColor)
		drawCross(out, toPixel(r.HoleCentroid), CrossColor)
	}

	DrawText(out, textLeft, statLineY, StatLine(res.Statistic, res.Spec.NominalDiameter), TextColor)
	DrawText(out, textLeft, fileLineY, "File: "+res.Spec.Name, TextColor)
	return out
}

// DrawText draws a single line of text with its baseline at y.
func DrawText(dst draw.Image, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// toPixel rounds a centroid to its nearest pixel.
func toPixel(p contour.Point2D) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

func drawCross(img draw.Image, c image.Point, col color.Color) {
	drawLine(img, image.Pt(c.X-crossArm, c.Y), image.Pt(c.X+crossArm, c.Y), col)
	drawLine(img, image.Pt(c.X, c.Y-crossArm), image.Pt(c.X, c.Y+crossArm), col)
}

func drawPolygon(img draw.Image, pts []contour.Point, col color.Color) {
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		drawLine(img, image.Pt(a.X, a.Y), image.Pt(b.X, b.Y), col)
	}
}

// drawLine draws a one-pixel Bresenham line, clipped to the image.
func drawLine(img draw.Image, p0, p1 image.Point, col color.Color) {
	b := img.Bounds()
	dx, dy := abs(p1.X-p0.X), -abs(p1.Y-p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}
	e := dx + dy
	for x, y := p0.X, p0.Y; ; {
		if (image.Point{X: x, Y: y}).In(b) {
			img.Set(x, y, col)
		}
		if x == p1.X && y == p1.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
