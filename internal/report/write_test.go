package report

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/xray-registration/internal/config"
	"github.com/ironsheep/xray-registration/internal/contour"
	"github.com/ironsheep/xray-registration/internal/panel"
)

func circle(cx, cy, r float64) []contour.Point {
	const n = 64
	pts := make([]contour.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / n
		pts[i] = contour.Point{X: int(math.Round(cx + r*math.Cos(a))), Y: int(math.Round(cy + r*math.Sin(a)))}
	}
	return pts
}

// drillExtractor returns one drilled hole regardless of the image: a frame,
// a ring and its inner wall, and a hole shifted 5 px right.
type drillExtractor struct{}

func (drillExtractor) Extract(image.Image) ([]contour.RawContour, error) {
	const none = contour.None
	return []contour.RawContour{
		{Points: circle(100, 100, 90), Next: none, Prev: none, Child: 1, Parent: none},
		{Points: circle(100, 100, 40), Next: none, Prev: none, Child: 2, Parent: 0},
		{Points: circle(100, 100, 30), Next: none, Prev: none, Child: 3, Parent: 1},
		{Points: circle(105, 100, 10), Next: none, Prev: none, Child: none, Parent: 2},
	}, nil
}

func measurePanel(t *testing.T, names ...string) *panel.PanelResult {
	t.Helper()
	dir := t.TempDir()
	var specs []panel.ImageSpec
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := imaging.Save(imaging.New(200, 200, color.NRGBA{R: 128, G: 128, B: 128, A: 255}), path); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		spec, err := panel.ParseFilename(path)
		if err != nil {
			t.Fatalf("ParseFilename failed: %v", err)
		}
		specs = append(specs, spec)
	}
	p := panel.NewProcessor(config.DefaultConfig(), nil, drillExtractor{})
	return p.MeasurePanel(context.Background(), "01", specs)
}

func TestWritePanel(t *testing.T) {
	res := measurePanel(t, "P01TL_135.png", "P01TR_135.png")
	if len(res.Offsets()) == 0 {
		t.Fatalf("fixture produced no offsets: %+v", res.Errors)
	}

	dir := filepath.Join(t.TempDir(), "out")
	out, err := WritePanel(res, dir, 20, true)
	if err != nil {
		t.Fatalf("WritePanel failed: %v", err)
	}
	if want := filepath.Join(dir, "Panel 01 Registration.png"); out.Mosaic != want {
		t.Errorf("Mosaic: got %q, want %q", out.Mosaic, want)
	}
	if want := filepath.Join(dir, "Panel 01 Offsets.png"); out.Histogram != want {
		t.Errorf("Histogram: got %q, want %q", out.Histogram, want)
	}
	for _, p := range []string{out.Mosaic, out.Histogram} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
	}
}

func TestWritePanel_NoHistogram(t *testing.T) {
	res := measurePanel(t, "P01BL_135.png")
	out, err := WritePanel(res, t.TempDir(), 20, false)
	if err != nil {
		t.Fatalf("WritePanel failed: %v", err)
	}
	if out.Histogram != "" {
		t.Errorf("Histogram: got %q, want none", out.Histogram)
	}
}

func TestWritePanel_NothingMeasured(t *testing.T) {
	res := &panel.PanelResult{Panel: "02"}
	_, err := WritePanel(res, t.TempDir(), 20, true)
	if !errors.Is(err, ErrNothingMeasured) {
		t.Errorf("got %v, want ErrNothingMeasured", err)
	}
}
