package annotate

import (
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/xray-registration/internal/config"
	"github.com/ironsheep/xray-registration/internal/contour"
	"github.com/ironsheep/xray-registration/internal/panel"
	"github.com/ironsheep/xray-registration/internal/stats"
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

func measured(t *testing.T, name string) *panel.ImageResult {
	t.Helper()
	spec, err := panel.ParseFilename(name)
	if err != nil {
		t.Fatalf("ParseFilename failed: %v", err)
	}
	src := imaging.New(200, 200, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	res, err := panel.MeasureImage(src, spec, config.DefaultConfig(), drillExtractor{})
	if err != nil {
		t.Fatalf("MeasureImage failed: %v", err)
	}
	return res
}

func sameRGB(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	return ar>>8 == br>>8 && ag>>8 == bg>>8 && ab>>8 == bb>>8
}

func TestImage(t *testing.T) {
	res := measured(t, "P01TL_135.png")
	out := Image(res, 20)

	if out.Bounds() != res.Image.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), res.Image.Bounds())
	}
	if !sameRGB(res.Image.At(100, 140), color.NRGBA{R: 128, G: 128, B: 128, A: 255}) {
		t.Error("source image was modified")
	}

	tests := []struct {
		name string
		x, y int
		want color.Color
	}{
		{"ring outline", 100, 140, RingColor},
		{"hole outline", 105, 90, HoleColor},
		{"hole centroid cross arm", 105, 103, CrossColor},
		{"background", 20, 180, color.NRGBA{R: 128, G: 128, B: 128, A: 255}},
	}
	for _, tt := range tests {
		if got := out.At(tt.x, tt.y); !sameRGB(got, tt.want) {
			t.Errorf("%s at (%d,%d): got %v", tt.name, tt.x, tt.y, got)
		}
	}

	// Some text is drawn along the stat line.
	found := false
	for x := textLeft; x < textLeft+100 && !found; x++ {
		for y := statLineY - 10; y <= statLineY; y++ {
			if sameRGB(out.At(x, y), TextColor) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("stat line not drawn")
	}
}

func TestStatLine(t *testing.T) {
	tests := []struct {
		s    stats.Statistic
		want string
	}{
		{stats.NotApplicable(), "Avg Offset: N/A     Min Offset: N/A     Max Offset: N/A     Hole Diam: 13.5mils"},
		{stats.Summary(2.345, 1, 4, 3), "Avg Offset: 2.35mils     Min Offset: 1.00mils     Max Offset: 4.00mils     Hole Diam: 13.5mils"},
	}
	for _, tt := range tests {
		if got := StatLine(tt.s, 13.5); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestOffsetColor(t *testing.T) {
	if !sameRGB(OffsetColor(0, 20), GoodOffsetColor) {
		t.Error("zero offset should be the good colour")
	}
	if !sameRGB(OffsetColor(40, 20), BadOffsetColor) {
		t.Error("offsets beyond the bound should be the bad colour")
	}
	if !sameRGB(OffsetColor(40, 0), GoodOffsetColor) {
		t.Error("unbounded offsets should be the good colour")
	}
}

func TestMosaic(t *testing.T) {
	tl := measured(t, "P03TL_135.png")
	br := measured(t, "P03BR_135.png")
	res := &panel.PanelResult{
		Panel: "03",
		Quadrants: map[panel.Quadrant]*panel.ImageResult{
			panel.TopLeft:     tl,
			panel.BottomRight: br,
		},
		Statistic: stats.Summary(1, 1, 1, 2),
		Errors:    []panel.QuadrantError{{Quadrant: panel.TopRight, File: "P03TR_135.png"}},
	}

	m := Mosaic(res, 20)
	if m == nil {
		t.Fatal("Mosaic returned nil")
	}
	if b := m.Bounds(); b.Dx() != 400 || b.Dy() != 400 {
		t.Fatalf("mosaic size: got %dx%d, want 400x400", b.Dx(), b.Dy())
	}

	grey := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	tests := []struct {
		name string
		x, y int
		want color.Color
	}{
		{"TL cell", 20, 180, grey},
		{"BR cell", 220, 380, grey},
		{"BL cell empty", 20, 380, color.Black},
		{"TR cell empty", 380, 180, color.Black},
	}
	for _, tt := range tests {
		if got := m.At(tt.x, tt.y); !sameRGB(got, tt.want) {
			t.Errorf("%s at (%d,%d): got %v", tt.name, tt.x, tt.y, got)
		}
	}

	if Mosaic(&panel.PanelResult{Panel: "09"}, 20) != nil {
		t.Error("empty panel should give no mosaic")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), MosaicFilename("07"))
	if filepath.Base(path) != "Panel 07 Registration.png" {
		t.Errorf("filename: got %q", filepath.Base(path))
	}
	if err := Save(path, imaging.New(4, 4, color.White)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("saved width: got %d", img.Bounds().Dx())
	}
	if err := Save(filepath.Join(t.TempDir(), "x.unknown"), imaging.New(1, 1, color.White)); err == nil {
		t.Error("unknown extension should fail")
	}
}
