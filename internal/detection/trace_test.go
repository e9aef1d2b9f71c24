package detection

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/xray-registration/internal/contour"
)

// drawDisk sets every pixel within r of (cx, cy) to v.
func drawDisk(m *image.Gray, cx, cy, r float64, v uint8) {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				m.SetGray(x, y, color.Gray{Y: v})
			}
		}
	}
}

func TestTraceContours_Square(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 7, 7))
	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			mask.Pix[y*mask.Stride+x] = 255
		}
	}

	raw := TraceContours(mask)
	if len(raw) != 1 {
		t.Fatalf("got %d contours, want 1", len(raw))
	}
	want := []contour.Point{
		{X: 2, Y: 2}, {X: 3, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 3},
		{X: 4, Y: 4}, {X: 3, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 3},
	}
	if diff := cmp.Diff(want, raw[0].Points); diff != "" {
		t.Errorf("boundary mismatch (-want +got):\n%s", diff)
	}
	if raw[0].Parent != contour.None || raw[0].Child != contour.None {
		t.Errorf("links: got %+v", raw[0])
	}
}

func TestTraceContours_SinglePixel(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 5, 5))
	mask.Pix[2*mask.Stride+2] = 255

	raw := TraceContours(mask)
	if len(raw) != 1 || len(raw[0].Points) != 1 {
		t.Fatalf("got %+v, want one single-point contour", raw)
	}
}

func TestTraceContours_Empty(t *testing.T) {
	if raw := TraceContours(image.NewGray(image.Rect(0, 0, 10, 10))); len(raw) != 0 {
		t.Errorf("blank mask: got %d contours, want 0", len(raw))
	}
	if raw := TraceContours(image.NewGray(image.Rect(0, 0, 0, 0))); len(raw) != 0 {
		t.Errorf("empty mask: got %d contours, want 0", len(raw))
	}
}

func TestTraceContours_NestedRing(t *testing.T) {
	// Annulus (outer 20, inner 12) around a disk of radius 6.
	mask := image.NewGray(image.Rect(0, 0, 64, 64))
	drawDisk(mask, 32, 32, 20, 255)
	drawDisk(mask, 32, 32, 12, 0)
	drawDisk(mask, 32, 32, 6, 255)

	raw := TraceContours(mask)
	if len(raw) != 3 {
		t.Fatalf("got %d contours, want 3", len(raw))
	}

	wantLinks := [][2]int{
		{1, contour.None}, // outer boundary of the annulus
		{2, 0},            // hole
		{contour.None, 1}, // inner disk
	}
	for id, want := range wantLinks {
		if raw[id].Child != want[0] || raw[id].Parent != want[1] {
			t.Errorf("contour %d: child=%d parent=%d, want child=%d parent=%d",
				id, raw[id].Child, raw[id].Parent, want[0], want[1])
		}
	}

	for id, r := range []float64{20, 12, 6} {
		c := contour.NewContour(id, raw[id].Points)
		want := math.Pi * r * r
		if math.Abs(c.Area-want)/want > 0.3 {
			t.Errorf("contour %d: area %.1f, want about %.1f", id, c.Area, want)
		}
		centre := contour.Centroid(c)
		if math.Abs(centre.X-32) > 1 || math.Abs(centre.Y-32) > 1 {
			t.Errorf("contour %d: centroid %+v, want near (32, 32)", id, centre)
		}
	}

	// The raw forest must be accepted by the registry.
	reg := contour.Filter(raw, contour.ShapeFilter{MaxAspect: math.Inf(1)})
	if reg.Len() != 3 {
		t.Errorf("registry: got %d contours, want 3", reg.Len())
	}
}

func TestTraceContours_Siblings(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 80, 40))
	drawDisk(mask, 20, 20, 8, 255)
	drawDisk(mask, 60, 20, 8, 255)

	raw := TraceContours(mask)
	if len(raw) != 2 {
		t.Fatalf("got %d contours, want 2", len(raw))
	}
	if raw[0].Next != 1 || raw[1].Prev != 0 || raw[0].Prev != contour.None || raw[1].Next != contour.None {
		t.Errorf("sibling links: %+v / %+v", raw[0], raw[1])
	}
	if raw[0].Parent != contour.None || raw[1].Parent != contour.None {
		t.Error("disks should be top-level")
	}
}

func TestTraceContours_ForegroundTouchingBorder(t *testing.T) {
	// A frame of foreground along the image edge encloses a background hole.
	mask := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := 0; i < 10; i++ {
		mask.Pix[i] = 255
		mask.Pix[9*mask.Stride+i] = 255
		mask.Pix[i*mask.Stride] = 255
		mask.Pix[i*mask.Stride+9] = 255
	}

	raw := TraceContours(mask)
	if len(raw) != 2 {
		t.Fatalf("got %d contours, want 2", len(raw))
	}
	if raw[1].Parent != 0 || raw[0].Child != 1 {
		t.Errorf("links: %+v / %+v", raw[0], raw[1])
	}
}
