package detection

import (
	"image"

	"github.com/ironsheep/xray-registration/internal/contour"
)

// region is a connected set of equal-valued mask pixels.
type region struct {
	foreground bool
	seed       image.Point // first pixel in raster order
	border     bool        // touches the image frame
}

// mooreOffsets lists the 8-neighbourhood clockwise, starting west.
var mooreOffsets = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// TraceContours extracts the contour forest of a binary mask (non-zero is
// foreground), equivalent to a tree-mode contour retrieval.
//
// Foreground regions (8-connected) become outer contours; background regions
// (4-connected) that do not touch the image frame become hole contours. The
// background touching the frame is the root and is not reported. Contours are
// numbered in raster order of their first pixel, so a contour's parent always
// has a lower index.
//
// # Parent Resolution
//
// The pixel directly above a region's first pixel has the opposite value and
// cannot belong to one of the region's holes or islands (those lie strictly
// below its top row), so it belongs to the enclosing region.
func TraceContours(mask *image.Gray) []contour.RawContour {
	w, h := mask.Bounds().Dx(), mask.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil
	}
	fg := func(x, y int) bool { return mask.Pix[y*mask.Stride+x] != 0 }

	labels, regions := labelRegions(fg, w, h)

	// Map region index to contour id.
	contourID := make([]int, len(regions))
	var raw []contour.RawContour
	for ri, r := range regions {
		contourID[ri] = contour.None
		if !r.foreground && r.border {
			continue
		}
		contourID[ri] = len(raw)
		raw = append(raw, contour.RawContour{
			Points: traceBoundary(labels, int32(ri), w, h, r.seed),
			Next:   contour.None,
			Prev:   contour.None,
			Child:  contour.None,
			Parent: contour.None,
		})
	}

	for ri, r := range regions {
		id := contourID[ri]
		if id == contour.None || r.seed.Y == 0 {
			continue
		}
		above := labels[(r.seed.Y-1)*w+r.seed.X]
		raw[id].Parent = contourID[above]
	}

	// Children and sibling links, in id order.
	lastChild := make(map[int]int)
	for id := range raw {
		p := raw[id].Parent
		if p != contour.None && raw[p].Child == contour.None {
			raw[p].Child = id
		}
		if prev, ok := lastChild[p]; ok {
			raw[prev].Next = id
			raw[id].Prev = prev
		}
		lastChild[p] = id
	}
	return raw
}

// labelRegions assigns every pixel to a region using an iterative flood fill
// (8-connectivity for foreground, 4-connectivity for background). Regions are
// indexed in raster order of their first pixel.
func labelRegions(fg func(x, y int) bool, w, h int) ([]int32, []region) {
	labels := make([]int32, w*h)
	for i := range labels {
		labels[i] = -1
	}

	var regions []region
	stack := make([]image.Point, 0, 64)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if labels[y*w+x] >= 0 {
				continue
			}
			id := int32(len(regions))
			r := region{foreground: fg(x, y), seed: image.Pt(x, y)}

			stack = append(stack[:0], image.Pt(x, y))
			labels[y*w+x] = id
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if p.X == 0 || p.Y == 0 || p.X == w-1 || p.Y == h-1 {
					r.border = true
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						if !r.foreground && dx != 0 && dy != 0 {
							continue
						}
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						if labels[ny*w+nx] >= 0 || fg(nx, ny) != r.foreground {
							continue
						}
						labels[ny*w+nx] = id
						stack = append(stack, image.Pt(nx, ny))
					}
				}
			}
			regions = append(regions, r)
		}
	}
	return labels, regions
}

// traceBoundary follows the outer boundary of region id clockwise with Moore
// neighbour tracing, starting at its first raster pixel. Tracing stops when
// the start pixel is left again in the same direction as the first move.
func traceBoundary(labels []int32, id int32, w, h int, start image.Point) []contour.Point {
	in := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == id
	}

	pts := []contour.Point{{X: start.X, Y: start.Y}}
	cur := start
	back := 0 // west of the start pixel is never in the region
	limit := 4*w*h + 8

	for steps := 0; steps < limit; steps++ {
		next, nextBack, ok := mooreStep(in, cur, back)
		if !ok {
			break // isolated pixel
		}
		if cur == start && len(pts) > 1 && next.X == pts[1].X && next.Y == pts[1].Y {
			break
		}
		pts = append(pts, contour.Point{X: next.X, Y: next.Y})
		cur, back = next, nextBack
	}

	if n := len(pts); n > 1 && pts[n-1] == pts[0] {
		pts = pts[:n-1]
	}
	return pts
}

// mooreStep scans the neighbours of cur clockwise, starting after the
// backtrack direction, and returns the first one inside the region together
// with the backtrack direction to use from it.
func mooreStep(in func(image.Point) bool, cur image.Point, back int) (image.Point, int, bool) {
	for i := 1; i <= 8; i++ {
		d := (back + i) % 8
		n := cur.Add(mooreOffsets[d])
		if !in(n) {
			continue
		}
		prev := cur.Add(mooreOffsets[(d+7)%8])
		return n, offsetIndex(prev.Sub(n)), true
	}
	return image.Point{}, 0, false
}

func offsetIndex(o image.Point) int {
	for i, m := range mooreOffsets {
		if m == o {
			return i
		}
	}
	return 0
}
