package contour

import (
	"math"
	"sort"
)

// Moments holds the zeroth and first order area moments of a closed polygon.
type Moments struct {
	M00 float64 `json:"m00"`
	M10 float64 `json:"m10"`
	M01 float64 `json:"m01"`
}

// PolygonMoments computes area moments of the polygon bounded by pts using
// Green's theorem. The result is orientation independent (M00 >= 0).
func PolygonMoments(pts []Point) Moments {
	n := len(pts)
	if n < 3 {
		return Moments{}
	}
	var m Moments
	for i := 0; i < n; i++ {
		x0, y0 := float64(pts[i].X), float64(pts[i].Y)
		j := (i + 1) % n
		x1, y1 := float64(pts[j].X), float64(pts[j].Y)
		a := x0*y1 - x1*y0
		m.M00 += a
		m.M10 += a * (x0 + x1)
		m.M01 += a * (y0 + y1)
	}
	m.M00 /= 2
	m.M10 /= 6
	m.M01 /= 6
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}

// Centroid returns the area centroid (M10/M00, M01/M00) of a contour.
//
// A zero-area contour panics with a *ContractError wrapping ErrZeroArea:
// the shape filter guarantees this never happens for registry members.
func Centroid(c Contour) Point2D {
	m := PolygonMoments(c.Points)
	if m.M00 == 0 {
		violate("Centroid", c.ID, ErrZeroArea)
	}
	return Point2D{X: m.M10 / m.M00, Y: m.M01 / m.M00}
}

// Area returns the enclosed area of the closed polygon pts.
func Area(pts []Point) float64 {
	return PolygonMoments(pts).M00
}

// ArcLength returns the perimeter of the closed polygon pts.
func ArcLength(pts []Point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var length float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		length += math.Hypot(float64(pts[j].X-pts[i].X), float64(pts[j].Y-pts[i].Y))
	}
	return length
}

// ApproxPolyDP simplifies a curve with the Ramer-Douglas-Peucker algorithm.
//
// For closed curves the polygon is split at the vertex farthest from the first
// point and each half is simplified separately, so the result does not depend
// on where tracing started as long as that split is stable.
func ApproxPolyDP(pts []Point, epsilon float64, closed bool) []Point {
	n := len(pts)
	if n < 3 {
		out := make([]Point, n)
		copy(out, pts)
		return out
	}
	if !closed {
		return rdp(pts, epsilon)
	}

	far, best := 0, -1.0
	for i := 1; i < n; i++ {
		d := sqDist(pts[0], pts[i])
		if d > best {
			far, best = i, d
		}
	}
	if far == 0 {
		return []Point{pts[0]}
	}

	first := rdp(pts[:far+1], epsilon)
	second := make([]Point, 0, n-far+1)
	second = append(second, pts[far:]...)
	second = append(second, pts[0])
	secondSimplified := rdp(second, epsilon)

	// Drop the shared endpoints of the second chain.
	out := append(first, secondSimplified[1:len(secondSimplified)-1]...)
	return out
}

func rdp(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n < 3 {
		out := make([]Point, n)
		copy(out, pts)
		return out
	}
	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, n - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}
		idx, dmax := -1, -1.0
		for i := s.lo + 1; i < s.hi; i++ {
			d := segmentDistance(pts[i], pts[s.lo], pts[s.hi])
			if d > dmax {
				idx, dmax = i, d
			}
		}
		if dmax > epsilon {
			keep[idx] = true
			stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
		}
	}

	out := make([]Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

// segmentDistance is the distance from p to the segment a-b.
func segmentDistance(p, a, b Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	px, py := float64(p.X-a.X), float64(p.Y-a.Y)
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(px, py)
	}
	t := (px*dx + py*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(px-t*dx, py-t*dy)
}

func sqDist(a, b Point) float64 {
	dx, dy := float64(a.X-b.X), float64(a.Y-b.Y)
	return dx*dx + dy*dy
}

// RotatedRect is a minimum-area enclosing rectangle.
type RotatedRect struct {
	Center Point2D `json:"center"`
	Width  float64 `json:"width"`  // extent along the rectangle's first axis
	Height float64 `json:"height"` // extent along the perpendicular axis
	Angle  float64 `json:"angle"`  // degrees of the first axis from +X
}

// AspectRatio returns Width/Height, or +Inf for a degenerate rectangle.
func (r RotatedRect) AspectRatio() float64 {
	if r.Height == 0 {
		return math.Inf(1)
	}
	return r.Width / r.Height
}

// MinAreaRect finds the minimum-area rectangle enclosing pts using rotating
// calipers over the convex hull: the optimal rectangle shares a side with a
// hull edge.
func MinAreaRect(pts []Point) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: Point2D{X: float64(hull[0].X), Y: float64(hull[0].Y)}}
	}

	var best RotatedRect
	bestArea := math.Inf(1)
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		ex, ey := float64(b.X-a.X), float64(b.Y-a.Y)
		l := math.Hypot(ex, ey)
		if l == 0 {
			continue
		}
		ux, uy := ex/l, ey/l
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := float64(p.X), float64(p.Y)
			u := px*ux + py*uy
			v := px*vx + py*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		w, h := maxU-minU, maxV-minV
		if area := w * h; area < bestArea {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				Center: Point2D{X: cu*ux + cv*vx, Y: cu*uy + cv*vy},
				Width:  w,
				Height: h,
				Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}
	return best
}

// ConvexHull returns the hull of pts in counter-clockwise order
// (Andrew's monotone chain). Collinear points are dropped.
func ConvexHull(pts []Point) []Point {
	if len(pts) < 3 {
		out := make([]Point, len(pts))
		copy(out, pts)
		return dedupe(out)
	}
	sorted := make([]Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})
	sorted = dedupe(sorted)
	if len(sorted) < 3 {
		return sorted
	}

	cross := func(o, a, b Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	hull := make([]Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func dedupe(pts []Point) []Point {
	if len(pts) < 2 {
		return pts
	}
	out := pts[:1]
	for _, p := range pts[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
