package contour

import "fmt"

// RawContour is one entry of an unfiltered extraction pass. The hierarchy
// fields index into the same raw slice and use None when absent, matching a
// tree-mode contour retrieval (next, previous, first child, parent).
//
// Enclosed and Encloses are only set by FromRegistry, for entries whose
// parent or child was dropped by an earlier filter pass.
type RawContour struct {
	Points []Point
	Next   int
	Prev   int
	Child  int
	Parent int

	Enclosed bool
	Encloses bool
}

// ShapeFilter decides which contours are consistent with a circular hole or
// annulus cross-section.
type ShapeFilter struct {
	MinVertices int     // approximation must keep strictly more vertices
	MinArea     float64 // area must be strictly greater
	MinAspect   float64 // inclusive lower bound on AspectRatio
	MaxAspect   float64 // inclusive upper bound on AspectRatio
}

// DefaultShapeFilter returns the thresholds tuned on production X-ray images.
func DefaultShapeFilter() ShapeFilter {
	return ShapeFilter{
		MinVertices: 8,
		MinArea:     30,
		MinAspect:   0.85,
		MaxAspect:   1.15,
	}
}

// Accept reports whether c passes the filter.
func (f ShapeFilter) Accept(c Contour) bool {
	return c.VertexCountApprox > f.MinVertices &&
		c.Area > f.MinArea &&
		c.AspectRatio >= f.MinAspect &&
		c.AspectRatio <= f.MaxAspect
}

// Validate checks the thresholds for consistency.
func (f ShapeFilter) Validate() error {
	if f.MinVertices < 0 {
		return fmt.Errorf("min vertices must be >= 0, got %d", f.MinVertices)
	}
	if f.MinArea < 0 {
		return fmt.Errorf("min area must be >= 0, got %g", f.MinArea)
	}
	if f.MinAspect <= 0 || f.MaxAspect < f.MinAspect {
		return fmt.Errorf("aspect bounds must satisfy 0 < min <= max, got [%g, %g]", f.MinAspect, f.MaxAspect)
	}
	return nil
}

// Filter applies f to a raw extraction pass and returns the registry of
// survivors.
//
// Survivors are renumbered densely in extraction order and keep their raw
// index as SourceIndex. Each survivor's parent becomes its nearest surviving
// ancestor and its child the lowest surviving id whose re-linked parent is the
// survivor. The edge's Enclosed and Encloses flags keep the raw parent and
// child presence, which is what classification uses. Filtering an
// already-filtered pass returns an identical registry.
//
// Raw hierarchy references outside the slice or looping parent chains panic
// with a *ContractError.
func Filter(raw []RawContour, f ShapeFilter) *Registry {
	n := len(raw)
	for i, rc := range raw {
		if rc.Parent != None && (rc.Parent < 0 || rc.Parent >= n) {
			violate("Filter", i, fmt.Errorf("raw parent %d: %w", rc.Parent, ErrDanglingReference))
		}
		if rc.Child != None && (rc.Child < 0 || rc.Child >= n) {
			violate("Filter", i, fmt.Errorf("raw child %d: %w", rc.Child, ErrDanglingReference))
		}
	}

	newID := make([]int, n)
	contours := make([]Contour, 0, n)
	for i, rc := range raw {
		newID[i] = None
		c := NewContour(len(contours), rc.Points)
		c.SourceIndex = i
		if f.Accept(c) {
			newID[i] = c.ID
			contours = append(contours, c)
		}
	}

	edges := make([]HierarchyEdge, len(contours))
	for id, c := range contours {
		parent := None
		steps := 0
		for p := raw[c.SourceIndex].Parent; p != None; p = raw[p].Parent {
			if steps++; steps > n {
				violate("Filter", c.SourceIndex, ErrCycle)
			}
			if newID[p] != None {
				parent = newID[p]
				break
			}
		}
		rc := raw[c.SourceIndex]
		edges[id] = HierarchyEdge{
			Child:    None,
			Parent:   parent,
			Enclosed: rc.Parent != None || rc.Enclosed,
			Encloses: rc.Child != None || rc.Encloses,
		}
	}
	for id := range contours {
		if p := edges[id].Parent; p != None && edges[p].Child == None {
			edges[p].Child = id
		}
	}

	return NewRegistry(contours, edges)
}

// FromRegistry converts a registry back to raw form. It is mainly useful for
// feeding an already-filtered set through Filter again.
func FromRegistry(r *Registry) []RawContour {
	raw := make([]RawContour, r.Len())
	for i, c := range r.contours {
		e := r.edges[i]
		raw[i] = RawContour{
			Points:   c.Points,
			Next:     None,
			Prev:     None,
			Child:    e.Child,
			Parent:   e.Parent,
			Enclosed: e.Enclosed,
			Encloses: e.Encloses,
		}
	}
	return raw
}
