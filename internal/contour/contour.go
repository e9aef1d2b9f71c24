package contour

import (
	"errors"
	"fmt"
)

// None marks an absent parent or child in a [HierarchyEdge].
const None = -1

// ApproxEpsilonFactor scales a contour's arc length into the Douglas-Peucker
// tolerance used for VertexCountApprox.
const ApproxEpsilonFactor = 0.009

var (
	// ErrDanglingReference reports a hierarchy edge pointing at a missing contour.
	ErrDanglingReference = errors.New("hierarchy references a missing contour")

	// ErrCycle reports a parent chain that loops back on itself.
	ErrCycle = errors.New("hierarchy contains a cycle")

	// ErrZeroArea reports a degenerate contour reaching centroid computation.
	ErrZeroArea = errors.New("zero-area contour")

	// ErrMisnumbered reports a registry whose ids are not dense 0..n-1.
	ErrMisnumbered = errors.New("contour ids are not dense")
)

// ContractError is the panic value raised when an upstream invariant is
// broken. It is never returned as a regular error from this package.
type ContractError struct {
	Op  string // operation that detected the violation
	ID  int    // offending contour id, or None
	Err error
}

func (e *ContractError) Error() string {
	if e.ID == None {
		return fmt.Sprintf("contour contract violated in %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("contour contract violated in %s (contour %d): %v", e.Op, e.ID, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

func violate(op string, id int, err error) {
	panic(&ContractError{Op: op, ID: id, Err: err})
}

// Point is an integer pixel coordinate on a contour boundary.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point2D is a sub-pixel position such as a centroid.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contour is a closed boundary curve with its shape descriptors.
// Contours are immutable once built.
type Contour struct {
	// ID is the dense index within one image's registry.
	ID int `json:"id"`

	// SourceIndex is the index in the unfiltered extraction pass.
	SourceIndex int `json:"source_index"`

	// Points is the ordered boundary; the last point connects to the first.
	Points []Point `json:"-"`

	// Area is the enclosed pixel area of the boundary polygon.
	Area float64 `json:"area"`

	// AspectRatio is width/height of the minimum-area enclosing rectangle.
	AspectRatio float64 `json:"aspect_ratio"`

	// VertexCountApprox is the vertex count after polygon approximation.
	// Circles keep many vertices; polygons and noise collapse to few.
	VertexCountApprox int `json:"vertex_count_approx"`
}

// NewContour builds a contour and computes its shape descriptors.
func NewContour(id int, pts []Point) Contour {
	c := Contour{
		ID:          id,
		SourceIndex: id,
		Points:      pts,
		Area:        Area(pts),
	}
	rect := MinAreaRect(pts)
	c.AspectRatio = rect.AspectRatio()
	c.VertexCountApprox = len(ApproxPolyDP(pts, ApproxEpsilonFactor*ArcLength(pts), true))
	return c
}

// HierarchyEdge links a contour to its first nested contour and its parent.
//
// Enclosed and Encloses record that the unfiltered extraction had a parent or
// child for this contour. They stay set when filtering dropped that contour
// and Parent or Child became None.
type HierarchyEdge struct {
	Child    int  `json:"child"`
	Parent   int  `json:"parent"`
	Enclosed bool `json:"enclosed,omitempty"`
	Encloses bool `json:"encloses,omitempty"`
}

// HasChild reports whether another contour is nested inside this one,
// counting contours removed by filtering.
func (e HierarchyEdge) HasChild() bool { return e.Child != None || e.Encloses }

// HasParent reports whether this contour is enclosed by another, counting
// contours removed by filtering.
func (e HierarchyEdge) HasParent() bool { return e.Parent != None || e.Enclosed }

// Registry is the validated set of contours for one image.
type Registry struct {
	contours []Contour
	edges    []HierarchyEdge
}

// NewRegistry validates and wraps a contour forest.
//
// contours[i].ID must equal i and edges must be parallel to contours. Every
// non-None reference must resolve within the registry and parent chains must
// terminate. Violations panic with a *ContractError.
func NewRegistry(contours []Contour, edges []HierarchyEdge) *Registry {
	if len(contours) != len(edges) {
		violate("NewRegistry", None, fmt.Errorf("%d contours but %d hierarchy edges", len(contours), len(edges)))
	}
	n := len(contours)
	for i, c := range contours {
		if c.ID != i {
			violate("NewRegistry", c.ID, ErrMisnumbered)
		}
		e := edges[i]
		if e.Child != None && (e.Child < 0 || e.Child >= n || e.Child == i) {
			violate("NewRegistry", i, fmt.Errorf("child %d: %w", e.Child, ErrDanglingReference))
		}
		if e.Parent != None && (e.Parent < 0 || e.Parent >= n || e.Parent == i) {
			violate("NewRegistry", i, fmt.Errorf("parent %d: %w", e.Parent, ErrDanglingReference))
		}
	}
	for i := range edges {
		steps := 0
		for p := edges[i].Parent; p != None; p = edges[p].Parent {
			steps++
			if steps > n {
				violate("NewRegistry", i, ErrCycle)
			}
		}
	}
	return &Registry{contours: contours, edges: edges}
}

// Len returns the number of contours.
func (r *Registry) Len() int { return len(r.contours) }

// Contour returns the contour with the given id.
func (r *Registry) Contour(id int) (Contour, bool) {
	if id < 0 || id >= len(r.contours) {
		return Contour{}, false
	}
	return r.contours[id], true
}

// Edge returns the hierarchy edge for id. Out-of-range ids panic.
func (r *Registry) Edge(id int) HierarchyEdge {
	if id < 0 || id >= len(r.edges) {
		violate("Edge", id, ErrDanglingReference)
	}
	return r.edges[id]
}

// Contours returns the contours in id order. The slice must not be modified.
func (r *Registry) Contours() []Contour { return r.contours }
