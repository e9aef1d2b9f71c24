// Package contour holds the closed boundary curves extracted from one X-ray
// image together with their nesting hierarchy.
//
// A [Registry] is the read-only input to the measurement pipeline: every
// contour has a dense id (0..n-1), its pixel boundary, and the shape
// descriptors used to decide whether it can be a drilled hole or an annular
// ring (area, aspect ratio of the minimum-area enclosing rectangle, and the
// vertex count of a polygon approximation).
//
// # Hierarchy
//
// Each contour carries a [HierarchyEdge] with the id of its first nested
// contour (Child) and of its immediately enclosing contour (Parent), using
// [None] when absent. Together the edges form a forest rooted at top-level
// curves.
//
// # Shape Filter
//
// Raw extraction output contains noise, text and polygonal artifacts.
// [Filter] keeps only near-circular curves (see [ShapeFilter]) and renumbers
// the survivors in extraction order, re-linking the hierarchy so that every
// reference resolves to a surviving contour. Whether a survivor had a parent
// or child before filtering is kept on its edge (Enclosed, Encloses), so a
// ring inside a rejected non-circular region is still known to be enclosed.
//
// # Contract Violations
//
// A hierarchy that references a missing id, contains a cycle, or a zero-area
// contour reaching centroid computation indicates a broken upstream invariant.
// These conditions panic with a [*ContractError]; callers that process a batch
// of images recover at the single-image boundary.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
package contour
