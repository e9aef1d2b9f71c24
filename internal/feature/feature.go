// Package feature labels registry contours as drilled holes or annular rings.
//
// The label is a pure function of a contour's local hierarchy flags:
//
//	parent  child   label
//	yes     no      Hole       (filled, innermost)
//	yes     yes     Ring       (encloses another feature)
//	no      any     Discarded  (top-level background or outer artifact)
//
// Parent and child presence come from the unfiltered extraction, so a ring
// whose enclosing region failed the shape filter is still a Ring.
package feature

import (
	"fmt"
	"sort"

	"github.com/ironsheep/xray-registration/internal/contour"
)

// Label classifies a contour.
type Label int

const (
	// Discarded marks a top-level curve that is neither hole nor ring.
	Discarded Label = iota
	// Hole marks an innermost circular feature.
	Hole
	// Ring marks a circular feature that encloses another feature.
	Ring
)

func (l Label) String() string {
	switch l {
	case Hole:
		return "hole"
	case Ring:
		return "ring"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// MarshalText encodes the label by name.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// LabelFor derives the label from a single hierarchy edge.
func LabelFor(e contour.HierarchyEdge) Label {
	switch {
	case !e.HasParent():
		return Discarded
	case e.HasChild():
		return Ring
	default:
		return Hole
	}
}

// Labels maps contour id to label. Every registry id is present.
type Labels map[int]Label

// Classify labels every contour in reg in a single pass.
func Classify(reg *contour.Registry) Labels {
	labels := make(Labels, reg.Len())
	for id := 0; id < reg.Len(); id++ {
		labels[id] = LabelFor(reg.Edge(id))
	}
	return labels
}

// Is reports whether id resolves to a contour labelled want.
func (l Labels) Is(id int, want Label) bool {
	got, ok := l[id]
	return ok && got == want
}

// IDs returns the ids carrying label, in ascending order.
func (l Labels) IDs(label Label) []int {
	var ids []int
	for id, got := range l {
		if got == label {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Count returns how many contours carry label.
func (l Labels) Count(label Label) int {
	n := 0
	for _, got := range l {
		if got == label {
			n++
		}
	}
	return n
}
