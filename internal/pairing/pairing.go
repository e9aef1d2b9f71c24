// Package pairing matches each annular ring to the drilled hole that serves as
// its calibration target.
//
// Three regimes are supported:
//
//   - Adjacent: ring r pairs with hole r+1. Used when hole and ring are the
//     only nested pair at a location and are extracted consecutively.
//   - ConcatenatedOffset(k): ring r pairs with hole r+k, where k-1 intermediate
//     contours separate ring and hole in extraction order.
//   - TreeDescent(depth): the ring's child chain is walked depth levels down
//     the hierarchy; the contour reached must be a hole. This does not depend
//     on extraction order and is the preferred regime for new deployments.
//
// Every emitted candidate references a Hole-labelled contour. Rings without a
// resolvable target are reported as diagnostics, never as errors.
package pairing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/xray-registration/internal/contour"
	"github.com/ironsheep/xray-registration/internal/feature"
)

// ErrInvalidMode reports an unknown or out-of-range pairing mode.
var ErrInvalidMode = errors.New("invalid pairing mode")

// Kind selects the pairing regime.
type Kind int

const (
	KindAdjacent Kind = iota
	KindOffset
	KindTreeDescent
)

// Mode is a pairing regime with its step: the id offset for index modes or
// the descent depth for tree mode.
type Mode struct {
	Kind Kind
	Step int
}

// Adjacent pairs ring r with hole r+1.
func Adjacent() Mode { return Mode{Kind: KindAdjacent, Step: 1} }

// ConcatenatedOffset pairs ring r with hole r+k.
func ConcatenatedOffset(k int) Mode { return Mode{Kind: KindOffset, Step: k} }

// TreeDescent pairs ring r with the hole depth child links below it.
func TreeDescent(depth int) Mode { return Mode{Kind: KindTreeDescent, Step: depth} }

// Validate checks the mode's step.
func (m Mode) Validate() error {
	switch m.Kind {
	case KindAdjacent:
		if m.Step != 1 {
			return fmt.Errorf("%w: adjacent mode has step 1, got %d", ErrInvalidMode, m.Step)
		}
	case KindOffset, KindTreeDescent:
		if m.Step < 1 {
			return fmt.Errorf("%w: step must be >= 1, got %d", ErrInvalidMode, m.Step)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidMode, int(m.Kind))
	}
	return nil
}

func (m Mode) String() string {
	switch m.Kind {
	case KindAdjacent:
		return "adjacent"
	case KindOffset:
		return "offset:" + strconv.Itoa(m.Step)
	case KindTreeDescent:
		return "tree:" + strconv.Itoa(m.Step)
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode in the form accepted by ParseMode.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode parses "adjacent", "offset:<k>" or "tree:<depth>".
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "adjacent" {
		return Adjacent(), nil
	}
	name, arg, ok := strings.Cut(s, ":")
	if !ok {
		return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	step, err := strconv.Atoi(arg)
	if err != nil {
		return Mode{}, fmt.Errorf("%w: %q: %v", ErrInvalidMode, s, err)
	}
	var m Mode
	switch name {
	case "offset":
		m = ConcatenatedOffset(step)
	case "tree":
		m = TreeDescent(step)
	default:
		return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	if err := m.Validate(); err != nil {
		return Mode{}, err
	}
	return m, nil
}

// Candidate is a ring matched with its calibration hole.
type Candidate struct {
	RingID int `json:"ring_id"`
	HoleID int `json:"hole_id"`
}

// Reasons a ring stays unpaired.
const (
	ReasonMissing      = "no contour at expected id"
	ReasonNotHole      = "expected contour is not a hole"
	ReasonNoDescendant = "hierarchy ends above expected depth"
)

// Diagnostic records a ring that yielded no candidate.
type Diagnostic struct {
	RingID     int    `json:"ring_id"`
	ExpectedID int    `json:"expected_id"` // contour.None when the descent ran out
	Reason     string `json:"reason"`
}

// Result is the outcome of pairing one registry.
type Result struct {
	Candidates []Candidate  `json:"candidates"`
	Unpaired   []Diagnostic `json:"unpaired"`
}

// Pair matches every Ring in labels to its hole under mode.
//
// Rings are visited in ascending id, so identical inputs always produce
// identical results. labels must come from classifying reg.
func Pair(reg *contour.Registry, labels feature.Labels, mode Mode) (Result, error) {
	if err := mode.Validate(); err != nil {
		return Result{}, err
	}

	var res Result
	for _, ring := range labels.IDs(feature.Ring) {
		target := expectedTarget(reg, ring, mode)

		var reason string
		switch {
		case target == contour.None && mode.Kind == KindTreeDescent:
			reason = ReasonNoDescendant
		case target < 0 || target >= reg.Len():
			reason = ReasonMissing
		case !labels.Is(target, feature.Hole):
			reason = ReasonNotHole
		}

		if reason != "" {
			res.Unpaired = append(res.Unpaired, Diagnostic{RingID: ring, ExpectedID: target, Reason: reason})
			continue
		}
		res.Candidates = append(res.Candidates, Candidate{RingID: ring, HoleID: target})
	}
	return res, nil
}

// expectedTarget returns the id a ring should pair with, which may be out of
// range for index modes or None when a tree descent runs out.
func expectedTarget(reg *contour.Registry, ring int, mode Mode) int {
	if mode.Kind != KindTreeDescent {
		return ring + mode.Step
	}
	cur := ring
	for i := 0; i < mode.Step; i++ {
		cur = reg.Edge(cur).Child
		if cur == contour.None {
			return contour.None
		}
	}
	return cur
}
