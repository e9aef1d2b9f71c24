// Package calibration converts ring-to-hole centroid distances from pixels
// into physical units (mils).
//
// Each hole calibrates itself: its equivalent diameter in pixels (the diameter
// of a circle with the hole's area) is compared with the known nominal drill
// diameter, giving an independent pixel-to-mil scale per hole. This tolerates
// magnification drift across an X-ray image at the cost of trusting the
// nominal diameter.
//
//	equivalentDiameter = sqrt(4 * area / pi)
//	physicalOffset     = pixelOffset * nominalDiameter / equivalentDiameter
package calibration

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/xray-registration/internal/contour"
	"github.com/ironsheep/xray-registration/internal/pairing"
)

// DefaultMaxOffset is the plausibility bound, in mils, above which a pair is
// assumed to be a pairing error rather than a real misregistration.
const DefaultMaxOffset = 20.0

// ErrInvalidDiameter reports a nominal drill diameter that is not a positive
// finite number.
var ErrInvalidDiameter = errors.New("nominal drill diameter must be positive and finite")

// Reasons a calibrated pair is rejected from aggregation.
const (
	ReasonNotFinite   = "offset is not finite"
	ReasonNegative    = "offset is negative"
	ReasonImplausible = "offset exceeds plausibility bound"
)

// Options tunes acceptance of calibrated pairs.
type Options struct {
	// MaxOffset is the inclusive upper bound in physical units. Zero disables it.
	MaxOffset float64
}

// DefaultOptions returns the production plausibility bound.
func DefaultOptions() Options {
	return Options{MaxOffset: DefaultMaxOffset}
}

// Pair is a calibrated ring/hole measurement.
type Pair struct {
	HoleID                   int             `json:"hole_id"`
	RingID                   int             `json:"ring_id"`
	HoleCentroid             contour.Point2D `json:"hole_centroid"`
	RingCentroid             contour.Point2D `json:"ring_centroid"`
	EquivalentDiameterPixels float64         `json:"equivalent_diameter_px"`
	PixelOffset              float64         `json:"pixel_offset"`
	PhysicalOffset           float64         `json:"physical_offset"`
}

// Rejection is a calibrated pair kept only for diagnostics.
type Rejection struct {
	Pair
	Reason string `json:"reason"`
}

// Result splits calibrated pairs into accepted and rejected sets.
type Result struct {
	Accepted []Pair      `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

// Offsets returns the physical offsets of the accepted pairs.
func (r Result) Offsets() []float64 {
	out := make([]float64, len(r.Accepted))
	for i, p := range r.Accepted {
		out[i] = p.PhysicalOffset
	}
	return out
}

// EquivalentDiameter returns the diameter of a circle with the given area.
func EquivalentDiameter(area float64) float64 {
	return math.Sqrt(4 * area / math.Pi)
}

// Centroids computes moment centroids for the given ids. With no ids, every
// contour in reg is included. A zero-area contour panics with a
// *contour.ContractError.
func Centroids(reg *contour.Registry, ids ...int) map[int]contour.Point2D {
	if len(ids) == 0 {
		ids = make([]int, reg.Len())
		for i := range ids {
			ids[i] = i
		}
	}
	out := make(map[int]contour.Point2D, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		c, ok := reg.Contour(id)
		if !ok {
			panic(&contour.ContractError{Op: "Centroids", ID: id, Err: contour.ErrDanglingReference})
		}
		out[id] = contour.Centroid(c)
	}
	return out
}

// CandidateIDs lists every contour id referenced by candidates.
func CandidateIDs(candidates []pairing.Candidate) []int {
	ids := make([]int, 0, 2*len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.RingID, c.HoleID)
	}
	return ids
}

// Calibrate converts each candidate's centroid distance into physical units.
//
// centroids must contain every ring and hole id referenced by candidates; a
// missing entry is a contract violation and panics. The hole's area is taken
// from reg.
func Calibrate(candidates []pairing.Candidate, centroids map[int]contour.Point2D, reg *contour.Registry, nominalDiameter float64, opts Options) (Result, error) {
	if nominalDiameter <= 0 || math.IsNaN(nominalDiameter) || math.IsInf(nominalDiameter, 0) {
		return Result{}, fmt.Errorf("%w: got %g", ErrInvalidDiameter, nominalDiameter)
	}

	var res Result
	for _, cand := range candidates {
		hole, ok := reg.Contour(cand.HoleID)
		if !ok {
			panic(&contour.ContractError{Op: "Calibrate", ID: cand.HoleID, Err: contour.ErrDanglingReference})
		}
		hc := mustCentroid(centroids, cand.HoleID)
		rc := mustCentroid(centroids, cand.RingID)

		eq := EquivalentDiameter(hole.Area)
		pix := math.Hypot(hc.X-rc.X, hc.Y-rc.Y)
		p := Pair{
			HoleID:                   cand.HoleID,
			RingID:                   cand.RingID,
			HoleCentroid:             hc,
			RingCentroid:             rc,
			EquivalentDiameterPixels: eq,
			PixelOffset:              pix,
			PhysicalOffset:           pix * nominalDiameter / eq,
		}

		if reason := opts.reject(p.PhysicalOffset); reason != "" {
			res.Rejected = append(res.Rejected, Rejection{Pair: p, Reason: reason})
			continue
		}
		res.Accepted = append(res.Accepted, p)
	}
	return res, nil
}

func (o Options) reject(offset float64) string {
	switch {
	case math.IsNaN(offset) || math.IsInf(offset, 0):
		return ReasonNotFinite
	case offset < 0:
		return ReasonNegative
	case o.MaxOffset > 0 && offset > o.MaxOffset:
		return ReasonImplausible
	}
	return ""
}

func mustCentroid(centroids map[int]contour.Point2D, id int) contour.Point2D {
	c, ok := centroids[id]
	if !ok {
		panic(&contour.ContractError{Op: "Calibrate", ID: id, Err: fmt.Errorf("no centroid: %w", contour.ErrDanglingReference)})
	}
	return c
}
