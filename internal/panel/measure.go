package panel

import (
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/ironsheep/xray-registration/internal/calibration"
	"github.com/ironsheep/xray-registration/internal/config"
	"github.com/ironsheep/xray-registration/internal/contour"
	"github.com/ironsheep/xray-registration/internal/detection"
	"github.com/ironsheep/xray-registration/internal/feature"
	"github.com/ironsheep/xray-registration/internal/pairing"
	"github.com/ironsheep/xray-registration/internal/stats"
)

// ImageResult is the measurement of one quadrant image.
type ImageResult struct {
	Spec ImageSpec    `json:"spec"`
	Mode pairing.Mode `json:"mode"`

	Contours int `json:"contours"`
	Rings    int `json:"rings"`
	Holes    int `json:"holes"`

	Labels      feature.Labels     `json:"-"`
	Pairing     pairing.Result     `json:"pairing"`
	Calibration calibration.Result `json:"calibration"`
	Statistic   stats.Statistic    `json:"statistic"`

	// Registry and Image are kept for annotation.
	Registry *contour.Registry `json:"-"`
	Image    image.Image       `json:"-"`
}

// Offsets returns the accepted physical offsets in mils.
func (r *ImageResult) Offsets() []float64 {
	return r.Calibration.Offsets()
}

// ModeFor returns the pairing regime for spec: the configured override if
// any, otherwise the file name's choice with the configured offset.
func ModeFor(spec ImageSpec, cfg *config.Config) (pairing.Mode, error) {
	override, err := cfg.ModeOverride()
	if err != nil {
		return pairing.Mode{}, err
	}
	if override != nil {
		return *override, nil
	}
	if spec.SingleOffset {
		return pairing.Adjacent(), nil
	}
	return pairing.ConcatenatedOffset(cfg.Pairing.Offset), nil
}

// MeasureImage runs the full pipeline on one already-oriented image:
// extraction, filtering, classification, pairing, calibration and the
// per-image statistic.
//
// A violated registry contract inside the pipeline is returned as an error
// wrapping the *contour.ContractError; it never escapes this image.
func MeasureImage(img image.Image, spec ImageSpec, cfg *config.Config, extractor detection.Extractor) (res *ImageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*contour.ContractError)
			if !ok {
				panic(r)
			}
			res, err = nil, fmt.Errorf("%s: %w", spec.Name, ce)
		}
	}()

	mode, err := ModeFor(spec, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	raw, err := extractor.Extract(img)
	if err != nil {
		return nil, fmt.Errorf("%s: extraction failed: %w", spec.Name, err)
	}
	reg := contour.Filter(raw, cfg.ShapeFilter())
	labels := feature.Classify(reg)

	pairs, err := pairing.Pair(reg, labels, mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	centroids := calibration.Centroids(reg, calibration.CandidateIDs(pairs.Candidates)...)
	cal, err := calibration.Calibrate(pairs.Candidates, centroids, reg, spec.NominalDiameter, cfg.CalibrationOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	res = &ImageResult{
		Spec:        spec,
		Mode:        mode,
		Contours:    reg.Len(),
		Rings:       labels.Count(feature.Ring),
		Holes:       labels.Count(feature.Hole),
		Labels:      labels,
		Pairing:     pairs,
		Calibration: cal,
		Statistic:   stats.Aggregate(cal.Accepted),
		Registry:    reg,
		Image:       img,
	}

	if cfg.Logging.Debug {
		log.Printf("%s: %d raw contours, %d kept, %d rings, %d holes, mode %s",
			spec.Name, len(raw), reg.Len(), res.Rings, res.Holes, mode)
		for _, d := range pairs.Unpaired {
			log.Printf("%s: ring %d unpaired (expected %d): %s", spec.Name, d.RingID, d.ExpectedID, d.Reason)
		}
		for _, r := range cal.Rejected {
			log.Printf("%s: hole %d rejected, %.2fpix = %.2f mils: %s",
				spec.Name, r.HoleID, r.PixelOffset, r.PhysicalOffset, r.Reason)
		}
	}
	return res, nil
}

// IsContractError reports whether err came from a violated registry
// contract.
func IsContractError(err error) bool {
	var ce *contour.ContractError
	return errors.As(err, &ce)
}
