package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/xray-registration/internal/contour"
)

// ErrGoCVUnavailable is returned by the OpenCV backend when the binary was
// built without the gocv build tag.
var ErrGoCVUnavailable = errors.New("gocv build tag is not enabled")

// Extractor turns an X-ray image into an unfiltered contour forest.
type Extractor interface {
	Extract(img image.Image) ([]contour.RawContour, error)
}

// Options controls the binarization pipeline that precedes contour
// extraction.
type Options struct {
	// BlurRadius is the Gaussian radius; 3 gives a 7-tap kernel. 0 disables.
	BlurRadius float64

	// BlockRadius is the half-size of the adaptive threshold neighbourhood;
	// 10 gives a 21x21 block.
	BlockRadius float64

	// ThresholdC is subtracted from the local mean before comparing.
	ThresholdC float64

	// OpenRadius is the radius of the elliptical opening kernel; 2 gives a
	// 5x5 ellipse. 0 disables the opening.
	OpenRadius float64
}

// DefaultOptions returns the pipeline tuned for drilled panel X-rays.
func DefaultOptions() Options {
	return Options{
		BlurRadius:  3,
		BlockRadius: 10,
		ThresholdC:  2,
		OpenRadius:  2,
	}
}

// Validate checks the options for consistency.
func (o Options) Validate() error {
	if o.BlurRadius < 0 || o.OpenRadius < 0 {
		return fmt.Errorf("radii must be >= 0 (blur %g, open %g)", o.BlurRadius, o.OpenRadius)
	}
	if o.BlockRadius < 1 {
		return fmt.Errorf("block radius must be >= 1, got %g", o.BlockRadius)
	}
	return nil
}

// New returns the extractor registered under name: "bild" (pure Go, default)
// or "gocv" (OpenCV, requires the gocv build tag).
func New(name string, opts Options) (Extractor, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction options: %w", err)
	}
	switch name {
	case "", "bild":
		return &BildExtractor{Options: opts}, nil
	case "gocv":
		return NewGoCVExtractor(opts)
	default:
		return nil, fmt.Errorf("unknown extractor: %s", name)
	}
}

// BildExtractor binarizes with bild filters and extracts the contour forest
// with region labelling and boundary tracing.
type BildExtractor struct {
	Options Options
}

// Extract implements Extractor.
func (e *BildExtractor) Extract(img image.Image) ([]contour.RawContour, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	return TraceContours(e.Binarize(img)), nil
}

// Binarize produces the foreground mask (255) of an X-ray image.
//
// # Algorithm
//
//  1. Grayscale conversion
//  2. Gaussian blur to smooth X-ray grain
//  3. Adaptive mean threshold, binary inverse: a pixel is foreground when it
//     is not brighter than its local mean minus C. The narrow histogram of
//     X-ray images defeats a global threshold.
//  4. Morphological opening (erode then dilate) with an elliptical kernel to
//     remove speckle
func (e *BildExtractor) Binarize(img image.Image) *image.Gray {
	gray := effect.Grayscale(img)

	var smoothed image.Image = gray
	if e.Options.BlurRadius > 0 {
		smoothed = blur.Gaussian(gray, e.Options.BlurRadius)
	}
	mean := blur.Box(smoothed, e.Options.BlockRadius)

	bounds := smoothed.Bounds()
	mask := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			v := float64(luma(smoothed, bounds.Min.X+x, bounds.Min.Y+y))
			m := float64(luma(mean, mean.Bounds().Min.X+x, mean.Bounds().Min.Y+y))
			if v <= m-e.Options.ThresholdC {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}

	if e.Options.OpenRadius > 0 {
		opened := effect.Dilate(effect.Erode(mask, e.Options.OpenRadius), e.Options.OpenRadius)
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				v := uint8(0)
				if luma(opened, opened.Bounds().Min.X+x, opened.Bounds().Min.Y+y) > 127 {
					v = 255
				}
				mask.Pix[y*mask.Stride+x] = v
			}
		}
	}
	return mask
}

// luma reads the grey level of a pixel that is already grayscale.
func luma(img image.Image, x, y int) uint8 {
	r, _, _, _ := img.At(x, y).RGBA()
	return uint8(r >> 8)
}
