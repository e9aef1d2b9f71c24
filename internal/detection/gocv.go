//go:build gocv
// +build gocv

package detection

import (
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"

	"github.com/ironsheep/xray-registration/internal/contour"
)

// GoCVExtractor runs the binarization and tree-mode contour retrieval in
// OpenCV.
type GoCVExtractor struct {
	Options Options
}

// NewGoCVExtractor returns the OpenCV backed extractor.
func NewGoCVExtractor(opts Options) (Extractor, error) {
	return &GoCVExtractor{Options: opts}, nil
}

// Extract implements Extractor.
func (e *GoCVExtractor) Extract(img image.Image) ([]contour.RawContour, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}

	gray, err := grayMat(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	if e.Options.BlurRadius > 0 {
		k := 2*int(e.Options.BlurRadius) + 1
		gocv.GaussianBlur(gray, &gray, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	block := 2*int(e.Options.BlockRadius) + 1
	gocv.AdaptiveThreshold(gray, &thresh, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinaryInv, block, float32(e.Options.ThresholdC))

	if e.Options.OpenRadius > 0 {
		k := 2*int(e.Options.OpenRadius) + 1
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: k, Y: k})
		defer kernel.Close()
		gocv.MorphologyEx(thresh, &thresh, gocv.MorphOpen, kernel)
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(thresh, &hierarchy, gocv.RetrievalTree, gocv.ChainApproxNone)
	defer contours.Close()

	raw := make([]contour.RawContour, contours.Size())
	for i := range raw {
		pts := contours.At(i).ToPoints()
		rc := contour.RawContour{Points: make([]contour.Point, len(pts))}
		for j, p := range pts {
			rc.Points[j] = contour.Point{X: p.X, Y: p.Y}
		}
		h := hierarchy.GetVeciAt(0, i)
		rc.Next, rc.Prev, rc.Child, rc.Parent = int(h[0]), int(h[1]), int(h[2]), int(h[3])
		raw[i] = rc
	}
	return raw, nil
}

// grayMat converts any image to a single channel 8-bit Mat.
func grayMat(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	g, ok := img.(*image.Gray)
	if !ok || g.Stride != b.Dx() {
		g = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	}
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, g.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image: %w", err)
	}
	return mat, nil
}
