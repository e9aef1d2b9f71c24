package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/xray-registration/internal/annotate"
	"github.com/ironsheep/xray-registration/internal/panel"
)

// ErrNothingMeasured is returned by WritePanel when no quadrant of the panel
// produced an image to draw.
var ErrNothingMeasured = errors.New("no quadrant was measured")

// Outputs lists the files written for one panel.
type Outputs struct {
	Mosaic    string `json:"mosaic"`
	Histogram string `json:"histogram,omitempty"`
}

// WritePanel writes the registration mosaic of res into dir and, when
// histogram is set, the offset histogram next to it. A panel without
// accepted offsets gets no histogram; that is not an error.
func WritePanel(res *panel.PanelResult, dir string, maxOffset float64, histogram bool) (Outputs, error) {
	var out Outputs

	mosaic := annotate.Mosaic(res, maxOffset)
	if mosaic == nil {
		return out, fmt.Errorf("panel %s: %w", res.Panel, ErrNothingMeasured)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return out, fmt.Errorf("failed to create output directory: %w", err)
	}

	out.Mosaic = filepath.Join(dir, annotate.MosaicFilename(res.Panel))
	if err := annotate.Save(out.Mosaic, mosaic); err != nil {
		return Outputs{}, err
	}

	if !histogram {
		return out, nil
	}
	path := filepath.Join(dir, HistogramFilename(res.Panel))
	switch err := Histogram(res.Panel, res.Offsets(), maxOffset, path); {
	case errors.Is(err, ErrNoData):
	case err != nil:
		return out, err
	default:
		out.Histogram = path
	}
	return out, nil
}
