package panel

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ironsheep/xray-registration/internal/config"
	"github.com/ironsheep/xray-registration/internal/detection"
	"github.com/ironsheep/xray-registration/internal/imaging"
	"github.com/ironsheep/xray-registration/internal/stats"
)

// QuadrantError records a quadrant that contributed no pairs.
type QuadrantError struct {
	Quadrant Quadrant `json:"quadrant"`
	File     string   `json:"file"`
	Err      error    `json:"-"`
	Message  string   `json:"error"`
}

func (e QuadrantError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Quadrant, e.File, e.Err)
}

func (e QuadrantError) Unwrap() error { return e.Err }

// PanelResult is the measurement of every available quadrant of one panel.
type PanelResult struct {
	Panel     string                    `json:"panel"`
	Quadrants map[Quadrant]*ImageResult `json:"quadrants"`
	Statistic stats.Statistic           `json:"statistic"`
	Errors    []QuadrantError           `json:"errors,omitempty"`

	offsets stats.Accumulator
}

// QuadrantStatistic returns the statistic of a single quadrant. Missing or
// failed quadrants are not applicable.
func (p *PanelResult) QuadrantStatistic(q Quadrant) stats.Statistic {
	return p.offsets.Part(string(q))
}

func (p *PanelResult) String() string {
	return fmt.Sprintf("Panel %s: %s (%d quadrants, %d errors)", p.Panel, p.Statistic, len(p.Quadrants), len(p.Errors))
}

// Offsets returns every accepted offset of the panel.
func (p *PanelResult) Offsets() []float64 {
	return p.offsets.Offsets()
}

// Processor measures quadrant images and panels. It is safe for concurrent
// use.
type Processor struct {
	cfg       *config.Config
	cache     *imaging.ImageCache
	extractor detection.Extractor
}

// NewProcessor creates a processor. A nil cache gets a private one.
func NewProcessor(cfg *config.Config, cache *imaging.ImageCache, extractor detection.Extractor) *Processor {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	return &Processor{cfg: cfg, cache: cache, extractor: extractor}
}

// Config returns the configuration the processor was built with.
func (p *Processor) Config() *config.Config { return p.cfg }

// MeasureFile loads spec's image in its orientation and measures it.
func (p *Processor) MeasureFile(ctx context.Context, spec ImageSpec) (*ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := p.cache.LoadOriented(spec.Path, spec.Orientation)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return MeasureImage(img, spec, p.cfg, p.extractor)
}

// MeasurePanel measures the quadrant images of one panel concurrently and
// reduces their accepted offsets into one panel statistic.
//
// A quadrant that cannot be loaded or measured (including a cancelled
// context) contributes no offsets and is listed in Errors; the remaining
// quadrants still count.
func (p *Processor) MeasurePanel(ctx context.Context, panelID string, specs []ImageSpec) *PanelResult {
	type outcome struct {
		res *ImageResult
		acc stats.Accumulator
		err error
	}
	outcomes := make([]outcome, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec ImageSpec) {
			defer wg.Done()
			res, err := p.MeasureFile(ctx, spec)
			if err != nil {
				outcomes[i] = outcome{err: err}
				return
			}
			outcomes[i] = outcome{
				res: res,
				acc: stats.Accumulator{}.AddPairs(string(spec.Quadrant), res.Calibration.Accepted),
			}
		}(i, spec)
	}
	wg.Wait()

	result := &PanelResult{
		Panel:     panelID,
		Quadrants: make(map[Quadrant]*ImageResult, len(specs)),
	}
	for i, o := range outcomes {
		spec := specs[i]
		if o.err != nil {
			log.Printf("Panel %s %s: %v", panelID, spec.Quadrant, o.err)
			result.Errors = append(result.Errors, QuadrantError{
				Quadrant: spec.Quadrant,
				File:     spec.Name,
				Err:      o.err,
				Message:  o.err.Error(),
			})
			continue
		}
		result.Quadrants[spec.Quadrant] = o.res
		result.offsets = result.offsets.Merge(o.acc)
	}
	result.Statistic = result.offsets.Statistic()

	if p.cfg.Logging.Debug {
		log.Printf("%s", result)
	}
	return result
}

// MeasureGroup is MeasurePanel over a grouped panel.
func (p *Processor) MeasureGroup(ctx context.Context, g Group) *PanelResult {
	return p.MeasurePanel(ctx, g.Panel, g.Images)
}
