package panel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/xray-registration/internal/imaging"
)

// ErrBadFilename is returned for names that do not follow the
// P##QQ_###[...] convention.
var ErrBadFilename = errors.New("filename does not match P##QQ_### convention")

// ErrDuplicateQuadrant is returned when a panel has two images for the same
// quadrant.
var ErrDuplicateQuadrant = errors.New("duplicate quadrant image")

// Quadrant is the position of an X-ray on its panel.
type Quadrant string

const (
	TopRight    Quadrant = "TR"
	TopLeft     Quadrant = "TL"
	BottomLeft  Quadrant = "BL"
	BottomRight Quadrant = "BR"
)

// Quadrants lists every quadrant in processing order.
var Quadrants = []Quadrant{TopRight, TopLeft, BottomLeft, BottomRight}

// Valid reports whether q names a quadrant.
func (q Quadrant) Valid() bool {
	switch q {
	case TopRight, TopLeft, BottomLeft, BottomRight:
		return true
	}
	return false
}

// Bottom reports whether q is shot from the underside of the panel.
func (q Quadrant) Bottom() bool { return q == BottomLeft || q == BottomRight }

// ImageSpec is everything the file name says about one X-ray image.
type ImageSpec struct {
	Path     string   `json:"path"`
	Name     string   `json:"name"`
	Panel    string   `json:"panel"`
	Quadrant Quadrant `json:"quadrant"`

	// NominalDiameter is the drill diameter in mils.
	NominalDiameter float64 `json:"nominal_diameter"`

	// SingleOffset is set by a "_1" marker after the diameter: rings pair
	// with the next contour instead of the configured offset. See ModeFor.
	SingleOffset bool `json:"single_offset"`

	Orientation imaging.Orientation `json:"-"`
}

// ParseFilename decodes P##QQ_###[...] where ## is the panel number, QQ one of
// TL, TR, BL, BR and ### the drill diameter in tenths of a mil (two or three
// digits). A "_1" directly after the diameter selects adjacent pairing.
//
// path may include directories; only the base name is parsed.
func ParseFilename(path string) (ImageSpec, error) {
	name := filepath.Base(path)
	bad := func(why string) (ImageSpec, error) {
		return ImageSpec{}, fmt.Errorf("%w: %s: %s", ErrBadFilename, name, why)
	}

	if len(name) < 8 {
		return bad("too short")
	}
	if name[0] != 'P' && name[0] != 'p' {
		return bad("must start with P")
	}
	panelID := name[1:3]
	if !isDigits(panelID) {
		return bad("panel number must be two digits")
	}
	q := Quadrant(strings.ToUpper(name[3:5]))
	if !q.Valid() {
		return bad(fmt.Sprintf("unknown quadrant %q", name[3:5]))
	}
	if name[5] != '_' {
		return bad("expected '_' after quadrant")
	}

	diam := name[6:min(9, len(name))]
	if last := diam[len(diam)-1]; last == '.' || last == '_' {
		diam = diam[:len(diam)-1]
	}
	if len(diam) < 2 || !isDigits(diam) {
		return bad(fmt.Sprintf("drill diameter %q must be two or three digits", diam))
	}
	tenths, _ := strconv.Atoi(diam)
	if tenths == 0 {
		return bad("drill diameter must be positive")
	}

	spec := ImageSpec{
		Path:            path,
		Name:            name,
		Panel:           panelID,
		Quadrant:        q,
		NominalDiameter: float64(tenths) / 10,
		SingleOffset:    strings.Contains(name[min(8, len(name)):min(11, len(name))], "_1"),
		Orientation:     imaging.AsScanned,
	}
	if q.Bottom() {
		spec.Orientation = imaging.Rotated180
	}
	return spec, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Group is the set of quadrant images of one panel.
type Group struct {
	Panel  string      `json:"panel"`
	Images []ImageSpec `json:"images"`
}

// Image returns the spec for quadrant q, if present.
func (g Group) Image(q Quadrant) (ImageSpec, bool) {
	for _, s := range g.Images {
		if s.Quadrant == q {
			return s, true
		}
	}
	return ImageSpec{}, false
}

// GroupByPanel parses paths and groups them by panel, sorted by panel id and
// then by quadrant processing order. Names that fail to parse and second
// images for an already-seen quadrant are skipped and reported.
func GroupByPanel(paths []string) ([]Group, []error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var skipped []error
	byPanel := make(map[string]map[Quadrant]ImageSpec)
	for _, p := range sorted {
		spec, err := ParseFilename(p)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		quads, ok := byPanel[spec.Panel]
		if !ok {
			quads = make(map[Quadrant]ImageSpec)
			byPanel[spec.Panel] = quads
		}
		if prev, dup := quads[spec.Quadrant]; dup {
			skipped = append(skipped, fmt.Errorf("%w: %s (panel %s %s already from %s)",
				ErrDuplicateQuadrant, spec.Name, spec.Panel, spec.Quadrant, prev.Name))
			continue
		}
		quads[spec.Quadrant] = spec
	}

	ids := make([]string, 0, len(byPanel))
	for id := range byPanel {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	groups := make([]Group, 0, len(ids))
	for _, id := range ids {
		g := Group{Panel: id}
		for _, q := range Quadrants {
			if s, ok := byPanel[id][q]; ok {
				g.Images = append(g.Images, s)
			}
		}
		groups = append(groups, g)
	}
	return groups, skipped
}

// ScanDir lists the image files in dir, sorted by name. Subdirectories are
// not descended into.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
