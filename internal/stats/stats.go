// Package stats reduces accepted physical offsets into mean/min/max summaries
// for one image or a whole panel.
//
// An empty input is not an error: it yields the NotApplicable variant of
// [Statistic]. Panel statistics are computed by concatenating the offsets of
// every quadrant and reducing once, never by combining per-quadrant summaries.
package stats

import (
	"encoding/json"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/xray-registration/internal/calibration"
)

// NotApplicableText is how a missing statistic is rendered.
const NotApplicableText = "N/A"

// Statistic is either NotApplicable or a summary with mean, min and max.
// The zero value is NotApplicable.
type Statistic struct {
	ok    bool
	count int
	mean  float64
	min   float64
	max   float64
}

// NotApplicable returns the statistic of an empty set.
func NotApplicable() Statistic { return Statistic{} }

// Summary returns a statistic over count values.
func Summary(mean, min, max float64, count int) Statistic {
	return Statistic{ok: true, count: count, mean: mean, min: min, max: max}
}

// Value returns the summary and whether it is applicable.
func (s Statistic) Value() (mean, min, max float64, ok bool) {
	return s.mean, s.min, s.max, s.ok
}

// Applicable reports whether s summarizes at least one value.
func (s Statistic) Applicable() bool { return s.ok }

// Count returns how many offsets were reduced.
func (s Statistic) Count() int { return s.count }

func (s Statistic) String() string {
	if !s.ok {
		return fmt.Sprintf("mean %s  min %s  max %s", NotApplicableText, NotApplicableText, NotApplicableText)
	}
	return fmt.Sprintf("mean %.2f  min %.2f  max %.2f", s.mean, s.min, s.max)
}

type statisticJSON struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// MarshalJSON renders "N/A" or {"mean":..,"min":..,"max":..,"count":..}.
func (s Statistic) MarshalJSON() ([]byte, error) {
	if !s.ok {
		return json.Marshal(NotApplicableText)
	}
	return json.Marshal(statisticJSON{Mean: s.mean, Min: s.min, Max: s.max, Count: s.count})
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (s *Statistic) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if text != NotApplicableText {
			return fmt.Errorf("unexpected statistic %q", text)
		}
		*s = NotApplicable()
		return nil
	}
	var v statisticJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Summary(v.Mean, v.Min, v.Max, v.Count)
	return nil
}

// AggregateOffsets reduces offsets to a statistic.
func AggregateOffsets(offsets []float64) Statistic {
	if len(offsets) == 0 {
		return NotApplicable()
	}
	return Summary(stat.Mean(offsets, nil), floats.Min(offsets), floats.Max(offsets), len(offsets))
}

// Aggregate reduces the physical offsets of pairs.
func Aggregate(pairs []calibration.Pair) Statistic {
	offsets := make([]float64, len(pairs))
	for i, p := range pairs {
		offsets[i] = p.PhysicalOffset
	}
	return AggregateOffsets(offsets)
}

// Accumulator collects per-quadrant offsets for one panel. It is a value:
// Add and Merge return new accumulators and never modify the receiver, so
// each quadrant's processing can return its own accumulator for the caller
// to combine.
type Accumulator struct {
	parts map[string][]float64
}

// Add returns a copy of a with offsets appended under key.
func (a Accumulator) Add(key string, offsets []float64) Accumulator {
	out := a.clone()
	out.parts[key] = append(out.parts[key], offsets...)
	return out
}

// AddPairs is Add over calibrated pairs.
func (a Accumulator) AddPairs(key string, pairs []calibration.Pair) Accumulator {
	offsets := make([]float64, len(pairs))
	for i, p := range pairs {
		offsets[i] = p.PhysicalOffset
	}
	return a.Add(key, offsets)
}

// Merge returns the union of a and b.
func (a Accumulator) Merge(b Accumulator) Accumulator {
	out := a.clone()
	for k, v := range b.parts {
		out.parts[k] = append(out.parts[k], v...)
	}
	return out
}

// Keys returns the contributing keys in sorted order.
func (a Accumulator) Keys() []string {
	keys := make([]string, 0, len(a.parts))
	for k := range a.parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Offsets returns every offset, concatenated in key order.
func (a Accumulator) Offsets() []float64 {
	var all []float64
	for _, k := range a.Keys() {
		all = append(all, a.parts[k]...)
	}
	return all
}

// Part returns the statistic of a single key.
func (a Accumulator) Part(key string) Statistic {
	return AggregateOffsets(a.parts[key])
}

// Statistic reduces the concatenation of every part exactly once.
func (a Accumulator) Statistic() Statistic {
	return AggregateOffsets(a.Offsets())
}

func (a Accumulator) clone() Accumulator {
	out := Accumulator{parts: make(map[string][]float64, len(a.parts)+1)}
	for k, v := range a.parts {
		out.parts[k] = append([]float64(nil), v...)
	}
	return out
}
