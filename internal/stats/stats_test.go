package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/ironsheep/xray-registration/internal/calibration"
)

func assertSummary(t *testing.T, s Statistic, mean, min, max float64) {
	t.Helper()
	gotMean, gotMin, gotMax, ok := s.Value()
	if !ok {
		t.Fatalf("statistic not applicable, want mean=%g min=%g max=%g", mean, min, max)
	}
	if math.Abs(gotMean-mean) > 1e-9 || gotMin != min || gotMax != max {
		t.Errorf("got mean=%g min=%g max=%g, want mean=%g min=%g max=%g", gotMean, gotMin, gotMax, mean, min, max)
	}
}

func TestAggregateOffsets(t *testing.T) {
	tests := []struct {
		name           string
		offsets        []float64
		applicable     bool
		mean, min, max float64
	}{
		{"empty", nil, false, 0, 0, 0},
		{"singleton", []float64{3.5}, true, 3.5, 3.5, 3.5},
		{"three values", []float64{5, 10, 15}, true, 10, 5, 15},
		{"unordered", []float64{15, 5, 10}, true, 10, 5, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := AggregateOffsets(tt.offsets)
			if s.Applicable() != tt.applicable {
				t.Fatalf("Applicable: got %v, want %v", s.Applicable(), tt.applicable)
			}
			if tt.applicable {
				assertSummary(t, s, tt.mean, tt.min, tt.max)
				if s.Count() != len(tt.offsets) {
					t.Errorf("Count: got %d, want %d", s.Count(), len(tt.offsets))
				}
			}
		})
	}
}

func TestAggregate_Pairs(t *testing.T) {
	pairs := []calibration.Pair{{PhysicalOffset: 2}, {PhysicalOffset: 4}}
	assertSummary(t, Aggregate(pairs), 3, 2, 4)

	if Aggregate(nil).Applicable() {
		t.Error("Aggregate(nil) should be not applicable")
	}
}

func TestAccumulator_ConcatenateThenReduce(t *testing.T) {
	var acc Accumulator
	topLeft := acc.Add("TL", []float64{2, 4})
	topRight := acc.Add("TR", []float64{6, 8})

	panel := topLeft.Merge(topRight)
	assertSummary(t, panel.Statistic(), 5, 2, 8)
	assertSummary(t, panel.Part("TL"), 3, 2, 4)
	assertSummary(t, panel.Part("TR"), 7, 6, 8)

	if acc.Statistic().Applicable() {
		t.Error("original accumulator was modified")
	}
	if got := topLeft.Keys(); len(got) != 1 || got[0] != "TL" {
		t.Errorf("topLeft keys: got %v, want [TL]", got)
	}
}

func TestAccumulator_UnevenQuadrants(t *testing.T) {
	// A mean of per-quadrant means would give (1 + 10) / 2 = 5.5.
	acc := Accumulator{}.
		Add("TL", []float64{1, 1, 1}).
		Add("BR", []float64{10})
	assertSummary(t, acc.Statistic(), 13.0/4, 1, 10)
}

func TestAccumulator_EmptyQuadrant(t *testing.T) {
	acc := Accumulator{}.Add("TL", nil).AddPairs("BL", []calibration.Pair{{PhysicalOffset: 1.5}})
	if acc.Part("TL").Applicable() {
		t.Error("empty quadrant should be not applicable")
	}
	assertSummary(t, acc.Statistic(), 1.5, 1.5, 1.5)
	if acc.Part("BR").Applicable() {
		t.Error("missing quadrant should be not applicable")
	}
}

func TestStatistic_JSON(t *testing.T) {
	b, err := json.Marshal(NotApplicable())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != `"N/A"` {
		t.Errorf("not applicable: got %s, want \"N/A\"", b)
	}

	var back Statistic
	if err := json.Unmarshal(b, &back); err != nil || back.Applicable() {
		t.Errorf("unmarshal N/A: got %+v, %v", back, err)
	}

	b, err = json.Marshal(Summary(2.5, 1, 4, 2))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	assertSummary(t, back, 2.5, 1, 4)
}

func TestStatistic_String(t *testing.T) {
	if got := NotApplicable().String(); got != "mean N/A  min N/A  max N/A" {
		t.Errorf("got %q", got)
	}
	if got := Summary(1.234, 0.5, 2, 3).String(); got != "mean 1.23  min 0.50  max 2.00" {
		t.Errorf("got %q", got)
	}
}
