package store

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/xray-registration/internal/calibration"
	"github.com/ironsheep/xray-registration/internal/panel"
	"github.com/ironsheep/xray-registration/internal/stats"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func panelResult() *panel.PanelResult {
	tl := &panel.ImageResult{
		Spec: panel.ImageSpec{Name: "P07TL_135.png", Quadrant: panel.TopLeft},
		Calibration: calibration.Result{
			Accepted: []calibration.Pair{
				{RingID: 1, HoleID: 3, PixelOffset: 5, PhysicalOffset: 3.4},
				{RingID: 4, HoleID: 6, PixelOffset: 2, PhysicalOffset: 1.2},
			},
			Rejected: []calibration.Rejection{
				{Pair: calibration.Pair{RingID: 7, HoleID: 9, PixelOffset: 60, PhysicalOffset: 41}, Reason: calibration.ReasonImplausible},
				{Pair: calibration.Pair{RingID: 10, HoleID: 12, PixelOffset: 1, PhysicalOffset: math.Inf(1)}, Reason: calibration.ReasonNotFinite},
			},
		},
	}
	return &panel.PanelResult{
		Panel:     "07",
		Quadrants: map[panel.Quadrant]*panel.ImageResult{panel.TopLeft: tl},
		Statistic: stats.AggregateOffsets([]float64{3.4, 1.2}),
		Errors:    []panel.QuadrantError{{Quadrant: panel.BottomRight, File: "P07BR_135.png"}},
	}
}

func TestStore_RecordAndHistory(t *testing.T) {
	s := openTestStore(t)

	run1, err := s.StartRun("/scans/monday")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := s.RecordPanel(run1, panelResult()); err != nil {
		t.Fatalf("RecordPanel failed: %v", err)
	}

	run2, err := s.StartRun("/scans/tuesday")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run1 == run2 {
		t.Fatal("run ids must be unique")
	}
	empty := &panel.PanelResult{Panel: "07", Quadrants: map[panel.Quadrant]*panel.ImageResult{}}
	if err := s.RecordPanel(run2, empty); err != nil {
		t.Fatalf("RecordPanel failed: %v", err)
	}

	history, err := s.PanelHistory("07")
	if err != nil {
		t.Fatalf("PanelHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history: got %d records, want 2", len(history))
	}

	first := history[0]
	if first.RunID != run1 || first.Source != "/scans/monday" || first.Quadrants != 1 || first.Errors != 1 {
		t.Errorf("first record: %+v", first)
	}
	mean, min, max, ok := first.Statistic.Value()
	if !ok || math.Abs(mean-2.3) > 1e-9 || min != 1.2 || max != 3.4 || first.Statistic.Count() != 2 {
		t.Errorf("first statistic: %v", first.Statistic)
	}
	if history[1].RunID != run2 || history[1].Statistic.Applicable() {
		t.Errorf("second record should be not applicable: %+v", history[1])
	}

	if other, err := s.PanelHistory("99"); err != nil || len(other) != 0 {
		t.Errorf("unknown panel: got %v, %v", other, err)
	}
}

func TestStore_Pairs(t *testing.T) {
	s := openTestStore(t)
	run, err := s.StartRun("batch")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := s.RecordPanel(run, panelResult()); err != nil {
		t.Fatalf("RecordPanel failed: %v", err)
	}

	got, err := s.Pairs(run, "07")
	if err != nil {
		t.Fatalf("Pairs failed: %v", err)
	}
	want := []PairRecord{
		{Quadrant: panel.TopLeft, File: "P07TL_135.png", RingID: 1, HoleID: 3, PixelOffset: 5, PhysicalOffset: 3.4, Accepted: true},
		{Quadrant: panel.TopLeft, File: "P07TL_135.png", RingID: 4, HoleID: 6, PixelOffset: 2, PhysicalOffset: 1.2, Accepted: true},
		{Quadrant: panel.TopLeft, File: "P07TL_135.png", RingID: 7, HoleID: 9, PixelOffset: 60, PhysicalOffset: 41, Reason: calibration.ReasonImplausible},
		{Quadrant: panel.TopLeft, File: "P07TL_135.png", RingID: 10, HoleID: 12, PixelOffset: 1, Reason: calibration.ReasonNotFinite},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_DuplicatePanelInRun(t *testing.T) {
	s := openTestStore(t)
	run, err := s.StartRun("batch")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := s.RecordPanel(run, panelResult()); err != nil {
		t.Fatalf("RecordPanel failed: %v", err)
	}
	if err := s.RecordPanel(run, panelResult()); err == nil {
		t.Fatal("recording the same panel twice in a run should fail")
	}

	// The failed transaction must not leave extra pairs behind.
	pairs, err := s.Pairs(run, "07")
	if err != nil {
		t.Fatalf("Pairs failed: %v", err)
	}
	if len(pairs) != 4 {
		t.Errorf("pairs after rollback: got %d, want 4", len(pairs))
	}
}
