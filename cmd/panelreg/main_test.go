package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/xray-registration/internal/panel"
	"github.com/ironsheep/xray-registration/internal/stats"
	"github.com/ironsheep/xray-registration/internal/store"
)

func writeBlank(t *testing.T, dir, name string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	defer f.Close()
	img := image.NewGray(image.Rect(0, 0, 60, 40))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
}

func TestRun(t *testing.T) {
	in := t.TempDir()
	for _, name := range []string{"P01TL_135.png", "P01BR_135.png", "P02TR_120_1.png", "readme.png"} {
		writeBlank(t, in, name)
	}
	out := filepath.Join(t.TempDir(), "reports")
	db := filepath.Join(t.TempDir(), "history.db")

	var buf bytes.Buffer
	err := run(context.Background(), options{dir: in, out: out, dbPath: db, histogram: true}, &buf)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range []string{"Panel 01 Registration.png", "Panel 02 Registration.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	// Blank images yield no offsets, so no histogram.
	if _, err := os.Stat(filepath.Join(out, "Panel 01 Offsets.png")); !os.IsNotExist(err) {
		t.Errorf("histogram without offsets: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("summary: got %d lines, want header + 2 panels:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "01") || !strings.Contains(lines[1], stats.NotApplicableText) {
		t.Errorf("panel 01 row: %q", lines[1])
	}

	st, err := store.Open(db)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer st.Close()
	history, err := st.PanelHistory("01")
	if err != nil {
		t.Fatalf("PanelHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Quadrants != 2 || history[0].Statistic.Applicable() {
		t.Errorf("history: got %+v", history)
	}
}

func TestRun_SetupErrors(t *testing.T) {
	empty := t.TempDir()
	withImage := t.TempDir()
	writeBlank(t, withImage, "P01TL_135.png")

	tests := []struct {
		name string
		opts options
	}{
		{"missing directory", options{dir: filepath.Join(empty, "nope")}},
		{"no panels", options{dir: empty}},
		{"bad mode", options{dir: withImage, mode: "sideways"}},
		{"bad extractor", options{dir: withImage, extractor: "magic"}},
		{"bad config", options{dir: withImage, configPath: writeFile(t, "filter: [")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(context.Background(), tt.opts, &bytes.Buffer{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestWriteSummary(t *testing.T) {
	results := []*panel.PanelResult{
		{Panel: "03", Errors: []panel.QuadrantError{{Quadrant: panel.TopLeft}}},
	}
	var buf bytes.Buffer
	if err := writeSummary(&buf, results); err != nil {
		t.Fatalf("writeSummary failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	header := strings.Fields(lines[0])
	want := []string{"PANEL", "TR", "TL", "BL", "BR", "PAIRS", "MEAN", "MIN", "MAX", "ERRORS"}
	if strings.Join(header, " ") != strings.Join(want, " ") {
		t.Errorf("header: got %v, want %v", header, want)
	}
	row := strings.Fields(lines[1])
	if len(row) != len(want) || row[0] != "03" || row[5] != "0" || row[9] != "1" {
		t.Errorf("row: got %v", row)
	}
}
