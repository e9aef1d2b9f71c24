package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/xray-registration/internal/contour"
	"github.com/ironsheep/xray-registration/internal/pairing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if diff := cmp.Diff(contour.DefaultShapeFilter(), cfg.ShapeFilter()); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
	if cfg.Pairing.Offset != 2 || cfg.Calibration.MaxOffset != 20 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if m, err := cfg.ModeOverride(); m != nil || err != nil {
		t.Errorf("ModeOverride: got %v, %v; want nil, nil", m, err)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("missing file should give defaults (-want +got):\n%s", diff)
	}

	if _, err := LoadConfig(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestLoadConfig_Partial(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	path := filepath.Join(t.TempDir(), "registration.yaml")
	yamlText := `
pairing:
  mode: tree:1
calibration:
  maxOffset: 12.5
output:
  histogram: true
`
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Calibration.MaxOffset != 12.5 || !cfg.Output.Histogram {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Filter.MinVertices != 8 || cfg.Pairing.Offset != 2 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	m, err := cfg.ModeOverride()
	if err != nil || m == nil || *m != pairing.TreeDescent(1) {
		t.Errorf("ModeOverride: got %v, %v", m, err)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "filter: [1, 2"},
		{"bad mode", "pairing:\n  mode: spiral\n"},
		{"bad offset", "pairing:\n  offset: 0\n"},
		{"bad aspect", "filter:\n  minAspect: 2\n  maxAspect: 1\n"},
		{"bad backend", "extraction:\n  backend: hough\n"},
		{"bad block", "extraction:\n  blockRadius: 0\n"},
		{"negative max offset", "calibration:\n  maxOffset: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "registration.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig should fail")
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	path := filepath.Join(t.TempDir(), "nested", "registration.yaml")

	cfg := DefaultConfig()
	cfg.Pairing.Mode = "offset:1"
	cfg.Output.Database = "history.db"
	cfg.Extraction.OpenRadius = 0
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	back, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(LogLevelEnv, "debug")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Logging.Debug {
		t.Error("debug logging not enabled from environment")
	}
}
