// Package config provides configuration loading for the registration tools.
// It handles loading configuration from YAML files and provides default
// values tuned on production X-ray images.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/xray-registration/internal/calibration"
	"github.com/ironsheep/xray-registration/internal/contour"
	"github.com/ironsheep/xray-registration/internal/detection"
	"github.com/ironsheep/xray-registration/internal/pairing"
)

// LogLevelEnv enables debug logging when set to "debug".
const LogLevelEnv = "REGISTRATION_LOG_LEVEL"

// PathEnv names the configuration file used when none is given on the
// command line.
const PathEnv = "REGISTRATION_CONFIG"

// Config represents the application configuration loaded from YAML
type Config struct {
	// Shape filter thresholds for candidate contours
	Filter struct {
		MinVertices int     `yaml:"minVertices"`
		MinArea     float64 `yaml:"minArea"`
		MinAspect   float64 `yaml:"minAspect"`
		MaxAspect   float64 `yaml:"maxAspect"`
	} `yaml:"filter"`

	// Binarization and contour extraction
	Extraction struct {
		// Backend is "bild" (pure Go) or "gocv"
		Backend     string  `yaml:"backend"`
		BlurRadius  float64 `yaml:"blurRadius"`
		BlockRadius float64 `yaml:"blockRadius"`
		ThresholdC  float64 `yaml:"thresholdC"`
		// OpenRadius of 0 disables the morphological opening
		OpenRadius float64 `yaml:"openRadius"`
	} `yaml:"extraction"`

	Pairing struct {
		// Mode overrides the filename convention for every image when set,
		// e.g. "adjacent", "offset:2" or "tree:1".
		Mode string `yaml:"mode"`

		// Offset is the ring-to-hole index offset used for images whose name
		// does not mark them as single-offset.
		Offset int `yaml:"offset"`
	} `yaml:"pairing"`

	Calibration struct {
		// MaxOffset is the plausibility bound in mils; 0 disables it
		MaxOffset float64 `yaml:"maxOffset"`
	} `yaml:"calibration"`

	Logging struct {
		Debug bool `yaml:"debug"`
	} `yaml:"logging"`

	Output struct {
		// Dir receives the panel mosaics and histograms
		Dir string `yaml:"dir"`

		// Histogram enables a per-panel offset histogram next to the mosaic
		Histogram bool `yaml:"histogram"`

		// Database is the SQLite history file; empty disables recording
		Database string `yaml:"database"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	f := contour.DefaultShapeFilter()
	cfg.Filter.MinVertices = f.MinVertices
	cfg.Filter.MinArea = f.MinArea
	cfg.Filter.MinAspect = f.MinAspect
	cfg.Filter.MaxAspect = f.MaxAspect

	opts := detection.DefaultOptions()
	cfg.Extraction.Backend = "bild"
	cfg.Extraction.BlurRadius = opts.BlurRadius
	cfg.Extraction.BlockRadius = opts.BlockRadius
	cfg.Extraction.ThresholdC = opts.ThresholdC
	cfg.Extraction.OpenRadius = opts.OpenRadius

	cfg.Pairing.Offset = 2
	cfg.Calibration.MaxOffset = calibration.DefaultMaxOffset
	cfg.Output.Dir = "."

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
// Values missing from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if os.Getenv(LogLevelEnv) == "debug" {
		c.Logging.Debug = true
	}
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	if err := c.ShapeFilter().Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if err := c.DetectionOptions().Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	switch c.Extraction.Backend {
	case "", "bild", "gocv":
	default:
		return fmt.Errorf("extraction: unknown backend %q", c.Extraction.Backend)
	}
	if _, err := c.ModeOverride(); err != nil {
		return fmt.Errorf("pairing: %w", err)
	}
	if c.Pairing.Offset < 1 {
		return fmt.Errorf("pairing: offset must be >= 1, got %d", c.Pairing.Offset)
	}
	if c.Calibration.MaxOffset < 0 {
		return fmt.Errorf("calibration: maxOffset must be >= 0, got %g", c.Calibration.MaxOffset)
	}
	return nil
}

// ShapeFilter returns the configured contour filter.
func (c *Config) ShapeFilter() contour.ShapeFilter {
	return contour.ShapeFilter{
		MinVertices: c.Filter.MinVertices,
		MinArea:     c.Filter.MinArea,
		MinAspect:   c.Filter.MinAspect,
		MaxAspect:   c.Filter.MaxAspect,
	}
}

// DetectionOptions returns the configured binarization parameters.
func (c *Config) DetectionOptions() detection.Options {
	return detection.Options{
		BlurRadius:  c.Extraction.BlurRadius,
		BlockRadius: c.Extraction.BlockRadius,
		ThresholdC:  c.Extraction.ThresholdC,
		OpenRadius:  c.Extraction.OpenRadius,
	}
}

// CalibrationOptions returns the configured calibration bounds.
func (c *Config) CalibrationOptions() calibration.Options {
	return calibration.Options{MaxOffset: c.Calibration.MaxOffset}
}

// ModeOverride returns the pairing mode forced for every image, if any.
func (c *Config) ModeOverride() (*pairing.Mode, error) {
	if c.Pairing.Mode == "" {
		return nil, nil
	}
	m, err := pairing.ParseMode(c.Pairing.Mode)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
