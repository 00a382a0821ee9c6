package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives one elevation build run.
type Config struct {
	// GraphIn is the binary street graph to enrich; GraphOut is where the
	// graph with elevation profiles is written.
	GraphIn  string `yaml:"graph-in"`
	GraphOut string `yaml:"graph-out"`

	Coverage struct {
		// DEMDir is scanned for SRTM .hgt tiles.
		DEMDir string `yaml:"dem-dir"`
		// Grids are ESRI ASCII grid rasters, optionally gzipped.
		Grids []string `yaml:"grids"`
		// Datums are vertical datum correction grids applied on top of
		// the rasters they overlap.
		Datums []string `yaml:"datums"`
		// SRTMOnline enables the remote SRTM fallback region covering
		// the bounding box of the loaded graph.
		SRTMOnline bool `yaml:"srtm-online"`
	} `yaml:"coverage"`

	// GeoidGrid is an ellipsoid-to-geoid offset grid. When set, sampled
	// elevations are corrected from ellipsoidal to orthometric heights.
	GeoidGrid string `yaml:"geoid-grid"`

	// OSMFile optionally seeds known elevations from ele-tagged nodes.
	OSMFile string `yaml:"osm-file"`
	// OSMMatchRadiusM caps how far an ele-tagged node may sit from the
	// vertex it seeds. Zero means 50 m.
	OSMMatchRadiusM float64 `yaml:"osm-match-radius-m"`

	Cache struct {
		File  string `yaml:"file"`
		Read  bool   `yaml:"read"`
		Write bool   `yaml:"write"`
	} `yaml:"cache"`

	SampleSpacingM float64 `yaml:"sample-spacing-m"`
	Workers        int     `yaml:"workers"`
	// Timeout is a Go duration string, e.g. "45m" or "24h".
	Timeout string `yaml:"timeout"`

	timeout time.Duration
}

// TimeoutDuration returns the parsed sampling timeout, zero when unset.
func (c Config) TimeoutDuration() time.Duration { return c.timeout }

// ReadConfig loads and validates a YAML config file.
func ReadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.GraphIn == "" {
		return cfg, fmt.Errorf("config: graph-in is required")
	}
	if cfg.GraphOut == "" {
		return cfg, fmt.Errorf("config: graph-out is required")
	}
	if cfg.Coverage.DEMDir == "" && len(cfg.Coverage.Grids) == 0 && !cfg.Coverage.SRTMOnline {
		return cfg, fmt.Errorf("config: no elevation coverage configured")
	}
	if cfg.OSMMatchRadiusM <= 0 {
		cfg.OSMMatchRadiusM = 50
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("config: timeout: %w", err)
		}
		cfg.timeout = d
	}
	return cfg, nil
}
