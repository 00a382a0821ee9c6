package coverage

import (
	"fmt"
	"net/http"
	"os"

	"github.com/paulmach/orb"
)

// UnifiedFactory fetches raster tiles and datum grids from disk once and
// hands out unified-coverage evaluators. Each Evaluator call builds a
// private UnifiedCoverage over the shared read-only regions, so callers can
// give every worker its own handle.
type UnifiedFactory struct {
	// DEMDir holds SRTM .hgt tiles. Optional if GridPaths is set.
	DEMDir string
	// GridPaths are ESRI ASCII raster files (optionally gzipped).
	GridPaths []string
	// DatumPaths are vertical-datum offset grids in ESRI ASCII format.
	DatumPaths []string

	// SRTMBound, when non-zero, adds a network-backed SRTM region over
	// that envelope as the lowest-priority fallback. Each evaluator gets
	// its own handle as the remote tile store is not goroutine safe.
	SRTMBound  orb.Bound
	HTTPClient *http.Client

	regions []Region
	datums  []*VerticalDatum
}

func (f *UnifiedFactory) srtmEnabled() bool {
	return f.SRTMBound.Min != f.SRTMBound.Max
}

// Fetch loads all configured rasters and datums into memory. It must be
// called once before Evaluator.
func (f *UnifiedFactory) Fetch() error {
	if f.DEMDir != "" {
		tiles, err := LoadHGTDir(f.DEMDir)
		if err != nil {
			return fmt.Errorf("load DEM tiles: %w", err)
		}
		for _, t := range tiles {
			f.regions = append(f.regions, t)
		}
	}
	for _, p := range f.GridPaths {
		g, err := LoadASCIIGrid(p)
		if err != nil {
			return fmt.Errorf("load grid %s: %w", p, err)
		}
		f.regions = append(f.regions, g)
	}
	if len(f.regions) == 0 && !f.srtmEnabled() {
		return fmt.Errorf("no elevation rasters configured")
	}
	for _, p := range f.DatumPaths {
		d, err := LoadVerticalDatum(p)
		if err != nil {
			return fmt.Errorf("load datum %s: %w", p, err)
		}
		f.datums = append(f.datums, d)
	}
	return nil
}

// Evaluator returns a fresh unified coverage over the fetched data.
func (f *UnifiedFactory) Evaluator() (Evaluator, error) {
	regions := f.regions
	if f.srtmEnabled() {
		srtm, err := NewSRTMRegion(f.HTTPClient, f.SRTMBound)
		if err != nil {
			return nil, fmt.Errorf("create srtm region: %w", err)
		}
		regions = append(append([]Region{}, regions...), srtm)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("factory not fetched")
	}
	u := NewUnifiedCoverage(regions[0], f.datums)
	for _, r := range regions[1:] {
		u.Add(r)
	}
	return u, nil
}

// CheckInputs verifies that the configured paths exist without loading them.
func (f *UnifiedFactory) CheckInputs() error {
	if f.DEMDir != "" {
		if _, err := os.Stat(f.DEMDir); err != nil {
			return fmt.Errorf("DEM dir: %w", err)
		}
	}
	for _, p := range append(append([]string{}, f.GridPaths...), f.DatumPaths...) {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("raster input: %w", err)
		}
	}
	if f.DEMDir == "" && len(f.GridPaths) == 0 && !f.srtmEnabled() {
		return fmt.Errorf("no elevation rasters configured")
	}
	return nil
}
