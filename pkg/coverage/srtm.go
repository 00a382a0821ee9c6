package coverage

import (
	"fmt"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/tkrajina/go-elevations/geoelevations"
)

// SRTMRegion serves elevations from remote SRTM data over a bounded
// envelope. Lookup errors are reported as ErrPointOutsideCoverage so a
// failed remote query degrades the same way as a raster miss.
type SRTMRegion struct {
	client *http.Client
	srtm   *geoelevations.Srtm
	bound  orb.Bound
}

// NewSRTMRegion creates a network-backed SRTM region restricted to bound.
func NewSRTMRegion(client *http.Client, bound orb.Bound) (*SRTMRegion, error) {
	if client == nil {
		client = http.DefaultClient
	}
	srtm, err := geoelevations.NewSrtm(client)
	if err != nil {
		return nil, fmt.Errorf("init srtm: %w", err)
	}
	return &SRTMRegion{client: client, srtm: srtm, bound: bound}, nil
}

// Bound returns the configured envelope.
func (s *SRTMRegion) Bound() orb.Bound { return s.bound }

// ElevationAt fetches the SRTM elevation at (lon, lat).
func (s *SRTMRegion) ElevationAt(lon, lat float64) (float64, error) {
	if !s.bound.Contains(orb.Point{lon, lat}) {
		return 0, fmt.Errorf("%w: point (%f, %f)", ErrPointOutsideCoverage, lon, lat)
	}
	elev, err := s.srtm.GetElevation(s.client, lat, lon)
	if err != nil {
		return 0, fmt.Errorf("%w: srtm lookup (%f, %f): %v", ErrPointOutsideCoverage, lon, lat, err)
	}
	return elev, nil
}
