// Package coverage stitches raster elevation datasets and vertical-datum
// correction grids into a single surface queryable by coordinate.
package coverage

import (
	"errors"

	"github.com/paulmach/orb"
)

// ErrPointOutsideCoverage is returned when a queried point is not covered by
// any loaded elevation data (or falls on a data void).
var ErrPointOutsideCoverage = errors.New("point outside elevation coverage")

// Evaluator answers elevation queries at (lon, lat) coordinates in meters.
type Evaluator interface {
	ElevationAt(lon, lat float64) (float64, error)
}

// Region is one raster elevation dataset with a known spatial envelope.
// Implementations are read-only after load.
type Region interface {
	Evaluator
	Bound() orb.Bound
}

// intersect returns the overlap of two bounds as R-tree min/max corners.
// ok is false when the bounds do not overlap.
func intersect(a, b orb.Bound) (min, max [2]float64, ok bool) {
	min[0] = maxf(a.Min[0], b.Min[0])
	min[1] = maxf(a.Min[1], b.Min[1])
	max[0] = minf(a.Max[0], b.Max[0])
	max[1] = minf(a.Max[1], b.Max[1])
	if min[0] > max[0] || min[1] > max[1] {
		return min, max, false
	}
	return min, max, true
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
