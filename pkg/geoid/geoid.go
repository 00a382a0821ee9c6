// Package geoid computes and memoizes ellipsoid-to-geoid height offsets.
package geoid

import (
	"math"
	"sync"

	"elevation_builder/pkg/coverage"
)

// Calculator computes the ellipsoid-to-geoid height difference in meters at
// a point. Implementations may be arbitrarily expensive; callers are
// expected to go through a Cache.
type Calculator interface {
	Offset(lat, lon float64) (float64, error)
}

// Cell resolution for memoization: 0.01 degrees, about 1 km. The geoid
// varies smoothly enough that one offset per cell is adequate.
const cellsPerDegree = 100

// latKeyMultiplier spreads the rounded latitude term far enough that it
// cannot collide with the rounded longitude range (+-18000 cells).
const latKeyMultiplier = 104729

// Cache memoizes a Calculator at reduced coordinate precision. Concurrent
// lookups are lock-free; racing inserts of the same key are idempotent since
// the offset is a pure function of the cell.
type Cache struct {
	calc Calculator
	m    sync.Map // int64 cell key -> float64 offset
}

// NewCache wraps calc with a memoizing cache scoped to one build run.
func NewCache(calc Calculator) *Cache {
	return &Cache{calc: calc}
}

// Offset returns the geoid offset for the cell containing (lat, lon),
// computing it at the rounded cell coordinates on first use.
func (c *Cache) Offset(lat, lon float64) (float64, error) {
	latCell := math.Round(lat * cellsPerDegree)
	lonCell := math.Round(lon * cellsPerDegree)
	key := int64(latCell)*latKeyMultiplier + int64(lonCell)

	if v, ok := c.m.Load(key); ok {
		return v.(float64), nil
	}

	off, err := c.calc.Offset(latCell/cellsPerDegree, lonCell/cellsPerDegree)
	if err != nil {
		return 0, err
	}
	c.m.Store(key, off)
	return off, nil
}

// GridCalculator derives offsets from a geoid undulation grid, e.g. a
// coarse EGM96 extract in the vertical-datum format.
type GridCalculator struct {
	datum *coverage.VerticalDatum
}

// NewGridCalculator creates a calculator over the given undulation grid.
func NewGridCalculator(datum *coverage.VerticalDatum) *GridCalculator {
	return &GridCalculator{datum: datum}
}

// Offset interpolates the undulation grid at (lat, lon).
func (g *GridCalculator) Offset(lat, lon float64) (float64, error) {
	return g.datum.InterpolatedHeight(lon, lat)
}
