package coverage

import (
	"fmt"

	"github.com/tidwall/rtree"
)

// DatumRegion is the spatial intersection of one raster region and one
// vertical datum, the unit indexed for point lookup. Datum may be nil when
// the region needs no vertical correction.
type DatumRegion struct {
	Region Region
	Datum  *VerticalDatum
}

// UnifiedCoverage merges multiple raster regions and vertical-datum
// correction grids into one elevation surface. The spatial index and the
// regions are immutable once setup is complete, so concurrent ElevationAt
// calls are safe as long as the wrapped regions' evaluate paths are
// reentrant.
type UnifiedCoverage struct {
	index   rtree.RTreeG[DatumRegion]
	regions []Region
	datums  []*VerticalDatum
}

// NewUnifiedCoverage creates a unified coverage over the given datums,
// seeded with a first region. Further regions are added with Add.
func NewUnifiedCoverage(first Region, datums []*VerticalDatum) *UnifiedCoverage {
	u := &UnifiedCoverage{datums: datums}
	u.Add(first)
	return u
}

// Add indexes the intersection of the region's envelope with every known
// datum envelope. With no datums the region is indexed by its own envelope
// with a zero correction.
func (u *UnifiedCoverage) Add(region Region) {
	if len(u.datums) == 0 {
		b := region.Bound()
		u.index.Insert([2]float64(b.Min), [2]float64(b.Max), DatumRegion{Region: region})
	}
	for _, d := range u.datums {
		min, max, ok := intersect(region.Bound(), d.Bound())
		if !ok {
			continue
		}
		u.index.Insert(min, max, DatumRegion{Region: region, Datum: d})
	}
	u.regions = append(u.regions, region)
}

// ElevationAt evaluates the elevation at (lon, lat): the raster value of the
// first indexed datum-region containing the point, plus that datum's
// interpolated offset. If several datum-regions overlap the point, the first
// index match wins; the match order is not defined beyond that.
func (u *UnifiedCoverage) ElevationAt(lon, lat float64) (float64, error) {
	var hit DatumRegion
	found := false
	pt := [2]float64{lon, lat}
	u.index.Search(pt, pt, func(_, _ [2]float64, d DatumRegion) bool {
		hit = d
		found = true
		return false // first match wins
	})
	if !found {
		return 0, fmt.Errorf("%w: point (%f, %f)", ErrPointOutsideCoverage, lon, lat)
	}

	v, err := hit.Region.ElevationAt(lon, lat)
	if err != nil {
		return 0, err
	}
	if hit.Datum != nil {
		off, err := hit.Datum.InterpolatedHeight(lon, lat)
		if err != nil {
			return 0, err
		}
		v += off
	}
	return v, nil
}
