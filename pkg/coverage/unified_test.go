package coverage

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

// constRegion evaluates to a fixed value everywhere inside its bound.
type constRegion struct {
	bound orb.Bound
	value float64
}

func (r constRegion) Bound() orb.Bound { return r.bound }

func (r constRegion) ElevationAt(lon, lat float64) (float64, error) {
	if !r.bound.Contains(orb.Point{lon, lat}) {
		return 0, ErrPointOutsideCoverage
	}
	return r.value, nil
}

func bound(minLon, minLat, maxLon, maxLat float64) orb.Bound {
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

func TestUnifiedCoverageStitching(t *testing.T) {
	west := constRegion{bound: bound(0, 0, 1, 1), value: 100}
	east := constRegion{bound: bound(1, 0, 2, 1), value: 200}

	u := NewUnifiedCoverage(west, nil)
	u.Add(east)

	if v, err := u.ElevationAt(0.5, 0.5); err != nil || v != 100 {
		t.Errorf("ElevationAt(0.5, 0.5) = %v, %v, want 100", v, err)
	}
	if v, err := u.ElevationAt(1.5, 0.5); err != nil || v != 200 {
		t.Errorf("ElevationAt(1.5, 0.5) = %v, %v, want 200", v, err)
	}
	if _, err := u.ElevationAt(5, 5); !errors.Is(err, ErrPointOutsideCoverage) {
		t.Errorf("uncovered lookup err = %v, want ErrPointOutsideCoverage", err)
	}
}

func TestUnifiedCoverageDatumCorrection(t *testing.T) {
	region := constRegion{bound: bound(0, 0, 1, 1), value: 100}

	// Flat +7 offset grid covering the whole region.
	offsetGrid, err := NewGrid(-1, -1, 3, [][]float64{
		{7, 7},
		{7, 7},
	})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	datum := NewVerticalDatum(offsetGrid)

	u := NewUnifiedCoverage(region, []*VerticalDatum{datum})

	v, err := u.ElevationAt(0.5, 0.5)
	if err != nil {
		t.Fatalf("ElevationAt: %v", err)
	}
	if math.Abs(v-107) > 1e-9 {
		t.Errorf("ElevationAt with datum = %v, want 107", v)
	}
}

func TestUnifiedCoverageDatumOutsideRegion(t *testing.T) {
	region := constRegion{bound: bound(0, 0, 1, 1), value: 100}

	// Datum envelope disjoint from the region: nothing gets indexed for
	// their intersection, so the point is simply uncovered.
	offsetGrid, err := NewGrid(10, 10, 1, [][]float64{
		{7, 7},
		{7, 7},
	})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	datum := NewVerticalDatum(offsetGrid)

	u := NewUnifiedCoverage(region, []*VerticalDatum{datum})
	if _, err := u.ElevationAt(0.5, 0.5); !errors.Is(err, ErrPointOutsideCoverage) {
		t.Errorf("lookup err = %v, want ErrPointOutsideCoverage", err)
	}
}

func TestUnifiedFactoryCheckInputs(t *testing.T) {
	f := &UnifiedFactory{}
	if err := f.CheckInputs(); err == nil {
		t.Error("CheckInputs with nothing configured: want error")
	}

	f = &UnifiedFactory{GridPaths: []string{"/nonexistent/grid.asc"}}
	if err := f.CheckInputs(); err == nil {
		t.Error("CheckInputs with missing file: want error")
	}
}
