package coverage

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// buildTestGrid creates a 2x2 degree-spaced grid anchored at (0, 0):
//
//	(0,1)=10  (1,1)=20    <- northern row
//	(0,0)=0   (1,0)=10    <- southern row
func buildTestGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(0, 0, 1, [][]float64{
		{10, 20},
		{0, 10},
	})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestGridBilinear(t *testing.T) {
	g := buildTestGrid(t)

	tests := []struct {
		lon, lat float64
		want     float64
	}{
		{0, 0, 0},
		{1, 0, 10},
		{0, 1, 10},
		{1, 1, 20},
		{0.5, 0.5, 10},
		{0.5, 0, 5},
		{0, 0.5, 5},
		{0.25, 0.75, 10},
	}
	for _, tt := range tests {
		got, err := g.ElevationAt(tt.lon, tt.lat)
		if err != nil {
			t.Errorf("ElevationAt(%v, %v): %v", tt.lon, tt.lat, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ElevationAt(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
		}
	}
}

func TestGridOutside(t *testing.T) {
	g := buildTestGrid(t)
	for _, p := range [][2]float64{{-0.1, 0.5}, {1.1, 0.5}, {0.5, -0.1}, {0.5, 1.1}} {
		_, err := g.ElevationAt(p[0], p[1])
		if !errors.Is(err, ErrPointOutsideCoverage) {
			t.Errorf("ElevationAt(%v, %v) err = %v, want ErrPointOutsideCoverage", p[0], p[1], err)
		}
	}
}

func TestGridMalformed(t *testing.T) {
	if _, err := NewGrid(0, 0, 1, nil); err == nil {
		t.Error("NewGrid with no rows: want error")
	}
	if _, err := NewGrid(0, 0, 1, [][]float64{{1}, {2}}); err == nil {
		t.Error("NewGrid with 1 column: want error")
	}
	if _, err := NewGrid(0, 0, 1, [][]float64{{1, 2}, {3}}); err == nil {
		t.Error("NewGrid with ragged rows: want error")
	}
}

const asciiGridSample = `ncols 3
nrows 2
xllcorner 10.0
yllcorner 45.0
cellsize 0.5
NODATA_value -9999
100 110 120
90 -9999 105
`

func TestParseASCIIGrid(t *testing.T) {
	g, err := ParseASCIIGrid(strings.NewReader(asciiGridSample))
	if err != nil {
		t.Fatalf("ParseASCIIGrid: %v", err)
	}

	b := g.Bound()
	if b.Min[0] != 10.0 || b.Min[1] != 45.0 || b.Max[0] != 11.0 || b.Max[1] != 45.5 {
		t.Errorf("Bound = %v, want [10 45, 11 45.5]", b)
	}

	// Northwest corner sample.
	got, err := g.ElevationAt(10.0, 45.5)
	if err != nil {
		t.Fatalf("ElevationAt corner: %v", err)
	}
	if got != 100 {
		t.Errorf("ElevationAt(10, 45.5) = %v, want 100", got)
	}

	// Any lookup touching the nodata sample fails.
	if _, err := g.ElevationAt(10.4, 45.1); !errors.Is(err, ErrPointOutsideCoverage) {
		t.Errorf("nodata lookup err = %v, want ErrPointOutsideCoverage", err)
	}
}

func TestVerticalDatum(t *testing.T) {
	g := buildTestGrid(t)
	d := NewVerticalDatum(g)

	off, err := d.InterpolatedHeight(0.5, 0.5)
	if err != nil {
		t.Fatalf("InterpolatedHeight: %v", err)
	}
	if math.Abs(off-10) > 1e-9 {
		t.Errorf("InterpolatedHeight(0.5, 0.5) = %v, want 10", off)
	}
}
