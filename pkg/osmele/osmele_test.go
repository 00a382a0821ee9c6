package osmele

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"elevation_builder/pkg/graph"
)

func TestParseEle(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"123", 123, true},
		{"123.5", 123.5, true},
		{"-12", -12, true},
		{" 88 m ", 88, true},
		{"88m", 88, true},
		{"1,5", 1.5, true},
		{"", 0, false},
		{"high", 0, false},
		{"123ft", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseEle(tt.raw)
		if ok != tt.wantOK {
			t.Errorf("parseEle(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			continue
		}
		if ok && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseEle(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestApply(t *testing.T) {
	g := graph.New()
	a := g.AddVertex(103.8000, 1.3000)
	b := g.AddVertex(103.8100, 1.3000)
	g.AddEdge(a, b, orb.LineString{a.Point, b.Point})

	points := []ElevationPoint{
		// ~11 m east of a: matches.
		{Lat: 1.3000, Lon: 103.8001, ElevM: 12},
		// ~550 m from anything: dropped.
		{Lat: 1.3050, Lon: 103.8000, ElevM: 99},
	}

	seeded := Apply(g, points, 50)
	if seeded != 1 {
		t.Fatalf("seeded %d vertices, want 1", seeded)
	}

	known := g.KnownElevations()
	if elev, ok := known[a]; !ok || elev != 12 {
		t.Errorf("vertex a elevation = %v (ok=%v), want 12", elev, ok)
	}
	if _, ok := known[b]; ok {
		t.Error("vertex b unexpectedly seeded")
	}
}

func TestApplyNearestPointWinsPerVertex(t *testing.T) {
	g := graph.New()
	a := g.AddVertex(103.8000, 1.3000)
	b := g.AddVertex(103.8100, 1.3000)
	g.AddEdge(a, b, orb.LineString{a.Point, b.Point})

	// Both points match vertex a; the farther one comes last but must not
	// overwrite the nearer one's elevation.
	points := []ElevationPoint{
		{Lat: 1.3000, Lon: 103.8001, ElevM: 12},
		{Lat: 1.3000, Lon: 103.8003, ElevM: 99},
	}

	seeded := Apply(g, points, 50)
	if seeded != 1 {
		t.Fatalf("seeded %d vertices, want 1", seeded)
	}
	if elev := g.KnownElevations()[a]; elev != 12 {
		t.Errorf("vertex a elevation = %v, want 12 from the nearer point", elev)
	}
}

func TestApplyPicksNearestVertex(t *testing.T) {
	g := graph.New()
	a := g.AddVertex(103.8000, 1.3000)
	b := g.AddVertex(103.8004, 1.3000)
	g.AddEdge(a, b, orb.LineString{a.Point, b.Point})

	// The point sits between both vertices but closer to b.
	Apply(g, []ElevationPoint{{Lat: 1.3000, Lon: 103.8003, ElevM: 7}}, 50)

	known := g.KnownElevations()
	if _, ok := known[a]; ok {
		t.Error("farther vertex seeded")
	}
	if elev, ok := known[b]; !ok || elev != 7 {
		t.Errorf("vertex b elevation = %v (ok=%v), want 7", elev, ok)
	}
}
