package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name: "Portland to Seattle",
			lat1: 45.5152, lon1: -122.6784,
			lat2: 47.6062, lon2: -122.3321,
			wantMeters:       233_500, // ~233.5 km great-circle
			tolerancePercent: 1,
		},
		{
			name: "Same point",
			lat1: 45.5152, lon1: -122.6784,
			lat2: 45.5152, lon2: -122.6784,
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name: "Short distance (~100m)",
			lat1: 45.5152, lon1: -122.6784,
			lat2: 45.5161, lon2: -122.6784,
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestLineStringLength(t *testing.T) {
	// Two segments along a meridian, each ~111m per 0.001 degree of latitude.
	ls := orb.LineString{
		{-122.6784, 45.5150},
		{-122.6784, 45.5160},
		{-122.6784, 45.5170},
	}
	got := LineStringLength(ls)
	want := 2 * Haversine(45.5150, -122.6784, 45.5160, -122.6784)
	if math.Abs(got-want) > 0.01 {
		t.Errorf("LineStringLength = %f, want %f", got, want)
	}

	if l := LineStringLength(orb.LineString{{0, 0}}); l != 0 {
		t.Errorf("single-point linestring length = %f, want 0", l)
	}
}

func TestPointAlongSegment(t *testing.T) {
	a := orb.Point{-122.0, 45.0}
	b := orb.Point{-121.0, 46.0}

	if p := PointAlongSegment(a, b, 0); p != a {
		t.Errorf("frac=0: got %v, want %v", p, a)
	}
	if p := PointAlongSegment(a, b, 1); p != b {
		t.Errorf("frac=1: got %v, want %v", p, b)
	}
	mid := PointAlongSegment(a, b, 0.5)
	if mid[0] != -121.5 || mid[1] != 45.5 {
		t.Errorf("frac=0.5: got %v, want (-121.5, 45.5)", mid)
	}
}

func BenchmarkHaversine(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Haversine(45.5152, -122.6784, 47.6062, -122.3321)
	}
}
