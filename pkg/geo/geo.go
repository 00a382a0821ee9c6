package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6_371_000.0

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance returns the great-circle distance in meters between two points
// given in (lon, lat) order.
func Distance(a, b orb.Point) float64 {
	return Haversine(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// LineStringLength returns the great-circle length in meters of a linestring.
func LineStringLength(ls orb.LineString) float64 {
	var total float64
	for i := 0; i < len(ls)-1; i++ {
		total += Distance(ls[i], ls[i+1])
	}
	return total
}

// PointAlongSegment linearly interpolates a planar position between a and b.
// frac 0 returns a, frac 1 returns b.
func PointAlongSegment(a, b orb.Point, frac float64) orb.Point {
	return orb.Point{
		a[0] + frac*(b[0]-a[0]),
		a[1] + frac*(b[1]-a[1]),
	}
}
