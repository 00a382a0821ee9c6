// Package osmele seeds known elevations from ele-tagged OSM nodes.
package osmele

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"elevation_builder/pkg/geo"
	"elevation_builder/pkg/graph"
)

// ElevationPoint is one surveyed elevation from the source data.
type ElevationPoint struct {
	Lat, Lon float64
	ElevM    float64
}

// Parse reads an OSM PBF file and returns every node carrying a usable
// "ele" tag. Values are meters; a "m" suffix is tolerated, anything else
// unparseable is dropped.
func Parse(ctx context.Context, r io.Reader) ([]ElevationPoint, error) {
	scanner := osmpbf.New(ctx, r, 1)
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	var points []ElevationPoint
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		raw := n.Tags.Find("ele")
		if raw == "" {
			continue
		}
		elev, ok := parseEle(raw)
		if !ok {
			continue
		}
		points = append(points, ElevationPoint{Lat: n.Lat, Lon: n.Lon, ElevM: elev})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}

	log.Printf("Found %d ele-tagged nodes", len(points))
	return points, nil
}

// parseEle parses an OSM ele tag value into meters.
func parseEle(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "m")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Grid cell size in degrees. 0.01° ≈ 1.1 km at the equator, so a single
// cell always covers the default match radius.
const gridCellSize = 0.01

// gridCell returns the integer cell coordinates for a lat/lon.
func gridCell(lat, lon float64) (latIdx, lonIdx int32) {
	return int32(math.Floor(lat / gridCellSize)), int32(math.Floor(lon / gridCellSize))
}

// cellKey packs two int32 cell indices into a single uint64 map key.
func cellKey(latIdx, lonIdx int32) uint64 {
	return uint64(uint32(latIdx))<<32 | uint64(uint32(lonIdx))
}

// Apply matches elevation points to graph vertices and records the matches
// as known elevations. A point only seeds the single nearest vertex within
// maxDistM; when several points match the same vertex, the nearest point
// wins regardless of input order. Returns the number of vertices seeded.
func Apply(g *graph.Graph, points []ElevationPoint, maxDistM float64) int {
	if len(points) == 0 {
		return 0
	}

	cells := make(map[uint64][]*graph.Vertex)
	for _, v := range g.Vertices {
		latIdx, lonIdx := gridCell(v.Point.Lat(), v.Point.Lon())
		key := cellKey(latIdx, lonIdx)
		cells[key] = append(cells[key], v)
	}

	matchDist := make(map[*graph.Vertex]float64)
	for _, p := range points {
		latIdx, lonIdx := gridCell(p.Lat, p.Lon)

		var best *graph.Vertex
		bestDist := maxDistM
		for dLat := int32(-1); dLat <= 1; dLat++ {
			for dLon := int32(-1); dLon <= 1; dLon++ {
				for _, v := range cells[cellKey(latIdx+dLat, lonIdx+dLon)] {
					d := geo.Haversine(p.Lat, p.Lon, v.Point.Lat(), v.Point.Lon())
					if d <= bestDist {
						best = v
						bestDist = d
					}
				}
			}
		}
		if best == nil {
			continue
		}
		if prev, ok := matchDist[best]; ok && prev <= bestDist {
			continue
		}
		matchDist[best] = bestDist
		g.SetKnownElevation(best, p.ElevM)
	}

	log.Printf("Seeded %d vertices with surveyed elevations", len(matchDist))
	return len(matchDist)
}
