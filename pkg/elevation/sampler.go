package elevation

import (
	"fmt"

	"elevation_builder/pkg/coverage"
	"elevation_builder/pkg/geo"
	"elevation_builder/pkg/geoid"
	"elevation_builder/pkg/graph"
)

// DefaultSampleSpacingM is the along-edge distance between elevation samples.
const DefaultSampleSpacingM = 10.0

// sampler computes elevation profiles for individual edges against a single
// coverage handle. One sampler serves one worker; the shared stats counters
// are atomic.
type sampler struct {
	eval    coverage.Evaluator
	geoid   *geoid.Cache // nil disables ellipsoid-to-geoid correction
	spacing float64
	stats   *runStats
}

// processEdge computes and assigns the elevation profile for one edge.
// Edges that already carry a profile are left alone. Any failed lookup
// aborts the whole edge so a partial profile is never assigned.
func (s *sampler) processEdge(g *graph.Graph, e *graph.StreetEdge, cache *ProfileCache) {
	if e.Profile() != nil {
		return
	}

	coords := e.Geometry
	if len(coords) < 2 {
		return
	}

	if cache != nil {
		if p, ok := cache.Get(CacheKey(coords)); ok {
			setEdgeProfile(g, e, p)
			return
		}
	}

	var dist, elev []float64

	v, err := s.elevationAt(coords[0])
	if err != nil {
		return
	}
	dist = append(dist, 0)
	elev = append(elev, v)

	// Walk the geometry, emitting a sample each time the running length
	// crosses a multiple of the spacing. Samples land on the segment by
	// linear interpolation, not on the nearest coordinate.
	edgeLenM := 0.0
	sampleDist := s.spacing
	prevLen := 0.0
	for i := 0; i < len(coords)-1; i++ {
		a, b := coords[i], coords[i+1]
		segLen := geo.Distance(a, b)
		edgeLenM += segLen
		for segLen > 0 && edgeLenM > sampleDist {
			frac := (sampleDist - prevLen) / segLen
			p := geo.PointAlongSegment(a, b, frac)
			v, err := s.elevationAt(p)
			if err != nil {
				return
			}
			dist = append(dist, sampleDist)
			elev = append(elev, v)
			sampleDist += s.spacing
		}
		prevLen = edgeLenM
	}

	// The final sample sits at the true edge length. Drop the last interior
	// sample if it crowds the endpoint, but never the one at distance 0.
	if len(dist) > 1 && edgeLenM-dist[len(dist)-1] < s.spacing/2 {
		dist = dist[:len(dist)-1]
		elev = elev[:len(elev)-1]
	}
	v, err = s.elevationAt(coords[len(coords)-1])
	if err != nil {
		return
	}
	dist = append(dist, edgeLenM)
	elev = append(elev, v)

	setEdgeProfile(g, e, &graph.Profile{Dist: dist, Elev: elev})
}

// elevationAt looks up the elevation of one point, applying the geoid
// correction when configured, and keeps the success/failure counters.
func (s *sampler) elevationAt(p [2]float64) (float64, error) {
	v, err := s.eval.ElevationAt(p[0], p[1])
	if err != nil {
		s.stats.pointsFailed.Add(1)
		return 0, err
	}
	if s.geoid != nil {
		off, err := s.geoid.Offset(p[1], p[0])
		if err != nil {
			s.stats.pointsFailed.Add(1)
			return 0, err
		}
		v -= off
	}
	s.stats.pointsEvaluated.Add(1)
	return v, nil
}

// setEdgeProfile assigns a profile and records a trace annotation when the
// slope calculation flattened it.
func setEdgeProfile(g *graph.Graph, e *graph.StreetEdge, p *graph.Profile) {
	if e.SetProfile(p) {
		g.AddAnnotation(fmt.Sprintf("elevation flattened on edge %d->%d", e.From.ID, e.To.ID))
	}
}
