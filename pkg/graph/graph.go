package graph

import (
	"sync"

	"github.com/paulmach/orb"

	"elevation_builder/pkg/geo"
)

// Graph is a street graph whose edges this subsystem annotates with
// elevation profiles. Vertices and edges are created by the street stage;
// here edges are only mutated in place.
type Graph struct {
	Vertices []*Vertex

	// known holds elevations seeded before the build, e.g. from OSM
	// elevation points. May stay empty.
	known map[*Vertex]float64

	mu          sync.Mutex
	annotations []string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{known: make(map[*Vertex]float64)}
}

// AddVertex creates a vertex at the given (lon, lat) position.
func (g *Graph) AddVertex(lon, lat float64) *Vertex {
	v := &Vertex{
		ID:    int32(len(g.Vertices)),
		Point: orb.Point{lon, lat},
	}
	g.Vertices = append(g.Vertices, v)
	return v
}

// AddEdge creates a street edge between two vertices with the given
// geometry. The edge length is the great-circle length of the geometry.
func (g *Graph) AddEdge(from, to *Vertex, geom orb.LineString) *StreetEdge {
	e := &StreetEdge{
		From:     from,
		To:       to,
		Geometry: geom,
		LengthM:  geo.LineStringLength(geom),
	}
	from.Outgoing = append(from.Outgoing, e)
	to.Incoming = append(to.Incoming, e)
	return e
}

// Edges returns every street edge exactly once, in vertex order.
func (g *Graph) Edges() []*StreetEdge {
	var edges []*StreetEdge
	for _, v := range g.Vertices {
		edges = append(edges, v.Outgoing...)
	}
	return edges
}

// AddAnnotation registers a non-fatal build annotation against the graph
// and returns the message so callers can log it. Safe for concurrent use.
func (g *Graph) AddAnnotation(msg string) string {
	g.mu.Lock()
	g.annotations = append(g.annotations, msg)
	g.mu.Unlock()
	return msg
}

// Annotations returns the annotations registered so far.
func (g *Graph) Annotations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.annotations))
	copy(out, g.annotations)
	return out
}

// SetKnownElevation records an externally known elevation for a vertex.
func (g *Graph) SetKnownElevation(v *Vertex, elevM float64) {
	g.known[v] = elevM
}

// KnownElevations returns a copy of the seeded vertex elevations.
func (g *Graph) KnownElevations() map[*Vertex]float64 {
	out := make(map[*Vertex]float64, len(g.known))
	for v, e := range g.known {
		out[v] = e
	}
	return out
}

// Vertex is a street intersection or geometry split point.
type Vertex struct {
	ID       int32
	Point    orb.Point // (lon, lat)
	Outgoing []*StreetEdge
	Incoming []*StreetEdge
}

// StreetEdge is a directed street segment with immutable 2D geometry.
// It carries at most one elevation profile.
type StreetEdge struct {
	From, To *Vertex
	Geometry orb.LineString // (lon, lat) order, From first
	LengthM  float64

	profile       *Profile
	flattened     bool
	slopeOverride bool
}

// Profile returns the edge's elevation profile, or nil if unset.
func (e *StreetEdge) Profile() *Profile {
	return e.profile
}

// SetProfile assigns the elevation profile. An edge whose profile degenerates
// to the two-point start/end case is marked flattened; the return value
// reports that so callers can emit a trace annotation.
func (e *StreetEdge) SetProfile(p *Profile) bool {
	e.profile = p
	e.flattened = p.Len() == 2
	return e.flattened
}

// IsFlattened reports whether the edge carries a synthesized flat profile.
func (e *StreetEdge) IsFlattened() bool { return e.flattened }

// IsSlopeOverride reports whether slope handling is overridden for this edge.
func (e *StreetEdge) IsSlopeOverride() bool { return e.slopeOverride }

// SetSlopeOverride marks the edge as slope-overridden.
func (e *StreetEdge) SetSlopeOverride(v bool) { e.slopeOverride = v }

// Profile is a piecewise-linear distance-along-edge to elevation function.
// Dist and Elev are parallel slices in meters; Dist is non-decreasing,
// starts at 0 and ends at (approximately) the edge length.
type Profile struct {
	Dist []float64
	Elev []float64
}

// Len returns the number of samples.
func (p *Profile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Dist)
}

// FirstElev returns the elevation at the start of the edge.
func (p *Profile) FirstElev() float64 { return p.Elev[0] }

// LastElev returns the elevation at the end of the edge.
func (p *Profile) LastElev() float64 { return p.Elev[len(p.Elev)-1] }
