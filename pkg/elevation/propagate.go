package elevation

import (
	"container/heap"
	"fmt"
	"log"
	"math"

	"elevation_builder/pkg/graph"
)

// propagationCapM bounds how far a missing elevation is interpolated. Past
// the cap a vertex just inherits the elevation of its chain's seed.
const propagationCapM = 2000.0

// repairState is one node of the propagation search. States live in an
// arena and refer to their predecessor by index, so back-chains stay valid
// while the arena grows and the whole search is freed in one piece.
type repairState struct {
	edge        *graph.StreetEdge // edge taken to reach vertex, nil at a seed
	parent      int32             // arena index of the predecessor, -1 at a seed
	vertex      *graph.Vertex
	distM       float64 // cumulative distance from the seed
	initialElev float64 // elevation at the seed
}

type stateHeapEntry struct {
	idx   int32
	distM float64
}

// stateHeap is a min-heap of arena indices ordered by cumulative distance.
type stateHeap []stateHeapEntry

func (h stateHeap) Len() int           { return len(h) }
func (h stateHeap) Less(i, j int) bool { return h[i].distM < h[j].distM }
func (h stateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *stateHeap) Push(x any)        { *h = append(*h, x.(stateHeapEntry)) }
func (h *stateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// assignMissingElevations fills in elevations for vertices the sampler left
// unresolved, then synthesizes flat profiles for the edges that still lack
// one. Runs single-threaded after all sampling has settled.
//
// The search grows chains outward from every vertex with a known elevation.
// When a chain touches a second known vertex, every vertex on the chain gets
// the distance-weighted average of the two endpoint elevations. A vertex
// that has been expanded once never pushes again, but later chains may still
// use it to reach a terminus; without that, two frontiers meeting in the
// middle of an unknown stretch would block each other for good.
func assignMissingElevations(g *graph.Graph, edgesWithElevation []*graph.StreetEdge) {
	elevations := g.KnownElevations()

	var arena []repairState
	h := &stateHeap{}

	push := func(st repairState) {
		arena = append(arena, st)
		heap.Push(h, stateHeapEntry{idx: int32(len(arena) - 1), distM: st.distM})
	}

	// Seed from the endpoints of every profiled edge plus the vertices
	// with surveyed elevations, then grow chains from all of them.
	for _, e := range edgesWithElevation {
		p := e.Profile()
		if _, ok := elevations[e.From]; !ok {
			elevations[e.From] = p.FirstElev()
		}
		if _, ok := elevations[e.To]; !ok {
			elevations[e.To] = p.LastElev()
		}
	}
	for v, elev := range elevations {
		push(repairState{parent: -1, vertex: v, initialElev: elev})
	}

	closed := make(map[*graph.Vertex]bool)

	for h.Len() > 0 {
		idx := heap.Pop(h).(stateHeapEntry).idx
		state := arena[idx]

		if state.parent >= 0 {
			if _, assigned := elevations[state.vertex]; assigned {
				continue
			}
		}
		reopened := closed[state.vertex]
		closed[state.vertex] = true

		var prevVertex *graph.Vertex
		if state.parent >= 0 {
			prevVertex = arena[state.parent].vertex
		}

		bestDist := math.MaxFloat64
		bestElev := 0.0

		relax := func(e *graph.StreetEdge, far *graph.Vertex) {
			if far == prevVertex {
				return
			}
			if far == state.vertex {
				return
			}
			if elev, ok := elevations[far]; ok {
				if e.LengthM < bestDist {
					bestDist = e.LengthM
					bestElev = elev
				}
			} else if !reopened {
				push(repairState{
					edge:        e,
					parent:      idx,
					vertex:      far,
					distM:       state.distM + e.LengthM,
					initialElev: state.initialElev,
				})
			}
		}
		for _, e := range state.vertex.Outgoing {
			relax(e, e.To)
		}
		for _, e := range state.vertex.Incoming {
			relax(e, e.From)
		}

		if bestDist == math.MaxFloat64 && state.distM > propagationCapM {
			log.Printf("Hit elevation propagation limit at vertex %d, %.0fm from the closest point of known elevation", state.vertex.ID, state.distM)
			bestDist = state.distM
			bestElev = state.initialElev
		}

		if bestDist == math.MaxFloat64 {
			continue
		}

		// Walk the chain back toward the seed, interpolating between the
		// terminus elevation and the seed elevation by distance.
		totalDist := bestDist + state.distM
		cur := state
		for {
			if totalDist == 0 {
				elevations[cur.vertex] = bestElev
			} else {
				elevations[cur.vertex] = (bestElev*cur.distM + cur.initialElev*bestDist) / totalDist
			}
			if cur.parent < 0 {
				break
			}
			bestDist += cur.edge.LengthM
			cur = arena[cur.parent]
			if _, ok := elevations[cur.vertex]; ok {
				break
			}
		}
	}

	flattenRemaining(g, elevations)
}

// flattenRemaining gives every edge without a usable profile a two-sample
// flat one built from its endpoint elevations, and warns about endpoints
// that stayed unresolved. Degenerate 2-point profiles are replaced too, so
// they stay consistent with the elevations propagated to their neighbors.
func flattenRemaining(g *graph.Graph, elevations map[*graph.Vertex]float64) {
	for _, e := range g.Edges() {
		fromElev, fromOK := elevations[e.From]
		toElev, toOK := elevations[e.To]
		if !fromOK || !toOK {
			if !e.IsFlattened() && !e.IsSlopeOverride() {
				g.AddAnnotation(fmt.Sprintf("Unexpectedly missing elevation for edge %d->%d", e.From.ID, e.To.ID))
			}
			continue
		}
		if e.Profile().Len() > 2 {
			continue
		}
		setEdgeProfile(g, e, &graph.Profile{
			Dist: []float64{0, e.LengthM},
			Elev: []float64{fromElev, toElev},
		})
	}
}
