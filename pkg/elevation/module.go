package elevation

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"elevation_builder/pkg/coverage"
	"elevation_builder/pkg/geoid"
	"elevation_builder/pkg/graph"
)

// CoverageFactory prepares elevation data and hands out coverage handles.
// Fetch runs once before sampling starts. Evaluator is called once per
// worker and must return a handle that is safe to use from that worker
// alone. CheckInputs validates configured inputs without loading them.
type CoverageFactory interface {
	Fetch() error
	Evaluator() (coverage.Evaluator, error)
	CheckInputs() error
}

// Config controls a single elevation build.
type Config struct {
	// CacheFile is the path of the profile cache, read and written
	// according to the two flags below.
	CacheFile           string
	ReadCachedProfiles  bool
	WriteCachedProfiles bool

	// SampleSpacingM is the along-edge sample spacing in meters.
	// Zero means DefaultSampleSpacingM.
	SampleSpacingM float64

	// Workers caps sampling parallelism. Zero means GOMAXPROCS.
	Workers int

	// Timeout bounds the sampling phase. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Module assigns an elevation profile to every street edge of a graph:
// first by sampling raster coverage data in parallel, then by propagating
// known elevations into the areas the rasters missed.
type Module struct {
	factory   CoverageFactory
	geoidCalc geoid.Calculator // nil disables ellipsoid-to-geoid correction
	cfg       Config
}

func New(factory CoverageFactory, geoidCalc geoid.Calculator, cfg Config) *Module {
	if cfg.SampleSpacingM <= 0 {
		cfg.SampleSpacingM = DefaultSampleSpacingM
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Module{factory: factory, geoidCalc: geoidCalc, cfg: cfg}
}

// Provides names the build stage this module contributes.
func (m *Module) Provides() []string { return []string{"elevation"} }

// Prerequisites names the build stages that must run first.
func (m *Module) Prerequisites() []string { return []string{"streets"} }

// CheckInputs validates configured data sources before the build starts.
func (m *Module) CheckInputs() error {
	if err := m.factory.CheckInputs(); err != nil {
		return err
	}
	if m.cfg.ReadCachedProfiles {
		if _, err := os.Stat(m.cfg.CacheFile); err == nil {
			log.Printf("Found cached elevation profiles at %s", m.cfg.CacheFile)
		} else {
			log.Printf("Warning: no cached elevation profiles at %s, the first build will be slower", m.cfg.CacheFile)
		}
	} else {
		log.Printf("Warning: not using cached elevation profiles, sampling every edge could take a while")
	}
	return nil
}

// runStats holds the per-run sample counters. Shared across workers.
type runStats struct {
	pointsEvaluated atomic.Int64
	pointsFailed    atomic.Int64
	edgesProcessed  atomic.Int64
}

// Build samples elevations for every edge of the graph and fills the gaps
// by propagation. Sampling failures are not fatal; edges the rasters cannot
// cover end up with interpolated or flat profiles.
func (m *Module) Build(g *graph.Graph) error {
	log.Printf("Fetching and preparing elevation data...")
	if err := m.factory.Fetch(); err != nil {
		return fmt.Errorf("prepare elevation data: %w", err)
	}

	var cache *ProfileCache
	if m.cfg.ReadCachedProfiles {
		c, err := ReadProfileCache(m.cfg.CacheFile)
		if err != nil {
			log.Printf("Warning: %s", g.AddAnnotation(fmt.Sprintf("could not read cached elevation profiles: %s", err)))
		} else {
			log.Printf("Loaded %d cached elevation profiles", c.Len())
			cache = c
		}
	}

	var geoidCache *geoid.Cache
	if m.geoidCalc != nil {
		geoidCache = geoid.NewCache(m.geoidCalc)
	}

	edges := g.Edges()
	log.Printf("Setting elevation profiles on %d street edges...", len(edges))

	stats := &runStats{}
	var mu sync.Mutex
	edgesWithElevation := make([]*graph.StreetEdge, 0, len(edges))

	pool := &coordinator{
		factory: m.factory,
		workers: m.cfg.Workers,
		timeout: m.cfg.Timeout,
		evals:   make(map[int]coverage.Evaluator),
	}
	pool.run(edges, func(ev coverage.Evaluator, e *graph.StreetEdge) {
		s := sampler{eval: ev, geoid: geoidCache, spacing: m.cfg.SampleSpacingM, stats: stats}
		s.processEdge(g, e, cache)
		if e.Profile() != nil && !e.IsFlattened() {
			mu.Lock()
			edgesWithElevation = append(edgesWithElevation, e)
			mu.Unlock()
		}
		if n := stats.edgesProcessed.Add(1); n%50000 == 0 {
			log.Printf("set elevation on %d/%d edges", n, len(edges))
		}
	})

	evaluated := stats.pointsEvaluated.Load()
	failed := stats.pointsFailed.Load()
	if total := evaluated + failed; total > 0 {
		if pct := float64(failed) / float64(total) * 100; pct > 50 {
			g.AddAnnotation(fmt.Sprintf("elevation lookups failed at %d of %d sample points (%.0f%%)", failed, total, pct))
			log.Printf("Warning: elevation is missing at %d of %d sample points (%.0f%%). The coverage data may be for the wrong region or in an unexpected projection.", failed, total, pct)
		}
	}

	if m.cfg.WriteCachedProfiles {
		out := NewProfileCache()
		for _, e := range edgesWithElevation {
			out.Put(CacheKey(e.Geometry), e.Profile())
		}
		if err := WriteProfileCache(m.cfg.CacheFile, out); err != nil {
			log.Printf("Error: %s", g.AddAnnotation(fmt.Sprintf("failed to write cached elevation profiles: %s", err)))
		} else {
			log.Printf("Wrote %d elevation profiles to %s", out.Len(), m.cfg.CacheFile)
		}
	}

	log.Printf("Calculating missing elevations...")
	assignMissingElevations(g, edgesWithElevation)

	return nil
}
