package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/paulmach/orb"

	"elevation_builder/pkg/coverage"
	"elevation_builder/pkg/elevation"
	"elevation_builder/pkg/geoid"
	"elevation_builder/pkg/graph"
	"elevation_builder/pkg/osmele"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	checkOnly := flag.Bool("check", false, "Validate inputs and exit")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: elevate --config <config.yml> [--check]")
		os.Exit(1)
	}

	cfg, err := ReadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}

	start := time.Now()

	// Step 1: Load the street graph.
	log.Println("Loading street graph...")
	g, err := graph.ReadBinary(cfg.GraphIn)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	log.Printf("Graph: %d vertices, %d edges", len(g.Vertices), len(g.Edges()))

	// Step 2: Assemble the coverage factory.
	factory := &coverage.UnifiedFactory{
		DEMDir:     cfg.Coverage.DEMDir,
		GridPaths:  cfg.Coverage.Grids,
		DatumPaths: cfg.Coverage.Datums,
	}
	if cfg.Coverage.SRTMOnline {
		factory.SRTMBound = graphBound(g)
		log.Printf("Remote SRTM fallback enabled over lat [%.4f, %.4f], lng [%.4f, %.4f]",
			factory.SRTMBound.Min.Lat(), factory.SRTMBound.Max.Lat(),
			factory.SRTMBound.Min.Lon(), factory.SRTMBound.Max.Lon())
	}

	// Step 3: Optional geoid correction.
	var geoidCalc geoid.Calculator
	if cfg.GeoidGrid != "" {
		datum, err := coverage.LoadVerticalDatum(cfg.GeoidGrid)
		if err != nil {
			log.Fatalf("Failed to load geoid grid: %v", err)
		}
		geoidCalc = geoid.NewGridCalculator(datum)
		log.Printf("Geoid correction enabled from %s", cfg.GeoidGrid)
	}

	mod := elevation.New(factory, geoidCalc, elevation.Config{
		CacheFile:           cfg.Cache.File,
		ReadCachedProfiles:  cfg.Cache.Read,
		WriteCachedProfiles: cfg.Cache.Write,
		SampleSpacingM:      cfg.SampleSpacingM,
		Workers:             cfg.Workers,
		Timeout:             cfg.TimeoutDuration(),
	})

	if err := mod.CheckInputs(); err != nil {
		log.Fatalf("Input validation failed: %v", err)
	}
	if *checkOnly {
		log.Println("Inputs OK")
		return
	}

	// Step 4: Seed surveyed elevations from OSM ele tags.
	if cfg.OSMFile != "" {
		log.Println("Scanning OSM data for surveyed elevations...")
		f, err := os.Open(cfg.OSMFile)
		if err != nil {
			log.Fatalf("Failed to open OSM file: %v", err)
		}
		points, err := osmele.Parse(context.Background(), f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to parse OSM data: %v", err)
		}
		osmele.Apply(g, points, cfg.OSMMatchRadiusM)
	}

	// Step 5: Run the elevation build.
	if err := mod.Build(g); err != nil {
		log.Fatalf("Elevation build failed: %v", err)
	}

	for _, msg := range g.Annotations() {
		log.Printf("annotation: %s", msg)
	}

	// Step 6: Write the enriched graph.
	log.Printf("Writing graph to %s...", cfg.GraphOut)
	if err := graph.WriteBinary(cfg.GraphOut, g); err != nil {
		log.Fatalf("Failed to write graph: %v", err)
	}

	log.Printf("Done in %s", time.Since(start).Round(time.Millisecond))
}

// graphBound returns the bounding box of all graph vertices.
func graphBound(g *graph.Graph) orb.Bound {
	b := orb.Bound{
		Min: orb.Point{180, 90},
		Max: orb.Point{-180, -90},
	}
	for _, v := range g.Vertices {
		b = b.Extend(v.Point)
	}
	return b
}
