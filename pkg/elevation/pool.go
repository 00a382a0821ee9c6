package elevation

import (
	"log"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"elevation_builder/pkg/coverage"
	"elevation_builder/pkg/graph"
)

// DefaultTimeout is the advisory cap on the whole sampling phase. Hitting
// it abandons the remaining edges and lets propagation fill the gaps.
const DefaultTimeout = 24 * time.Hour

// coordinator fans edge sampling out over a fixed set of workers. Each
// worker gets its own private coverage handle so the interpolation machinery
// is never shared across goroutines.
type coordinator struct {
	factory CoverageFactory
	workers int
	timeout time.Duration

	mu    sync.Mutex
	evals map[int]coverage.Evaluator
}

// evaluator returns the worker's coverage handle, creating it on first use.
// The warm-up query runs while the creation lock is held so any one-time
// initialization inside the coverage stack happens on exactly one goroutine.
func (c *coordinator) evaluator(worker int, warmup orb.Point) (coverage.Evaluator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev, ok := c.evals[worker]; ok {
		return ev, nil
	}
	ev, err := c.factory.Evaluator()
	if err != nil {
		return nil, err
	}
	ev.ElevationAt(warmup[0], warmup[1]) // warm-up, result discarded
	c.evals[worker] = ev
	return ev, nil
}

// run processes every edge with bounded parallelism and returns when all
// edges are done or the timeout elapses. A timeout is logged, not fatal;
// abandoned edges simply keep their unset profile. Even on timeout, run
// returns only after every in-flight worker has finished its current edge,
// so no sampling mutation can overlap whatever the caller does next.
func (c *coordinator) run(edges []*graph.StreetEdge, process func(ev coverage.Evaluator, e *graph.StreetEdge)) {
	jobs := make(chan *graph.StreetEdge)
	quit := make(chan struct{})
	var wg sync.WaitGroup

	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			var ev coverage.Evaluator
			for e := range jobs {
				if ev == nil {
					var err error
					ev, err = c.evaluator(worker, e.Geometry[0])
					if err != nil {
						log.Printf("worker %d: create coverage handle: %v", worker, err)
						continue
					}
				}
				process(ev, e)
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
	feed:
		for _, e := range edges {
			select {
			case jobs <- e:
			case <-quit:
				break feed
			}
		}
		close(jobs)
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(c.timeout):
		close(quit)
		log.Printf("Warning: elevation sampling timed out after %s, continuing with the edges already processed", c.timeout)
		<-done
	}
}
