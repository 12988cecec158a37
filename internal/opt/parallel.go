package opt

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SolveParallel searches the subtree of every first-day site concurrently and
// merges the subtree optima in site order with the same strictly-lower rule
// as Solve, so both return the same solution. workers <= 0 uses GOMAXPROCS.
func SolveParallel(p Params, sites []Site, workers int) (Solution, Metrics, error) {
	if err := prepare(p, sites); err != nil {
		return Solution{}, Metrics{}, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	subs := make([]*searcher, len(sites))
	var g errgroup.Group
	g.SetLimit(workers)
	for first := range sites {
		if !Feasible(p, first, nil) {
			continue
		}
		s := newSearcher(p, sites, p.TotalDays)
		s.partial = append(s.partial, first)
		s.m.Nodes = 1
		subs[first] = s
		g.Go(func() error {
			s.search()
			return s.err
		})
	}
	if err := g.Wait(); err != nil {
		return Solution{}, Metrics{}, err
	}

	var (
		m    Metrics
		best *searcher
	)
	for _, s := range subs {
		if s == nil {
			continue
		}
		m.add(s.m)
		if !s.found {
			continue
		}
		if best == nil || s.bestCost < best.bestCost {
			best = s
		}
	}
	if best == nil {
		return Solution{}, m, ErrNoFeasibleSequence
	}
	return best.solution(), m, nil
}
