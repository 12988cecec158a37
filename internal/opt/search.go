package opt

import "fmt"

// Solution is a complete itinerary: Sequence[d] is the index of the site
// occupied on day d+1.
type Solution struct {
	Sequence []int
	Cost     float64
}

// Names resolves the sequence to site names.
func (s Solution) Names(sites []Site) []string {
	out := make([]string, len(s.Sequence))
	for i, idx := range s.Sequence {
		out[i] = sites[idx].Name
	}
	return out
}

// Metrics describes the explored search tree.
type Metrics struct {
	Nodes        int // feasible appends
	Leaves       int // complete sequences evaluated
	Improvements int // times the best solution was replaced
}

func (m *Metrics) add(o Metrics) {
	m.Nodes += o.Nodes
	m.Leaves += o.Leaves
	m.Improvements += o.Improvements
}

// Improvement is reported each time the search finds a strictly cheaper sequence.
type Improvement struct {
	Leaf     int
	Solution Solution
}

// Option customises a search.
type Option func(*searcher)

// WithObserver registers fn to be called synchronously on every improvement.
func WithObserver(fn func(Improvement)) Option {
	return func(s *searcher) { s.observe = fn }
}

// Solve runs an exhaustive depth-first search over every sequence accepted by
// Feasible and returns the cheapest one. Sites are tried in slice order at
// every depth and only a strictly lower cost replaces the best, so among equal
// optima the first one found wins.
func Solve(p Params, sites []Site, opts ...Option) (Solution, Metrics, error) {
	if err := prepare(p, sites); err != nil {
		return Solution{}, Metrics{}, err
	}
	s := newSearcher(p, sites, p.TotalDays)
	for _, o := range opts {
		o(s)
	}
	s.search()
	return s.result()
}

func prepare(p Params, sites []Site) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(sites) == 0 {
		return ErrNoLocations
	}
	for _, st := range sites {
		if len(st.Values) < p.TotalDays {
			return fmt.Errorf("%w: %s has %d readings, need %d", ErrMissingReading, st.Name, len(st.Values), p.TotalDays)
		}
	}
	return nil
}

// searcher owns the partial sequence and the best-so-far accumulator of one
// (sub)tree traversal.
type searcher struct {
	p       Params
	sites   []Site
	partial []int

	best     []int
	bestCost float64
	found    bool

	m       Metrics
	err     error
	observe func(Improvement)
}

func newSearcher(p Params, sites []Site, depth int) *searcher {
	return &searcher{p: p, sites: sites, partial: make([]int, 0, depth)}
}

func (s *searcher) search() {
	if s.err != nil {
		return
	}
	if len(s.partial) == s.p.TotalDays {
		s.visit()
		return
	}
	for c := range s.sites {
		if !Feasible(s.p, c, s.partial) {
			continue
		}
		s.partial = append(s.partial, c)
		s.m.Nodes++
		s.search()
		s.partial = s.partial[:len(s.partial)-1]
	}
}

func (s *searcher) visit() {
	s.m.Leaves++
	cost, err := Cost(s.p, s.sites, s.partial)
	if err != nil {
		s.err = err
		return
	}
	if s.found && cost >= s.bestCost {
		return
	}
	s.best = append(s.best[:0], s.partial...)
	s.bestCost = cost
	s.found = true
	s.m.Improvements++
	if s.observe != nil {
		s.observe(Improvement{Leaf: s.m.Leaves, Solution: s.solution()})
	}
}

func (s *searcher) solution() Solution {
	return Solution{Sequence: append([]int(nil), s.best...), Cost: s.bestCost}
}

func (s *searcher) result() (Solution, Metrics, error) {
	if s.err != nil {
		return Solution{}, s.m, s.err
	}
	if !s.found {
		return Solution{}, s.m, ErrNoFeasibleSequence
	}
	return s.solution(), s.m, nil
}
