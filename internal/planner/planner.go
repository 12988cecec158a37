package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meteoplan/internal/model"
	"meteoplan/internal/opt"
	"meteoplan/internal/store"
)

// Source is the part of store.Store the planner reads from.
type Source interface {
	ListLocations(ctx context.Context) ([]string, error)
	ReadingsFor(ctx context.Context, location string, month int) ([]model.Reading, error)
	AverageHumidity(ctx context.Context, month int) ([]model.MonthlyAverage, error)
	GetSearchParams(ctx context.Context) (model.SearchParams, error)
}

// Config governs planner behaviour.
type Config struct {
	Defaults opt.Params // zero value means opt.DefaultParams()
	Parallel bool       // search first-day subtrees concurrently
	Workers  int        // parallel workers, <= 0 uses GOMAXPROCS
}

// RunObserver is told about every completed search. mode is "sequential" or
// "parallel"; outcome is "ok" or the failure class.
type RunObserver func(mode, outcome string, m opt.Metrics, elapsed time.Duration)

// Planner loads a month of readings and runs the itinerary search over it.
type Planner struct {
	src    Source
	cfg    Config
	logger *zap.Logger

	OnRun RunObserver
}

// New wires a planner. A nil logger discards output.
func New(src Source, cfg Config, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Defaults == (opt.Params{}) {
		cfg.Defaults = opt.DefaultParams()
	}
	return &Planner{src: src, cfg: cfg, logger: logger}
}

// PlanOption customises a single Plan call.
type PlanOption func(*planOptions)

type planOptions struct {
	progress func(model.Improvement)
}

// WithProgress streams every improvement of the search to fn. Searches with a
// progress callback always run sequentially.
func WithProgress(fn func(model.Improvement)) PlanOption {
	return func(o *planOptions) { o.progress = fn }
}

// Params resolves the effective search parameters: configured defaults, then
// stored overrides, then the request overrides. Zero override fields are ignored.
func (p *Planner) Params(ctx context.Context, overrides *model.SearchParams) (opt.Params, error) {
	params := p.cfg.Defaults
	stored, err := p.src.GetSearchParams(ctx)
	switch {
	case err == nil:
		params = merge(params, stored)
	case errors.Is(err, store.ErrNotFound):
	default:
		return opt.Params{}, fmt.Errorf("load search params: %w", err)
	}
	if overrides != nil {
		params = merge(params, *overrides)
	}
	return params, params.Validate()
}

func merge(p opt.Params, o model.SearchParams) opt.Params {
	if o.TotalDays > 0 {
		p.TotalDays = o.TotalDays
	}
	if o.MinConsecutive > 0 {
		p.MinConsecutive = o.MinConsecutive
	}
	if o.MaxOccupancy > 0 {
		p.MaxOccupancy = o.MaxOccupancy
	}
	if o.ChangeCost > 0 {
		p.ChangeCost = o.ChangeCost
	}
	return p
}

func searchParams(p opt.Params) model.SearchParams {
	return model.SearchParams{
		TotalDays:      p.TotalDays,
		MinConsecutive: p.MinConsecutive,
		MaxOccupancy:   p.MaxOccupancy,
		ChangeCost:     p.ChangeCost,
	}
}

// Sites loads the readings of every location for month, in location name
// order, keeping at most the first totalDays of each. Locations without any
// reading in the month are dropped. The kept readings must cover consecutive
// days from a common first day; a gap is reported as opt.ErrMissingReading.
// The returned readings are parallel to the sites.
func (p *Planner) Sites(ctx context.Context, month, totalDays int) ([]opt.Site, [][]model.Reading, error) {
	if err := checkMonth(month); err != nil {
		return nil, nil, err
	}
	names, err := p.src.ListLocations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list locations: %w", err)
	}
	if len(names) == 0 {
		return nil, nil, opt.ErrNoLocations
	}
	var (
		kept     []string
		readings [][]model.Reading
		start    time.Time
	)
	for _, name := range names {
		rs, err := p.src.ReadingsFor(ctx, name, month)
		if err != nil {
			return nil, nil, fmt.Errorf("readings for %s: %w", name, err)
		}
		if len(rs) == 0 {
			p.logger.Warn("location has no readings, skipped", zap.String("location", name), zap.Int("month", month))
			continue
		}
		if len(rs) > totalDays {
			rs = rs[:totalDays]
		}
		if start.IsZero() || rs[0].Date.Before(start) {
			start = rs[0].Date
		}
		kept = append(kept, name)
		readings = append(readings, rs)
	}
	if len(kept) == 0 {
		return nil, nil, fmt.Errorf("%w: month %d", ErrNoReadings, month)
	}

	sites := make([]opt.Site, len(kept))
	for i, rs := range readings {
		values := make([]float64, len(rs))
		for d, r := range rs {
			want := start.AddDate(0, 0, d).Format(model.DateLayout)
			if r.Day() != want {
				return nil, nil, fmt.Errorf("%w: %s has no reading for %s", opt.ErrMissingReading, kept[i], want)
			}
			values[d] = r.Humidity
		}
		sites[i] = opt.Site{Name: kept[i], Values: values}
	}
	return sites, readings, nil
}

// Plan computes the cheapest itinerary for month.
func (p *Planner) Plan(ctx context.Context, month int, overrides *model.SearchParams, opts ...PlanOption) (model.Plan, error) {
	var o planOptions
	for _, fn := range opts {
		fn(&o)
	}
	if err := checkMonth(month); err != nil {
		return model.Plan{}, err
	}
	params, err := p.Params(ctx, overrides)
	if err != nil {
		return model.Plan{}, err
	}
	sites, readings, err := p.Sites(ctx, month, params.TotalDays)
	if err != nil {
		return model.Plan{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Plan{}, err
	}

	var (
		sol  opt.Solution
		m    opt.Metrics
		mode = "sequential"
	)
	start := time.Now()
	if p.cfg.Parallel && o.progress == nil {
		mode = "parallel"
		sol, m, err = opt.SolveParallel(params, sites, p.cfg.Workers)
	} else {
		var sopts []opt.Option
		if o.progress != nil {
			sopts = append(sopts, opt.WithObserver(func(imp opt.Improvement) {
				o.progress(model.Improvement{Leaf: imp.Leaf, Cost: imp.Solution.Cost, Locations: imp.Solution.Names(sites)})
			}))
		}
		sol, m, err = opt.Solve(params, sites, sopts...)
	}
	elapsed := time.Since(start)
	if p.OnRun != nil {
		p.OnRun(mode, Outcome(err), m, elapsed)
	}
	if err != nil {
		p.logger.Warn("plan search failed", zap.Int("month", month), zap.String("mode", mode), zap.Error(err))
		return model.Plan{}, err
	}
	opt.RecordMetrics(month, mode, m)

	plan := model.Plan{
		ID:     uuid.NewString(),
		Month:  month,
		Params: searchParams(params),
		Steps:  make([]model.Step, len(sol.Sequence)),
		Cost:   sol.Cost,
		Stats: model.PlanStats{
			Nodes:        m.Nodes,
			Leaves:       m.Leaves,
			Improvements: m.Improvements,
			DurationMs:   float64(elapsed.Microseconds()) / 1000,
			Parallel:     mode == "parallel",
		},
		Changes: opt.Changes(sol.Sequence),
	}
	for _, s := range sites {
		plan.Locations = append(plan.Locations, s.Name)
	}
	for d, idx := range sol.Sequence {
		r := readings[idx][d]
		plan.Steps[d] = model.Step{Day: d + 1, Date: r.Day(), Location: sites[idx].Name, Humidity: r.Humidity}
	}
	p.logger.Info("plan computed",
		zap.String("plan_id", plan.ID),
		zap.Int("month", month),
		zap.String("mode", mode),
		zap.Float64("cost", plan.Cost),
		zap.Int("leaves", m.Leaves),
		zap.Duration("elapsed", elapsed),
	)
	return plan, nil
}

// Averages returns the mean humidity of every location for month.
func (p *Planner) Averages(ctx context.Context, month int) ([]model.MonthlyAverage, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	return p.src.AverageHumidity(ctx, month)
}

// Outcome classifies a search error for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, opt.ErrNoFeasibleSequence):
		return "infeasible"
	case errors.Is(err, opt.ErrMissingReading):
		return "missing_reading"
	case errors.Is(err, opt.ErrInvalidParams):
		return "invalid_params"
	case errors.Is(err, opt.ErrNoLocations):
		return "no_locations"
	default:
		return "error"
	}
}

func checkMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return nil
}
