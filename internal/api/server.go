// Package api implements HTTP handlers and helpers for the meteoplan service.
package api

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meteoplan/internal/auth"
	"meteoplan/internal/config"
	"meteoplan/internal/integrations"
	"meteoplan/internal/integrations/csvimport"
	"meteoplan/internal/metrics"
	"meteoplan/internal/planner"
	"meteoplan/internal/store"
)

type Server struct {
	Store   store.Store
	Planner *planner.Planner
	Auth    *auth.Verifier
	Log     *zap.Logger

	cfg     *config.Config
	backend string
	cached  bool
	limiter *rate.Limiter
}

// NewServer opens the store selected by cfg (Postgres when DatabaseURL is set,
// SQLite when SQLitePath is set, memory otherwise), seeds it, optionally puts
// the Redis cache in front and wires the planner.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st, backend, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := seed(ctx, cfg, st, logger); err != nil {
		_ = st.Close()
		return nil, err
	}
	cached := false
	if cfg.RedisURL != "" {
		rdb, err := store.NewRedisClient(cfg.RedisURL)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		c := store.NewCached(st, rdb, cfg.CacheTTL())
		c.Observe = metrics.ObserveCache
		st, cached = c, true
	}

	pl := planner.New(st, planner.Config{
		Defaults: cfg.Params(),
		Parallel: cfg.Parallel,
		Workers:  cfg.Workers,
	}, logger.Named("planner"))
	pl.OnRun = metrics.ObservePlan

	s := &Server{
		Store:   st,
		Planner: pl,
		Auth:    auth.NewVerifier(cfg.AuthMode, cfg.AuthHMACSecret),
		Log:     logger,
		cfg:     cfg,
		backend: backend,
		cached:  cached,
	}
	if cfg.RateRPS > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), burst)
	}
	logger.Info("server ready",
		zap.String("store", backend),
		zap.Bool("cache", cached),
		zap.Bool("parallel", cfg.Parallel),
	)
	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, string, error) {
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		sp, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("postgres: %w", err)
		}
		if err := sp.Migrate(ctx); err != nil {
			_ = sp.Close()
			return nil, "", fmt.Errorf("postgres migrate: %w", err)
		}
		return sp, "postgres", nil
	case strings.TrimSpace(cfg.SQLitePath) != "":
		sl, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, "", fmt.Errorf("sqlite: %w", err)
		}
		if err := sl.Migrate(ctx); err != nil {
			_ = sl.Close()
			return nil, "", fmt.Errorf("sqlite migrate: %w", err)
		}
		return sl, "sqlite", nil
	default:
		return store.NewMemory(), "memory", nil
	}
}

// seed imports SeedCSV when configured, otherwise loads the demo dataset
// into an empty store when SeedDemo is on.
func seed(ctx context.Context, cfg *config.Config, st store.Store, logger *zap.Logger) error {
	if cfg.SeedCSV != "" {
		n, err := integrations.Import(ctx, csvimport.File{Path: cfg.SeedCSV}, st)
		if err != nil {
			return err
		}
		logger.Info("imported readings", zap.String("source", cfg.SeedCSV), zap.Int("count", n))
		return nil
	}
	if !cfg.SeedDemo {
		return nil
	}
	locs, err := st.ListLocations(ctx)
	if err != nil {
		return err
	}
	if len(locs) > 0 {
		return nil
	}
	n, err := store.SeedDemo(ctx, st, cfg.SeedYear)
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	logger.Info("seeded demo readings", zap.Int("year", cfg.SeedYear), zap.Int("count", n))
	return nil
}

// Close releases the store.
func (s *Server) Close() error { return s.Store.Close() }
