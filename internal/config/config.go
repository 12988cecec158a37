// Package config defines service configuration and its layered loading.
package config

import (
	"fmt"
	"time"

	"meteoplan/internal/opt"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DatabaseURL selects the Postgres store when set.
	DatabaseURL string `koanf:"database_url"`

	// SQLitePath selects the embedded SQLite store when set and DatabaseURL is empty.
	SQLitePath string `koanf:"sqlite_path"`

	// RedisURL enables the read-through cache, e.g. redis://localhost:6379/0.
	RedisURL        string `koanf:"redis_url"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	// RateRPS and RateBurst bound the plan endpoints; RateRPS 0 disables limiting.
	RateRPS   float64 `koanf:"rate_rps"`
	RateBurst int     `koanf:"rate_burst"`

	// SeedCSV is imported at start-up when set.
	SeedCSV string `koanf:"seed_csv"`
	// SeedDemo loads the demo dataset for SeedYear into an empty store.
	SeedDemo bool `koanf:"seed_demo"`
	SeedYear int  `koanf:"seed_year"`

	// Default search parameters.
	TotalDays      int     `koanf:"total_days"`
	MinConsecutive int     `koanf:"min_consecutive"`
	MaxOccupancy   int     `koanf:"max_occupancy"`
	ChangeCost     float64 `koanf:"change_cost"`

	// Parallel searches first-day subtrees concurrently with Workers goroutines.
	Parallel bool `koanf:"parallel"`
	Workers  int  `koanf:"workers"`

	// AuthMode is dev (role in the bearer token or X-Role header) or hmac.
	AuthMode       string `koanf:"auth_mode"`
	AuthHMACSecret string `koanf:"auth_hmac_secret"`
}

// New returns a Config holding the defaults.
func New() *Config {
	p := opt.DefaultParams()
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		CacheTTLSeconds: 300,
		RateRPS:         5,
		RateBurst:       10,
		SeedDemo:        true,
		SeedYear:        2013,
		TotalDays:       p.TotalDays,
		MinConsecutive:  p.MinConsecutive,
		MaxOccupancy:    p.MaxOccupancy,
		ChangeCost:      p.ChangeCost,
		AuthMode:        "dev",
	}
}

// Params returns the default search parameters.
func (c *Config) Params() opt.Params {
	return opt.Params{
		TotalDays:      c.TotalDays,
		MinConsecutive: c.MinConsecutive,
		MaxOccupancy:   c.MaxOccupancy,
		ChangeCost:     c.ChangeCost,
	}
}

// CacheTTL is the Redis entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks every field and wraps failures with ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warn" && c.LogLevel != "error":
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache_ttl_seconds must be >= 0", ErrInvalidConfig)
	case c.RateRPS < 0 || c.RateBurst < 0:
		return fmt.Errorf("%w: rate limits must be >= 0", ErrInvalidConfig)
	case c.SeedYear < 1:
		return fmt.Errorf("%w: seed_year must be > 0", ErrInvalidConfig)
	case c.TotalDays > 31:
		return fmt.Errorf("%w: total_days must be <= 31", ErrInvalidConfig)
	case c.AuthMode != "dev" && c.AuthMode != "hmac":
		return fmt.Errorf("%w: auth_mode %q", ErrInvalidConfig, c.AuthMode)
	case c.AuthMode == "hmac" && c.AuthHMACSecret == "":
		return fmt.Errorf("%w: auth_hmac_secret required in hmac mode", ErrInvalidConfig)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
