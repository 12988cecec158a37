package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"meteoplan/internal/model"
)

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Cached is a read-through Redis cache in front of another Store. Redis
// errors are never fatal: lookups fall back to the backing store.
type Cached struct {
	Store
	rdb *redis.Client
	ttl time.Duration

	// Observe, when set, is told about every cache lookup.
	Observe func(kind string, hit bool)
}

// NewCached wraps s. ttl <= 0 keeps entries until they are invalidated.
func NewCached(s Store, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{Store: s, rdb: rdb, ttl: ttl}
}

func (c *Cached) ListLocations(ctx context.Context) ([]string, error) {
	var out []string
	err := c.through(ctx, "locations", locationsKey, &out, func() (any, error) {
		return c.Store.ListLocations(ctx)
	})
	return out, err
}

func (c *Cached) ReadingsFor(ctx context.Context, location string, month int) ([]model.Reading, error) {
	var out []model.Reading
	err := c.through(ctx, "readings", readingsKey(location, month), &out, func() (any, error) {
		return c.Store.ReadingsFor(ctx, location, month)
	})
	return out, err
}

func (c *Cached) AverageHumidity(ctx context.Context, month int) ([]model.MonthlyAverage, error) {
	var out []model.MonthlyAverage
	err := c.through(ctx, "averages", averagesKey(month), &out, func() (any, error) {
		return c.Store.AverageHumidity(ctx, month)
	})
	return out, err
}

// InsertReadings writes through and drops every key the new readings can affect.
func (c *Cached) InsertReadings(ctx context.Context, readings []model.Reading) (int, error) {
	n, err := c.Store.InsertReadings(ctx, readings)
	if err != nil {
		return n, err
	}
	keys := map[string]struct{}{locationsKey: {}}
	for _, r := range readings {
		m := int(r.Date.Month())
		keys[readingsKey(r.Location, m)] = struct{}{}
		keys[averagesKey(m)] = struct{}{}
	}
	list := make([]string, 0, len(keys))
	for k := range keys {
		list = append(list, k)
	}
	_ = c.rdb.Del(ctx, list...).Err()
	return n, nil
}

func (c *Cached) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return c.Store.Ping(ctx)
}

func (c *Cached) Close() error {
	rerr := c.rdb.Close()
	if err := c.Store.Close(); err != nil {
		return err
	}
	return rerr
}

// through decodes key into dst, or loads it and stores the JSON encoding.
func (c *Cached) through(ctx context.Context, kind, key string, dst any, load func() (any, error)) error {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil && json.Unmarshal(b, dst) == nil {
		c.observe(kind, true)
		return nil
	}
	c.observe(kind, false)
	v, lerr := load()
	if lerr != nil {
		return lerr
	}
	// skip the write when redis is unreachable
	if err == nil || errors.Is(err, redis.Nil) {
		if enc, merr := json.Marshal(v); merr == nil {
			_ = c.rdb.Set(ctx, key, enc, c.ttl).Err()
		}
	}
	return assign(v, dst)
}

func (c *Cached) observe(kind string, hit bool) {
	if c.Observe != nil {
		c.Observe(kind, hit)
	}
}

func assign(v, dst any) error {
	switch d := dst.(type) {
	case *[]string:
		*d = v.([]string)
	case *[]model.Reading:
		*d = v.([]model.Reading)
	case *[]model.MonthlyAverage:
		*d = v.([]model.MonthlyAverage)
	default:
		return fmt.Errorf("cache: unsupported destination %T", dst)
	}
	return nil
}

const locationsKey = "meteo:locations"

func readingsKey(location string, month int) string {
	return fmt.Sprintf("meteo:readings:%s:%02d", location, month)
}

func averagesKey(month int) string { return fmt.Sprintf("meteo:averages:%02d", month) }
