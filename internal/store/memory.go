package store

import (
	"context"
	"sort"
	"sync"

	"meteoplan/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu       sync.Mutex
	readings map[string]map[string]model.Reading // location -> day -> reading
	params   *model.SearchParams
}

func NewMemory() *Memory {
	return &Memory{readings: map[string]map[string]model.Reading{}}
}

func (m *Memory) ListLocations(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.readings))
	for loc := range m.readings {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) ReadingsFor(ctx context.Context, location string, month int) ([]model.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Reading{}
	for _, r := range m.readings[location] {
		if int(r.Date.Month()) == month {
			out = append(out, r)
		}
	}
	sortByDate(out)
	return out, nil
}

func (m *Memory) AllReadings(ctx context.Context) ([]model.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Reading{}
	for _, days := range m.readings {
		for _, r := range days {
			out = append(out, r)
		}
	}
	sortByDate(out)
	return out, nil
}

func (m *Memory) AverageHumidity(ctx context.Context, month int) ([]model.MonthlyAverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.MonthlyAverage{}
	for loc, days := range m.readings {
		sum, n := 0.0, 0
		for _, r := range days {
			if int(r.Date.Month()) == month {
				sum += r.Humidity
				n++
			}
		}
		if n > 0 {
			out = append(out, model.MonthlyAverage{Location: loc, Month: month, Average: sum / float64(n), Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out, nil
}

func (m *Memory) InsertReadings(ctx context.Context, readings []model.Reading) (int, error) {
	for _, r := range readings {
		if err := validateReading(r); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range readings {
		days := m.readings[r.Location]
		if days == nil {
			days = map[string]model.Reading{}
			m.readings[r.Location] = days
		}
		days[r.Day()] = r
	}
	return len(readings), nil
}

func (m *Memory) GetSearchParams(ctx context.Context) (model.SearchParams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.params == nil {
		return model.SearchParams{}, ErrNotFound
	}
	return *m.params, nil
}

func (m *Memory) SaveSearchParams(ctx context.Context, p model.SearchParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = &p
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
func (m *Memory) Close() error                   { return nil }

func sortByDate(rs []model.Reading) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].Date.Equal(rs[j].Date) {
			return rs[i].Date.Before(rs[j].Date)
		}
		return rs[i].Location < rs[j].Location
	})
}
