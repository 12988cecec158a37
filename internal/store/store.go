package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"meteoplan/internal/model"
)

// Store is the reading source used by the planner and the API server.
type Store interface {
	// Locations
	ListLocations(ctx context.Context) ([]string, error)

	// Readings
	ReadingsFor(ctx context.Context, location string, month int) ([]model.Reading, error)
	AllReadings(ctx context.Context) ([]model.Reading, error)
	AverageHumidity(ctx context.Context, month int) ([]model.MonthlyAverage, error)
	InsertReadings(ctx context.Context, readings []model.Reading) (int, error)

	// Optimizer parameter overrides
	GetSearchParams(ctx context.Context) (model.SearchParams, error)
	SaveSearchParams(ctx context.Context, p model.SearchParams) error

	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidReading = errors.New("invalid reading")
)

func validateReading(r model.Reading) error {
	if r.Location == "" {
		return fmt.Errorf("%w: location is empty", ErrInvalidReading)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is empty for %s", ErrInvalidReading, r.Location)
	}
	if math.IsNaN(r.Humidity) || math.IsInf(r.Humidity, 0) {
		return fmt.Errorf("%w: humidity %v for %s on %s", ErrInvalidReading, r.Humidity, r.Location, r.Day())
	}
	return nil
}
