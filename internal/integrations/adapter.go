package integrations

import (
	"context"
	"fmt"

	"meteoplan/internal/model"
)

// ReadingSource is an external feed of humidity readings.
type ReadingSource interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Reading, error)
}

// ReadingSink stores imported readings.
type ReadingSink interface {
	InsertReadings(ctx context.Context, readings []model.Reading) (int, error)
}

// Import copies every reading of src into dst and returns how many were written.
func Import(ctx context.Context, src ReadingSource, dst ReadingSink) (int, error) {
	readings, err := src.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: fetch: %w", src.Name(), err)
	}
	n, err := dst.InsertReadings(ctx, readings)
	if err != nil {
		return n, fmt.Errorf("%s: insert: %w", src.Name(), err)
	}
	return n, nil
}
