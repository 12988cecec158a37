package planner

import "errors"

var (
	// ErrNoReadings means no location has a reading in the requested month.
	ErrNoReadings = errors.New("no readings for period")
	// ErrInvalidMonth means the month is outside 1..12.
	ErrInvalidMonth = errors.New("invalid month")
)
