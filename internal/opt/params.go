package opt

import "fmt"

// Params configures the itinerary search.
type Params struct {
	TotalDays      int     // length of the sequence to build
	MinConsecutive int     // days a location must be held before it may be left
	MaxOccupancy   int     // total days a location may be occupied, runs need not be contiguous
	ChangeCost     float64 // penalty per change of location between consecutive days
}

// DefaultParams returns the reference parameters: 15 days, dwell 3, cap 6, change cost 100.
func DefaultParams() Params {
	return Params{TotalDays: 15, MinConsecutive: 3, MaxOccupancy: 6, ChangeCost: 100}
}

// Validate reports whether the parameters describe a searchable problem.
func (p Params) Validate() error {
	if p.TotalDays <= 0 {
		return fmt.Errorf("%w: totalDays must be > 0, got %d", ErrInvalidParams, p.TotalDays)
	}
	if p.MinConsecutive <= 0 {
		return fmt.Errorf("%w: minConsecutive must be > 0, got %d", ErrInvalidParams, p.MinConsecutive)
	}
	if p.MaxOccupancy <= 0 {
		return fmt.Errorf("%w: maxOccupancy must be > 0, got %d", ErrInvalidParams, p.MaxOccupancy)
	}
	if p.ChangeCost < 0 {
		return fmt.Errorf("%w: changeCost must be >= 0, got %v", ErrInvalidParams, p.ChangeCost)
	}
	return nil
}

// Site is a candidate location with its daily readings for the active period.
// Values[d] is the reading of day d+1.
type Site struct {
	Name   string
	Values []float64
}
