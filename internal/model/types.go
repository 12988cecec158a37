package model

import "time"

// DateLayout is the wire and storage format of reading dates.
const DateLayout = "2006-01-02"

// Reading is a single daily humidity measurement for a location.
type Reading struct {
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	Humidity float64   `json:"humidity"`
}

// Day returns the date formatted with DateLayout.
func (r Reading) Day() string { return r.Date.Format(DateLayout) }

// MonthlyAverage is the mean humidity of a location over one month.
type MonthlyAverage struct {
	Location string  `json:"location"`
	Month    int     `json:"month"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

// PlanRequest selects the period to plan and optional parameter overrides.
type PlanRequest struct {
	Month  int           `json:"month" validate:"required,min=1,max=12"`
	Params *SearchParams `json:"params,omitempty"`
}

// SearchParams are search parameters; in overrides zero fields are ignored,
// so an override cannot set ChangeCost to 0. Use the configured default for that.
type SearchParams struct {
	TotalDays      int     `json:"totalDays,omitempty" validate:"omitempty,min=1,max=31"`
	MinConsecutive int     `json:"minConsecutive,omitempty" validate:"omitempty,min=1"`
	MaxOccupancy   int     `json:"maxOccupancy,omitempty" validate:"omitempty,min=1"`
	ChangeCost     float64 `json:"changeCost,omitempty" validate:"omitempty,min=0"`
}

// Step is one day of a plan.
type Step struct {
	Day      int     `json:"day"`
	Date     string  `json:"date"`
	Location string  `json:"location"`
	Humidity float64 `json:"humidity"`
}

// PlanStats summarises the search that produced a plan.
type PlanStats struct {
	Nodes        int     `json:"nodes"`
	Leaves       int     `json:"leaves"`
	Improvements int     `json:"improvements"`
	DurationMs   float64 `json:"durationMs"`
	Parallel     bool    `json:"parallel"`
}

// Plan is the lowest-cost day-by-day itinerary for a month.
type Plan struct {
	ID        string       `json:"id"`
	Month     int          `json:"month"`
	Params    SearchParams `json:"params"`
	Locations []string     `json:"locations"`
	Steps     []Step       `json:"steps"`
	Cost      float64      `json:"cost"`
	Changes   int          `json:"changes"`
	Stats     PlanStats    `json:"stats"`
}

// Improvement is a progress event: the best itinerary found so far.
type Improvement struct {
	Leaf      int      `json:"leaf"`
	Cost      float64  `json:"cost"`
	Locations []string `json:"locations"`
}
