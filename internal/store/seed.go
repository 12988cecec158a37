package store

import (
	"context"
	"math"
	"time"

	"meteoplan/internal/model"
)

// DemoLocations are the cities of the demo dataset.
var DemoLocations = []string{"Genova", "Milano", "Torino"}

// DemoReadings returns one humidity reading per day of year for every demo
// city. Values are deterministic: a seasonal curve per city plus a short
// repeating daily pattern, rounded to whole percent.
func DemoReadings(year int) []model.Reading {
	base := map[string]float64{"Genova": 68, "Milano": 74, "Torino": 66}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	out := []model.Reading{}
	for ci, city := range DemoLocations {
		for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
			doy := float64(d.YearDay())
			season := 12 * math.Cos(2*math.Pi*(doy+float64(ci)*20)/365)
			daily := float64((d.YearDay()*7+ci*13)%17) - 8
			h := math.Round(base[city] + season + daily)
			out = append(out, model.Reading{Location: city, Date: d, Humidity: math.Max(0, math.Min(100, h))})
		}
	}
	return out
}

// SeedDemo loads the demo dataset for year into s.
func SeedDemo(ctx context.Context, s Store, year int) (int, error) {
	return s.InsertReadings(ctx, DemoReadings(year))
}
