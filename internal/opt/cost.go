package opt

import "fmt"

// Cost sums the reading of the occupied site for every day of seq and adds
// ChangeCost for every pair of consecutive days spent at different sites.
// seq may be shorter than TotalDays. A day without a reading is an error.
func Cost(p Params, sites []Site, seq []int) (float64, error) {
	total := 0.0
	for day, idx := range seq {
		if idx < 0 || idx >= len(sites) {
			return 0, fmt.Errorf("day %d: site index %d out of range", day+1, idx)
		}
		v := sites[idx].Values
		if day >= len(v) {
			return 0, fmt.Errorf("%w: %s has no reading for day %d", ErrMissingReading, sites[idx].Name, day+1)
		}
		total += v[day]
	}
	total += p.ChangeCost * float64(Changes(seq))
	return total, nil
}

// Changes counts the day boundaries where the occupied site differs from the previous day.
func Changes(seq []int) int {
	n := 0
	for d := 1; d < len(seq); d++ {
		if seq[d] != seq[d-1] {
			n++
		}
	}
	return n
}
