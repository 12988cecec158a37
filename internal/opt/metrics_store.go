package opt

import "sync"

type key struct {
	Month int
	Mode  string
}

var (
	mu    sync.Mutex
	store = map[key]Metrics{}
)

// RecordMetrics keeps the metrics of the latest search for a month and mode
// ("sequential" or "parallel").
func RecordMetrics(month int, mode string, m Metrics) {
	mu.Lock()
	store[key{Month: month, Mode: mode}] = m
	mu.Unlock()
}

// GetMetrics returns the latest metrics recorded for month, by mode.
func GetMetrics(month int) map[string]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]Metrics{}
	for k, v := range store {
		if k.Month == month {
			out[k.Mode] = v
		}
	}
	return out
}
