package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"meteoplan/internal/opt"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlanRuns counts itinerary searches by mode and outcome
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_runs_total", Help: "Itinerary searches by mode and outcome."},
		[]string{"mode", "outcome"},
	)
	// PlanSearchSeconds tracks search wall time
	PlanSearchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "plan_search_seconds", Help: "Itinerary search duration in seconds.", Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30}},
		[]string{"mode"},
	)
	// PlanSearchLeaves tracks how many complete sequences a search evaluated
	PlanSearchLeaves = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_search_leaves", Help: "Complete sequences evaluated per search.", Buckets: prometheus.ExponentialBuckets(1, 4, 12)},
	)
	// CacheLookups counts read-through cache lookups by kind and result
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_cache_lookups_total", Help: "Reading cache lookups by kind and result."},
		[]string{"kind", "result"},
	)
	// WSSessions is the number of open plan websocket sessions
	WSSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "plan_ws_sessions", Help: "Open plan websocket sessions."},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlanRuns)
		Registry.MustRegister(PlanSearchSeconds)
		Registry.MustRegister(PlanSearchLeaves)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(WSSessions)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// ObservePlan records one search; it matches planner.RunObserver.
func ObservePlan(mode, outcome string, m opt.Metrics, elapsed time.Duration) {
	PlanRuns.WithLabelValues(mode, outcome).Inc()
	PlanSearchSeconds.WithLabelValues(mode).Observe(elapsed.Seconds())
	if outcome == "ok" {
		PlanSearchLeaves.Observe(float64(m.Leaves))
	}
}

// ObserveCache records one cache lookup; it matches store.Cached.Observe.
func ObserveCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(kind, result).Inc()
}
