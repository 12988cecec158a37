package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meteoplan/internal/metrics"
)

// Routes registers every endpoint and wraps the mux with request observation.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Readings
	mux.HandleFunc("/v1/locations", s.LocationsHandler)
	mux.HandleFunc("/v1/readings", s.ReadingsHandler)
	mux.HandleFunc("/v1/averages", s.AveragesHandler)

	// Planning
	mux.HandleFunc("/v1/plan", s.limit(s.PlanHandler))
	mux.HandleFunc("/v1/plan/export", s.limit(s.PlanExportHandler))
	mux.HandleFunc("/v1/plan/ws", s.PlanWSHandler)

	// Admin
	mux.HandleFunc("/v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/readings/import", s.AdminImportHandler)
	mux.HandleFunc("/v1/admin/plan-metrics", s.PlanMetricsHandler)

	// Health and ops
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug", s.DebugJSON)

	// Docs
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
	mux.HandleFunc("/docs", s.DocsHandler)
	mux.HandleFunc("/swagger", s.SwaggerHandler)

	return s.observe(mux)
}
