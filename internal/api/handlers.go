package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"meteoplan/internal/exporter"
	"meteoplan/internal/integrations/csvimport"
	"meteoplan/internal/model"
	"meteoplan/internal/opt"
	"meteoplan/internal/store"
)

const maxImportBytes = 10 << 20

// LocationsHandler handles GET /v1/locations
func (s *Server) LocationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	locs, err := s.Store.ListLocations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": locs})
}

// ReadingsHandler handles GET /v1/readings?location=&month=
func (s *Server) ReadingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	loc := strings.TrimSpace(r.URL.Query().Get("location"))
	if loc == "" {
		writeProblem(w, http.StatusBadRequest, "Missing location", "", r.URL.Path)
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rs, err := s.Store.ReadingsFor(r.Context(), loc, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"location": loc, "month": month, "items": rs})
}

// AveragesHandler handles GET /v1/averages?month=
func (s *Server) AveragesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	avg, err := s.Planner.Averages(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "items": avg})
}

// PlanHandler handles POST /v1/plan
func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validatePlanRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Params != nil && !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", errOverridesAdminOnly.Error(), r.URL.Path)
		return
	}
	plan, err := s.Planner.Plan(r.Context(), req.Month, req.Params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PlanExportHandler handles GET /v1/plan/export?month= and returns an xlsx workbook.
func (s *Server) PlanExportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.Planner.Plan(r.Context(), month, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := exporter.WritePlan(&buf, plan); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Export failed", err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="plan-%02d.xlsx"`, month))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// AdminOptimizerConfigHandler handles GET/PUT /v1/admin/optimizer/config
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		overrides, err := s.Store.GetSearchParams(r.Context())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		s.writeOptimizerConfig(w, r, overrides)
	case http.MethodPut:
		var body model.SearchParams
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSearchParams(&body); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.Store.SaveSearchParams(r.Context(), body); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		s.Log.Info("optimizer config updated", zap.Any("overrides", body))
		s.writeOptimizerConfig(w, r, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) writeOptimizerConfig(w http.ResponseWriter, r *http.Request, overrides model.SearchParams) {
	eff, err := s.Planner.Params(r.Context(), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"overrides": overrides,
		"effective": model.SearchParams{
			TotalDays:      eff.TotalDays,
			MinConsecutive: eff.MinConsecutive,
			MaxOccupancy:   eff.MaxOccupancy,
			ChangeCost:     eff.ChangeCost,
		},
	})
}

// AdminImportHandler handles POST /v1/admin/readings/import with a
// location,date,humidity CSV body.
func (s *Server) AdminImportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	readings, err := csvimport.Parse(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.Store.InsertReadings(r.Context(), readings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Log.Info("readings imported", zap.Int("count", n))
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// PlanMetricsHandler handles GET /v1/admin/plan-metrics?month=
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ms := opt.GetMetrics(month)
	items := make([]map[string]any, 0, len(ms))
	for mode, m := range ms {
		items = append(items, map[string]any{
			"mode":         mode,
			"nodes":        m.Nodes,
			"leaves":       m.Leaves,
			"improvements": m.Improvements,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i]["mode"].(string) < items[j]["mode"].(string) })
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
