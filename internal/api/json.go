package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"meteoplan/internal/integrations/csvimport"
	"meteoplan/internal/opt"
	"meteoplan/internal/planner"
	"meteoplan/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// problemFor maps domain errors to a status and title.
func problemFor(err error) (int, string) {
	switch {
	case errors.Is(err, planner.ErrInvalidMonth),
		errors.Is(err, opt.ErrInvalidParams),
		errors.Is(err, store.ErrInvalidReading),
		errors.Is(err, csvimport.ErrInvalidRow),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, planner.ErrNoReadings):
		return http.StatusNotFound, "No readings"
	case errors.Is(err, opt.ErrMissingReading):
		return http.StatusUnprocessableEntity, "Missing reading"
	case errors.Is(err, opt.ErrNoFeasibleSequence):
		return http.StatusUnprocessableEntity, "No feasible sequence"
	case errors.Is(err, opt.ErrNoLocations):
		return http.StatusServiceUnavailable, "No locations"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := problemFor(err)
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}
