package api

import (
	"net/http"
	"time"

	"meteoplan/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"addr":       s.cfg.Addr,
			"store":      s.backend,
			"cache":      s.cached,
			"auth_mode":  s.Auth.Mode,
			"rate_rps":   s.cfg.RateRPS,
			"rate_burst": s.cfg.RateBurst,
			"parallel":   s.cfg.Parallel,
			"workers":    s.cfg.Workers,
			"params":     s.cfg.Params(),
		},
	}
	writeJSON(w, http.StatusOK, info)
}
