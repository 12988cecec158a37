package api

import (
	"net/http"
	"strings"

	"meteoplan/internal/auth"
)

type Principal struct {
	Subject string
	Role    string // admin, viewer
}

// getPrincipal extracts the caller role.
// - If Authorization: Bearer is present, uses the configured verifier (dev/hmac).
// - Else, in dev mode only, falls back to the X-Role header (admin when absent).
func (s *Server) getPrincipal(r *http.Request) Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return Principal{Subject: pr.Subject, Role: pr.Role}
		}
	}
	if s.Auth != nil && !s.Auth.Dev() {
		return Principal{}
	}
	role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Role")))
	if role == "" {
		role = auth.RoleAdmin
	}
	return Principal{Subject: "dev", Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == auth.RoleAdmin }

// requireAdmin writes 403 and returns false unless the caller is an admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return false
	}
	return true
}
