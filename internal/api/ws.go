package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meteoplan/internal/metrics"
	"meteoplan/internal/model"
	"meteoplan/internal/planner"
)

// Plan requests over WebSocket: the client sends
// {"type":"plan","id":"1","payload":{"month":1}} and receives "improved"
// messages while the search runs, then one "result" or "error".

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const wsIdle = 60 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PlanWSHandler handles /v1/plan/ws
func (s *Server) PlanWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()
	metrics.WSSessions.Inc()
	defer metrics.WSSessions.Dec()
	principal := s.getPrincipal(r)

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdle))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsIdle)) })

	write := func(m wsMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(m)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdle))
		switch msg.Type {
		case "ping":
			_ = write(wsMessage{Type: "pong", ID: msg.ID})
		case "plan":
			s.wsPlan(r.Context(), principal, msg, write)
		default:
			_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: payload(Problem{
				Type: "about:blank", Title: "Unknown message type", Status: http.StatusBadRequest, Detail: msg.Type,
			})})
		}
	}
}

func (s *Server) wsPlan(ctx context.Context, principal Principal, msg wsMessage, write func(wsMessage) error) {
	fail := func(status int, title, detail string) {
		_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: payload(Problem{
			Type: "about:blank", Title: title, Status: status, Detail: detail, Instance: "/v1/plan/ws",
		})})
	}

	var req model.PlanRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		fail(http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := validatePlanRequest(&req); err != nil {
		status, title := problemFor(err)
		fail(status, title, err.Error())
		return
	}
	if req.Params != nil && !principal.IsAdmin() {
		fail(http.StatusForbidden, "Forbidden", errOverridesAdminOnly.Error())
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		fail(http.StatusTooManyRequests, "Too Many Requests", "plan rate limit exceeded")
		return
	}

	plan, err := s.Planner.Plan(ctx, req.Month, req.Params, planner.WithProgress(func(imp model.Improvement) {
		_ = write(wsMessage{Type: "improved", ID: msg.ID, Payload: payload(imp)})
	}))
	if err != nil {
		status, title := problemFor(err)
		fail(status, title, err.Error())
		return
	}
	if err := write(wsMessage{Type: "result", ID: msg.ID, Payload: payload(plan)}); err != nil {
		s.Log.Debug("ws write failed", zap.Error(err))
	}
}

func payload(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
