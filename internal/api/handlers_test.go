package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xuri/excelize/v2"

	"meteoplan/internal/auth"
	"meteoplan/internal/config"
	"meteoplan/internal/model"
)

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.New()
	cfg.RateRPS = 0
	for _, m := range mutate {
		m(cfg)
	}
	s, err := NewServer(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestLocationsAndReadings(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := do(t, h, http.MethodGet, "/v1/locations", nil)
	if rr.Code != 200 {
		t.Fatalf("locations: %d", rr.Code)
	}
	var locs struct{ Items []string }
	decode(t, rr, &locs)
	if strings.Join(locs.Items, ",") != "Genova,Milano,Torino" {
		t.Fatalf("locations: %v", locs.Items)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id")
	}

	rr = do(t, h, http.MethodGet, "/v1/readings?location=Genova&month=2", nil)
	if rr.Code != 200 {
		t.Fatalf("readings: %d", rr.Code)
	}
	var rs struct{ Items []model.Reading }
	decode(t, rr, &rs)
	if len(rs.Items) != 28 {
		t.Fatalf("february readings: %d", len(rs.Items))
	}
	if rs.Items[0].Day() != "2013-02-01" {
		t.Fatalf("first reading: %s", rs.Items[0].Day())
	}

	for _, path := range []string{"/v1/readings?month=2", "/v1/readings?location=Genova&month=13", "/v1/readings?location=Genova&month=x"} {
		if rr := do(t, h, http.MethodGet, path, nil); rr.Code != 400 {
			t.Fatalf("%s: want 400, got %d", path, rr.Code)
		}
	}
	if rr := do(t, h, http.MethodPost, "/v1/locations", nil); rr.Code != 405 {
		t.Fatalf("post locations: %d", rr.Code)
	}
}

func TestAverages(t *testing.T) {
	h := newTestServer(t).Routes()
	rr := do(t, h, http.MethodGet, "/v1/averages?month=1", nil)
	if rr.Code != 200 {
		t.Fatalf("averages: %d", rr.Code)
	}
	var body struct{ Items []model.MonthlyAverage }
	decode(t, rr, &body)
	if len(body.Items) != 3 || body.Items[0].Count != 31 {
		t.Fatalf("averages: %+v", body.Items)
	}
	if rr := do(t, h, http.MethodGet, "/v1/averages", nil); rr.Code != 400 {
		t.Fatalf("missing month: %d", rr.Code)
	}
}

func TestPlan(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":1}`), "Content-Type", "application/json")
	if rr.Code != 200 {
		t.Fatalf("plan: %d %s", rr.Code, rr.Body.String())
	}
	var plan model.Plan
	decode(t, rr, &plan)
	if len(plan.Steps) != 15 || plan.ID == "" || plan.Month != 1 {
		t.Fatalf("plan: %+v", plan)
	}
	if plan.Params.ChangeCost != 100 {
		t.Fatalf("params: %+v", plan.Params)
	}

	rr = do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":3,"params":{"totalDays":5,"minConsecutive":2}}`))
	if rr.Code != 200 {
		t.Fatalf("plan with params: %d", rr.Code)
	}
	decode(t, rr, &plan)
	if len(plan.Steps) != 5 || plan.Params.MinConsecutive != 2 {
		t.Fatalf("plan with params: %+v", plan)
	}

	cases := []struct {
		body string
		want int
	}{
		{`{"month":0}`, 400},
		{`{"month":13}`, 400},
		{`{"month":1,"params":{"totalDays":40}}`, 400},
		{`{"month":1,"params":{"maxOccupancy":-1}}`, 400},
		{`not json`, 400},
		{`{"month":1,"params":{"totalDays":4,"maxOccupancy":1}}`, 422},
	}
	for _, tc := range cases {
		rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(tc.body))
		if rr.Code != tc.want {
			t.Fatalf("%s: want %d, got %d (%s)", tc.body, tc.want, rr.Code, rr.Body.String())
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%s: content type %q", tc.body, ct)
		}
	}
	if rr := do(t, h, http.MethodGet, "/v1/plan", nil); rr.Code != 405 {
		t.Fatalf("get plan: %d", rr.Code)
	}
}

func TestPlanOverridesRequireAdmin(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Routes())
	defer ts.Close()
	h := ts.Config.Handler

	heavy := `{"month":1,"params":{"totalDays":31,"minConsecutive":1,"maxOccupancy":31}}`
	rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(heavy), "X-Role", "viewer")
	if rr.Code != 403 {
		t.Fatalf("viewer overrides: want 403, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":1}`), "X-Role", "viewer"); rr.Code != 200 {
		t.Fatalf("viewer plan: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":1,"params":{"totalDays":5}}`), "X-Role", "admin"); rr.Code != 200 {
		t.Fatalf("admin overrides: %d", rr.Code)
	}

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/plan/ws"
	c, _, err := websocket.DefaultDialer.Dial(u, http.Header{"X-Role": []string{"viewer"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := c.WriteJSON(wsMessage{Type: "plan", ID: "1", Payload: json.RawMessage(heavy)}); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	var msg wsMessage
	if err := c.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	var p Problem
	_ = json.Unmarshal(msg.Payload, &p)
	if msg.Type != "error" || p.Status != 403 {
		t.Fatalf("ws viewer overrides: %s %s", msg.Type, msg.Payload)
	}
}

func TestPlanWithoutData(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.SeedDemo = false })
	h := s.Routes()

	rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":3}`))
	if rr.Code != 503 {
		t.Fatalf("no locations: want 503, got %d", rr.Code)
	}

	csv := "location,date,humidity\nA,2013-03-01,1\nA,2013-03-02,2\nA,2013-03-03,3\n"
	rr = do(t, h, http.MethodPost, "/v1/admin/readings/import", strings.NewReader(csv), "Content-Type", "text/csv")
	if rr.Code != 200 {
		t.Fatalf("import: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":4,"params":{"totalDays":3}}`))
	if rr.Code != 404 {
		t.Fatalf("no readings: want 404, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":3,"params":{"totalDays":4}}`))
	if rr.Code != 422 {
		t.Fatalf("missing reading: want 422, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":3,"params":{"totalDays":3}}`))
	if rr.Code != 200 {
		t.Fatalf("plan: %d", rr.Code)
	}
	var plan model.Plan
	decode(t, rr, &plan)
	if plan.Cost != 6 {
		t.Fatalf("cost: %v", plan.Cost)
	}
}

func TestAdminImport(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.SeedDemo = false }).Routes()

	rr := do(t, h, http.MethodPost, "/v1/admin/readings/import", strings.NewReader("Asti,2013-05-01,70\nAsti,2013-05-02,71\n"))
	if rr.Code != 200 {
		t.Fatalf("import: %d", rr.Code)
	}
	var body struct{ Imported int }
	decode(t, rr, &body)
	if body.Imported != 2 {
		t.Fatalf("imported: %d", body.Imported)
	}

	if rr := do(t, h, http.MethodPost, "/v1/admin/readings/import", strings.NewReader("Asti,May 1,70\n")); rr.Code != 400 {
		t.Fatalf("bad csv: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v1/admin/readings/import", strings.NewReader("Asti,2013-05-03,NaN\n")); rr.Code != 400 {
		t.Fatalf("nan humidity: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v1/admin/readings/import", strings.NewReader("Asti,2013-05-03,70\n"), "X-Role", "viewer"); rr.Code != 403 {
		t.Fatalf("viewer import: %d", rr.Code)
	}
}

func TestAdminOptimizerConfig(t *testing.T) {
	h := newTestServer(t).Routes()

	if rr := do(t, h, http.MethodGet, "/v1/admin/optimizer/config", nil, "X-Role", "viewer"); rr.Code != 403 {
		t.Fatalf("viewer: %d", rr.Code)
	}

	type cfgBody struct {
		Overrides model.SearchParams
		Effective model.SearchParams
	}
	rr := do(t, h, http.MethodGet, "/v1/admin/optimizer/config", nil)
	if rr.Code != 200 {
		t.Fatalf("get config: %d", rr.Code)
	}
	var got cfgBody
	decode(t, rr, &got)
	if got.Overrides != (model.SearchParams{}) || got.Effective.TotalDays != 15 {
		t.Fatalf("initial config: %+v", got)
	}

	rr = do(t, h, http.MethodPut, "/v1/admin/optimizer/config", strings.NewReader(`{"changeCost":50}`))
	if rr.Code != 200 {
		t.Fatalf("put config: %d %s", rr.Code, rr.Body.String())
	}
	decode(t, rr, &got)
	if got.Overrides.ChangeCost != 50 || got.Effective.ChangeCost != 50 || got.Effective.MaxOccupancy != 6 {
		t.Fatalf("updated config: %+v", got)
	}

	rr = do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":1}`))
	var plan model.Plan
	decode(t, rr, &plan)
	if plan.Params.ChangeCost != 50 {
		t.Fatalf("plan params: %+v", plan.Params)
	}

	if rr := do(t, h, http.MethodPut, "/v1/admin/optimizer/config", strings.NewReader(`{"totalDays":40}`)); rr.Code != 400 {
		t.Fatalf("invalid config: %d", rr.Code)
	}
}

func TestPlanMetrics(t *testing.T) {
	h := newTestServer(t).Routes()
	if rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":6}`)); rr.Code != 200 {
		t.Fatalf("plan: %d", rr.Code)
	}
	rr := do(t, h, http.MethodGet, "/v1/admin/plan-metrics?month=6", nil)
	if rr.Code != 200 {
		t.Fatalf("plan metrics: %d", rr.Code)
	}
	var body struct {
		Items []struct {
			Mode   string
			Leaves int
		}
	}
	decode(t, rr, &body)
	if len(body.Items) == 0 || body.Items[0].Mode != "sequential" || body.Items[0].Leaves == 0 {
		t.Fatalf("plan metrics: %+v", body.Items)
	}
	if rr := do(t, h, http.MethodGet, "/v1/admin/plan-metrics", nil); rr.Code != 400 {
		t.Fatalf("missing month: %d", rr.Code)
	}
}

func TestPlanExport(t *testing.T) {
	h := newTestServer(t).Routes()
	rr := do(t, h, http.MethodGet, "/v1/plan/export?month=1", nil)
	if rr.Code != 200 {
		t.Fatalf("export: %d %s", rr.Code, rr.Body.String())
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "plan-01.xlsx") {
		t.Fatalf("content disposition: %q", cd)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows("Plan")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 16 {
		t.Fatalf("rows: %d", len(rows))
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.RateRPS = 0.001
		c.RateBurst = 1
	}).Routes()
	if rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":1}`)); rr.Code != 200 {
		t.Fatalf("first plan: %d", rr.Code)
	}
	rr := do(t, h, http.MethodPost, "/v1/plan", strings.NewReader(`{"month":1}`))
	if rr.Code != 429 || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("second plan: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v1/locations", nil); rr.Code != 200 {
		t.Fatalf("locations are not limited: %d", rr.Code)
	}
}

func TestHMACAuth(t *testing.T) {
	secret := "k3y"
	h := newTestServer(t, func(c *config.Config) {
		c.AuthMode = "hmac"
		c.AuthHMACSecret = secret
	}).Routes()

	if rr := do(t, h, http.MethodGet, "/v1/admin/optimizer/config", nil, "X-Role", "admin"); rr.Code != 403 {
		t.Fatalf("header fallback in hmac mode: %d", rr.Code)
	}
	viewer, _ := auth.SignHS256([]byte(secret), map[string]any{"role": "viewer"})
	if rr := do(t, h, http.MethodGet, "/v1/admin/optimizer/config", nil, "Authorization", "Bearer "+viewer); rr.Code != 403 {
		t.Fatalf("viewer token: %d", rr.Code)
	}
	admin, _ := auth.SignHS256([]byte(secret), map[string]any{"role": "admin", "sub": "ops"})
	if rr := do(t, h, http.MethodGet, "/v1/admin/optimizer/config", nil, "Authorization", "Bearer "+admin); rr.Code != 200 {
		t.Fatalf("admin token: %d", rr.Code)
	}
}

func TestOpenAPIAndDebug(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := do(t, h, http.MethodGet, "/openapi.yaml", nil)
	if rr.Code != 200 || !strings.HasPrefix(rr.Body.String(), "openapi:") {
		t.Fatalf("openapi.yaml: %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/openapi.json", nil)
	if rr.Code != 200 {
		t.Fatalf("openapi.json: %d", rr.Code)
	}
	var doc map[string]any
	decode(t, rr, &doc)
	if doc["openapi"] != "3.0.3" {
		t.Fatalf("openapi version: %v", doc["openapi"])
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/v1/plan"]; !ok {
		t.Fatalf("missing /v1/plan in paths")
	}

	if rr := do(t, h, http.MethodGet, "/swagger", nil); rr.Code != 200 {
		t.Fatalf("swagger: %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/debug", nil)
	var dbg struct {
		Config map[string]any
	}
	decode(t, rr, &dbg)
	if dbg.Config["store"] != "memory" {
		t.Fatalf("debug store: %v", dbg.Config["store"])
	}
}

func TestPlanWebSocket(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Routes())
	defer ts.Close()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/plan/ws"
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(30 * time.Second))

	if err := c.WriteJSON(wsMessage{Type: "ping", ID: "p"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var msg wsMessage
	if err := c.ReadJSON(&msg); err != nil || msg.Type != "pong" {
		t.Fatalf("pong: %+v %v", msg, err)
	}

	if err := c.WriteJSON(wsMessage{Type: "plan", ID: "1", Payload: json.RawMessage(`{"month":2}`)}); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	var (
		improved []model.Improvement
		plan     model.Plan
	)
	for {
		var msg wsMessage
		if err := c.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.ID != "1" {
			t.Fatalf("id: %q", msg.ID)
		}
		if msg.Type == "improved" {
			var imp model.Improvement
			if err := json.Unmarshal(msg.Payload, &imp); err != nil {
				t.Fatalf("improvement: %v", err)
			}
			improved = append(improved, imp)
			continue
		}
		if msg.Type != "result" {
			t.Fatalf("unexpected %s: %s", msg.Type, msg.Payload)
		}
		if err := json.Unmarshal(msg.Payload, &plan); err != nil {
			t.Fatalf("result: %v", err)
		}
		break
	}
	if len(improved) == 0 || len(improved) != plan.Stats.Improvements {
		t.Fatalf("improvements: %d vs %d", len(improved), plan.Stats.Improvements)
	}
	if improved[len(improved)-1].Cost != plan.Cost {
		t.Fatalf("last improvement %v != plan cost %v", improved[len(improved)-1].Cost, plan.Cost)
	}

	if err := c.WriteJSON(wsMessage{Type: "plan", ID: "2", Payload: json.RawMessage(`{"month":13}`)}); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	if err := c.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	var p Problem
	_ = json.Unmarshal(msg.Payload, &p)
	if msg.Type != "error" || p.Status != 400 {
		t.Fatalf("invalid month over ws: %s %+v", msg.Type, p)
	}
}
