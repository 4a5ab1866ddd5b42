package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/filter"
	"github.com/matzehuels/netlens/pkg/metrics"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/observability"
)

const twoTriangles = `{
	"nodes": [
		{"id": "a", "betweenness": 0.1}, {"id": "b", "betweenness": 0.1},
		{"id": "c", "betweenness": 0.6}, {"id": "d", "betweenness": 0.6},
		{"id": "e", "betweenness": 0.1}, {"id": "f", "betweenness": 0.1}
	],
	"links": [
		{"source": "a", "target": "b"}, {"source": "b", "target": "c"}, {"source": "c", "target": "a"},
		{"source": "d", "target": "e"}, {"source": "e", "target": "f"}, {"source": "f", "target": "d"},
		{"source": "c", "target": "d"}
	]
}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code errors.Code) errorBody {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	body := decodeBody[errorBody](t, rec)
	if body.Code != code {
		t.Errorf("code = %s, want %s", body.Code, code)
	}
	return body
}

func TestHealth(t *testing.T) {
	rec := do(t, New(Options{}).Handler(), "GET", "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeCommunities(t *testing.T) {
	h := New(Options{}).Handler()

	rec := do(t, h, "POST", "/history/analyze/communities?algorithm=louvain", twoTriangles)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Communities []struct {
			ID   int `json:"id"`
			Size int `json:"size"`
		} `json:"communities"`
		Nodes           []network.Node `json:"nodes"`
		NodeCommunities map[string]int `json:"node_communities"`
		NumCommunities  int            `json:"num_communities"`
		Algorithm       string         `json:"algorithm"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.NumCommunities != 2 || len(resp.Communities) != 2 || resp.Algorithm != "louvain" {
		t.Errorf("response = %+v", resp)
	}
	for _, n := range resp.Nodes {
		if n.Community == nil {
			t.Errorf("node %s has no community", n.ID)
		}
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   errors.Code
	}{
		{"unknown algorithm", "/history/analyze/communities?algorithm=leiden", twoTriangles, 400, errors.ErrCodeInvalidAlgorithm},
		{"unsupported algorithm", "/history/analyze/communities", `{"nodes": [], "links": [], "algorithm": "girvan_newman"}`, 400, errors.ErrCodeUnsupported},
		{"missing links", "/history/analyze/communities", `{"nodes": []}`, 400, errors.ErrCodeInvalidInput},
		{"empty body", "/history/analyze/communities", "", 400, errors.ErrCodeInvalidInput},
		{"bad json", "/history/analyze/communities", `{"nodes": [`, 400, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, do(t, h, "POST", tt.path, tt.body), tt.status, tt.code)
		})
	}
}

func TestStats(t *testing.T) {
	h := New(Options{}).Handler()
	body := `{"nodes": [{"id": 1, "community": 0}, {"id": 2, "community": 1}, {"id": 3}],
		"links": [{"source": 1, "target": 2}, {"source": 2, "target": 1}, {"source": 2, "target": 3}]}`
	rec := do(t, h, "POST", "/stats", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[map[string]any](t, rec)
	if got["numNodes"] != 3.0 || got["numEdges"] != 3.0 || got["reciprocalEdges"] != 2.0 {
		t.Errorf("stats = %v", got)
	}
	if got["reciprocityFormatted"] != "0.67" || got["communities"] != 2.0 || got["diameter"] != 2.0 {
		t.Errorf("summary = %v", got)
	}

	expectError(t, do(t, h, "POST", "/stats", `{"nodes": 5}`), 400, errors.ErrCodeInvalidGraph)
}

func TestCustomize(t *testing.T) {
	h := New(Options{}).Handler()
	body := `{"nodes": [{"id": "a", "community": 1, "messages": 10}, {"id": "b", "messages": 5}],
		"links": [], "settings": {"colorBy": "community", "sizeBy": "messages"}}`
	rec := do(t, h, "POST", "/customize", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	g := decodeBody[network.Graph](t, rec)
	if g.Nodes[0].Color != "#5f6289" || *g.Nodes[0].Size != 40 {
		t.Errorf("a = %s %v", g.Nodes[0].Color, *g.Nodes[0].Size)
	}
	if g.Nodes[1].Color != "#050d2d" || *g.Nodes[1].Size != 27.5 {
		t.Errorf("b = %s %v", g.Nodes[1].Color, *g.Nodes[1].Size)
	}

	bad := `{"nodes": [], "settings": {"colorBy": "rainbow"}}`
	expectError(t, do(t, h, "POST", "/customize", bad), 400, errors.ErrCodeInvalidInput)
}

func TestRenderDOT(t *testing.T) {
	h := New(Options{}).Handler()
	rec := do(t, h, "POST", "/render?format=dot", `{"nodes": [{"id": "a"}, {"id": "b"}], "links": [{"source": "a", "target": "b"}], "directed": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"b" -> "a";`) {
		t.Errorf("directed render should reverse links:\n%s", rec.Body.String())
	}
	expectError(t, do(t, h, "POST", "/render?format=gif", `{"nodes": []}`), 400, errors.ErrCodeInvalidFormat)
}

func TestResearchCRUD(t *testing.T) {
	h := New(Options{}).Handler()

	rec := do(t, h, "POST", "/research", `{"research_name": "chat", "analysis": `+twoTriangles+`}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[network.Research](t, rec)
	if created.ID == "" {
		t.Fatal("created record has no id")
	}

	rec = do(t, h, "GET", "/research/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	if got := decodeBody[network.Research](t, rec); got.Name != "chat" || len(got.Graph().Nodes) != 6 {
		t.Errorf("get = %+v", got)
	}

	rec = do(t, h, "GET", "/research", "")
	if list := decodeBody[[]network.Research](t, rec); len(list) != 1 {
		t.Errorf("list = %d records", len(list))
	}

	if rec = do(t, h, "DELETE", "/research/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	expectError(t, do(t, h, "GET", "/research/"+created.ID, ""), 404, errors.ErrCodeResearchNotFound)
	expectError(t, do(t, h, "POST", "/research", `{"analysis": {"nodes": [], "links": [], "algorithm": "x"}}`), 400, errors.ErrCodeInvalidAlgorithm)
}

func createSession(t *testing.T, h http.Handler, body string) sessionResponse {
	t.Helper()
	rec := do(t, h, "POST", "/sessions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[sessionResponse](t, rec)
}

func hasNote(resp sessionResponse, text string) bool {
	for _, n := range resp.Notifications {
		if n.Text == text {
			return true
		}
	}
	return false
}

func TestSessionLifecycle(t *testing.T) {
	h := New(Options{AutoDetect: true, FilterOptions: []filter.Option{filter.WithSeed(1)}}).Handler()

	created := createSession(t, h, twoTriangles)
	id := created.Session.ID
	if !hasNote(created, "Detected 2 communities in the network.") {
		t.Errorf("notifications = %+v", created.Notifications)
	}
	if len(created.Session.Communities) != 2 || created.Session.Summary.Communities != 2 {
		t.Errorf("session = %+v", created.Session)
	}

	// strong connections keeps c and d
	rec := do(t, h, "POST", "/sessions/"+id+"/filters/strong", "")
	resp := decodeBody[sessionResponse](t, rec)
	if rec.Code != http.StatusOK || !resp.Session.State.StrongConnections || len(resp.Graph.Nodes) != 2 {
		t.Fatalf("strong = %d %+v", rec.Code, resp)
	}
	rec = do(t, h, "POST", "/sessions/"+id+"/filters/strong", "")
	if resp = decodeBody[sessionResponse](t, rec); len(resp.Graph.Nodes) != 6 {
		t.Errorf("strong off should restore the baseline, got %d nodes", len(resp.Graph.Nodes))
	}

	// isolation drops the bridge
	rec = do(t, h, "POST", "/sessions/"+id+"/filters/communities", "")
	resp = decodeBody[sessionResponse](t, rec)
	if !resp.Relayout || !resp.Session.State.IntraCommunity || len(resp.Graph.Links) != 6 {
		t.Errorf("communities = %+v", resp)
	}
	if !hasNote(resp, "Showing only intra-community links and hiding isolated nodes. Removed 1 cross-community links.") {
		t.Errorf("notifications = %+v", resp.Notifications)
	}

	rec = do(t, h, "POST", "/sessions/"+id+"/filters/highlight?metric=betweenness", "")
	resp = decodeBody[sessionResponse](t, rec)
	if resp.Session.Metric != filter.LabelBetweenness || !resp.Session.State.HighlightCentral {
		t.Errorf("highlight = %+v", resp.Session)
	}

	rec = do(t, h, "GET", "/sessions/"+id+"/stats", "")
	if got := decodeBody[map[string]any](t, rec); got["numNodes"] != 6.0 {
		t.Errorf("stats = %v", got)
	}

	rec = do(t, h, "GET", "/sessions/"+id+"/search?q=A", "")
	if g := decodeBody[network.Graph](t, rec); len(g.Nodes) != 1 {
		t.Errorf("search = %d nodes", len(g.Nodes))
	}

	rec = do(t, h, "POST", "/sessions/"+id+"/customize", `{"colorBy": "community"}`)
	resp = decodeBody[sessionResponse](t, rec)
	if resp.Session.Settings.ColorBy != "community" || resp.Graph.Nodes[0].Color == "" {
		t.Errorf("customize = %+v", resp.Session.Settings)
	}

	rec = do(t, h, "POST", "/sessions/"+id+"/reset", "")
	resp = decodeBody[sessionResponse](t, rec)
	if !hasNote(resp, "Network reset to original state.") || resp.Session.Settings.ColorBy != "default" {
		t.Errorf("reset = %+v", resp)
	}

	rec = do(t, h, "GET", "/sessions/"+id+"/render?format=dot", "")
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("graph G")) {
		t.Errorf("render = %d %s", rec.Code, rec.Body.String())
	}

	if rec = do(t, h, "DELETE", "/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	expectError(t, do(t, h, "GET", "/sessions/"+id, ""), 404, errors.ErrCodeSessionNotFound)
	expectError(t, do(t, h, "DELETE", "/sessions/"+id, ""), 404, errors.ErrCodeSessionNotFound)
}

func TestSessionErrors(t *testing.T) {
	h := New(Options{}).Handler()
	id := createSession(t, h, twoTriangles).Session.ID

	expectError(t, do(t, h, "POST", "/sessions/"+id+"/filters/bogus", ""), 400, errors.ErrCodeInvalidFilter)
	expectError(t, do(t, h, "POST", "/sessions/"+id+"/filters/highlight?metric=fame", ""), 400, errors.ErrCodeInvalidMetric)

	body := expectError(t, do(t, h, "POST", "/sessions/"+id+"/filters/communities", ""), 409, errors.ErrCodePrecondition)
	if len(body.Notifications) != 1 || body.Notifications[0].Level != "error" {
		t.Errorf("notifications = %+v", body.Notifications)
	}

	expectError(t, do(t, h, "POST", "/sessions", `{}`), 400, errors.ErrCodeInvalidInput)
	expectError(t, do(t, h, "POST", "/sessions", `{"research_id": "missing"}`), 404, errors.ErrCodeResearchNotFound)
	expectError(t, do(t, h, "POST", "/sessions", `{"nodes": [], "algorithm": "nope"}`), 400, errors.ErrCodeInvalidAlgorithm)
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	srv := New(Options{SessionTTL: time.Minute, MaxSessions: 2})
	srv.now = func() time.Time { return now }
	h := srv.Handler()

	idle := createSession(t, h, twoTriangles).Session.ID
	now = now.Add(30 * time.Second)
	kept := createSession(t, h, twoTriangles).Session.ID

	// touching kept moves its idle clock forward
	now = now.Add(45 * time.Second)
	if rec := do(t, h, "GET", "/sessions/"+kept, ""); rec.Code != http.StatusOK {
		t.Fatalf("kept session = %d", rec.Code)
	}
	expectError(t, do(t, h, "GET", "/sessions/"+idle, ""), 404, errors.ErrCodeSessionNotFound)

	now = now.Add(45 * time.Second)
	if rec := do(t, h, "GET", "/sessions/"+kept, ""); rec.Code != http.StatusOK {
		t.Errorf("recently used session = %d, want 200", rec.Code)
	}
}

func TestSessionLimit(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	srv := New(Options{MaxSessions: 2})
	srv.now = func() time.Time { return now }
	h := srv.Handler()

	first := createSession(t, h, twoTriangles).Session.ID
	now = now.Add(time.Second)
	second := createSession(t, h, twoTriangles).Session.ID
	now = now.Add(time.Second)
	do(t, h, "GET", "/sessions/"+first, "")
	now = now.Add(time.Second)
	third := createSession(t, h, twoTriangles).Session.ID

	expectError(t, do(t, h, "GET", "/sessions/"+second, ""), 404, errors.ErrCodeSessionNotFound)
	for _, id := range []string{first, third} {
		if rec := do(t, h, "GET", "/sessions/"+id, ""); rec.Code != http.StatusOK {
			t.Errorf("session %s = %d, want 200", id, rec.Code)
		}
	}
	if n := len(srv.sessions); n != 2 {
		t.Errorf("open sessions = %d, want 2", n)
	}
}

func TestSessionFromResearch(t *testing.T) {
	h := New(Options{}).Handler()
	rec := do(t, h, "POST", "/research", `{"filters": {"directed": true}, "analysis": `+twoTriangles+`}`)
	rid := decodeBody[network.Research](t, rec).ID

	created := createSession(t, h, `{"research_id": "`+rid+`"}`)
	if created.Session.ResearchID != rid {
		t.Errorf("research id = %q", created.Session.ResearchID)
	}
	first := created.Graph.Links[0]
	if first.Source.ID.String() != "b" || first.Target.ID.String() != "a" {
		t.Errorf("directed research should display reversed links, got %s -> %s", first.Source.ID, first.Target.ID)
	}

	rec = do(t, h, "POST", "/sessions/"+created.Session.ID+"/communities", "")
	resp := decodeBody[sessionResponse](t, rec)
	if rec.Code != http.StatusOK || len(resp.Session.Communities) != 2 {
		t.Errorf("detect = %d %+v", rec.Code, resp.Session)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	defer observability.Reset()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Register()
	h := New(Options{Metrics: m, Gatherer: reg}).Handler()

	do(t, h, "GET", "/health", "")
	rec := do(t, h, "GET", "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "netlens_http_requests_total") {
		t.Errorf("metrics = %d\n%s", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	h := New(Options{AllowedOrigins: []string{"http://localhost:3000"}}).Handler()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
