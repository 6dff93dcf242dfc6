package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Paintersrp/recall/internal/auth"
	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/logging"
	"github.com/Paintersrp/recall/internal/search"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
	recallsvc "github.com/Paintersrp/recall/internal/services/recall"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type fixture struct {
	paths  config.Paths
	files  *indexsvc.Service
	server *Server
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	root := t.TempDir()
	workspace := filepath.Join(root, "workspace")
	paths := config.Paths{
		OpenClawHome:  root,
		Workspace:     workspace,
		Memory:        filepath.Join(workspace, "memory"),
		Conversations: filepath.Join(workspace, "conversations"),
		Sessions:      filepath.Join(root, "agents", "main", "sessions"),
	}
	writeFile(t, filepath.Join(workspace, "MEMORY.md"), "# Memory\n\nLong lived facts about the garden.\n")
	writeFile(t, filepath.Join(paths.Memory, "2024-03-04.md"), "# Tuesday\n\nPlanted tomatoes near the fence.\n")
	writeFile(t, filepath.Join(root, "secret.txt"), "nope")

	logger := logging.Discard()
	files := indexsvc.NewService(paths, indexsvc.WithLogger(logger))
	t.Cleanup(func() { _ = files.Close() })
	recall := recallsvc.NewService(files, nil, search.DefaultConfig(), logger)

	return fixture{
		paths:  paths,
		files:  files,
		server: New(cfg, files, recall, nil, logger),
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	fx := newFixture(t, Config{Version: "test"})
	rec := do(t, fx.server.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestFilesAndChanges(t *testing.T) {
	fx := newFixture(t, Config{})
	h := fx.server.Handler()

	rec := do(t, h, http.MethodGet, "/api/files", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap indexsvc.Snapshot
	decode(t, rec, &snap)
	if snap.Version < 1 {
		t.Fatalf("expected a built snapshot, got version %d", snap.Version)
	}
	if len(snap.Files) == 0 {
		t.Fatalf("expected files in snapshot")
	}

	rec = do(t, h, http.MethodGet, "/api/files/changes?since=0", "")
	var change indexsvc.Change
	decode(t, rec, &change)
	if !change.Changed {
		t.Fatalf("expected change since version 0")
	}

	rec = do(t, h, http.MethodGet, "/api/files/changes?since="+url.QueryEscape("12x"), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad since, got %d", rec.Code)
	}
}

func TestFileEndpointStatuses(t *testing.T) {
	fx := newFixture(t, Config{})
	h := fx.server.Handler()

	cases := []struct {
		name   string
		path   string
		status int
	}{
		{"missing", "", http.StatusBadRequest},
		{"inside", filepath.Join(fx.paths.Memory, "2024-03-04.md"), http.StatusOK},
		{"outside", filepath.Join(fx.paths.OpenClawHome, "secret.txt"), http.StatusForbidden},
		{"traversal", filepath.Join(fx.paths.Memory, "..", "..", "secret.txt"), http.StatusForbidden},
		{"absent", filepath.Join(fx.paths.Memory, "gone.md"), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/file?path="+url.QueryEscape(tc.path), "")
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSimpleSearch(t *testing.T) {
	fx := newFixture(t, Config{})
	rec := do(t, fx.server.Handler(), http.MethodGet, "/api/search?q=tomatoes&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Results []search.SimpleResult `json:"results"`
	}
	decode(t, rec, &body)
	if len(body.Results) != 1 || body.Results[0].Name != "2024-03-04.md" {
		t.Fatalf("unexpected results: %+v", body.Results)
	}
}

func TestRecallPost(t *testing.T) {
	fx := newFixture(t, Config{})
	h := fx.server.Handler()

	rec := do(t, h, http.MethodPost, "/api/recall", `{"query":"tomatoes","limit":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Count   int             `json:"count"`
		Results []search.Result `json:"results"`
	}
	decode(t, rec, &body)
	if body.Count != 1 || len(body.Results) != 1 {
		t.Fatalf("expected one result, got %+v", body)
	}
	if !strings.Contains(body.Results[0].Excerpt, "tomatoes") {
		t.Fatalf("excerpt missing match: %q", body.Results[0].Excerpt)
	}

	rec = do(t, h, http.MethodPost, "/api/recall", `{"query":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short query, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/recall", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestRecallQueryParams(t *testing.T) {
	fx := newFixture(t, Config{})
	h := fx.server.Handler()

	rec := do(t, h, http.MethodGet, "/api/recall?query=garden&categories=memory,workspace", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Results []search.Result `json:"results"`
	}
	decode(t, rec, &body)
	if len(body.Results) != 1 || body.Results[0].Name != "MEMORY.md" {
		t.Fatalf("unexpected results: %+v", body.Results)
	}

	rec = do(t, h, http.MethodGet, "/api/recall?query=garden&categories=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/recall/stats", "")
	var stats recallsvc.Stats
	decode(t, rec, &stats)
	if stats.Files != 2 {
		t.Fatalf("expected 2 indexed files, got %+v", stats)
	}
}

func TestAuthGuardsAPI(t *testing.T) {
	authn, err := auth.New("s3cret")
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}
	fx := newFixture(t, Config{Auth: authn})
	h := fx.server.Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/files", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := authn.Issue("tester", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestWebsocketReceivesSnapshot(t *testing.T) {
	fx := newFixture(t, Config{})
	ts := httptest.NewServer(fx.server.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev changeEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != "snapshot" || ev.Version < 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	fx.server.hub.broadcast(changeEvent{Type: "snapshot", Version: ev.Version + 1})
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if ev.Version < 2 {
		t.Fatalf("expected broadcast version, got %+v", ev)
	}
}
