package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/history"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/metrics"
	"github.com/heimdex/heimdex-editor/internal/overlay"
	"github.com/heimdex/heimdex-editor/internal/renderer"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/thumbnail"
)

const testToken = "test-token"

type fakeRepo struct {
	mu        sync.Mutex
	config    map[string]string
	configErr error
	jobs      map[string]export.Job
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{config: map[string]string{}, jobs: map[string]export.Job{}}
}

func (f *fakeRepo) UpsertExport(_ context.Context, j export.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
	return nil
}

func (f *fakeRepo) GetExport(_ context.Context, id string) (*export.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (f *fakeRepo) ListExports(ctx context.Context, limit int) ([]*export.Job, error) {
	return f.ListSessionExports(ctx, "", limit)
}

func (f *fakeRepo) ListSessionExports(_ context.Context, sessionID string, limit int) ([]*export.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*export.Job
	for _, j := range f.jobs {
		if sessionID != "" && j.SessionID != sessionID {
			continue
		}
		j := j
		out = append(out, &j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartedAt.After(out[b].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) GetConfig(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.configErr != nil {
		return "", f.configErr
	}
	return f.config[key], nil
}

func (f *fakeRepo) SetConfig(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config[key] = value
	return nil
}

type testEnv struct {
	repo     *fakeRepo
	sessions *session.Manager
	metrics  *metrics.Metrics
	router   *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.Discard()

	repo := newFakeRepo()
	repo.config[history.KeyAuthToken] = testToken
	m := metrics.New()

	sessions := session.NewManager(session.Config{
		Renderer:      renderer.NewStubClient(logger),
		Thumbnails:    thumbnail.NewStubProvider(logger),
		FrameInterval: time.Hour,
		PollInterval:  time.Millisecond,
		MaxPolls:      5,
		Observers:     []export.Observer{history.NewRecorder(repo, logger), m},
		Logger:        logger,
	})
	t.Cleanup(sessions.CloseAll)

	router := NewRouter(ServerConfig{
		Sessions:     sessions,
		History:      repo,
		Metrics:      m,
		ThumbnailDir: t.TempDir(),
		Logger:       logger,
		StartTime:    time.Now(),
		DeviceID:     "test-device",
	})
	return &testEnv{repo: repo, sessions: sessions, metrics: m, router: router}
}

// do sends an authenticated JSON request through the router.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) createSession(t *testing.T, video string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/sessions", CreateSessionRequest{BaseVideo: video, Duration: 30})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body %s", rr.Code, rr.Body.String())
	}
	var v session.View
	decodeInto(t, rr, &v)
	return v.ID
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func TestRoutes_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/status", "/sessions", "/exports", "/sessions/abc"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want %d", path, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodPost, "/sessions", CreateSessionRequest{}); rr.Code != http.StatusBadRequest {
		t.Fatalf("create without video status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	id := env.createSession(t, "/videos/base.mp4")

	rr := env.do(t, http.MethodGet, "/sessions", nil)
	var list SessionsResponse
	decodeInto(t, rr, &list)
	if len(list.Sessions) != 1 || list.Sessions[0].ID != id || list.Sessions[0].BaseVideo != "/videos/base.mp4" {
		t.Fatalf("sessions = %+v", list.Sessions)
	}

	rr = env.do(t, http.MethodGet, "/status", nil)
	var status StatusResponse
	decodeInto(t, rr, &status)
	if status.State != "idle" || status.Sessions != 1 {
		t.Errorf("status = %+v, want idle with 1 session", status)
	}

	if rr := env.do(t, http.MethodDelete, "/sessions/"+id+"/", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("close status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	rr = env.do(t, http.MethodGet, "/sessions/"+id+"/", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get closed session status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if body := decodeJSONBody(t, rr); body["code"] != "SESSION_NOT_FOUND" {
		t.Errorf("code = %v, want SESSION_NOT_FOUND", body["code"])
	}
}

func TestOverlayEditing(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "/videos/base.mp4")
	base := "/sessions/" + id

	rr := env.do(t, http.MethodPost, base+"/overlays", AddOverlayRequest{Type: "text", Content: "Hello"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("add before surface status = %d, want %d", rr.Code, http.StatusConflict)
	}
	if body := decodeJSONBody(t, rr); body["code"] != "SURFACE_UNKNOWN" {
		t.Errorf("code = %v, want SURFACE_UNKNOWN", body["code"])
	}

	if rr := env.do(t, http.MethodPut, base+"/surface", SurfaceRequest{Width: 400, Height: 800}); rr.Code != http.StatusOK {
		t.Fatalf("surface status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, base+"/overlays", AddOverlayRequest{Type: "text", Content: "Hello"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add text status = %d, body %s", rr.Code, rr.Body.String())
	}
	var text overlay.Overlay
	decodeInto(t, rr, &text)
	if text.Kind != overlay.KindText || text.Content != "Hello" {
		t.Fatalf("overlay = %+v", text)
	}

	if rr := env.do(t, http.MethodPost, base+"/overlays", AddOverlayRequest{Type: "gif", Content: "x"}); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if rr := env.do(t, http.MethodPost, base+"/overlays", AddOverlayRequest{Type: "sticker"}); rr.Code != http.StatusBadRequest {
		t.Errorf("sticker without content status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = env.do(t, http.MethodGet, base+"/overlays", nil)
	var list OverlaysResponse
	decodeInto(t, rr, &list)
	if len(list.Overlays) != 1 || list.ActiveOverlayID != text.ID {
		t.Fatalf("overlays = %+v", list)
	}

	rr = env.do(t, http.MethodPost, base+"/overlays/"+text.ID+"/drag", DragRequest{TX: 40, TY: 80})
	if rr.Code != http.StatusOK {
		t.Fatalf("drag status = %d, body %s", rr.Code, rr.Body.String())
	}
	var dragged overlay.Overlay
	decodeInto(t, rr, &dragged)
	if dragged.Position == text.Position {
		t.Errorf("drag left position unchanged at %+v", dragged.Position)
	}

	tx := 40.0
	rr = env.do(t, http.MethodPost, base+"/overlays/"+text.ID+"/timing", TimingRequest{Handle: "sideways", TX: &tx})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad handle status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = env.do(t, http.MethodPost, base+"/tap", TapRequest{X: 390, Y: 790})
	var sel SelectResponse
	decodeInto(t, rr, &sel)
	if sel.ActiveOverlayID != "" {
		t.Errorf("tap on empty space selected %q", sel.ActiveOverlayID)
	}

	if rr := env.do(t, http.MethodDelete, base+"/active", nil); rr.Code != http.StatusNotFound {
		t.Errorf("delete without selection status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	if rr := env.do(t, http.MethodDelete, base+"/overlays/"+text.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, base+"/overlays/"+text.ID, nil)
	if body := decodeJSONBody(t, rr); rr.Code != http.StatusNotFound || body["code"] != "OVERLAY_NOT_FOUND" {
		t.Errorf("get deleted overlay = %d %v", rr.Code, body["code"])
	}
}

func TestPlaybackRoutes(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "/videos/base.mp4")
	base := "/sessions/" + id

	rr := env.do(t, http.MethodPost, base+"/seek", SeekRequest{Time: 12})
	var seek PlayerResponse
	decodeInto(t, rr, &seek)
	if seek.Playback.CurrentTime != 12 {
		t.Errorf("seek current_time = %v, want 12", seek.Playback.CurrentTime)
	}

	rr = env.do(t, http.MethodPut, base+"/player", map[string]any{"current_time": 3, "duration": 30, "is_playing": false})
	if rr.Code != http.StatusOK {
		t.Fatalf("player status = %d, body %s", rr.Code, rr.Body.String())
	}
	var report PlayerResponse
	decodeInto(t, rr, &report)
	if report.Seek == nil || *report.Seek != 12 {
		t.Errorf("pending seek = %v, want 12", report.Seek)
	}

	if rr := env.do(t, http.MethodPut, base+"/viewport", ViewportRequest{Width: 300}); rr.Code != http.StatusOK {
		t.Fatalf("viewport status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, base+"/scrub/begin", nil); rr.Code != http.StatusOK {
		t.Fatalf("scrub begin status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, base+"/scrub/move", ScrubMoveRequest{TX: -30}); rr.Code != http.StatusOK {
		t.Fatalf("scrub move status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, base+"/scrub/end", nil); rr.Code != http.StatusOK {
		t.Fatalf("scrub end status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, base+"/timeline", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("timeline status = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if _, ok := body["layout"]; !ok {
		t.Errorf("timeline response has no layout: %v", body)
	}

	rr = env.do(t, http.MethodGet, base+"/timeline/thumbnails", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("thumbnails status = %d", rr.Code)
	}
}

func TestExportRoutes(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "/videos/base.mp4")
	base := "/sessions/" + id

	if rr := env.do(t, http.MethodDelete, base+"/export", nil); rr.Code != http.StatusConflict {
		t.Errorf("cancel without export status = %d, want %d", rr.Code, http.StatusConflict)
	}

	rr := env.do(t, http.MethodPost, base+"/export", nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("export status = %d, body %s", rr.Code, rr.Body.String())
	}
	var started export.Job
	decodeInto(t, rr, &started)
	if started.SessionID != id || started.ID == "" {
		t.Fatalf("started job = %+v", started)
	}

	s, err := env.sessions.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	final := s.WaitExport()
	if final.Phase != export.PhaseFailed {
		t.Fatalf("stub renderer export phase = %q, want failed", final.Phase)
	}

	rr = env.do(t, http.MethodGet, base+"/export", nil)
	var current export.Job
	decodeInto(t, rr, &current)
	if current.ID != started.ID || current.Phase != export.PhaseFailed {
		t.Errorf("export status = %+v", current)
	}

	rr = env.do(t, http.MethodGet, base+"/exports", nil)
	var sessionJobs ExportsResponse
	decodeInto(t, rr, &sessionJobs)
	if len(sessionJobs.Exports) != 1 || sessionJobs.Exports[0].ID != started.ID {
		t.Fatalf("session exports = %+v", sessionJobs.Exports)
	}

	rr = env.do(t, http.MethodGet, "/exports/"+started.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get export status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/exports/missing", nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing export status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = env.do(t, http.MethodGet, "/status", nil)
	var status StatusResponse
	decodeInto(t, rr, &status)
	if status.State != "error" || status.LastExport == nil || status.LastExport.ID != started.ID {
		t.Errorf("status = %+v, want error with last export %s", status, started.ID)
	}
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, "/videos/base.mp4")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "editor_active_sessions 1") {
		t.Errorf("metrics output missing active sessions gauge:\n%s", rr.Body.String())
	}
}

func TestQueryLimit(t *testing.T) {
	cases := map[string]int{
		"":            0,
		"?limit=5":    5,
		"?limit=-1":   0,
		"?limit=x":    0,
		"?limit=9999": 500,
	}
	for q, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/exports"+q, nil)
		if got := queryLimit(req); got != want {
			t.Errorf("queryLimit(%q) = %d, want %d", q, got, want)
		}
	}
}
