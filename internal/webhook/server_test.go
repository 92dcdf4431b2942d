// internal/webhook/server_test.go
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/ghostwalk/internal/state"
	"github.com/user/ghostwalk/internal/types"
)

func newTestServer(t *testing.T, handler TaskHandler) (*Server, *state.TaskStore, *state.SessionStore, *state.ReplayLog, *state.ArtifactStore) {
	t.Helper()
	dir := t.TempDir()
	tasks := state.NewTaskStore(filepath.Join(dir, "tasks.json"))
	sessions := state.NewSessionStore(dir)
	log := state.NewReplayLog(dir)
	artifacts := state.NewArtifactStore(dir)
	if handler == nil {
		handler = func(task *state.Task) (types.RunID, error) { return types.NewRunID(), nil }
	}
	return NewServer(tasks, handler, sessions, log, artifacts), tasks, sessions, log, artifacts
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestTriggerNamedTask(t *testing.T) {
	var triggered string
	runID := types.NewRunID()
	srv, tasks, _, _, _ := newTestServer(t, func(task *state.Task) (types.RunID, error) {
		triggered = task.Name
		return runID, nil
	})

	if err := tasks.Add(&state.Task{
		Name:       "nightly",
		Recording:  "recordings/checkout.json",
		SessionKey: "task:nightly",
		Enabled:    true,
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/replay/nightly", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if triggered != "nightly" {
		t.Errorf("expected task 'nightly' triggered, got %q", triggered)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["run_id"] != string(runID) {
		t.Errorf("expected run_id %s, got %q", runID, body["run_id"])
	}
}

func TestTriggerUnknownTask(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/replay/missing", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestTriggerDisabledTask(t *testing.T) {
	srv, tasks, _, _, _ := newTestServer(t, nil)

	if err := tasks.Add(&state.Task{
		Name:       "off",
		Recording:  "recordings/checkout.json",
		SessionKey: "task:off",
		Enabled:    false,
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/replay/off", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestAPISessions(t *testing.T) {
	srv, _, sessions, log, _ := newTestServer(t, nil)
	ctx := context.Background()

	sid, err := sessions.ResolveOrCreate(ctx, types.NewSessionKey("task", "checkout"), "cli")
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Append(ctx, sid, &types.ReplayAction{
		RunID: types.NewRunID(),
		Index: 1,
		Kind:  types.ActionNavigate,
		At:    time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result []sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 session, got %d", len(result))
	}
	if result[0].SessionID != string(sid) || result[0].ActionCount != 1 {
		t.Errorf("unexpected session: %+v", result[0])
	}
}

func TestAPISessionLog(t *testing.T) {
	srv, _, sessions, log, _ := newTestServer(t, nil)
	ctx := context.Background()

	sid, err := sessions.ResolveOrCreate(ctx, types.NewSessionKey("task", "checkout"), "cli")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := log.Append(ctx, sid, &types.ReplayAction{
			RunID: types.NewRunID(),
			Index: i + 1,
			Kind:  types.ActionScroll,
			At:    time.Now(),
		}); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+string(sid)+"/log?limit=2", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var actions []*types.ReplayAction
	if err := json.Unmarshal(rec.Body.Bytes(), &actions); err != nil {
		t.Fatal(err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].Seq != 2 || actions[1].Seq != 3 {
		t.Errorf("unexpected tail: %+v %+v", actions[0], actions[1])
	}
}

func TestAPISessionLogBadPath(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/abc/unknown", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAPIArtifact(t *testing.T) {
	srv, _, _, _, artifacts := newTestServer(t, nil)
	ctx := context.Background()

	id, err := artifacts.Put(ctx, types.NewSessionID(), types.NewRunID(), "snapshot", "https://example.com/a", map[string]string{
		"markdown": "# Page",
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/artifacts/"+string(id), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Meta types.ArtifactMeta `json:"meta"`
		Data map[string]string  `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Meta.Kind != "snapshot" || body.Data["markdown"] != "# Page" {
		t.Errorf("unexpected artifact response: %+v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/artifacts/"+string(types.NewArtifactID()), nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown artifact, got %d", rec.Code)
	}
}
