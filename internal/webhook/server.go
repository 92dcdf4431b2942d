// internal/webhook/server.go
package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/user/ghostwalk/internal/state"
	"github.com/user/ghostwalk/internal/types"
)

// TaskHandler is a callback that triggers a replay of the given task and
// returns the run that was enqueued.
type TaskHandler func(task *state.Task) (types.RunID, error)

// Server is a lightweight HTTP handler for replay-trigger and inspection
// endpoints.
type Server struct {
	store     *state.TaskStore
	handler   TaskHandler
	sessions  types.SessionStore
	log       types.ReplayLog
	artifacts types.ArtifactStore
	mux       *http.ServeMux
}

// NewServer creates a new webhook Server with the given task store, trigger
// callback, and stores.
func NewServer(store *state.TaskStore, handler TaskHandler, sessions types.SessionStore, log types.ReplayLog, artifacts types.ArtifactStore) *Server {
	s := &Server{
		store:     store,
		handler:   handler,
		sessions:  sessions,
		log:       log,
		artifacts: artifacts,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /replay/", s.handleNamedTask)
	s.mux.HandleFunc("GET /api/sessions", s.handleAPISessions)
	s.mux.HandleFunc("GET /api/sessions/", s.handleAPISessionLog)
	s.mux.HandleFunc("GET /api/artifacts/", s.handleAPIArtifact)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleNamedTask(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/replay/")
	if name == "" {
		http.Error(w, `{"error":"task name required"}`, http.StatusBadRequest)
		return
	}

	task, err := s.store.Get(name)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}

	if !task.Enabled {
		http.Error(w, `{"error":"task is disabled"}`, http.StatusForbidden)
		return
	}

	runID, err := s.handler(task)
	if err != nil {
		slog.Error("webhook replay trigger failed", "task", name, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"run_id": string(runID)})
}

type sessionResponse struct {
	SessionID   string `json:"session_id"`
	SessionKey  string `json:"session_key"`
	Source      string `json:"source"`
	Status      string `json:"status"`
	Events      int    `json:"events"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	LastRunID   string `json:"last_run_id,omitempty"`
	ActionCount int64  `json:"action_count"`
}

func (s *Server) handleAPISessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil || s.log == nil {
		http.Error(w, `{"error":"debug API not configured"}`, http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	result := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		count, err := s.log.Count(ctx, sess.SessionID)
		if err != nil {
			slog.Warn("count actions failed", "session_id", sess.SessionID, "error", err)
		}
		result = append(result, sessionResponse{
			SessionID:   string(sess.SessionID),
			SessionKey:  string(sess.SessionKey),
			Source:      sess.Source,
			Status:      sess.Status,
			Events:      sess.Events,
			CreatedAt:   sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt:   sess.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			LastRunID:   string(sess.LastRunID),
			ActionCount: count,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt > result[j].UpdatedAt
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleAPISessionLog(w http.ResponseWriter, r *http.Request) {
	if s.log == nil {
		http.Error(w, `{"error":"debug API not configured"}`, http.StatusServiceUnavailable)
		return
	}

	// Path: /api/sessions/{id}/log
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[1] != "log" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	sessionID := types.SessionID(parts[0])

	limit := 200
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	actions, err := s.log.Tail(r.Context(), sessionID, limit)
	if err != nil {
		slog.Error("tail replay log failed", "session_id", sessionID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if actions == nil {
		actions = []*types.ReplayAction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(actions)
}

func (s *Server) handleAPIArtifact(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil {
		http.Error(w, `{"error":"debug API not configured"}`, http.StatusServiceUnavailable)
		return
	}

	id := types.ArtifactID(strings.TrimPrefix(r.URL.Path, "/api/artifacts/"))
	if id == "" {
		http.Error(w, `{"error":"artifact id required"}`, http.StatusBadRequest)
		return
	}

	meta, err := s.artifacts.GetMeta(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"artifact not found"}`, http.StatusNotFound)
		return
	}
	data, err := s.artifacts.Get(r.Context(), id)
	if err != nil {
		slog.Error("read artifact failed", "artifact_id", id, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"meta": meta,
		"data": data,
	})
}
