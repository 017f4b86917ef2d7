package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dayplan/internal/config"
	appLog "dayplan/internal/log"
	"dayplan/internal/model"
	"dayplan/internal/plan"
	"dayplan/internal/planner"
)

const (
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 20
)

// Server exposes the planner store as a small JSON API.
type Server struct {
	store *planner.Store
	auth  *config.BasicAuthConfig
	mux   *http.ServeMux
}

// NewServer constructs a new Server. auth may be nil.
func NewServer(store *planner.Store, auth *config.BasicAuthConfig) *Server {
	s := &Server{
		store: store,
		auth:  auth,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.auth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.auth.Username != "" && s.auth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.auth.Username
	password := s.auth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="dayplan", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("DELETE /api/error", s.handleClearError)
	s.mux.HandleFunc("POST /api/events/refresh", s.handleRefreshEvents)

	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /api/tasks", s.handleAddTask)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleUpdateTask)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)

	s.mux.HandleFunc("GET /api/plan", s.handlePlan)
	s.mux.HandleFunc("POST /api/plan/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/plan/approve", s.handleApprove)
	s.mux.HandleFunc("POST /api/plan/save", s.handleSave)
	s.mux.HandleFunc("GET /api/plan/markdown", s.handleMarkdown)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ClearError(r.Context()))
}

// handleRefreshEvents reloads today's events. A calendar failure is not an
// HTTP error: it is reported through the "error" field of the state.
func (s *Server) handleRefreshEvents(w http.ResponseWriter, r *http.Request) {
	st, _ := s.store.LoadEvents(r.Context())
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Tasks)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var in planner.NewTask
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.store.AddTask(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch model.TaskPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.store.UpdateTask(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteTask(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlan(w http.ResponseWriter, _ *http.Request) {
	p := s.store.Snapshot().Plan
	if p == nil {
		writeError(w, http.StatusNotFound, planner.ErrNoPlan.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleGenerate replaces the current plan and returns the new state. Like
// event refresh, a generation failure shows up in the "error" field.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GeneratePlan(r.Context()))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.ApprovePlan(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	text, err := s.store.SavePlan(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeMarkdown(w, text)
}

func (s *Server) handleMarkdown(w http.ResponseWriter, _ *http.Request) {
	p := s.store.Snapshot().Plan
	if p == nil {
		writeError(w, http.StatusNotFound, planner.ErrNoPlan.Error())
		return
	}
	writeMarkdown(w, plan.Markdown(*p))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeStoreError maps planner errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrEmptyTitle):
		writeError(w, http.StatusBadRequest, planner.ErrEmptyTitle.Error())
	case errors.Is(err, planner.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, planner.ErrInvalidDuration.Error())
	case errors.Is(err, model.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, model.ErrInvalidPriority.Error())
	case errors.Is(err, planner.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, planner.ErrTaskNotFound.Error())
	case errors.Is(err, planner.ErrNoPlan):
		writeError(w, http.StatusConflict, planner.ErrNoPlan.Error())
	case errors.Is(err, planner.ErrPlanNotApproved):
		writeError(w, http.StatusConflict, planner.ErrPlanNotApproved.Error())
	default:
		appLog.Error("api request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMarkdown(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
