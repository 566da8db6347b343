// Package api serves the JSON endpoints the course chat frontend uses.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bull/course-rag-server/internal/search"
)

const queryTimeout = 60 * time.Second

// QuerySystem answers questions and reports catalog analytics.
// *rag.System satisfies it.
type QuerySystem interface {
	Query(ctx context.Context, query, sessionID string) (string, []search.Source, error)
	Analytics(ctx context.Context) (int, []string, error)
}

// SessionStore mints and discards session IDs. *session.Manager
// satisfies it.
type SessionStore interface {
	Create() string
	Clear(id string)
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the reply to POST /api/query.
type QueryResponse struct {
	Answer    string          `json:"answer"`
	Sources   []search.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// CoursesResponse is the reply to GET /api/courses.
type CoursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// NewSessionRequest is the optional body of POST /api/session/new. The
// frontend sends its current session ID so its history can be dropped.
type NewSessionRequest struct {
	PrevSessionID string `json:"prev_session_id,omitempty"`
}

// SessionResponse is the reply to POST /api/session/new.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the REST API.
type Handler struct {
	system   QuerySystem
	sessions SessionStore
	logger   *slog.Logger
}

func NewHandler(system QuerySystem, sessions SessionStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{system: system, sessions: sessions, logger: logger}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("GET /api/courses", h.handleCourses)
	mux.HandleFunc("POST /api/session/new", h.handleNewSession)
}

// handleQuery answers one question. A missing session_id starts a new
// session so the frontend can thread follow-ups.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.sessions.Create()
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	answer, sources, err := h.system.Query(ctx, req.Query, sessionID)
	if err != nil {
		h.logger.Error("query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "query failed"})
		return
	}

	if sources == nil {
		sources = []search.Source{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

func (h *Handler) handleCourses(w http.ResponseWriter, r *http.Request) {
	count, titles, err := h.system.Analytics(r.Context())
	if err != nil {
		h.logger.Error("listing courses failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list courses"})
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, CoursesResponse{
		TotalCourses: count,
		CourseTitles: titles,
	})
}

// handleNewSession starts a fresh session, clearing the previous one
// when the frontend names it. The body is optional.
func (h *Handler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req NewSessionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.PrevSessionID != "" {
		h.sessions.Clear(req.PrevSessionID)
	}
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: h.sessions.Create()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
