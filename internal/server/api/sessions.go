// Package api provides the HTTP API handlers of the DanceFrame capture
// service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/danceframe/danceframe/internal/store"
)

// Controller is the live-pipeline surface the API drives. Nil when the
// server runs without a capture pipeline (storage-only mode).
type Controller interface {
	StartSession(id string) error
	StopSession()
	Skip()
	Pause()
	Resume()
	JumpTo(index int)
	Retake(index int)
}

// SessionHandler handles HTTP requests for session resources and session
// control.
type SessionHandler struct {
	store *store.Store
	ctl   Controller
}

// NewSessionHandler creates a new SessionHandler with the given store and
// pipeline controller.
func NewSessionHandler(s *store.Store, ctl Controller) *SessionHandler {
	return &SessionHandler{store: s, ctl: ctl}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// the appropriate methods.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths:
	//   /api/sessions
	//   /api/sessions/{id}
	//   /api/sessions/{id}/{action}
	//   /api/sessions/{id}/captures/{idx}
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	switch len(parts) {
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 2:
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.control(w, r, id, parts[1])
	case 3:
		if parts[1] != "captures" || r.Method != http.MethodGet {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		h.capture(w, r, id, parts[2])
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// Request and response types

type createSessionRequest struct {
	Name    string `json:"name"`
	Targets []struct {
		ImageRef string `json:"imageRef"`
	} `json:"targets"`
}

type indexRequest struct {
	Index int `json:"index"`
}

type targetResponse struct {
	ID       string `json:"id"`
	Idx      int    `json:"idx"`
	ImageRef string `json:"imageRef"`
	HasPose  bool   `json:"hasPose"`
	Captured bool   `json:"captured"`
}

type sessionResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Status     string           `json:"status"`
	CurrentIdx int              `json:"currentIdx"`
	CreatedAt  string           `json:"created_at"`
	UpdatedAt  string           `json:"updated_at"`
	Targets    []targetResponse `json:"targets,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Session to a sessionResponse.
func toResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:         s.ID,
		Name:       s.Name,
		Status:     string(s.Status),
		CurrentIdx: s.CurrentIdx,
		CreatedAt:  s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// create handles POST /api/sessions: a new session over already extracted
// target frames.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if len(req.Targets) == 0 {
		writeError(w, http.StatusBadRequest, "At least one target is required")
		return
	}

	sess := &store.Session{ID: uuid.NewString(), Name: req.Name}
	if err := h.store.Sessions().Create(sess); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	for i, t := range req.Targets {
		target := &store.Target{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			Idx:       i,
			ImageRef:  t.ImageRef,
		}
		if err := h.store.Targets().Create(target, nil); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create targets")
			return
		}
	}

	resp := toResponse(sess)
	resp.Targets = h.targetResponses(sess.ID)
	writeJSON(w, http.StatusCreated, resp)
}

// get handles GET /api/sessions/{id}, including targets and capture state.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	resp := toResponse(sess)
	resp.Targets = h.targetResponses(id)
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) targetResponses(sessionID string) []targetResponse {
	targets, err := h.store.Targets().ListBySession(sessionID)
	if err != nil {
		return nil
	}

	captured := map[int]bool{}
	if caps, err := h.store.Captures().ListBySession(sessionID); err == nil {
		for _, c := range caps {
			captured[c.Idx] = true
		}
	}

	resp := make([]targetResponse, 0, len(targets))
	for _, t := range targets {
		resp = append(resp, targetResponse{
			ID:       t.ID,
			Idx:      t.Idx,
			ImageRef: t.ImageRef,
			HasPose:  t.HasPose,
			Captured: captured[t.Idx],
		})
	}
	return resp
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// control handles POST /api/sessions/{id}/{action}.
func (h *SessionHandler) control(w http.ResponseWriter, r *http.Request, id, action string) {
	if h.ctl == nil {
		writeError(w, http.StatusServiceUnavailable, "Capture pipeline not running")
		return
	}

	// Every action targets an existing session.
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	switch action {
	case "start":
		if err := h.ctl.StartSession(id); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to start session")
			return
		}
	case "stop":
		h.ctl.StopSession()
	case "skip":
		h.ctl.Skip()
	case "pause":
		h.ctl.Pause()
	case "resume":
		h.ctl.Resume()
	case "jump", "retake":
		var req indexRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if action == "jump" {
			h.ctl.JumpTo(req.Index)
		} else {
			h.ctl.Retake(req.Index)
		}
	default:
		writeError(w, http.StatusNotFound, "Unknown action")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// capture handles GET /api/sessions/{id}/captures/{idx} and serves the
// stored JPEG.
func (h *SessionHandler) capture(w http.ResponseWriter, r *http.Request, id, idxStr string) {
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid capture index")
		return
	}

	c, err := h.store.Captures().Get(id, idx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Capture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load capture")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(c.Image)))
	w.Write(c.Image)
}
