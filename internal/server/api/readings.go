package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/pinchview/internal/store"
)

type readingResponse struct {
	ID         int64    `json:"id"`
	SessionID  string   `json:"session_id"`
	Value      string   `json:"value"`
	Distance   *float64 `json:"distance"`
	Hand       int      `json:"hand"`
	Label      string   `json:"label"`
	RecordedAt string   `json:"recorded_at"`
}

type listReadingsResponse struct {
	Readings []readingResponse `json:"readings"`
}

type sessionResponse struct {
	ID        string  `json:"id"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at"`
	Readings  int     `json:"readings"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// ReadingsHandler serves GET /api/readings?session=&limit=.
type ReadingsHandler struct {
	store *store.Store
}

// NewReadingsHandler creates a new ReadingsHandler with the given store.
func NewReadingsHandler(s *store.Store) *ReadingsHandler {
	return &ReadingsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *ReadingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := store.DefaultReadingLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	readings, err := h.store.Readings().List(r.URL.Query().Get("session"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list readings")
		return
	}

	resp := listReadingsResponse{Readings: make([]readingResponse, 0, len(readings))}
	for _, rd := range readings {
		resp.Readings = append(resp.Readings, readingResponse{
			ID:         rd.ID,
			SessionID:  rd.SessionID,
			Value:      rd.Value,
			Distance:   rd.Distance,
			Hand:       rd.Hand,
			Label:      rd.Label,
			RecordedAt: rd.RecordedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// SessionsHandler serves GET /api/sessions.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		count, err := h.store.Readings().Count(s.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to count readings")
			return
		}
		sr := sessionResponse{
			ID:        s.ID,
			StartedAt: s.StartedAt.Format(time.RFC3339),
			Readings:  count,
		}
		if s.EndedAt != nil {
			ended := s.EndedAt.Format(time.RFC3339)
			sr.EndedAt = &ended
		}
		resp.Sessions = append(resp.Sessions, sr)
	}
	writeJSON(w, http.StatusOK, resp)
}
