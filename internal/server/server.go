// Package server provides the HTTP server for the pinchview hand-tracking viewer.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/pinchview/internal/grid"
	"github.com/ayusman/pinchview/internal/log"
	"github.com/ayusman/pinchview/internal/metric"
	"github.com/ayusman/pinchview/internal/plugin"
	"github.com/ayusman/pinchview/internal/server/api"
	"github.com/ayusman/pinchview/internal/store"
)

// Controller is the running pipeline as seen by the API.
type Controller interface {
	api.OptionsController
	Reading() metric.Reading
}

// Config holds the server configuration. Routes whose dependency is unset
// are not registered.
type Config struct {
	StaticDir  string
	Controller Controller
	Surface    *Surface
	Hub        *grid.Hub
	Snapshots  SnapshotSource
	GridConfig *grid.Config
	Store      *store.Store
	Plugins    *plugin.Manager
	Logger     log.Logger
}

// Server represents the HTTP server for the pinchview application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger log.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logger.WithField("component", "server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		s.mux.Handle("/api/options", api.NewOptionsHandler(s.config.Controller))
		s.mux.HandleFunc("/api/metric", s.handleMetric)
	}

	if s.config.Hub != nil {
		s.mux.HandleFunc("/api/grid", s.handleGrid)
		s.mux.Handle("/api/live", s.config.Hub)
	}
	if s.config.GridConfig != nil {
		s.mux.HandleFunc("/api/grid/config", s.handleGridConfig)
	}

	if s.config.Snapshots != nil {
		var mirror func() bool
		if s.config.Surface != nil {
			mirror = s.config.Surface.Mirror
		}
		stream := NewStreamHandler(s.config.Snapshots, mirror)
		stream.logger = s.logger
		s.mux.Handle("/api/stream", stream)
	}

	if s.config.Store != nil {
		s.mux.Handle("/api/readings", api.NewReadingsHandler(s.config.Store))
		s.mux.Handle("/api/sessions", api.NewSessionsHandler(s.config.Store))
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginsHandler(s.config.Plugins))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Hub != nil {
		response["subscribers"] = s.config.Hub.Subscribers()
	}
	writeJSON(w, response)
}

type metricResponse struct {
	metric.Reading
	FPS    float64 `json:"fps"`
	Mirror bool    `json:"mirror"`
}

// MarshalJSON merges the reading's fields with the surface state.
func (m metricResponse) MarshalJSON() ([]byte, error) {
	reading, err := json.Marshal(m.Reading)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(reading, &fields); err != nil {
		return nil, err
	}
	fields["fps"], _ = json.Marshal(m.FPS)
	fields["mirror"], _ = json.Marshal(m.Mirror)
	return json.Marshal(fields)
}

// handleMetric handles GET /api/metric.
func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	resp := metricResponse{Reading: s.config.Controller.Reading()}
	if s.config.Surface != nil {
		resp.FPS = s.config.Surface.FPS()
		resp.Mirror = s.config.Surface.Mirror()
	}
	writeJSON(w, resp)
}

// handleGrid handles GET /api/grid with the latest point cloud.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeJSON(w, s.config.Hub.Snapshot())
}

// handleGridConfig handles GET /api/grid/config.
func (s *Server) handleGridConfig(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeJSON(w, s.config.GridConfig)
}

// HTTPServer returns an *http.Server for addr so the caller can shut it down.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
