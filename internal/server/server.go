// Package server provides the HTTP server for the shot detection service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/phrack/ShootOFF-sub002/internal/app"
	"github.com/phrack/ShootOFF-sub002/internal/server/api"
	"github.com/phrack/ShootOFF-sub002/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server represents the HTTP server for the shot detection service.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	events *EventHub
}

// New creates a new Server with the given configuration. When an App is
// configured the server registers itself as a listener for live events.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		s.mux.Handle("/api/shots", api.NewShotsHandler(s.config.Store))
	}

	if s.config.App != nil {
		s.mux.Handle("/api/cameras", api.NewCamerasHandler(s.config.App))
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.App))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))

		s.events = NewEventHub()
		s.config.App.AddListener(s.events)
		s.mux.Handle("/api/events", s.events)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Events returns the live event hub, or nil without an App.
func (s *Server) Events() *EventHub {
	return s.events
}

// Close disconnects live event clients. Register it with
// http.Server.RegisterOnShutdown.
func (s *Server) Close() {
	if s.events != nil {
		s.events.Close()
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["detection_enabled"] = s.config.App.IsEnabled()
		response["cameras"] = len(s.config.App.Cameras())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
