// Package server exposes the pipeline over HTTP: polling endpoints for the
// latest state, a WebSocket tick stream and recorded sessions.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/store"
)

// Pipeline is the view of the pipeline the server needs.
type Pipeline interface {
	Latest() pipeline.Tick
	Stats() pipeline.Stats
	Enabled() bool
	SetEnabled(bool)
}

// Config holds the server configuration.
type Config struct {
	Pipeline Pipeline
	Hub      *Hub

	// Store enables the session endpoints.
	Store *store.Store

	// Settings is served as-is from /api/config.
	Settings any

	// StaticDir, when set, is served at the root for browser overlays.
	StaticDir string
}

// Server represents the HTTP server.
type Server struct {
	config Config
	router chi.Router
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Default(), NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/config", s.handleConfig)

	if s.config.Pipeline != nil {
		r.Get("/api/state", s.handleState)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/enabled", s.handleGetEnabled)
		r.Put("/api/enabled", s.handleSetEnabled)
	}

	if s.config.Hub != nil {
		r.Get("/api/stream", s.config.Hub.ServeHTTP)
	}

	if s.config.Store != nil {
		r.Route("/api/sessions", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Get("/{id}", s.getSession)
			r.Delete("/{id}", s.deleteSession)
			r.Get("/{id}/events", s.listSessionEvents)
		})
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "listen on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	return srv.Shutdown(shutdownCtx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if s.config.Settings == nil {
		writeError(w, http.StatusNotFound, "no configuration loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.config.Settings)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Pipeline.Latest())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Pipeline.Stats())
}

type enabledBody struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleGetEnabled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, enabledBody{Enabled: s.config.Pipeline.Enabled()})
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var body enabledBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.config.Pipeline.SetEnabled(body.Enabled)
	writeJSON(w, http.StatusOK, body)
}
