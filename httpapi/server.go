// Package httpapi exposes run controllers over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/zenibako/runsheet-golang/runsheet"
)

// Server is the HTTP transport over a set of runs.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	runs       *runsheet.Runs
	loader     runsheet.TemplateLoader
	started    time.Time
}

// NewServer builds the router. loader may be nil, which disables template seeding.
func NewServer(runs *runsheet.Runs, loader runsheet.TemplateLoader, addr string) *Server {
	router := mux.NewRouter()
	s := &Server{
		router:  router,
		runs:    runs,
		loader:  loader,
		started: time.Now(),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      Recovery(Logging(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)

	run := api.PathPrefix("/runs/{run}").Subrouter()
	run.HandleFunc("/cues", s.handleListCues).Methods(http.MethodGet)
	run.HandleFunc("/cues", s.handleCreateCue).Methods(http.MethodPost)
	run.HandleFunc("/cues/{id}", s.handleGetCue).Methods(http.MethodGet)
	run.HandleFunc("/cues/{id}", s.handleDeleteCue).Methods(http.MethodDelete)
	run.HandleFunc("/cues/{id}/{command}", s.handleCueCommand).Methods(http.MethodPost)
	run.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	run.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	run.HandleFunc("/board", s.handleBoard).Methods(http.MethodGet)
	run.HandleFunc("/template", s.handleSeedTemplate).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SendError(w, http.StatusNotFound, runsheet.CodeNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SendError(w, http.StatusMethodNotAllowed, runsheet.CodeInvalidRequest, fmt.Sprintf("%s not allowed on %s", r.Method, r.URL.Path))
	})
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.started = time.Now()
	log.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
