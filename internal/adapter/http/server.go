// Package http exposes the profiles service over a JSON HTTP API: technology
// catalogs and inspection, cutout listing and metadata, profile generation,
// plus health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
	"github.com/thesethtruth/atlite-profiles-api/internal/cutout"
	"github.com/thesethtruth/atlite-profiles-api/internal/profile"
	"github.com/thesethtruth/atlite-profiles-api/internal/technology"
)

// EventPublisher pushes service events to an external broker. Optional.
type EventPublisher interface {
	Publish(ctx context.Context, kind string, payload any) error
}

// Server exposes the profiles service HTTP API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	catalog          *technology.Catalog
	resolver         *technology.Resolver
	inspector        atlite.Inspector
	generator        *profile.Generator
	storage          profile.StorageConfig
	cutoutConfigFile string
	events           EventPublisher
}

// Options carries the collaborators of the HTTP server.
type Options struct {
	Catalog          *technology.Catalog
	Resolver         *technology.Resolver
	Inspector        atlite.Inspector
	Generator        *profile.Generator
	Storage          profile.StorageConfig
	CutoutConfigFile string
	Events           EventPublisher
}

// NewServer creates the API server on addr.
func NewServer(addr string, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 35 * time.Minute, // generation calls block on the toolkit
			IdleTimeout:  60 * time.Second,
		},
		logger:           logger,
		catalog:          opts.Catalog,
		resolver:         opts.Resolver,
		inspector:        opts.Inspector,
		generator:        opts.Generator,
		storage:          opts.Storage,
		cutoutConfigFile: opts.CutoutConfigFile,
		events:           opts.Events,
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /turbines", s.handleListTurbines)
	mux.HandleFunc("GET /turbines/{id}", s.handleInspectTurbine)
	mux.HandleFunc("GET /solar-technologies", s.handleListSolarTechnologies)
	mux.HandleFunc("GET /solar-technologies/{id}", s.handleInspectSolarTechnology)
	mux.HandleFunc("GET /cutouts", s.handleListCutouts)
	mux.HandleFunc("GET /cutouts/{name}", s.handleInspectCutout)
	mux.HandleFunc("POST /generate", s.handleGenerate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTurbines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Turbines(r.Context()))
}

func (s *Server) handleListSolarTechnologies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.SolarTechnologies(r.Context()))
}

func (s *Server) handleInspectTurbine(w http.ResponseWriter, r *http.Request) {
	inspection, err := s.resolver.InspectTurbine(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

func (s *Server) handleInspectSolarTechnology(w http.ResponseWriter, r *http.Request) {
	inspection, err := s.resolver.InspectSolarTechnology(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

// cutoutSummary is one configured cutout in the listing response.
type cutoutSummary struct {
	Name     string `json:"name,omitempty"`
	Filename string `json:"filename"`
	Target   string `json:"target"`
	Path     string `json:"path"`
	Remote   bool   `json:"remote"`
}

func (s *Server) handleListCutouts(w http.ResponseWriter, _ *http.Request) {
	cfg, err := cutout.LoadConfig(s.cutoutConfigFile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := make([]cutoutSummary, len(cfg.Cutouts))
	for i, entry := range cfg.Cutouts {
		items[i] = cutoutSummary{
			Name:     entry.Name,
			Filename: entry.Filename,
			Target:   entry.Target,
			Path:     entry.DestinationPath(),
			Remote:   entry.IsRemote(),
		}
	}
	writeJSON(w, http.StatusOK, map[string][]cutoutSummary{"items": items})
}

func (s *Server) handleInspectCutout(w http.ResponseWriter, r *http.Request) {
	cfg, err := cutout.LoadConfig(s.cutoutConfigFile)
	if err != nil {
		s.writeError(w, err)
		return
	}

	name := r.PathValue("name")
	for i := range cfg.Cutouts {
		entry := &cfg.Cutouts[i]
		if entry.Name != name && entry.Filename != name {
			continue
		}
		if entry.IsRemote() {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "cutout '" + name + "' lives on a remote target and cannot be inspected",
			})
			return
		}
		meta, err := s.inspector.InspectCutout(r.Context(), entry.LocalPath())
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, meta)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "cutout '" + name + "' was not found",
	})
}

// generateRequest is the POST /generate payload: the generation request plus
// a switch to persist the series instead of returning them inline.
type generateRequest struct {
	profile.Request
	Store bool `json:"store,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	var (
		payload any
		err     error
	)
	if req.Store {
		payload, err = s.generator.GenerateToStorage(r.Context(), &req.Request, s.storage, nil)
	} else {
		payload, err = s.generator.Generate(r.Context(), &req.Request)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.events != nil {
		if err := s.events.Publish(r.Context(), "profiles_generated", payload); err != nil {
			s.logger.Warn("event publish failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, technology.ErrNotFound), errors.Is(err, cutout.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, technology.ErrInvalidDefinition), errors.Is(err, profile.ErrInvalidRequest):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
