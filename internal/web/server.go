// Package web provides the HTTP server and handlers for the CSV import
// service.
//
// The layer is deliberately thin: it decodes the import request (CSV
// stream plus schema descriptor), hands it to the importer, and maps the
// structured errors that come back onto status codes. All pipeline
// semantics live in internal/importer.
package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/arnevik/csv2pg/internal/catalog"
	"github.com/arnevik/csv2pg/internal/config"
	"github.com/arnevik/csv2pg/internal/importer"
	"github.com/arnevik/csv2pg/internal/inspect"
)

// ImportService runs one CSV import. Implemented by importer.Importer.
type ImportService interface {
	Import(ctx context.Context, schema importer.ImportSchema, r io.Reader) (*importer.ImportResult, error)
}

// Server is the HTTP server for the CSV import service.
type Server struct {
	importer  ImportService
	catalog   *catalog.Store
	inspector *inspect.Inspector
	cfg       *config.Config
	limiter   *ImportLimiter
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a new Server instance.
func NewServer(imp ImportService, cat *catalog.Store, insp *inspect.Inspector, cfg *config.Config) *Server {
	s := &Server{
		importer:  imp,
		catalog:   cat,
		inspector: insp,
		cfg:       cfg,
		limiter:   NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(chimw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Imports run under their own configured timeout in the handler.
		r.Post("/import", s.handleImport)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))
			r.Get("/tables", s.handleListTables)
			r.Get("/tables/{schema}/{table}", s.handleDescribeTable)
		})
	})
}

// Start begins listening for HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting up to the configured
// shutdown timeout for in-flight imports to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(shutdownCtx)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"activeImports": s.limiter.ActiveCount(),
		"maxConcurrent": s.limiter.MaxConcurrent(),
	})
}
