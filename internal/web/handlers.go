package web

// handlers.go implements the JSON API handlers.
//
// POST /api/import takes a multipart form with two parts: "file", the CSV
// payload, and "schema", the JSON schema descriptor. The response is the
// import result or a structured error. GET /api/tables lists the catalog;
// GET /api/tables/{schema}/{table} returns the introspection report for
// one imported table.

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arnevik/csv2pg/internal/catalog"
	"github.com/arnevik/csv2pg/internal/importer"
	"github.com/arnevik/csv2pg/internal/logging"
)

// handleImport runs one CSV import. ParseMultipartForm spools the payload
// to memory or temp files up front, bounded by MaxFileSize; the pipeline
// then reads the spooled part as a stream.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	schemaJSON := r.FormValue("schema")
	if schemaJSON == "" {
		writeError(w, http.StatusBadRequest, "missing schema part")
		return
	}

	var schema importer.ImportSchema
	if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
		writeError(w, http.StatusBadRequest, "invalid schema JSON")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	logger := logging.WithFields(ctx, "table", schema.TableName)
	logger.Info("import started")

	result, err := s.importer.Import(ctx, schema, file)
	if err != nil && result == nil {
		s.respondError(w, r, err)
		return
	}
	if err != nil {
		// Committed but the catalog update failed: degraded success.
		logger.Warn("import degraded", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"result":  result,
			"warning": "import committed but catalog update failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListTables returns all catalog entries.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleDescribeTable returns the introspection report for one table.
func (s *Server) handleDescribeTable(w http.ResponseWriter, r *http.Request) {
	schemaName := chi.URLParam(r, "schema")
	tableName := chi.URLParam(r, "table")

	desc, err := s.inspector.Describe(r.Context(), schemaName, tableName, s.cfg.Import.SampleRows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}
