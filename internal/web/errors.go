package web

// errors.go maps the pipeline's structured errors onto HTTP responses.
//
// Validation-kind failures are the caller's fault and return 4xx with the
// error's own context (column, row, value). Storage failures return 502
// with a generic message; the cause is logged server-side with the
// request id, never sent to the client.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/arnevik/csv2pg/internal/catalog"
	"github.com/arnevik/csv2pg/internal/importer"
)

// ErrorResponse is the JSON body for all error responses.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Column  string `json:"column,omitempty"`
	Row     int64  `json:"row,omitempty"`
	Value   string `json:"value,omitempty"`
}

// respondError classifies err and writes the matching status and body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", chimw.GetReqID(r.Context()),
	)

	resp := ErrorResponse{Kind: "internal", Message: "internal error"}

	var ie *importer.Error
	switch {
	case errors.As(err, &ie):
		resp = ErrorResponse{
			Kind:    string(ie.Kind),
			Message: ie.Error(),
			Column:  ie.Column,
			Row:     ie.Row,
			Value:   ie.Value,
		}
		if ie.Kind == importer.KindStorageFailure {
			// Keep driver details out of the response body.
			resp.Message = "storage failure during import"
		}
	case errors.Is(err, catalog.ErrNotFound):
		resp = ErrorResponse{Kind: "not_found", Message: "table not found in import catalog"}
	case errors.Is(err, ErrTooManyImports):
		resp = ErrorResponse{Kind: "too_many_imports", Message: err.Error()}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// statusForError picks the HTTP status for a pipeline error.
func statusForError(err error) int {
	switch importer.KindOf(err) {
	case importer.KindInvalidIdentifier,
		importer.KindInvalidTypeDeclaration,
		importer.KindUnsupportedType,
		importer.KindSchemaMismatch,
		importer.KindConversionError,
		importer.KindEmptyInput:
		return http.StatusUnprocessableEntity
	case importer.KindStorageFailure:
		return http.StatusBadGateway
	case importer.KindCatalogUpdateFailure:
		// Handled as degraded success before reaching here; a bare
		// catalog failure still reports server-side trouble.
		return http.StatusInternalServerError
	}

	if errors.Is(err, catalog.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrTooManyImports) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a bare bad-request style error without pipeline context.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Kind: "bad_request", Message: msg})
}
