package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnevik/csv2pg/internal/catalog"
	"github.com/arnevik/csv2pg/internal/config"
	"github.com/arnevik/csv2pg/internal/importer"
)

func kindErr(kind importer.Kind) error {
	return &importer.Error{Kind: kind, Msg: "boom"}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid identifier", kindErr(importer.KindInvalidIdentifier), http.StatusUnprocessableEntity},
		{"invalid type declaration", kindErr(importer.KindInvalidTypeDeclaration), http.StatusUnprocessableEntity},
		{"unsupported type", kindErr(importer.KindUnsupportedType), http.StatusUnprocessableEntity},
		{"schema mismatch", kindErr(importer.KindSchemaMismatch), http.StatusUnprocessableEntity},
		{"conversion error", kindErr(importer.KindConversionError), http.StatusUnprocessableEntity},
		{"empty input", kindErr(importer.KindEmptyInput), http.StatusUnprocessableEntity},
		{"storage failure", kindErr(importer.KindStorageFailure), http.StatusBadGateway},
		{"catalog update failure", kindErr(importer.KindCatalogUpdateFailure), http.StatusInternalServerError},
		{"wrapped pipeline error", fmt.Errorf("import: %w", kindErr(importer.KindConversionError)), http.StatusUnprocessableEntity},
		{"catalog not found", catalog.ErrNotFound, http.StatusNotFound},
		{"too many imports", ErrTooManyImports, http.StatusTooManyRequests},
		{"deadline exceeded", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"cancelled", context.Canceled, http.StatusGatewayTimeout},
		{"unknown error", errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestRespondError_PipelineContext(t *testing.T) {
	s := &Server{}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/import", nil)

	s.respondError(w, r, &importer.Error{
		Kind:   importer.KindConversionError,
		Column: "id",
		Row:    3,
		Value:  "abc",
		Msg:    `cannot convert "abc"`,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conversion_error", resp.Kind)
	assert.Equal(t, "id", resp.Column)
	assert.Equal(t, int64(3), resp.Row)
	assert.Equal(t, "abc", resp.Value)
}

func TestRespondError_StorageDetailsHidden(t *testing.T) {
	s := &Server{}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/import", nil)

	s.respondError(w, r, &importer.Error{
		Kind: importer.KindStorageFailure,
		Msg:  "copy rows",
		Err:  errors.New(`connect to "10.1.2.3:5432" refused`),
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "storage_failure", resp.Kind)
	assert.Equal(t, "storage failure during import", resp.Message)
	assert.NotContains(t, w.Body.String(), "10.1.2.3")
}

// ---------------------------------------------------------------------------
// handleImport request decoding
// ---------------------------------------------------------------------------

func testServer() *Server {
	cfg := &config.Config{
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 1,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
	}
	return &Server{
		cfg:     cfg,
		limiter: NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
	}
}

func multipartBody(t *testing.T, parts map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range parts {
		if name == "file" {
			fw, err := mw.CreateFormFile("file", "data.csv")
			require.NoError(t, err)
			_, err = fw.Write([]byte(content))
			require.NoError(t, err)
			continue
		}
		require.NoError(t, mw.WriteField(name, content))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleImport_MissingSchema(t *testing.T) {
	s := testServer()
	body, contentType := multipartBody(t, map[string]string{"file": "id\n1\n"})

	r := httptest.NewRequest(http.MethodPost, "/api/import", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleImport(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing schema part")
}

func TestHandleImport_InvalidSchemaJSON(t *testing.T) {
	s := testServer()
	body, contentType := multipartBody(t, map[string]string{
		"schema": "{not json",
		"file":   "id\n1\n",
	})

	r := httptest.NewRequest(http.MethodPost, "/api/import", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleImport(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid schema JSON")
}

func TestHandleImport_MissingFile(t *testing.T) {
	s := testServer()
	body, contentType := multipartBody(t, map[string]string{
		"schema": `{"tableName":"people","columns":[{"name":"id","dbType":"integer"}]}`,
	})

	r := httptest.NewRequest(http.MethodPost, "/api/import", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleImport(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no file provided")
}

// fakeImportService returns canned results without a database.
type fakeImportService struct {
	result *importer.ImportResult
	err    error
}

func (f *fakeImportService) Import(context.Context, importer.ImportSchema, io.Reader) (*importer.ImportResult, error) {
	return f.result, f.err
}

func importRequest(t *testing.T) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, map[string]string{
		"schema": `{"tableName":"people","columns":[{"name":"id","dbType":"integer"}]}`,
		"file":   "id\n1\n",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/import", body)
	r.Header.Set("Content-Type", contentType)
	return r
}

func TestHandleImport_Success(t *testing.T) {
	s := testServer()
	s.importer = &fakeImportService{
		result: &importer.ImportResult{QualifiedTable: "imports.people", RowsInserted: 1},
	}

	w := httptest.NewRecorder()
	s.handleImport(w, importRequest(t))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp importer.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "imports.people", resp.QualifiedTable)
	assert.Equal(t, int64(1), resp.RowsInserted)
}

func TestHandleImport_CatalogFailureReportsDegradedSuccess(t *testing.T) {
	s := testServer()
	s.importer = &fakeImportService{
		result: &importer.ImportResult{QualifiedTable: "imports.people", RowsInserted: 1},
		err:    &importer.Error{Kind: importer.KindCatalogUpdateFailure, Msg: "import committed but catalog update failed"},
	}

	w := httptest.NewRecorder()
	s.handleImport(w, importRequest(t))

	// Committed data is a success to the caller, with the warning attached.
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result  *importer.ImportResult `json:"result"`
		Warning string                 `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, "imports.people", resp.Result.QualifiedTable)
	assert.Equal(t, int64(1), resp.Result.RowsInserted)
	assert.Equal(t, "import committed but catalog update failed", resp.Warning)
}

func TestHandleImport_PipelineErrorMapped(t *testing.T) {
	s := testServer()
	s.importer = &fakeImportService{
		err: &importer.Error{Kind: importer.KindConversionError, Column: "id", Row: 1, Value: "abc", Msg: "boom"},
	}

	w := httptest.NewRecorder()
	s.handleImport(w, importRequest(t))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conversion_error", resp.Kind)
	assert.Equal(t, "id", resp.Column)
}

func TestHandleImport_NotMultipart(t *testing.T) {
	s := testServer()

	r := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewBufferString("plain"))
	r.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()

	s.handleImport(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
