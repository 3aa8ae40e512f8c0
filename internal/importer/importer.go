package importer

// importer.go is the orchestrator: it composes validation, provisioning,
// and bulk loading into one transactional import call.
//
// An import moves through validate -> provision -> stream -> commit ->
// catalog update. Validation failures abort before any connection is
// opened, so they are always side-effect free. Provisioning and streaming
// run on a single pooled connection inside one transaction; any failure
// there rolls back and nothing of the new table remains. The catalog
// update happens after commit, outside the transaction; if it fails the
// import itself stands, and the caller receives the result together with a
// CatalogUpdateFailure (degraded success).

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog records successfully imported tables. Implemented by
// catalog.Store.
type Catalog interface {
	// Upsert inserts or refreshes the entry for (schemaName, tableName).
	Upsert(ctx context.Context, schemaName, tableName string) error

	// Schema returns the schema the catalog itself lives in.
	Schema() string
}

// Importer executes CSV imports against a connection pool. All imports
// target tables in the configured destination schema.
type Importer struct {
	pool       *pgxpool.Pool
	catalog    Catalog
	destSchema string
}

// New validates the destination schema name and returns an Importer.
// Importing into the catalog's own schema is refused here, once, rather
// than on every call.
func New(pool *pgxpool.Pool, cat Catalog, destSchema string) (*Importer, error) {
	if err := ValidateIdentifier(destSchema, "destination schema"); err != nil {
		return nil, err
	}
	if strings.EqualFold(destSchema, cat.Schema()) {
		return nil, newErr(KindInvalidIdentifier, "destination schema %q conflicts with the catalog schema", destSchema)
	}
	return &Importer{pool: pool, catalog: cat, destSchema: destSchema}, nil
}

// DestSchema returns the destination schema imports are written to.
func (im *Importer) DestSchema() string {
	return im.destSchema
}

// Import validates schema, provisions the destination table, and bulk-loads
// every CSV row inside a single transaction. On success the catalog entry
// for the table is upserted and the result returned.
//
// When the import commits but the catalog update fails, Import returns
// both a non-nil result and a non-nil error of kind CatalogUpdateFailure.
func (im *Importer) Import(ctx context.Context, schema ImportSchema, r io.Reader) (*ImportResult, error) {
	start := time.Now()

	cols, err := im.validate(schema)
	if err != nil {
		return nil, err
	}

	rows := NewRowReader(r)
	if err := checkShape(rows, schema); err != nil {
		return nil, err
	}

	count, err := im.run(ctx, schema.TableName, schema.TableComment, cols, rows)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		QualifiedTable: im.destSchema + "." + schema.TableName,
		RowsInserted:   count,
	}

	slog.Info("import committed",
		"table", result.QualifiedTable,
		"rows", count,
		"duration", time.Since(start),
	)

	if err := im.updateCatalog(ctx, schema.TableName, result); err != nil {
		return result, err
	}

	return result, nil
}

// updateCatalog upserts the catalog entry for a committed import. A failure
// here never undoes the commit; the returned CatalogUpdateFailure travels
// alongside the result as a degraded success.
func (im *Importer) updateCatalog(ctx context.Context, tableName string, result *ImportResult) error {
	if err := im.catalog.Upsert(ctx, im.destSchema, tableName); err != nil {
		slog.Error("catalog update failed after commit",
			"table", result.QualifiedTable,
			"error", err,
		)
		return &Error{Kind: KindCatalogUpdateFailure, Msg: "import committed but catalog update failed", Err: err}
	}
	return nil
}

// validate checks the schema shape, every identifier, and every declared
// type, and resolves the included columns into ColumnDefinitions.
func (im *Importer) validate(schema ImportSchema) ([]ColumnDefinition, error) {
	if err := ValidateIdentifier(schema.TableName, "table name"); err != nil {
		return nil, err
	}
	if len(schema.Columns) == 0 {
		return nil, newErr(KindSchemaMismatch, "schema declares no columns")
	}

	var cols []ColumnDefinition
	for i, spec := range schema.Columns {
		if err := ValidateIdentifier(spec.Name, "column name"); err != nil {
			return nil, err
		}
		if err := ValidateTypeDeclaration(spec.DBType); err != nil {
			return nil, withColumn(err, spec.Name)
		}
		if !spec.Included() {
			continue
		}
		kind, convert, err := Resolve(spec.DBType)
		if err != nil {
			return nil, withColumn(err, spec.Name)
		}
		cols = append(cols, ColumnDefinition{
			Name:        spec.Name,
			DBType:      spec.DBType,
			Comment:     spec.Comment,
			SourceIndex: i,
			Kind:        kind,
			Convert:     convert,
		})
	}

	if len(cols) == 0 {
		return nil, newErr(KindSchemaMismatch, "schema includes no columns")
	}
	return cols, nil
}

// checkShape reads the first row and validates it against the declared
// schema before anything is written. With a header, every field must match
// the declared column name at its position, case-insensitively. Without
// one, the first data row only has to match the declared column count, and
// is pushed back for loading.
func checkShape(rows *RowReader, schema ImportSchema) error {
	first, err := rows.Next()
	if errors.Is(err, io.EOF) {
		return newErr(KindEmptyInput, "csv input contains no rows")
	}
	if err != nil {
		return storageErr("read first csv row", err)
	}

	if len(first) != len(schema.Columns) {
		return newErr(KindSchemaMismatch,
			"csv has %d fields but schema declares %d columns", len(first), len(schema.Columns))
	}

	if !schema.HasHeader() {
		rows.Unread(first)
		return nil
	}

	for i, spec := range schema.Columns {
		header := strings.TrimSpace(first[i])
		if !strings.EqualFold(header, spec.Name) {
			return &Error{
				Kind:   KindSchemaMismatch,
				Column: spec.Name,
				Value:  header,
				Msg:    "header field does not match declared column",
			}
		}
	}
	return nil
}

// run executes the transactional part of the import: provision the table
// and stream the rows, committing only if both succeed.
func (im *Importer) run(ctx context.Context, tableName, tableComment string, cols []ColumnDefinition, rows *RowReader) (int64, error) {
	conn, err := im.pool.Acquire(ctx)
	if err != nil {
		return 0, storageErr("acquire connection", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	// No-op after a successful commit. Runs even when ctx is cancelled so
	// the connection goes back to the pool clean.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := Provision(ctx, tx, im.destSchema, tableName, tableComment, cols); err != nil {
		return 0, err
	}

	count, err := Load(ctx, tx, im.destSchema, tableName, cols, rows)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storageErr("commit transaction", err)
	}
	return count, nil
}
