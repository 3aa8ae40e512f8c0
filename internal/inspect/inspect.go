// Package inspect builds read-only reports about imported tables.
//
// It consumes the catalog the import pipeline maintains and the live
// table definitions in information_schema; it never writes either. The
// shapes here are what the API serializes for table listing and
// describe endpoints.
package inspect

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arnevik/csv2pg/internal/catalog"
)

// DBTX is the interface for database operations.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Column describes one column of an imported table.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// TableDescription is the full report for one imported table.
type TableDescription struct {
	SchemaName string           `json:"schemaName"`
	TableName  string           `json:"tableName"`
	Columns    []Column         `json:"columns"`
	RowCount   int64            `json:"rowCount"`
	SampleRows []map[string]any `json:"sampleRows,omitempty"`
	ImportedAt time.Time        `json:"importedAt"`
}

// Inspector reads table metadata and samples for reporting.
type Inspector struct {
	db  DBTX
	cat *catalog.Store
}

// New returns an Inspector over db, scoped to tables the catalog knows.
func New(db DBTX, cat *catalog.Store) *Inspector {
	return &Inspector{db: db, cat: cat}
}

// Describe reports the columns, row count, and up to sampleLimit sample
// rows of an imported table. Tables absent from the catalog yield
// catalog.ErrNotFound even if they physically exist. The catalog is the
// authority on what this service imported.
func (in *Inspector) Describe(ctx context.Context, schemaName, tableName string, sampleLimit int) (*TableDescription, error) {
	entry, err := in.cat.Get(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	desc := &TableDescription{
		SchemaName: entry.SchemaName,
		TableName:  entry.TableName,
		ImportedAt: entry.ImportedAt,
	}

	if desc.Columns, err = in.columns(ctx, schemaName, tableName); err != nil {
		return nil, err
	}

	ident := pgx.Identifier{schemaName, tableName}.Sanitize()
	if err := in.db.QueryRow(ctx, "SELECT count(*) FROM "+ident).Scan(&desc.RowCount); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	if sampleLimit > 0 {
		if desc.SampleRows, err = in.samples(ctx, ident, sampleLimit); err != nil {
			return nil, err
		}
	}

	return desc, nil
}

// columns reads the table's column definitions from information_schema.
func (in *Inspector) columns(ctx context.Context, schemaName, tableName string) ([]Column, error) {
	rows, err := in.db.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`,
		schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}
	return cols, nil
}

// samples reads up to limit rows and maps them by column name.
func (in *Inspector) samples(ctx context.Context, ident string, limit int) ([]map[string]any, error) {
	rows, err := in.db.Query(ctx, "SELECT * FROM "+ident+" LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("sample rows: %w", err)
	}
	defer rows.Close()

	var samples []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read sample row: %w", err)
		}
		sample := make(map[string]any, len(values))
		for i, fd := range rows.FieldDescriptions() {
			sample[fd.Name] = values[i]
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sample rows: %w", err)
	}
	return samples, nil
}
