// Package importer implements the CSV-to-table import pipeline: schema
// validation, destination table provisioning, and transactional bulk
// loading over the PostgreSQL COPY protocol.
//
// The pipeline always targets exactly one table per call and replaces it
// wholesale. Callers supply the CSV as an io.Reader plus an ImportSchema
// describing the destination columns; the pipeline owns everything from
// validation through commit and the catalog update that follows.
package importer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// ColumnSpec describes one destination column as supplied by the caller.
type ColumnSpec struct {
	// Name is the destination column name. Must be a valid identifier.
	Name string `json:"name"`

	// DBType is the declared PostgreSQL type, precision suffix allowed
	// (e.g. "varchar(255)", "numeric(10,2)"). Preserved verbatim in DDL.
	DBType string `json:"dbType"`

	// Include controls whether the column is created and loaded. Columns
	// with Include=false still occupy a position in the CSV. Defaults to
	// true when the column arrives via JSON or YAML.
	Include *bool `json:"include,omitempty"`

	// Comment is an optional column comment.
	Comment string `json:"comment,omitempty"`
}

// Included reports whether the column participates in the import.
func (c ColumnSpec) Included() bool {
	return c.Include == nil || *c.Include
}

// ImportSchema is the caller-supplied description of one import.
type ImportSchema struct {
	// TableName is the destination table name. The destination schema comes
	// from configuration, not from the caller.
	TableName string `json:"tableName"`

	Columns []ColumnSpec `json:"columns"`

	// TableComment is an optional table comment.
	TableComment string `json:"tableComment,omitempty"`

	// FirstRowIsHeader indicates the first CSV row holds column names that
	// must match the declared columns. Defaults to true over JSON/YAML.
	FirstRowIsHeader *bool `json:"firstRowIsHeader,omitempty"`
}

// HasHeader reports whether the first CSV row is a header.
func (s ImportSchema) HasHeader() bool {
	return s.FirstRowIsHeader == nil || *s.FirstRowIsHeader
}

// ColumnDefinition is the resolved form of an included column, derived once
// per import call and immutable for its duration.
type ColumnDefinition struct {
	Name        string     // validated column name
	DBType      string     // declared type, verbatim for DDL
	Comment     string     // optional column comment
	SourceIndex int        // field position in the input row
	Kind        ColumnKind // resolved registry kind
	Convert     Converter  // raw text -> typed value or nil (NULL)
}

// ImportResult is returned to the caller on success.
type ImportResult struct {
	// QualifiedTable is the schema-qualified destination table name.
	QualifiedTable string `json:"fullyQualifiedTableName"`

	// RowsInserted is the exact number of data rows streamed and committed.
	RowsInserted int64 `json:"rowsInserted"`
}
