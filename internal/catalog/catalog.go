// Package catalog persists the registry of imported tables.
//
// The catalog lives in its own schema, separate from the destination
// schema imports write into, and records one row per (schema, table) pair
// with the time of the last successful import. The import orchestrator is
// its only writer; the introspection layer and the API read it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// ErrNotFound is returned by Get when no entry exists for the pair.
var ErrNotFound = errors.New("catalog: entry not found")

// Entry is one catalog row.
type Entry struct {
	ID         int64     `json:"id"`
	SchemaName string    `json:"schemaName"`
	TableName  string    `json:"tableName"`
	ImportedAt time.Time `json:"importedAt"`
}

// Store reads and writes catalog entries in a dedicated schema.
type Store struct {
	db     DBTX
	schema string
}

// New returns a Store over db, keeping its table in schema. The schema
// name comes from configuration and is interpolated into DDL, so it must
// already be a validated identifier.
func New(db DBTX, schema string) *Store {
	return &Store{db: db, schema: schema}
}

// Schema returns the schema the catalog lives in.
func (s *Store) Schema() string {
	return s.schema
}

// table returns the quoted, qualified catalog table name.
func (s *Store) table() string {
	return pgx.Identifier{s.schema, "imported_tables"}.Sanitize()
}

// Ensure creates the catalog schema, table, and unique index if they do
// not exist. Idempotent; run once at startup.
func (s *Store) Ensure(ctx context.Context) error {
	stmts := []string{
		"CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{s.schema}.Sanitize(),
		"CREATE TABLE IF NOT EXISTS " + s.table() + ` (
			id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			schema_name varchar(63) NOT NULL,
			table_name varchar(63) NOT NULL,
			imported_at timestamptz NOT NULL DEFAULT now(),
			UNIQUE (schema_name, table_name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure catalog: %w", err)
		}
	}
	return nil
}

// Upsert creates the entry for (schemaName, tableName) or refreshes its
// imported_at timestamp. Re-imports of the same table keep a single row.
func (s *Store) Upsert(ctx context.Context, schemaName, tableName string) error {
	stmt := "INSERT INTO " + s.table() + ` (schema_name, table_name)
		VALUES ($1, $2)
		ON CONFLICT (schema_name, table_name)
		DO UPDATE SET imported_at = now()`

	if _, err := s.db.Exec(ctx, stmt, schemaName, tableName); err != nil {
		return fmt.Errorf("upsert catalog entry: %w", err)
	}
	return nil
}

// Get returns the entry for (schemaName, tableName), or ErrNotFound.
func (s *Store) Get(ctx context.Context, schemaName, tableName string) (*Entry, error) {
	stmt := "SELECT id, schema_name, table_name, imported_at FROM " + s.table() +
		" WHERE schema_name = $1 AND table_name = $2"

	var e Entry
	err := s.db.QueryRow(ctx, stmt, schemaName, tableName).
		Scan(&e.ID, &e.SchemaName, &e.TableName, &e.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	return &e, nil
}

// List returns all entries ordered by schema then table.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	stmt := "SELECT id, schema_name, table_name, imported_at FROM " + s.table() +
		" ORDER BY schema_name, table_name"

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SchemaName, &e.TableName, &e.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	return entries, nil
}
