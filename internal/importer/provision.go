package importer

// provision.go issues the DDL that prepares the destination table.
//
// All statements run inside the caller's transaction. Identifiers are
// always quoted (pgx.Identifier) so case is preserved and reserved words
// are neutral; declared types have already passed ValidateTypeDeclaration
// and are interpolated verbatim. Comment text is attached with quoted
// literals: COMMENT ON is a utility statement and cannot take bind
// parameters, so quoteLiteral is the one place a value is escaped by hand.

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Provision creates the destination schema and table, dropping any prior
// table of the same name. Data loss on re-import is intentional: imports
// replace, they never append.
func Provision(ctx context.Context, db DBTX, schemaName, tableName, tableComment string, cols []ColumnDefinition) error {
	schemaIdent := pgx.Identifier{schemaName}.Sanitize()
	tableIdent := pgx.Identifier{schemaName, tableName}.Sanitize()

	if _, err := db.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schemaIdent); err != nil {
		return storageErr("create schema", err)
	}

	if _, err := db.Exec(ctx, "DROP TABLE IF EXISTS "+tableIdent); err != nil {
		return storageErr("drop existing table", err)
	}

	if _, err := db.Exec(ctx, buildCreateTable(schemaName, tableName, cols)); err != nil {
		return storageErr("create table", err)
	}

	if tableComment != "" {
		stmt := fmt.Sprintf("COMMENT ON TABLE %s IS %s", tableIdent, quoteLiteral(tableComment))
		if _, err := db.Exec(ctx, stmt); err != nil {
			return storageErr("comment on table", err)
		}
	}

	for _, col := range cols {
		if col.Comment == "" {
			continue
		}
		colIdent := pgx.Identifier{schemaName, tableName, col.Name}.Sanitize()
		stmt := fmt.Sprintf("COMMENT ON COLUMN %s IS %s", colIdent, quoteLiteral(col.Comment))
		if _, err := db.Exec(ctx, stmt); err != nil {
			return storageErr("comment on column", err)
		}
	}

	return nil
}

// buildCreateTable renders the CREATE TABLE statement for the included
// columns, in declared order, with their declared types verbatim.
func buildCreateTable(schemaName, tableName string, cols []ColumnDefinition) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(pgx.Identifier{schemaName, tableName}.Sanitize())
	b.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{col.Name}.Sanitize())
		b.WriteString(" ")
		b.WriteString(col.DBType)
	}
	b.WriteString(")")
	return b.String()
}

// quoteLiteral renders s as a PostgreSQL string literal. Single quotes are
// doubled; the E'' form covers backslashes regardless of the server's
// standard_conforming_strings setting.
func quoteLiteral(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "'", "''")
	return "E'" + escaped + "'"
}
