package importer

// errors.go defines the structured error taxonomy for import operations.
//
// Every failure an import can produce is classified by Kind, so callers
// (the web layer, the CLI) can map it to an appropriate status code without
// string-matching messages. Errors carry enough context to be actionable by
// the person who submitted the CSV: the column, the row ordinal, the raw
// value. They never include connection details.

import (
	"errors"
	"fmt"
)

// Kind classifies an import failure.
type Kind string

const (
	// KindInvalidIdentifier means a table or column name failed identifier
	// validation before any SQL was generated.
	KindInvalidIdentifier Kind = "invalid_identifier"

	// KindInvalidTypeDeclaration means a declared column type contained
	// characters outside the accepted type grammar.
	KindInvalidTypeDeclaration Kind = "invalid_type_declaration"

	// KindUnsupportedType means a declared type is syntactically valid but
	// not in the registry's supported set.
	KindUnsupportedType Kind = "unsupported_type"

	// KindSchemaMismatch means the CSV's shape (header names or field count)
	// does not match the declared schema.
	KindSchemaMismatch Kind = "schema_mismatch"

	// KindConversionError means a cell value could not be parsed as its
	// column's declared type.
	KindConversionError Kind = "conversion_error"

	// KindEmptyInput means the CSV contained no rows at all.
	KindEmptyInput Kind = "empty_input"

	// KindStorageFailure covers connectivity, DDL, COPY, and transaction
	// errors from the underlying store.
	KindStorageFailure Kind = "storage_failure"

	// KindCatalogUpdateFailure means the import committed but the catalog
	// upsert afterwards failed. The destination table exists and is fully
	// loaded; only its catalog entry is stale.
	KindCatalogUpdateFailure Kind = "catalog_update_failure"
)

// Error is the structured error type returned by the import pipeline.
// Column, Row, and Value are populated where they apply and zero otherwise.
type Error struct {
	Kind   Kind
	Column string // column name, for identifier/conversion errors
	Row    int64  // 1-based data row ordinal, for conversion errors
	Value  string // offending raw value
	Msg    string
	Err    error // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Column != "" && e.Row > 0:
		return fmt.Sprintf("%s: column %q, row %d: %s", e.Kind, e.Column, e.Row, msg)
	case e.Column != "":
		return fmt.Sprintf("%s: column %q: %s", e.Kind, e.Column, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err if it is (or wraps) an import Error,
// and "" otherwise.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// newErr builds an Error with just a kind and a formatted message.
func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// withColumn attaches a column name to an import Error for context.
func withColumn(err error, column string) error {
	var ie *Error
	if errors.As(err, &ie) {
		ie.Column = column
	}
	return err
}

// storageErr wraps a driver error as a storage failure, keeping the cause
// for server-side logs while the web layer only surfaces op and kind.
func storageErr(op string, err error) *Error {
	return &Error{Kind: KindStorageFailure, Msg: op, Err: err}
}
