package importer

// copy.go drives the binary COPY stream that bulk-loads converted rows.
//
// Load binds a pgx CopyFrom to the included column list and pulls rows
// lazily from the RowReader, applying each column's converter as it goes.
// A short row yields NULL for the missing fields; extra fields are ignored.
// The first conversion failure stops the source, which aborts the COPY and
// surfaces the error with full row context. The enclosing transaction is
// rolled back by the orchestrator, so no partial data is ever visible.

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
)

// copyTx is the subset of pgx.Tx the loader needs.
type copyTx interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Load streams all rows through a binary COPY into the destination table
// and returns the exact number of rows inserted.
func Load(ctx context.Context, tx copyTx, schemaName, tableName string, cols []ColumnDefinition, rows *RowReader) (int64, error) {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}

	src := &copySource{ctx: ctx, cols: cols, rows: rows}
	count, err := tx.CopyFrom(ctx, pgx.Identifier{schemaName, tableName}, names, src)
	if err != nil {
		// Prefer the source's own error: it carries column/row context,
		// while CopyFrom may only report the aborted protocol exchange.
		if src.err != nil {
			return 0, src.err
		}
		return 0, storageErr("copy rows", err)
	}
	return count, nil
}

// copySource adapts the RowReader to pgx.CopyFromSource, converting fields
// on the fly.
type copySource struct {
	ctx  context.Context
	cols []ColumnDefinition
	rows *RowReader

	row    int64 // 1-based ordinal of the current data row
	values []any
	err    error
}

func (s *copySource) Next() bool {
	if s.err != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}

	row, err := s.rows.Next()
	if errors.Is(err, io.EOF) {
		return false
	}
	if err != nil {
		s.err = storageErr("read csv row", err)
		return false
	}

	s.row++
	s.values = make([]any, len(s.cols))
	for i, col := range s.cols {
		raw := ""
		if col.SourceIndex < len(row) {
			raw = row[col.SourceIndex]
		}
		v, err := col.Convert(raw)
		if err != nil {
			s.err = &Error{
				Kind:   KindConversionError,
				Column: col.Name,
				Row:    s.row,
				Value:  raw,
				Msg:    err.Error() + " (target type " + col.DBType + ")",
			}
			return false
		}
		s.values[i] = v
	}
	return true
}

func (s *copySource) Values() ([]any, error) {
	return s.values, nil
}

func (s *copySource) Err() error {
	return s.err
}
