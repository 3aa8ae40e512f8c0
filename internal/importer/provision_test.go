package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRecorder is a DBTX that records executed SQL and arguments.
type execRecorder struct {
	statements []string
	args       [][]any
	failOn     string
	err        error
}

func (r *execRecorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	r.args = append(r.args, args)
	if r.failOn != "" && strings.HasPrefix(sql, r.failOn) {
		return pgconn.CommandTag{}, r.err
	}
	return pgconn.CommandTag{}, nil
}

func (r *execRecorder) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not used")
}

func (r *execRecorder) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not used")
}

func testColumns(t *testing.T) []ColumnDefinition {
	t.Helper()
	var cols []ColumnDefinition
	for i, spec := range []struct{ name, dbType, comment string }{
		{"id", "integer", ""},
		{"name", "varchar(255)", "display name"},
	} {
		kind, convert, err := Resolve(spec.dbType)
		require.NoError(t, err)
		cols = append(cols, ColumnDefinition{
			Name:        spec.name,
			DBType:      spec.dbType,
			Comment:     spec.comment,
			SourceIndex: i,
			Kind:        kind,
			Convert:     convert,
		})
	}
	return cols
}

func TestBuildCreateTable(t *testing.T) {
	got := buildCreateTable("imports", "people", testColumns(t))
	assert.Equal(t, `CREATE TABLE "imports"."people" ("id" integer, "name" varchar(255))`, got)
}

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "E'plain'"},
		{"it's", "E'it''s'"},
		{`back\slash`, `E'back\\slash'`},
		{"'; DROP TABLE x; --", "E'''; DROP TABLE x; --'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quoteLiteral(tt.input), "input %q", tt.input)
	}
}

func TestProvision_StatementSequence(t *testing.T) {
	rec := &execRecorder{}
	err := Provision(context.Background(), rec, "imports", "people", "imported people", testColumns(t))
	require.NoError(t, err)

	require.Len(t, rec.statements, 5)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "imports"`, rec.statements[0])
	assert.Equal(t, `DROP TABLE IF EXISTS "imports"."people"`, rec.statements[1])
	assert.Contains(t, rec.statements[2], "CREATE TABLE")
	assert.Equal(t, `COMMENT ON TABLE "imports"."people" IS E'imported people'`, rec.statements[3])
	assert.Equal(t, `COMMENT ON COLUMN "imports"."people"."name" IS E'display name'`, rec.statements[4])

	// Comment text never travels as a bind parameter (COMMENT ON cannot
	// take them) but must be quoted, never raw.
	for _, args := range rec.args {
		assert.Empty(t, args)
	}
}

func TestProvision_ColumnComments(t *testing.T) {
	rec := &execRecorder{}
	err := Provision(context.Background(), rec, "imports", "people", "", testColumns(t))
	require.NoError(t, err)

	// No table comment: schema, drop, create, then one column comment.
	require.Len(t, rec.statements, 4)
	assert.Equal(t, `COMMENT ON COLUMN "imports"."people"."name" IS E'display name'`, rec.statements[3])
}

func TestProvision_StorageFailure(t *testing.T) {
	rec := &execRecorder{failOn: "DROP TABLE", err: assert.AnError}
	err := Provision(context.Background(), rec, "imports", "people", "", testColumns(t))
	require.Error(t, err)
	assert.Equal(t, KindStorageFailure, KindOf(err))
}
