package importer

// registry.go maps declared column types to their registry kind and
// conversion function.
//
// Resolution normalizes the declared string (lowercase, precision suffix
// stripped, whitespace collapsed) purely for matching; the original string
// is preserved elsewhere for DDL. Dispatch is a fixed table of kinds, not
// reflection: every supported type family is an explicit ColumnKind with an
// explicit converter.

import (
	"regexp"
	"strings"
)

// ColumnKind identifies a supported destination column type family.
type ColumnKind int

const (
	ColBool ColumnKind = iota
	ColInt2
	ColInt4
	ColInt8
	ColNumeric
	ColFloat4
	ColFloat8
	ColText
	ColUUID
	ColDate
	ColTimestamp
	ColTimestamptz
	ColTime
	ColTimetz
	ColJSON
	ColBytea
)

// String returns the canonical PostgreSQL name for the kind.
func (k ColumnKind) String() string {
	switch k {
	case ColBool:
		return "boolean"
	case ColInt2:
		return "smallint"
	case ColInt4:
		return "integer"
	case ColInt8:
		return "bigint"
	case ColNumeric:
		return "numeric"
	case ColFloat4:
		return "real"
	case ColFloat8:
		return "double precision"
	case ColText:
		return "text"
	case ColUUID:
		return "uuid"
	case ColDate:
		return "date"
	case ColTimestamp:
		return "timestamp"
	case ColTimestamptz:
		return "timestamptz"
	case ColTime:
		return "time"
	case ColTimetz:
		return "timetz"
	case ColJSON:
		return "json"
	case ColBytea:
		return "bytea"
	default:
		return "unknown"
	}
}

// kindByName maps every accepted normalized type spelling to its kind.
// Spellings follow PostgreSQL's own aliases (int4 = int = integer, etc.).
var kindByName = map[string]ColumnKind{
	"bool":    ColBool,
	"boolean": ColBool,

	"smallint": ColInt2,
	"int2":     ColInt2,

	"int":     ColInt4,
	"integer": ColInt4,
	"int4":    ColInt4,

	"bigint": ColInt8,
	"int8":   ColInt8,

	"numeric": ColNumeric,
	"decimal": ColNumeric,

	"real":             ColFloat4,
	"float4":           ColFloat4,
	"double precision": ColFloat8,
	"float8":           ColFloat8,

	"char":              ColText,
	"character":         ColText,
	"varchar":           ColText,
	"character varying": ColText,
	"text":              ColText,

	"uuid": ColUUID,

	"date": ColDate,

	"timestamp":                   ColTimestamp,
	"timestamp without time zone": ColTimestamp,
	"timestamptz":                 ColTimestamptz,
	"timestamp with time zone":    ColTimestamptz,

	"time":                   ColTime,
	"time without time zone": ColTime,
	"timetz":                 ColTimetz,
	"time with time zone":    ColTimetz,

	"json":  ColJSON,
	"jsonb": ColJSON,

	"bytea": ColBytea,
}

// Resolve maps a declared type string to its kind and converter.
// Returns an UnsupportedType error for any spelling outside the registry.
func Resolve(declared string) (ColumnKind, Converter, error) {
	kind, ok := kindByName[normalizeType(declared)]
	if !ok {
		return 0, nil, &Error{
			Kind:  KindUnsupportedType,
			Value: declared,
			Msg:   "declared type is not supported",
		}
	}
	return kind, converterFor(kind), nil
}

// normalizeType lowercases the declared type, strips any parenthesized
// precision/scale group, and collapses internal whitespace, so
// "VarChar(255)", "timestamp(3) with time zone", and
// "timestamp   with time zone" all match their family.
func normalizeType(declared string) string {
	s := strings.ToLower(declared)
	s = precisionRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// precisionRegex matches a parenthesized precision/scale group such as
// "(255)" or "(10,2)". Anything fancier than digits and commas is left in
// place and fails resolution.
var precisionRegex = regexp.MustCompile(`\(\s*\d+\s*(,\s*\d+\s*)?\)`)
