package importer

// convert.go provides the string-to-typed-value converters behind the type
// registry.
//
// Conversion is strict and locale-independent: numbers use the plain
// invariant grammar (strconv), dates and times use the canonical ISO 8601
// profile, booleans accept exactly {true,t,1,false,f,0}. Empty or
// whitespace-only input always converts to SQL NULL. Anything else that
// fails to parse is an error; the bulk loader turns it into a
// ConversionError carrying the column, row, and raw value, and the whole
// import aborts.
//
// Converters return pgtype values (or nil for NULL) so the COPY encoder
// writes them in the binary format matching the destination column.

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Converter parses one raw CSV field into a value suitable for the COPY
// stream. A nil value with a nil error means SQL NULL.
type Converter func(s string) (any, error)

// converterFor returns the conversion function for a registry kind.
func converterFor(kind ColumnKind) Converter {
	switch kind {
	case ColBool:
		return convertBool
	case ColInt2:
		return convertInt2
	case ColInt4:
		return convertInt4
	case ColInt8:
		return convertInt8
	case ColNumeric:
		return convertNumeric
	case ColFloat4:
		return convertFloat4
	case ColFloat8:
		return convertFloat8
	case ColText:
		return convertText
	case ColUUID:
		return convertUUID
	case ColDate:
		return convertDate
	case ColTimestamp:
		return convertTimestamp
	case ColTimestamptz:
		return convertTimestamptz
	case ColTime:
		return convertTime
	case ColTimetz:
		return convertTimetz
	case ColJSON:
		return convertJSON
	case ColBytea:
		return convertBytea
	default:
		return nil
	}
}

// isNull reports whether a raw field represents SQL NULL.
func isNull(s string) bool {
	return strings.TrimSpace(s) == ""
}

func convertBool(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1":
		return pgtype.Bool{Bool: true, Valid: true}, nil
	case "false", "f", "0":
		return pgtype.Bool{Bool: false, Valid: true}, nil
	default:
		return nil, errors.New("not a valid boolean (expected true/t/1 or false/f/0)")
	}
}

func convertInt2(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return nil, errors.New("not a valid smallint")
	}
	return pgtype.Int2{Int16: int16(v), Valid: true}, nil
}

func convertInt4(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return nil, errors.New("not a valid integer")
	}
	return pgtype.Int4{Int32: int32(v), Valid: true}, nil
}

func convertInt8(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, errors.New("not a valid bigint")
	}
	return pgtype.Int8{Int64: v, Valid: true}, nil
}

// numericRegex matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func convertNumeric(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return nil, errors.New("not a valid numeric")
	}
	var n pgtype.Numeric
	if err := n.Scan(expandExponent(s)); err != nil {
		return nil, errors.New("not a valid numeric")
	}
	return n, nil
}

// expandExponent rewrites scientific notation into the plain decimal form
// the numeric scanner accepts ("1.5e3" -> "1500", "2E-3" -> "0.002").
// Exact: the decimal point moves, no digits are rounded away. Input must
// already match numericRegex.
func expandExponent(s string) string {
	i := strings.IndexAny(s, "eE")
	if i < 0 {
		return s
	}
	mantissa := s[:i]
	exp, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return s
	}

	sign := ""
	if mantissa[0] == '+' || mantissa[0] == '-' {
		if mantissa[0] == '-' {
			sign = "-"
		}
		mantissa = mantissa[1:]
	}

	intPart, fracPart, _ := strings.Cut(mantissa, ".")
	digits := intPart + fracPart
	point := len(intPart) + exp

	switch {
	case point <= 0:
		return sign + "0." + strings.Repeat("0", -point) + digits
	case point >= len(digits):
		return sign + digits + strings.Repeat("0", point-len(digits))
	default:
		return sign + digits[:point] + "." + digits[point:]
	}
}

func convertFloat4(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return nil, errors.New("not a valid real")
	}
	return pgtype.Float4{Float32: float32(v), Valid: true}, nil
}

func convertFloat8(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, errors.New("not a valid double precision")
	}
	return pgtype.Float8{Float64: v, Valid: true}, nil
}

func convertText(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	return pgtype.Text{String: s, Valid: true}, nil
}

func convertUUID(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.New("not a valid UUID")
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func convertDate(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil, errors.New("not a valid date (expected YYYY-MM-DD)")
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

// timestampLayouts covers the ISO 8601 profile without a zone offset.
// time.Parse accepts fractional seconds even when the layout omits them.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func convertTimestamp(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamp{Time: t, Valid: true}, nil
		}
	}
	return nil, errors.New("not a valid timestamp (expected ISO 8601)")
}

// timestamptzLayouts covers the ISO 8601 profile with a zone offset or Z.
var timestamptzLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
}

func convertTimestamptz(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timestamptzLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}, nil
		}
	}
	// Zone-less timestamps are accepted and interpreted as UTC.
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamptz{Time: t.UTC(), Valid: true}, nil
		}
	}
	return nil, errors.New("not a valid timestamp with time zone (expected ISO 8601)")
}

func convertTime(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return nil, errors.New("not a valid time (expected HH:MM:SS)")
	}
	micros := int64(t.Hour())*3600_000_000 +
		int64(t.Minute())*60_000_000 +
		int64(t.Second())*1_000_000 +
		int64(t.Nanosecond())/1000
	return pgtype.Time{Microseconds: micros, Valid: true}, nil
}

// timetzLayouts covers time-of-day with an explicit zone offset.
var timetzLayouts = []string{
	"15:04:05Z07:00",
	"15:04:05Z0700",
	"15:04:05-07",
}

func convertTimetz(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timetzLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			// Passed through as text; the driver encodes it for the
			// destination column.
			return s, nil
		}
	}
	return nil, errors.New("not a valid time with time zone (expected HH:MM:SS±TZ)")
}

func convertJSON(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, errors.New("not valid JSON")
	}
	return s, nil
}

func convertBytea(s string) (any, error) {
	if isNull(s) {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.New("not valid base64")
	}
	return b, nil
}
