package importer

// identifier.go validates proposed SQL identifiers and type declarations
// before any SQL text is constructed.
//
// These two checks are the sole injection defense for identifiers and type
// names: everything that passes them may be interpolated into generated DDL
// (always quoted, in the identifier case). Comment text never goes through
// here because it is attached with quoted literals, not interpolated raw.

import "regexp"

// identifierRegex matches the accepted identifier grammar: a letter or
// underscore followed by letters, digits, or underscores.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// typeDeclRegex matches the accepted type-declaration grammar: letters,
// digits, whitespace, parentheses, and commas. Enough for "varchar(255)"
// and "timestamp with time zone", not enough to smuggle quotes or
// statement separators.
var typeDeclRegex = regexp.MustCompile(`^[A-Za-z0-9,()\s]+$`)

// ValidateIdentifier checks that s is safe to use as a schema, table, or
// column name. field names the value's role for error context ("table
// name", "column name").
func ValidateIdentifier(s, field string) error {
	if !identifierRegex.MatchString(s) {
		return &Error{
			Kind:   KindInvalidIdentifier,
			Column: field,
			Value:  s,
			Msg:    "must start with a letter or underscore and contain only letters, digits, and underscores",
		}
	}
	return nil
}

// ValidateTypeDeclaration checks that a declared column type contains only
// characters from the accepted type grammar.
func ValidateTypeDeclaration(s string) error {
	if !typeDeclRegex.MatchString(s) {
		return &Error{
			Kind:  KindInvalidTypeDeclaration,
			Value: s,
			Msg:   "may contain only letters, digits, spaces, parentheses, and commas",
		}
	}
	return nil
}
