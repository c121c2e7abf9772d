// Package sqlutil provides small SQL string-building helpers shared by
// every package that talks to a JW Library SQLite database directly.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a SQLite identifier (table or column name)
// with double quotes, the ANSI-SQL form SQLite accepts for identifiers,
// escaping any embedded double quote by doubling it.
// Example: "Note" -> `"Note"`
// Example: `a"b` -> `"a""b"`
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// validIdentifierRegex matches the identifier shapes jwlmerge ever
// generates or reads back from pragma_table_info/pragma_foreign_key_list:
// alphanumeric and underscore only. JW Library never uses anything wilder.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier reports whether name contains only characters a
// JW Library schema ever produces. Defense in depth: table/column names
// are interpolated into query strings since SQLite's driver has no
// parameterized-identifier placeholder.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// InvalidIdentifierError is returned when an identifier fails
// IsValidIdentifier.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}

// QuoteIdentifierSafe validates name before quoting it, returning an
// error instead of silently accepting a schema-derived value that looks
// unlike anything SQLite itself would produce.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}
