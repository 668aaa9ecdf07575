// Package query turns raw model completions into candidate SQL statements and
// decides whether a candidate is safe to hand to the executor. Everything in
// this package is pure: no I/O, no database access.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex validates SQL identifiers (column names, table names).
// Must start with a letter or underscore, followed by alphanumeric or underscore.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// sqlReservedWords contains SQL keywords that cannot be used as identifiers
// in the schema descriptor.
var sqlReservedWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
	"EXEC": true, "EXECUTE": true, "UNION": true, "INTO": true,
	"FROM": true, "WHERE": true, "TABLE": true, "DATABASE": true,
	"GRANT": true, "REVOKE": true, "INDEX": true, "VIEW": true,
	"PROCEDURE": true, "FUNCTION": true, "TRIGGER": true, "SCHEMA": true,
	"WITH": true, "SET": true,
}

// ValidateIdentifier ensures a SQL identifier (column name, table name) is safe.
// It rejects empty strings, strings over 128 characters, strings that don't
// match the identifier pattern, and SQL reserved words.
func ValidateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 128 {
		return fmt.Errorf("identifier too long (max 128 chars): %q", name)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must match [a-zA-Z_][a-zA-Z0-9_]*", name)
	}
	if sqlReservedWords[strings.ToUpper(name)] {
		return fmt.Errorf("identifier %q is a SQL reserved word", name)
	}
	return nil
}

// CleanQuestion strips null bytes and surrounding whitespace from a user
// question and enforces the [minLen, maxLen] rune bounds.
func CleanQuestion(q string, minLen, maxLen int) (string, error) {
	q = strings.TrimSpace(strings.ReplaceAll(q, "\x00", ""))
	n := len([]rune(q))
	if n < minLen {
		return "", fmt.Errorf("question must be at least %d characters", minLen)
	}
	if maxLen > 0 && n > maxLen {
		return "", fmt.Errorf("question too long (max %d characters)", maxLen)
	}
	return q, nil
}
