// Package ddl builds the DuckDB statements the store layer needs: table
// creation from a schema, inserts, and existence probes.
package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// tableNameRe allows alphanumeric + underscores, starting with a letter or
// underscore. Applies to schema and table names, which come from job
// configuration.
var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxIdentifierLen is the maximum length allowed for any identifier.
const maxIdentifierLen = 128

// ValidateTableName checks that a schema or table name is a safe SQL
// identifier: non-empty, at most 128 characters, [a-zA-Z_][a-zA-Z0-9_]*.
func ValidateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("name must be at most %d characters", maxIdentifierLen)
	}
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("name must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

// ValidateColumnName checks a column name. Columns originate in upstream
// data, so special characters are legal — the name is an atomic identifier
// and quoting handles the rest. Only empty names, NUL bytes, and oversized
// names are rejected.
func ValidateColumnName(name string) error {
	if name == "" {
		return fmt.Errorf("column name is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("column name must be at most %d characters", maxIdentifierLen)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("column name must not contain NUL")
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
//
// Always quotes unconditionally — the caller should validate first if needed.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
