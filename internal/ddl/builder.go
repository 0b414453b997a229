package ddl

import (
	"fmt"
	"strings"

	"lakemerge/internal/table"
)

// QualifiedName returns "schema"."table", or just "table" when schema is
// empty, validating both parts.
func QualifiedName(schema, name string) (string, error) {
	if err := ValidateTableName(name); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if schema == "" {
		return QuoteIdentifier(name), nil
	}
	if err := ValidateTableName(schema); err != nil {
		return "", fmt.Errorf("invalid schema name: %w", err)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name), nil
}

// CreateTable returns a DuckDB DDL statement creating the table from the
// given schema, with NOT NULL constraints for non-nullable fields.
func CreateTable(schema, name string, s table.Schema) (string, error) {
	qualified, err := QualifiedName(schema, name)
	if err != nil {
		return "", err
	}
	if len(s) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	colDefs := make([]string, 0, len(s))
	for _, f := range s {
		if err := ValidateColumnName(f.Name); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", f.Name, err)
		}
		def := fmt.Sprintf("%s %s", QuoteIdentifier(f.Name), f.Type)
		if !f.Nullable {
			def += " NOT NULL"
		}
		colDefs = append(colDefs, def)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", qualified, strings.Join(colDefs, ", ")), nil
}

// DropTable returns a DROP TABLE IF EXISTS statement.
func DropTable(schema, name string) (string, error) {
	qualified, err := QualifiedName(schema, name)
	if err != nil {
		return "", err
	}
	return "DROP TABLE IF EXISTS " + qualified, nil
}

// Insert returns a parameterized INSERT statement for one row of the schema.
func Insert(schema, name string, s table.Schema) (string, error) {
	qualified, err := QualifiedName(schema, name)
	if err != nil {
		return "", err
	}
	if len(s) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	cols := make([]string, len(s))
	params := make([]string, len(s))
	for i, f := range s {
		if err := ValidateColumnName(f.Name); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", f.Name, err)
		}
		cols[i] = QuoteIdentifier(f.Name)
		params[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qualified, strings.Join(cols, ", "), strings.Join(params, ", ")), nil
}

// SelectAll returns a SELECT * over the table. DuckDB preserves column
// declaration order, so the result schema matches the stored table's.
func SelectAll(schema, name string) (string, error) {
	qualified, err := QualifiedName(schema, name)
	if err != nil {
		return "", err
	}
	return "SELECT * FROM " + qualified, nil
}

// TableExists returns a probe against duckdb information_schema for the
// given destination; the query yields one row when the table exists.
func TableExists() string {
	return "SELECT 1 FROM information_schema.tables WHERE table_schema = ? AND table_name = ?"
}
