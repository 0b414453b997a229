// Package duckdb implements the engine's table store boundary on a DuckDB
// connection: read a table, write a table (overwrite, append, create), and
// probe destination existence.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"lakemerge/internal/ddl"
	"lakemerge/internal/domain"
	"lakemerge/internal/table"
)

// defaultSchema is used when a destination does not name a schema.
const defaultSchema = "main"

// Compile-time check.
var _ domain.TableStore = (*Store)(nil)

// Store is a domain.TableStore backed by DuckDB.
type Store struct {
	db *sql.DB
}

// New creates a Store on the given DuckDB connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func schemaOf(dest domain.Destination) string {
	if dest.Schema == "" {
		return defaultSchema
	}
	return dest.Schema
}

// ReadTable reads the whole destination table into memory, mapping DuckDB
// column types back onto the value model's type tags.
func (s *Store) ReadTable(ctx context.Context, dest domain.Destination) (*table.Table, error) {
	query, err := ddl.SelectAll(schemaOf(dest), dest.Table)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dest, err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types for %s: %w", dest, err)
	}
	schema := make(table.Schema, len(colTypes))
	for i, ct := range colTypes {
		nullable := true
		if n, ok := ct.Nullable(); ok {
			nullable = n
		}
		schema[i] = table.Field{
			Name:     ct.Name(),
			Type:     typeFromDuckDB(ct.DatabaseTypeName()),
			Nullable: nullable,
		}
	}

	var data [][]any
	for rows.Next() {
		scan := make([]any, len(schema))
		ptrs := make([]any, len(schema))
		for i := range scan {
			ptrs[i] = &scan[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dest, err)
		}
		row := make([]any, len(schema))
		for i, v := range scan {
			cast, err := table.Cast(v, schema[i].Type)
			if err != nil {
				return nil, fmt.Errorf("normalize column %q of %s: %w", schema[i].Name, dest, err)
			}
			row[i] = cast
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", dest, err)
	}
	return table.New(schema, data)
}

// WriteTable persists the table to the destination. Overwrite drops and
// recreates inside one transaction so readers never observe a partial state;
// append and create insert into an existing or freshly created table.
func (s *Store) WriteTable(ctx context.Context, t *table.Table, dest domain.Destination, mode domain.WriteMode) error {
	exists, err := s.DestinationExists(ctx, dest)
	if err != nil {
		return err
	}
	switch mode {
	case domain.WriteModeCreate:
		if exists {
			return fmt.Errorf("destination %s already exists", dest)
		}
	case domain.WriteModeOverwrite, domain.WriteModeAppend:
	default:
		return fmt.Errorf("unknown write mode %q", mode)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write to %s: %w", dest, err)
	}
	defer func() { _ = tx.Rollback() }()

	if mode == domain.WriteModeOverwrite {
		drop, err := ddl.DropTable(schemaOf(dest), dest.Table)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, drop); err != nil {
			return fmt.Errorf("drop %s: %w", dest, err)
		}
		exists = false
	}
	if !exists {
		create, err := ddl.CreateTable(schemaOf(dest), dest.Table, t.Schema())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
	}

	if t.NumRows() > 0 {
		insert, err := ddl.Insert(schemaOf(dest), dest.Table, t.Schema())
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("prepare insert into %s: %w", dest, err)
		}
		defer stmt.Close()
		for r := 0; r < t.NumRows(); r++ {
			if _, err := stmt.ExecContext(ctx, t.Row(r)...); err != nil {
				return fmt.Errorf("insert row %d into %s: %w", r, dest, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write to %s: %w", dest, err)
	}
	return nil
}

// DestinationExists probes information_schema for the destination table.
func (s *Store) DestinationExists(ctx context.Context, dest domain.Destination) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, ddl.TableExists(), schemaOf(dest), dest.Table).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("probe %s: %w", dest, err)
	}
	return true, nil
}

// typeFromDuckDB maps a DuckDB database type name onto a value-model type
// tag. Unrecognized types degrade to VARCHAR.
func typeFromDuckDB(name string) table.Type {
	switch strings.ToUpper(name) {
	case "BOOLEAN":
		return table.TypeBoolean
	case "TINYINT", "SMALLINT", "INTEGER":
		return table.TypeInteger
	case "BIGINT", "HUGEINT", "UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT":
		return table.TypeBigInt
	case "FLOAT", "DOUBLE", "REAL":
		return table.TypeDouble
	case "DATE":
		return table.TypeDate
	case "TIMESTAMP", "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ":
		return table.TypeTimestamp
	default:
		return table.TypeVarchar
	}
}
