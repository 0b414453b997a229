// Package reconcile aligns an arbitrary incoming table to a target schema:
// extra columns are dropped, optional columns are filled from defaults,
// column order is normalized, and values are cast and checked for
// nullability. All operations are pure — they return new tables and never
// mutate their inputs.
package reconcile

import (
	"lakemerge/internal/domain"
	"lakemerge/internal/table"
)

// ValidateMandatory fails with a SchemaError naming every mandatory target
// field (field without a default) absent from the input table. Column
// comparison is exact-name match.
func ValidateMandatory(t *table.Table, target table.Schema) error {
	var missing []string
	for _, f := range target {
		if f.Mandatory() && !t.HasColumn(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return domain.ErrSchema(missing)
	}
	return nil
}

// ReconcileSoft reshapes the input to the target schema without casting:
// columns not named in the target are dropped, missing columns are
// synthesized as full columns of the field's default (cast to its declared
// type) or NULL, and all columns are reordered to exactly the target's field
// order. Column names are treated as atomic identifiers — any quoting of
// special characters is the store layer's concern.
func ReconcileSoft(t *table.Table, target table.Schema) (*table.Table, error) {
	fill := make([]any, len(target))
	srcIdx := make([]int, len(target))
	for i, f := range target {
		srcIdx[i] = t.Schema().Index(f.Name)
		if srcIdx[i] >= 0 {
			continue
		}
		if f.HasDefault {
			v, err := table.Cast(f.Default, f.Type)
			if err != nil {
				return nil, domain.ErrCast(f.Name, table.Render(f.Default), err)
			}
			fill[i] = v
		}
	}

	rows := make([][]any, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		src := t.Row(r)
		row := make([]any, len(target))
		for i := range target {
			if srcIdx[i] >= 0 {
				row[i] = src[srcIdx[i]]
			} else {
				row[i] = fill[i]
			}
		}
		rows[r] = row
	}
	return table.New(target, rows)
}

// CastAndValidate casts every column to its declared type and enforces
// nullability. The null check runs twice: once before casting, so that
// pre-existing NULLs in non-nullable columns are reported as such, and once
// after, to catch NULLs introduced by the cast.
func CastAndValidate(t *table.Table, target table.Schema) (*table.Table, error) {
	if err := checkNulls(t, target); err != nil {
		return nil, err
	}

	rows := make([][]any, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		src := t.Row(r)
		row := make([]any, len(target))
		for i, f := range target {
			idx := t.Schema().Index(f.Name)
			if idx < 0 {
				continue
			}
			v, err := table.Cast(src[idx], f.Type)
			if err != nil {
				return nil, domain.ErrCast(f.Name, table.Render(src[idx]), err)
			}
			row[i] = v
		}
		rows[r] = row
	}
	out, err := table.New(target, rows)
	if err != nil {
		return nil, err
	}
	if err := checkNulls(out, target); err != nil {
		return nil, err
	}
	return out, nil
}

// Align is the full reconciliation pipeline: ValidateMandatory, then
// ReconcileSoft, then CastAndValidate. The result's column set and order
// exactly equal the target schema's, and Align is idempotent.
func Align(t *table.Table, target table.Schema) (*table.Table, error) {
	if err := ValidateMandatory(t, target); err != nil {
		return nil, err
	}
	soft, err := ReconcileSoft(t, target)
	if err != nil {
		return nil, err
	}
	return CastAndValidate(soft, target)
}

func checkNulls(t *table.Table, target table.Schema) error {
	for _, f := range target {
		if f.Nullable {
			continue
		}
		idx := t.Schema().Index(f.Name)
		if idx < 0 {
			continue
		}
		for r := 0; r < t.NumRows(); r++ {
			if t.Row(r)[idx] == nil {
				return domain.ErrNullability(f.Name)
			}
		}
	}
	return nil
}
