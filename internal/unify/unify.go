// Package unify merges N tables with partially overlapping, case-insensitive
// column sets into one superschema-aligned union.
package unify

import (
	"strings"

	"lakemerge/internal/domain"
	"lakemerge/internal/table"
)

// ConflictPolicy decides what happens when two inputs disagree on the
// declared type of a same-named (case-insensitive) column.
type ConflictPolicy string

const (
	// FirstWins keeps the definition of whichever input introduced the
	// column first.
	FirstWins ConflictPolicy = "first-wins"
	// WidenType widens the column to the narrowest type that fits both
	// definitions (VARCHAR as the universal sink).
	WidenType ConflictPolicy = "widen"
	// ErrorOnConflict rejects the union outright.
	ErrorOnConflict ConflictPolicy = "error"
)

// ParsePolicy maps a configuration string to a ConflictPolicy. The empty
// string defaults to FirstWins.
func ParsePolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case "", FirstWins:
		return FirstWins, nil
	case WidenType:
		return WidenType, nil
	case ErrorOnConflict:
		return ErrorOnConflict, nil
	}
	return "", domain.ErrValidation("unknown conflict policy %q", s)
}

// InputDiagnostics reports, per input table, which superset columns had to
// be synthesized as NULL.
type InputDiagnostics struct {
	Rows               int
	SynthesizedColumns []string
}

// Diagnostics is returned alongside the union so the caller can log what was
// padded without the core writing anywhere itself.
type Diagnostics struct {
	Inputs        []InputDiagnostics
	TypeConflicts []string // column names whose definitions disagreed
}

// UnionByName unions the inputs by column name. The output schema is the
// superset of all input columns: logical columns are grouped by uppercased
// name, the display name and (under FirstWins) the definition come from the
// first input that introduced the column, and column order is first-seen
// order. Each input is projected onto that superset — missing columns become
// typed NULLs — and concatenated row-wise, so the result holds every input
// row exactly once, in input order.
func UnionByName(tables []*table.Table, policy ConflictPolicy) (*table.Table, *Diagnostics, error) {
	if policy == "" {
		policy = FirstWins
	}
	if len(tables) == 0 {
		return nil, nil, domain.ErrValidation("union requires at least one input table")
	}

	superset, conflicts, err := supersetSchema(tables, policy)
	if err != nil {
		return nil, nil, err
	}

	diags := &Diagnostics{TypeConflicts: conflicts}
	var rows [][]any
	for _, in := range tables {
		idx := projectionIndex(in.Schema(), superset)
		var synthesized []string
		for i, f := range superset {
			if idx[i] < 0 {
				synthesized = append(synthesized, f.Name)
			}
		}
		diags.Inputs = append(diags.Inputs, InputDiagnostics{
			Rows:               in.NumRows(),
			SynthesizedColumns: synthesized,
		})
		for r := 0; r < in.NumRows(); r++ {
			src := in.Row(r)
			row := make([]any, len(superset))
			for i := range superset {
				if idx[i] >= 0 {
					row[i] = src[idx[i]]
				}
			}
			rows = append(rows, row)
		}
	}

	out, err := table.New(superset, rows)
	if err != nil {
		return nil, nil, err
	}
	return out, diags, nil
}

// supersetSchema folds the input schemas into the superset, grouping by
// uppercased name in first-seen order.
func supersetSchema(tables []*table.Table, policy ConflictPolicy) (table.Schema, []string, error) {
	var superset table.Schema
	index := make(map[string]int) // uppercased name -> superset position
	var conflicts []string

	for _, in := range tables {
		for _, f := range in.Schema() {
			key := strings.ToUpper(f.Name)
			pos, seen := index[key]
			if !seen {
				index[key] = len(superset)
				superset = append(superset, f)
				continue
			}
			kept := superset[pos]
			if kept.Type == f.Type {
				// A repeated definition may still relax nullability.
				if f.Nullable && !kept.Nullable {
					superset[pos].Nullable = true
				}
				continue
			}
			conflicts = append(conflicts, kept.Name)
			switch policy {
			case FirstWins:
				// keep the first-seen definition
			case WidenType:
				superset[pos].Type = table.Widen(kept.Type, f.Type)
				superset[pos].Nullable = kept.Nullable || f.Nullable
			case ErrorOnConflict:
				return nil, nil, domain.ErrValidation(
					"column %q declared as both %s and %s", kept.Name, kept.Type, f.Type)
			}
		}
	}
	// Columns absent from any one input must admit NULL in the union.
	for pos := range superset {
		for _, in := range tables {
			if !hasColumnFold(in.Schema(), superset[pos].Name) {
				superset[pos].Nullable = true
				break
			}
		}
	}
	return superset, conflicts, nil
}

// projectionIndex maps each superset position to the matching column index
// in the input schema, or -1. Matching is case-insensitive.
func projectionIndex(in table.Schema, superset table.Schema) []int {
	byFold := make(map[string]int, len(in))
	for i, f := range in {
		key := strings.ToUpper(f.Name)
		if _, dup := byFold[key]; !dup {
			byFold[key] = i
		}
	}
	idx := make([]int, len(superset))
	for i, f := range superset {
		if j, ok := byFold[strings.ToUpper(f.Name)]; ok {
			idx[i] = j
		} else {
			idx[i] = -1
		}
	}
	return idx
}

func hasColumnFold(s table.Schema, name string) bool {
	for _, f := range s {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}
