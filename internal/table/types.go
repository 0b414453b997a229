// Package table holds the in-memory tabular value model: typed schemas and
// immutable row-oriented tables. Every transformation stage in the engine
// consumes and produces values from this package.
package table

// Type is a column type tag. Tags mirror DuckDB's type names so that the
// store layer can emit them into DDL verbatim.
type Type string

// Supported column types.
const (
	TypeBoolean   Type = "BOOLEAN"
	TypeInteger   Type = "INTEGER"
	TypeBigInt    Type = "BIGINT"
	TypeDouble    Type = "DOUBLE"
	TypeVarchar   Type = "VARCHAR"
	TypeDate      Type = "DATE"
	TypeTimestamp Type = "TIMESTAMP"
)

// typeWidth orders types for widening: a type can widen to any type with a
// strictly greater width. VARCHAR is the universal sink.
var typeWidth = map[Type]int{
	TypeBoolean: 1,
	TypeInteger: 2,
	TypeBigInt:  3,
	TypeDouble:  4,
	TypeVarchar: 5,
}

// Valid reports whether t is one of the supported type tags.
func (t Type) Valid() bool {
	switch t {
	case TypeBoolean, TypeInteger, TypeBigInt, TypeDouble, TypeVarchar, TypeDate, TypeTimestamp:
		return true
	}
	return false
}

// Widen returns the narrowest type both a and b can be cast to without loss.
// Numeric types widen along BOOLEAN < INTEGER < BIGINT < DOUBLE; any
// remaining disagreement (including temporal vs. anything else) resolves to
// VARCHAR.
func Widen(a, b Type) Type {
	if a == b {
		return a
	}
	wa, aOK := typeWidth[a]
	wb, bOK := typeWidth[b]
	if !aOK || !bOK {
		return TypeVarchar
	}
	if wa > wb {
		return a
	}
	return b
}
