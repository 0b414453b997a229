package table

import "fmt"

// Field describes one column of a schema: name, type tag, nullability, and
// an optional default literal. A field carrying a default is optional during
// reconciliation; every other field is mandatory.
type Field struct {
	Name       string
	Type       Type
	Nullable   bool
	Default    any
	HasDefault bool
}

// Mandatory reports whether the field must be present in an incoming table.
func (f Field) Mandatory() bool { return !f.HasDefault }

// Schema is an ordered sequence of fields. Field names are unique
// (case-sensitive). Schemas are configuration-time values and must not be
// mutated after construction.
type Schema []Field

// NewSchema validates and returns a schema. It rejects empty field names,
// duplicate names, and unknown type tags.
func NewSchema(fields ...Field) (Schema, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field name is required")
		}
		if !f.Type.Valid() {
			return nil, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return Schema(fields), nil
}

// MustSchema is NewSchema that panics on error. Test helper and for schemas
// built from already-validated configuration.
func MustSchema(fields ...Field) Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Index returns the position of the named field, or -1 when absent.
// Matching is exact.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field and whether it exists.
func (s Schema) Field(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i], true
	}
	return Field{}, false
}

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether two schemas have identical fields in identical order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Name != other[i].Name ||
			s[i].Type != other[i].Type ||
			s[i].Nullable != other[i].Nullable ||
			s[i].HasDefault != other[i].HasDefault {
			return false
		}
	}
	return true
}
