// Package domain defines the core types, ports, and error taxonomy of the
// reconciliation engine.
package domain

import (
	"fmt"
	"strings"
)

// SchemaError indicates an incoming table is missing mandatory fields.
// Never retried: the data is genuinely incomplete.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("mandatory fields missing from input: %s", strings.Join(e.Missing, ", "))
}

// CastError indicates a value could not be coerced to its declared type.
type CastError struct {
	Field   string
	Value   string
	Message string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast failed for field %q (value %q): %s", e.Field, e.Value, e.Message)
}

// NullabilityError indicates a non-nullable field holds NULL after
// reconciliation or casting.
type NullabilityError struct {
	Field string
}

func (e *NullabilityError) Error() string {
	return fmt.Sprintf("non-nullable field %q holds NULL", e.Field)
}

// MergeKeyError indicates merge or diff keys are absent from one side's
// schema. Raised before any destination mutation is attempted.
type MergeKeyError struct {
	Message string
}

func (e *MergeKeyError) Error() string { return e.Message }

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrSchema creates a SchemaError for the given missing mandatory fields.
func ErrSchema(missing []string) *SchemaError {
	return &SchemaError{Missing: missing}
}

// ErrCast creates a CastError with field and value context.
func ErrCast(field, value string, err error) *CastError {
	return &CastError{Field: field, Value: value, Message: err.Error()}
}

// ErrNullability creates a NullabilityError for the given field.
func ErrNullability(field string) *NullabilityError {
	return &NullabilityError{Field: field}
}

// ErrMergeKey creates a MergeKeyError with a formatted message.
func ErrMergeKey(format string, args ...interface{}) *MergeKeyError {
	return &MergeKeyError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
