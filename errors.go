// FILE: lixenwraith/confclass/errors.go
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Field failure kinds. A *FieldError unwraps to exactly one of these.
var (
	ErrMissing          = errors.New("missing value")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrInvalidEnumValue = errors.New("invalid enum value")
	ErrConverterFailed  = errors.New("converter failed")
	ErrValidationFailed = errors.New("validation failed")
)

// Schema, registry and source errors
var (
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrShapeConflict     = errors.New("shape key already registered with a different shape")
	ErrShapeNotFound     = errors.New("shape not registered")
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrInvalidSource     = errors.New("invalid source")
	ErrSourceRefresh     = errors.New("source refresh failed")
	ErrConfigNotFound    = errors.New("configuration file not found")
)

// FieldError describes why one field could not be resolved.
type FieldError struct {
	Field  string
	Kind   error // one of the field failure kinds
	Detail string
	Cause  error
}

// Error implements error
func (e *FieldError) Error() string {
	var b strings.Builder
	b.WriteString(e.Field)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes the kind sentinel and the underlying cause
func (e *FieldError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newFieldError(field string, kind error, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// ResolutionError aggregates every field failure of one resolution pass,
// in schema field order.
type ResolutionError struct {
	Shape  string
	Errors []*FieldError
}

// Error implements error
func (e *ResolutionError) Error() string {
	var b strings.Builder
	if e.Shape != "" {
		fmt.Fprintf(&b, "resolve %s: ", e.Shape)
	}
	fmt.Fprintf(&b, "%d field(s) failed", len(e.Errors))
	for _, fe := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(fe.Error())
	}
	return b.String()
}

// Unwrap lets errors.Is match any contained field failure
func (e *ResolutionError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}

// Fields returns the names of the failed fields
func (e *ResolutionError) Fields() []string {
	names := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		names[i] = fe.Field
	}
	return names
}

// ByKind returns the failures of the given kind
func (e *ResolutionError) ByKind(kind error) []*FieldError {
	var out []*FieldError
	for _, fe := range e.Errors {
		if fe.Kind == kind {
			out = append(out, fe)
		}
	}
	return out
}

// SchemaError reports a field declaration that can never resolve.
type SchemaError struct {
	Field  string
	Reason string
}

// Error implements error
func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidSchema, e.Reason)
	}
	return fmt.Sprintf("%s: field %q: %s", ErrInvalidSchema, e.Field, e.Reason)
}

// Unwrap returns ErrInvalidSchema
func (e *SchemaError) Unwrap() error { return ErrInvalidSchema }
