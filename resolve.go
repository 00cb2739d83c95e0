// FILE: lixenwraith/confclass/resolve.go
package config

import (
	"fmt"
	"time"
)

// OriginDefault is reported by Instance.Origin for fields filled from a default.
const OriginDefault = "default"

// Resolve runs one resolution pass of schema against sources.
// Sources are scanned in list order, the first non-absent value wins.
// Every field is processed independently; if any field fails, the returned
// error is a *ResolutionError listing all failures and no instance is built.
func Resolve(schema *Schema, sources []Source) (*Instance, error) {
	if schema == nil {
		return nil, &SchemaError{Reason: "nil schema"}
	}

	values := make(map[string]any, len(schema.fields))
	origins := make(map[string]string, len(schema.fields))
	var failures []*FieldError

	for _, f := range schema.fields {
		value, origin, ferr := resolveField(f, sources)
		if ferr != nil {
			failures = append(failures, ferr)
			continue
		}
		values[f.name] = value
		origins[f.name] = origin
	}

	if len(failures) > 0 {
		return nil, &ResolutionError{Shape: schema.key, Errors: failures}
	}

	return &Instance{
		schema:     schema,
		values:     values,
		origins:    origins,
		resolvedAt: time.Now(),
	}, nil
}

// resolveField finds, defaults, coerces and validates a single field
func resolveField(f *FieldSchema, sources []Source) (any, string, *FieldError) {
	var (
		raw    RawValue
		origin string
	)

	for _, src := range sources {
		if src == nil {
			continue
		}
		if v := src.Lookup(f.name); !v.IsAbsent() {
			raw = v
			origin = SourceName(src)
			break
		}
	}

	var value any
	if raw.IsAbsent() {
		var ferr *FieldError
		value, ferr = defaultValue(f)
		if ferr != nil {
			return nil, "", ferr
		}
		origin = OriginDefault
	} else {
		v, err := Coerce(raw, f)
		if err != nil {
			return nil, "", asFieldError(f, err)
		}
		value = v
	}

	if f.validator != nil {
		if err := f.validator(value); err != nil {
			return nil, "", &FieldError{Field: f.name, Kind: ErrValidationFailed, Cause: err}
		}
	}

	return value, origin, nil
}

// defaultValue applies the factory, then the static default, else Missing
func defaultValue(f *FieldSchema) (value any, ferr *FieldError) {
	switch {
	case f.factory != nil:
		defer func() {
			if r := recover(); r != nil {
				value = nil
				ferr = &FieldError{Field: f.name, Kind: ErrConverterFailed, Detail: "default factory", Cause: fmt.Errorf("panic: %v", r)}
			}
		}()
		return f.factory(), nil

	case f.hasDefault:
		if raw, isRaw := f.def.(RawValue); isRaw {
			if raw.IsAbsent() {
				return nil, newFieldError(f.name, ErrMissing, "no source supplied a value and the default is absent")
			}
			v, err := Coerce(raw, f)
			if err != nil {
				return nil, asFieldError(f, err)
			}
			return v, nil
		}
		return copyValue(f.def), nil
	}

	return nil, newFieldError(f.name, ErrMissing, "no source supplied a value and no default is declared")
}

func asFieldError(f *FieldSchema, err error) *FieldError {
	if fe, ok := err.(*FieldError); ok {
		return fe
	}
	return &FieldError{Field: f.name, Kind: ErrTypeMismatch, Cause: err}
}

// copyValue keeps instances from sharing mutable defaults
func copyValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	default:
		return v
	}
}
