// FILE: lixenwraith/confclass/field.go
package config

import (
	"fmt"
	"reflect"
)

// ConverterFunc turns a raw source value into the field's declared type.
// It replaces the built-in coercion rules for the field.
type ConverterFunc func(raw RawValue) (any, error)

// ValidatorFunc checks a coerced field value. Returning an error fails the field.
type ValidatorFunc func(value any) error

// FieldSchema is the immutable description of one configuration field.
type FieldSchema struct {
	name        string
	typ         TypeTag
	def         any
	hasDefault  bool
	factory     func() any
	converter   ConverterFunc
	validator   ValidatorFunc
	description string
}

// FieldOption configures a field at construction
type FieldOption func(*FieldSchema) error

// WithDefault sets the value used when no source supplies the field.
// A RawValue default goes through coercion; any other value is used as is.
func WithDefault(v any) FieldOption {
	return func(f *FieldSchema) error {
		if f.hasDefault {
			return fmt.Errorf("default declared twice")
		}
		f.def = v
		f.hasDefault = true
		return nil
	}
}

// WithDefaultFactory sets a function producing the default on each resolution.
func WithDefaultFactory(fn func() any) FieldOption {
	return func(f *FieldSchema) error {
		if fn == nil {
			return fmt.Errorf("default factory is nil")
		}
		f.factory = fn
		return nil
	}
}

// WithConverter sets a custom converter, taking precedence over built-in rules.
func WithConverter(fn ConverterFunc) FieldOption {
	return func(f *FieldSchema) error {
		if fn == nil {
			return fmt.Errorf("converter is nil")
		}
		f.converter = fn
		return nil
	}
}

// WithValidator adds a check run after coercion. Multiple validators run in order.
func WithValidator(fn ValidatorFunc) FieldOption {
	return func(f *FieldSchema) error {
		if fn == nil {
			return fmt.Errorf("validator is nil")
		}
		if prev := f.validator; prev != nil {
			f.validator = func(v any) error {
				if err := prev(v); err != nil {
					return err
				}
				return fn(v)
			}
			return nil
		}
		f.validator = fn
		return nil
	}
}

// WithDescription attaches help text, shown in CLI flag usage.
func WithDescription(desc string) FieldOption {
	return func(f *FieldSchema) error {
		f.description = desc
		return nil
	}
}

// NewField builds a field schema. Conflicting declarations are reported here,
// before any resolution is attempted.
func NewField(name string, typ TypeTag, opts ...FieldOption) (*FieldSchema, error) {
	if name == "" {
		return nil, &SchemaError{Reason: "field name cannot be empty"}
	}
	if typ.kind == 0 {
		return nil, &SchemaError{Field: name, Reason: "field type not set"}
	}
	if typ.kind == KindEnum && typ.enum == nil {
		return nil, &SchemaError{Field: name, Reason: "enum type without definition"}
	}

	f := &FieldSchema{name: name, typ: typ}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, &SchemaError{Field: name, Reason: err.Error()}
		}
	}

	if f.hasDefault && f.factory != nil {
		return nil, &SchemaError{Field: name, Reason: "cannot specify both default and default factory"}
	}
	if typ.kind == KindCustom && f.converter == nil {
		return nil, &SchemaError{Field: name, Reason: "custom type requires a converter"}
	}

	if f.hasDefault {
		if _, isRaw := f.def.(RawValue); !isRaw {
			typed, err := normalizeTyped(typ, f.def)
			if err != nil {
				return nil, &SchemaError{Field: name, Reason: fmt.Sprintf("default: %v", err)}
			}
			f.def = typed
		}
	}

	return f, nil
}

// MustField is like NewField but panics on error.
func MustField(name string, typ TypeTag, opts ...FieldOption) *FieldSchema {
	f, err := NewField(name, typ, opts...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return f
}

// Name returns the field name
func (f *FieldSchema) Name() string { return f.name }

// Type returns the declared type
func (f *FieldSchema) Type() TypeTag { return f.typ }

// Default returns the static default and whether one was declared
func (f *FieldSchema) Default() (any, bool) { return f.def, f.hasDefault }

// HasDefaultFactory reports whether a default factory was declared
func (f *FieldSchema) HasDefaultFactory() bool { return f.factory != nil }

// HasConverter reports whether a custom converter was declared
func (f *FieldSchema) HasConverter() bool { return f.converter != nil }

// Description returns the help text
func (f *FieldSchema) Description() string { return f.description }

// normalizeTyped checks a typed default against the declared type and folds
// numeric kinds to the canonical int64/float64 forms.
func normalizeTyped(typ TypeTag, v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("nil default for %s field", typ)
	}

	switch typ.kind {
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInt:
		switch n := normalizePrimitive(v).(type) {
		case int64:
			return n, nil
		}
	case KindFloat:
		switch n := normalizePrimitive(v).(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindEnum:
		switch ev := v.(type) {
		case EnumVariant:
			if ev.Enum != typ.enum {
				return nil, fmt.Errorf("variant %s belongs to a different enum", ev.Name)
			}
			return ev, nil
		default:
			// Names first, then values
			variant, ok := typ.enum.Lookup(normalizePrimitive(v))
			if !ok {
				return nil, fmt.Errorf("unknown variant %v of %s", v, typ)
			}
			return variant, nil
		}
	case KindList:
		if l, ok := v.([]string); ok {
			return append([]string(nil), l...), nil
		}
	case KindKeyValueMap:
		if m, ok := v.(map[string]string); ok {
			out := make(map[string]string, len(m))
			for k, val := range m {
				out[k] = val
			}
			return out, nil
		}
	case KindCustom:
		return v, nil
	}

	return nil, fmt.Errorf("value of type %T does not match %s field", v, typ)
}

// Schema is the ordered field set of a configuration shape.
type Schema struct {
	key    string
	fields []*FieldSchema
	index  map[string]int
}

// NewSchema assembles fields into a schema. Field names must be unique.
func NewSchema(key string, fields ...*FieldSchema) (*Schema, error) {
	if key == "" {
		return nil, &SchemaError{Reason: "schema key cannot be empty"}
	}

	s := &Schema{
		key:    key,
		fields: make([]*FieldSchema, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f == nil {
			return nil, &SchemaError{Reason: "nil field in schema " + key}
		}
		if _, dup := s.index[f.name]; dup {
			return nil, &SchemaError{Field: f.name, Reason: "duplicate field name"}
		}
		s.index[f.name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	return s, nil
}

// Key returns the schema's shape key
func (s *Schema) Key() string { return s.key }

// Fields returns the fields in declaration order
func (s *Schema) Fields() []*FieldSchema {
	out := make([]*FieldSchema, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks a field up by name
func (s *Schema) Field(name string) (*FieldSchema, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// Len returns the number of fields
func (s *Schema) Len() int { return len(s.fields) }

// OneOf returns a validator accepting only the listed values.
func OneOf(allowed ...any) ValidatorFunc {
	return func(v any) error {
		for _, a := range allowed {
			if a == nil {
				continue
			}
			if reflect.DeepEqual(normalizePrimitive(a), v) {
				return nil
			}
		}
		return fmt.Errorf("value %v not in %v", v, allowed)
	}
}

// InRange returns a validator for numeric fields accepting min <= v <= max.
func InRange(min, max float64) ValidatorFunc {
	return func(v any) error {
		var f float64
		switch n := v.(type) {
		case int64:
			f = float64(n)
		case float64:
			f = n
		default:
			return fmt.Errorf("range check needs a number, got %T", v)
		}
		if f < min || f > max {
			return fmt.Errorf("value %v outside [%v, %v]", v, min, max)
		}
		return nil
	}
}
