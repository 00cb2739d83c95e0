// FILE: lixenwraith/confclass/instance.go
package config

import (
	"fmt"
	"time"
)

// Instance is an immutable, fully resolved configuration.
// Reload never mutates an instance; it replaces the one cached by the Registry.
type Instance struct {
	schema     *Schema
	shape      *Shape
	values     map[string]any
	origins    map[string]string
	generation uint64
	resolvedAt time.Time
}

// Shape returns the shape the instance was resolved for (nil for a bare Resolve)
func (i *Instance) Shape() *Shape { return i.shape }

// Schema returns the schema the instance was resolved against
func (i *Instance) Schema() *Schema { return i.schema }

// Generation counts successful resolutions of the owning shape, starting at 1.
func (i *Instance) Generation() uint64 { return i.generation }

// ResolvedAt returns when the resolution pass finished
func (i *Instance) ResolvedAt() time.Time { return i.resolvedAt }

// Get returns the typed value of a field.
// The second return value reports whether the field exists.
func (i *Instance) Get(name string) (any, bool) {
	v, ok := i.values[name]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// Origin returns the name of the source that supplied the field, or
// OriginDefault when a default was used.
func (i *Instance) Origin(name string) (string, bool) {
	o, ok := i.origins[name]
	return o, ok
}

// Fields returns the field names in schema order
func (i *Instance) Fields() []string {
	names := make([]string, 0, len(i.schema.fields))
	for _, f := range i.schema.fields {
		names = append(names, f.name)
	}
	return names
}

// Values returns a copy of all field values
func (i *Instance) Values() map[string]any {
	out := make(map[string]any, len(i.values))
	for k, v := range i.values {
		out[k] = copyValue(v)
	}
	return out
}

// String retrieves a string field.
// Enum variants return their name.
func (i *Instance) String(name string) (string, error) {
	val, found := i.values[name]
	if !found {
		return "", fmt.Errorf("field not defined: %s", name)
	}

	switch v := val.(type) {
	case string:
		return v, nil
	case EnumVariant:
		return v.Name, nil
	case bool, int64, float64:
		return formatPrimitive(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("cannot convert type %T to string for field %s", val, name)
	}
}

// Int64 retrieves an integer field
func (i *Instance) Int64(name string) (int64, error) {
	val, found := i.values[name]
	if !found {
		return 0, fmt.Errorf("field not defined: %s", name)
	}

	switch v := val.(type) {
	case int64:
		return v, nil
	case EnumVariant:
		// Numeric enum values are a common shorthand (log levels)
		if n, ok := v.Value.(int64); ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("cannot convert type %T to int64 for field %s", val, name)
}

// Float64 retrieves a float field, widening integers
func (i *Instance) Float64(name string) (float64, error) {
	val, found := i.values[name]
	if !found {
		return 0, fmt.Errorf("field not defined: %s", name)
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("cannot convert type %T to float64 for field %s", val, name)
}

// Bool retrieves a boolean field
func (i *Instance) Bool(name string) (bool, error) {
	val, found := i.values[name]
	if !found {
		return false, fmt.Errorf("field not defined: %s", name)
	}
	if b, ok := val.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("cannot convert type %T to bool for field %s", val, name)
}

// Strings retrieves a list field
func (i *Instance) Strings(name string) ([]string, error) {
	val, found := i.values[name]
	if !found {
		return nil, fmt.Errorf("field not defined: %s", name)
	}
	if l, ok := val.([]string); ok {
		return append([]string(nil), l...), nil
	}
	return nil, fmt.Errorf("cannot convert type %T to []string for field %s", val, name)
}

// StringMap retrieves a key/value map field
func (i *Instance) StringMap(name string) (map[string]string, error) {
	val, found := i.values[name]
	if !found {
		return nil, fmt.Errorf("field not defined: %s", name)
	}
	if m, ok := val.(map[string]string); ok {
		return copyValue(m).(map[string]string), nil
	}
	return nil, fmt.Errorf("cannot convert type %T to map[string]string for field %s", val, name)
}

// Enum retrieves an enum field
func (i *Instance) Enum(name string) (EnumVariant, error) {
	val, found := i.values[name]
	if !found {
		return EnumVariant{}, fmt.Errorf("field not defined: %s", name)
	}
	if v, ok := val.(EnumVariant); ok {
		return v, nil
	}
	return EnumVariant{}, fmt.Errorf("cannot convert type %T to enum for field %s", val, name)
}
