// FILE: lixenwraith/confclass/value.go
package config

import (
	"fmt"
	"reflect"
)

// RawKind tells how a source represented a value it returned.
type RawKind int

const (
	// RawAbsent means the source has no value for the requested name.
	RawAbsent RawKind = iota
	// RawString means the source only knows the textual form (env vars, CLI, dotenv).
	RawString
	// RawPrimitive means the source already returned a native value (JSON/TOML numbers, bools).
	RawPrimitive
)

// String returns the kind name
func (k RawKind) String() string {
	switch k {
	case RawAbsent:
		return "absent"
	case RawString:
		return "string"
	case RawPrimitive:
		return "primitive"
	default:
		return fmt.Sprintf("RawKind(%d)", int(k))
	}
}

// RawValue is what a Source hands back for a field name.
// The zero value is Absent.
type RawValue struct {
	kind RawKind
	str  string
	prim any
}

// Absent returns the raw value used by sources that do not know a name.
func Absent() RawValue {
	return RawValue{}
}

// String wraps a textual value.
func String(s string) RawValue {
	return RawValue{kind: RawString, str: s}
}

// Primitive wraps a native value. A string passed here is still reported as
// RawString so coercion rules stay consistent; nil is reported as Absent.
func Primitive(v any) RawValue {
	switch t := v.(type) {
	case nil:
		return Absent()
	case string:
		return String(t)
	case RawValue:
		return t
	}
	return RawValue{kind: RawPrimitive, prim: normalizePrimitive(v)}
}

// Kind returns the representation marker.
func (r RawValue) Kind() RawKind { return r.kind }

// IsAbsent reports whether the source supplied nothing.
func (r RawValue) IsAbsent() bool { return r.kind == RawAbsent }

// Str returns the textual payload and whether the value is a RawString.
func (r RawValue) Str() (string, bool) {
	return r.str, r.kind == RawString
}

// Native returns the primitive payload and whether the value is a RawPrimitive.
func (r RawValue) Native() (any, bool) {
	return r.prim, r.kind == RawPrimitive
}

// Interface returns the payload regardless of kind (nil when absent).
func (r RawValue) Interface() any {
	switch r.kind {
	case RawString:
		return r.str
	case RawPrimitive:
		return r.prim
	default:
		return nil
	}
}

// String returns the payload as text, empty when absent
func (r RawValue) String() string {
	switch r.kind {
	case RawString:
		return r.str
	case RawPrimitive:
		return formatPrimitive(r.prim)
	default:
		return ""
	}
}

// GoString implements fmt.GoStringer for readable test failures
func (r RawValue) GoString() string {
	switch r.kind {
	case RawString:
		return fmt.Sprintf("String(%q)", r.str)
	case RawPrimitive:
		return fmt.Sprintf("Primitive(%#v)", r.prim)
	default:
		return "Absent()"
	}
}

// normalizePrimitive folds sized numeric kinds to int64/uint64/float64
func normalizePrimitive(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		// Keep as int64 when it fits, so Int fields accept it
		if u <= uint64(^uint64(0)>>1) {
			return int64(u)
		}
		return u
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	default:
		return v
	}
}
