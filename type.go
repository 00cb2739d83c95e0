// FILE: lixenwraith/confclass/type.go
package config

import (
	"fmt"
	"strings"
)

// Kind enumerates the declared field types the coercer understands.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInt
	KindFloat
	KindString
	KindEnum
	KindList
	KindKeyValueMap
	KindCustom
)

var kindNames = map[Kind]string{
	KindBool:        "bool",
	KindInt:         "int",
	KindFloat:       "float",
	KindString:      "string",
	KindEnum:        "enum",
	KindList:        "list",
	KindKeyValueMap: "kvmap",
	KindCustom:      "custom",
}

// String returns the kind name used in schema files and error messages
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a schema file type name back to a Kind.
func ParseKind(s string) (Kind, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == lower {
			return k, nil
		}
	}
	switch lower {
	case "boolean":
		return KindBool, nil
	case "integer", "int64":
		return KindInt, nil
	case "float64", "number":
		return KindFloat, nil
	case "str":
		return KindString, nil
	case "map", "pairs":
		return KindKeyValueMap, nil
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// TypeTag is the declared type of a field. Enum tags carry their definition.
type TypeTag struct {
	kind Kind
	enum *EnumDef
}

var (
	TypeBool        = TypeTag{kind: KindBool}
	TypeInt         = TypeTag{kind: KindInt}
	TypeFloat       = TypeTag{kind: KindFloat}
	TypeString      = TypeTag{kind: KindString}
	TypeList        = TypeTag{kind: KindList}
	TypeKeyValueMap = TypeTag{kind: KindKeyValueMap}
	TypeCustom      = TypeTag{kind: KindCustom}
)

// TypeEnum returns the tag for a field holding one variant of def.
func TypeEnum(def *EnumDef) TypeTag {
	return TypeTag{kind: KindEnum, enum: def}
}

// Kind returns the tag kind
func (t TypeTag) Kind() Kind { return t.kind }

// Enum returns the enum definition, nil for non-enum tags
func (t TypeTag) Enum() *EnumDef { return t.enum }

// String returns a readable type name
func (t TypeTag) String() string {
	if t.kind == KindEnum && t.enum != nil {
		return "enum(" + t.enum.name + ")"
	}
	return t.kind.String()
}

// EnumMember declares one variant when building an EnumDef.
type EnumMember struct {
	Name  string
	Value any
}

// EnumVariant is the resolved value of an enum field.
type EnumVariant struct {
	Enum  *EnumDef
	Name  string
	Value any
	Index int
}

// String returns the variant name
func (v EnumVariant) String() string { return v.Name }

// Equal compares by definition and index
func (v EnumVariant) Equal(other EnumVariant) bool {
	return v.Enum == other.Enum && v.Index == other.Index
}

// EnumDef is an ordered set of named variants with case-insensitive lookup
// by either name or value.
type EnumDef struct {
	name     string
	variants []EnumVariant
	byName   map[string]int
	byValue  map[string]int
}

// NewEnum builds an enum definition. Names must be unique ignoring case.
func NewEnum(name string, members ...EnumMember) (*EnumDef, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("enum %q has no members", name)
	}

	def := &EnumDef{
		name:     name,
		variants: make([]EnumVariant, 0, len(members)),
		byName:   make(map[string]int, len(members)),
		byValue:  make(map[string]int, len(members)),
	}

	for i, m := range members {
		if m.Name == "" {
			return nil, fmt.Errorf("enum %q member %d has empty name", name, i)
		}
		nameKey := strings.ToUpper(m.Name)
		if _, dup := def.byName[nameKey]; dup {
			return nil, fmt.Errorf("enum %q has duplicate member name %q", name, m.Name)
		}
		value := m.Value
		if value != nil {
			value = normalizePrimitive(value)
		}
		def.byName[nameKey] = i
		// First member wins on duplicate values, matching alias semantics
		valueKey := strings.ToUpper(formatPrimitive(value))
		if _, dup := def.byValue[valueKey]; !dup {
			def.byValue[valueKey] = i
		}
		def.variants = append(def.variants, EnumVariant{Enum: def, Name: m.Name, Value: value, Index: i})
	}

	return def, nil
}

// MustEnum is like NewEnum but panics on error.
func MustEnum(name string, members ...EnumMember) *EnumDef {
	def, err := NewEnum(name, members...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return def
}

// Name returns the enum name
func (e *EnumDef) Name() string { return e.name }

// Variants returns a copy of the ordered variants
func (e *EnumDef) Variants() []EnumVariant {
	out := make([]EnumVariant, len(e.variants))
	copy(out, e.variants)
	return out
}

// Names returns the variant names in declaration order
func (e *EnumDef) Names() []string {
	names := make([]string, len(e.variants))
	for i, v := range e.variants {
		names[i] = v.Name
	}
	return names
}

// Variant returns the variant with the given name (case-insensitive)
func (e *EnumDef) Variant(name string) (EnumVariant, bool) {
	if i, ok := e.byName[strings.ToUpper(name)]; ok {
		return e.variants[i], true
	}
	return EnumVariant{}, false
}

// Lookup matches raw against variant names first, then against values.
// Strings compare case-insensitively; primitives compare by their textual form.
func (e *EnumDef) Lookup(raw any) (EnumVariant, bool) {
	if s, ok := raw.(string); ok {
		if s == "" {
			return EnumVariant{}, false
		}
		key := strings.ToUpper(s)
		if i, ok := e.byName[key]; ok {
			return e.variants[i], true
		}
		if i, ok := e.byValue[key]; ok {
			return e.variants[i], true
		}
		return EnumVariant{}, false
	}

	if raw == nil {
		return EnumVariant{}, false
	}
	if i, ok := e.byValue[strings.ToUpper(formatPrimitive(normalizePrimitive(raw)))]; ok {
		return e.variants[i], true
	}
	return EnumVariant{}, false
}
