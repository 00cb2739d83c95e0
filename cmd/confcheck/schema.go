// FILE: lixenwraith/confclass/cmd/confcheck/schema.go
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	config "github.com/lixenwraith/confclass"
)

// schemaFile is the YAML description of a shape
type schemaFile struct {
	Key    string      `yaml:"key"`
	Fields []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"`
	Default     any         `yaml:"default"`
	Description string      `yaml:"description"`
	Values      []enumValue `yaml:"values"`
}

type enumValue struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

// loadSchema reads and compiles a schema file
func loadSchema(path string) (*config.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema '%s': %w", path, err)
	}
	return parseSchema(data)
}

func parseSchema(data []byte) (*config.Schema, error) {
	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if sf.Key == "" {
		return nil, fmt.Errorf("schema has no key")
	}

	fields := make([]*config.FieldSchema, 0, len(sf.Fields))
	for i, spec := range sf.Fields {
		f, err := spec.compile()
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, spec.Name, err)
		}
		fields = append(fields, f)
	}
	return config.NewSchema(sf.Key, fields...)
}

func (spec fieldSpec) compile() (*config.FieldSchema, error) {
	kind, err := config.ParseKind(spec.Type)
	if err != nil {
		return nil, err
	}

	var typ config.TypeTag
	switch kind {
	case config.KindBool:
		typ = config.TypeBool
	case config.KindInt:
		typ = config.TypeInt
	case config.KindFloat:
		typ = config.TypeFloat
	case config.KindString:
		typ = config.TypeString
	case config.KindList:
		typ = config.TypeList
	case config.KindKeyValueMap:
		typ = config.TypeKeyValueMap
	case config.KindEnum:
		members := make([]config.EnumMember, len(spec.Values))
		for i, v := range spec.Values {
			members[i] = config.EnumMember{Name: v.Name, Value: v.Value}
		}
		def, err := config.NewEnum(spec.Name, members...)
		if err != nil {
			return nil, err
		}
		typ = config.TypeEnum(def)
	default:
		return nil, fmt.Errorf("type %s cannot be declared in a schema file", kind)
	}

	var opts []config.FieldOption
	if spec.Description != "" {
		opts = append(opts, config.WithDescription(spec.Description))
	}
	if spec.Default != nil {
		// Defaults go through the same coercion as source values
		opts = append(opts, config.WithDefault(defaultRaw(spec.Default)))
	}
	return config.NewField(spec.Name, typ, opts...)
}

// defaultRaw turns a YAML default into a raw value. Sequences and mappings
// are written in list and pair syntax.
func defaultRaw(v any) config.RawValue {
	switch t := v.(type) {
	case []any:
		elems := make([]string, len(t))
		for i, e := range t {
			elems[i] = fmt.Sprint(e)
		}
		return config.String(config.JoinList(elems))
	case map[string]any:
		pairs := make(map[string]string, len(t))
		for k, e := range t {
			pairs[k] = fmt.Sprint(e)
		}
		return config.String(config.JoinPairs(pairs))
	default:
		return config.Primitive(v)
	}
}
