// FILE: lixenwraith/confclass/register.go
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// SchemaFromStruct derives a schema from a struct or struct pointer.
// Field names come from the `config` tag (`-` skips the field), else the Go
// field name. Nested structs contribute dotted names ("server.port").
// Non-zero field values become defaults; zero-valued fields are required.
func SchemaFromStruct(key string, structWithDefaults any) (*Schema, error) {
	fields, err := FieldsFromStruct(structWithDefaults)
	if err != nil {
		return nil, err
	}
	return NewSchema(key, fields...)
}

// FieldsFromStruct returns the field schemas SchemaFromStruct would use
func FieldsFromStruct(structWithDefaults any) ([]*FieldSchema, error) {
	v := reflect.ValueOf(structWithDefaults)

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, &SchemaError{Reason: "struct schema requires a non-nil struct pointer or value"}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, &SchemaError{Reason: fmt.Sprintf("struct schema requires a struct or struct pointer, got %T", structWithDefaults)}
	}

	var (
		fields []*FieldSchema
		errs   []string
	)
	collectFields(v, "", &fields, &errs)

	if len(errs) > 0 {
		return nil, &SchemaError{Reason: fmt.Sprintf("failed to derive %d field(s): %s", len(errs), strings.Join(errs, "; "))}
	}
	return fields, nil
}

// collectFields walks exported fields recursively
func collectFields(v reflect.Value, pathPrefix string, fields *[]*FieldSchema, errs *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get(DecodeTagName)
		if tag == "-" {
			continue
		}

		key := field.Name
		if tag != "" {
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				key = name
			}
		}
		currentPath := pathPrefix + key

		// Nested structs, including non-nil pointers to structs
		isStruct := fieldValue.Kind() == reflect.Struct
		isPtrToStruct := fieldValue.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct
		if isStruct || isPtrToStruct {
			nested := fieldValue
			if isPtrToStruct {
				if fieldValue.IsNil() {
					continue
				}
				nested = fieldValue.Elem()
			}
			collectFields(nested, currentPath+".", fields, errs)
			continue
		}

		typ, def, ok := structFieldType(fieldValue)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("field %s: unsupported type %s", currentPath, field.Type))
			continue
		}

		var opts []FieldOption
		if desc := field.Tag.Get("desc"); desc != "" {
			opts = append(opts, WithDescription(desc))
		}
		if !fieldValue.IsZero() {
			opts = append(opts, WithDefault(def))
		}
		if fieldValue.Type() == durationType {
			opts = append(opts, WithConverter(durationConverter))
		}

		f, err := NewField(currentPath, typ, opts...)
		if err != nil {
			*errs = append(*errs, err.Error())
			continue
		}
		*fields = append(*fields, f)
	}
}

// structFieldType maps a Go field to a declared type and a typed default
func structFieldType(v reflect.Value) (TypeTag, any, bool) {
	if v.Type() == durationType {
		return TypeCustom, time.Duration(v.Int()), true
	}

	switch v.Kind() {
	case reflect.Bool:
		return TypeBool, v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return TypeInt, v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return TypeInt, int64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return TypeFloat, v.Float(), true
	case reflect.String:
		return TypeString, v.String(), true
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.String {
			out := make([]string, v.Len())
			for i := range out {
				out[i] = v.Index(i).String()
			}
			return TypeList, out, true
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			out := make(map[string]string, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = iter.Value().String()
			}
			return TypeKeyValueMap, out, true
		}
	}
	return TypeTag{}, nil, false
}

// durationConverter parses "1m30s" strings and integer nanoseconds
func durationConverter(raw RawValue) (any, error) {
	if s, ok := raw.Str(); ok {
		return time.ParseDuration(strings.TrimSpace(s))
	}
	native, _ := raw.Native()
	switch n := native.(type) {
	case int64:
		return time.Duration(n), nil
	case time.Duration:
		return n, nil
	}
	return nil, fmt.Errorf("cannot use %T as duration", native)
}
