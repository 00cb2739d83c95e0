// FILE: lixenwraith/confclass/decode.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DecodeTagName is the struct tag read by Decode and SchemaFromStruct
const DecodeTagName = "config"

var enumVariantType = reflect.TypeOf(EnumVariant{})

// Decode copies the instance's values into target, a non-nil pointer to a
// struct or map. Struct fields match the `config` tag, then the field name
// case-insensitively. Dotted field names decode into nested structs.
func (i *Instance) Decode(target any) error {
	return i.DecodeSection("", target)
}

// DecodeSection decodes only the fields under a dotted prefix, e.g. "server".
func (i *Instance) DecodeSection(basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("decode target must be non-nil pointer, got %T", target)
	}

	nested := make(map[string]any)
	for name, value := range i.values {
		setNestedValue(nested, name, copyValue(value))
	}

	section := nested
	if basePath = strings.Trim(basePath, "."); basePath != "" {
		var err error
		if section, err = navigateToPath(nested, strings.Split(basePath, ".")); err != nil {
			return fmt.Errorf("decode section %q: %w", basePath, err)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          DecodeTagName,
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(section); err != nil {
		return fmt.Errorf("decode failed for %s: %w", i.schema.key, err)
	}
	return nil
}

// decodeHook returns the composite decode hook for all type conversions
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		enumVariantHookFunc(),

		// Network types
		stringToNetIPHookFunc(),
		stringToURLHookFunc(),

		// Standard hooks
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
	)
}

// enumVariantHookFunc decodes enum variants to their value, or their name
// for string targets. EnumVariant targets receive the variant itself.
func enumVariantHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f != enumVariantType || t == enumVariantType {
			return data, nil
		}

		v := data.(EnumVariant)
		if t.Kind() == reflect.String || v.Value == nil {
			return v.Name, nil
		}
		return v.Value, nil
	}
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}

		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}
		return ip, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}
