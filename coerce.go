// FILE: lixenwraith/confclass/coerce.go
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Coerce converts a raw source value into the declared type of f.
// Failures are returned as *FieldError carrying one of the field failure kinds.
func Coerce(raw RawValue, f *FieldSchema) (any, error) {
	if raw.IsAbsent() {
		return nil, newFieldError(f.name, ErrMissing, "no value supplied")
	}

	// A converter replaces every built-in rule
	if f.converter != nil {
		return convertWith(raw, f)
	}

	switch f.typ.kind {
	case KindBool:
		return coerceBool(raw, f)
	case KindInt:
		return coerceInt(raw, f)
	case KindFloat:
		return coerceFloat(raw, f)
	case KindString:
		return coerceString(raw, f)
	case KindEnum:
		variant, ok := f.typ.enum.Lookup(raw.Interface())
		if !ok {
			return nil, newFieldError(f.name, ErrInvalidEnumValue,
				"%v is not a variant of %s (valid: %s)", raw.Interface(), f.typ.enum.name, strings.Join(f.typ.enum.Names(), ", "))
		}
		return variant, nil
	case KindList:
		s, ok := raw.Str()
		if !ok {
			return nil, mismatch(f, raw)
		}
		return SplitList(s), nil
	case KindKeyValueMap:
		s, ok := raw.Str()
		if !ok {
			return nil, mismatch(f, raw)
		}
		pairs, err := SplitPairs(s)
		if err != nil {
			return nil, &FieldError{Field: f.name, Kind: ErrTypeMismatch, Cause: err}
		}
		return pairs, nil
	case KindCustom:
		// NewField rejects this combination, reaching here means a hand-built schema
		return nil, &FieldError{Field: f.name, Kind: ErrConverterFailed, Cause: ErrInvalidSchema, Detail: "custom type without converter"}
	}

	return nil, newFieldError(f.name, ErrTypeMismatch, "unsupported declared type %s", f.typ)
}

// convertWith runs the field's converter, turning errors and panics into ConverterFailed
func convertWith(raw RawValue, f *FieldSchema) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &FieldError{Field: f.name, Kind: ErrConverterFailed, Cause: fmt.Errorf("converter panic: %v", r)}
		}
	}()

	out, cerr := f.converter(raw)
	if cerr != nil {
		return nil, &FieldError{Field: f.name, Kind: ErrConverterFailed, Cause: cerr}
	}

	typed, nerr := normalizeTyped(f.typ, out)
	if nerr != nil {
		return nil, &FieldError{Field: f.name, Kind: ErrConverterFailed, Detail: "converter result rejected", Cause: nerr}
	}
	return typed, nil
}

func mismatch(f *FieldSchema, raw RawValue) *FieldError {
	return newFieldError(f.name, ErrTypeMismatch, "cannot use %s value %#v as %s", raw.Kind(), raw.Interface(), f.typ)
}

func coerceBool(raw RawValue, f *FieldSchema) (any, error) {
	if s, ok := raw.Str(); ok {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "TRUE", "1":
			return true, nil
		case "FALSE", "0":
			return false, nil
		}
		return nil, newFieldError(f.name, ErrTypeMismatch, "%q is not a valid boolean value", s)
	}

	native, _ := raw.Native()
	switch v := native.(type) {
	case bool:
		return v, nil
	case int64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return nil, mismatch(f, raw)
}

func coerceInt(raw RawValue, f *FieldSchema) (any, error) {
	if s, ok := raw.Str(); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, &FieldError{Field: f.name, Kind: ErrTypeMismatch, Detail: fmt.Sprintf("cannot parse %q as int", s), Cause: err}
		}
		return i, nil
	}

	native, _ := raw.Native()
	if i, ok := native.(int64); ok {
		return i, nil
	}
	// No narrowing from float, no overflowing uint64
	return nil, mismatch(f, raw)
}

func coerceFloat(raw RawValue, f *FieldSchema) (any, error) {
	if s, ok := raw.Str(); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, &FieldError{Field: f.name, Kind: ErrTypeMismatch, Detail: fmt.Sprintf("cannot parse %q as float", s), Cause: err}
		}
		return v, nil
	}

	native, _ := raw.Native()
	switch v := native.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return nil, mismatch(f, raw)
}

func coerceString(raw RawValue, f *FieldSchema) (any, error) {
	if s, ok := raw.Str(); ok {
		return s, nil
	}

	native, _ := raw.Native()
	switch native.(type) {
	case bool, int64, uint64, float64:
		return formatPrimitive(native), nil
	}
	return nil, mismatch(f, raw)
}

// formatPrimitive renders a primitive the way it would be written in an env var
func formatPrimitive(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// SplitList splits a comma separated string. A backslash escapes the next
// character, commas inside a quoted element do not split. Unquoted elements are
// trimmed, one level of surrounding quotes is removed keeping the inner
// whitespace, and blank elements are skipped.
func SplitList(s string) []string {
	out := []string{}
	for _, seg := range splitUnescaped(s, ',') {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		out = append(out, cleanElement(seg))
	}
	return out
}

// SplitPairs parses "k1=v1,k2=v2". Blank pairs are skipped, a pair without
// '=' or with an empty key is an error.
func SplitPairs(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, seg := range splitUnescaped(s, ',') {
		if strings.TrimSpace(seg) == "" {
			continue
		}

		parts := splitUnescaped(seg, '=')
		if len(parts) < 2 {
			return nil, fmt.Errorf("malformed pair %q: missing '='", strings.TrimSpace(seg))
		}
		// Only the first unescaped '=' separates, rejoin the rest of the value
		keyRaw := parts[0]
		valRaw := seg[len(keyRaw)+1:]

		key := cleanElement(keyRaw)
		if key == "" {
			return nil, fmt.Errorf("malformed pair %q: empty key", strings.TrimSpace(seg))
		}
		out[key] = cleanElement(valRaw)
	}
	return out, nil
}

// JoinList renders elems so that SplitList returns them unchanged.
func JoinList(elems []string) string {
	escaped := make([]string, len(elems))
	for i, e := range elems {
		escaped[i] = escapeElement(e)
	}
	return strings.Join(escaped, ",")
}

// JoinPairs renders m, keys sorted, so that SplitPairs returns it unchanged.
// Empty keys cannot be represented.
func JoinPairs(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = escapeElement(k) + "=" + escapeElement(m[k])
	}
	return strings.Join(pairs, ",")
}

// escapeElement protects separators and quotes. Elements with surrounding
// whitespace, and empty elements, are quoted so they survive trimming.
func escapeElement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', ',', '=', '\'', '"':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	if s == "" || strings.TrimSpace(s) != s {
		return `"` + b.String() + `"`
	}
	return b.String()
}

// splitUnescaped splits on sep, skipping escaped separators and separators
// inside quotes. Segments keep their escapes so cleanElement can see quotes.
func splitUnescaped(s string, sep rune) []string {
	var (
		parts   []string
		start   int
		quote   rune
		escaped bool
		// onlySpace tracks whether the current segment holds nothing but
		// whitespace (or a key separator) so far; quotes open only there
		onlySpace = true
	)

	for i, r := range s {
		switch {
		case escaped:
			escaped = false
			onlySpace = false
		case r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case (r == '\'' || r == '"') && onlySpace:
			quote = r
			onlySpace = false
		case r == sep:
			parts = append(parts, s[start:i])
			start = i + 1
			onlySpace = true
		case r == '=':
			// Values of key=value pairs may themselves be quoted
			onlySpace = true
		case unicode.IsSpace(r):
		default:
			onlySpace = false
		}
	}

	return append(parts, s[start:])
}

// cleanElement trims, strips one level of quotes, then resolves escapes
func cleanElement(seg string) string {
	trimmed := strings.TrimSpace(seg)
	if len(trimmed) >= 2 {
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		if (first == '\'' || first == '"') && first == last && !endsEscaped(trimmed[:len(trimmed)-1]) {
			return unescape(trimmed[1 : len(trimmed)-1])
		}
	}
	return unescape(trimmed)
}

// endsEscaped reports whether s ends with an odd number of backslashes
func endsEscaped(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	if escaped {
		// Trailing lone backslash is kept literally
		b.WriteRune('\\')
	}
	return b.String()
}

// quoteStripped removes one level of matching single or double quotes.
func quoteStripped(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
