// FILE: lixenwraith/confclass/source.go
package config

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// Source supplies raw values by field name. Lookup must not block; sources
// that read files or remote stores do their I/O in Refresh or at construction.
type Source interface {
	Lookup(name string) RawValue
}

// Refresher is implemented by sources whose backing data can be re-read.
// Reload refreshes every Refresher before resolving.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// FieldBinder is implemented by sources that need the schema before they can
// answer lookups, e.g. command-line flags generated per field.
type FieldBinder interface {
	BindFields(schema *Schema) error
}

// Named sources report a readable name for origin tracking.
type Named interface {
	Name() string
}

// SourceName returns the name used for a source in origins and logs
func SourceName(src Source) string {
	if n, ok := src.(Named); ok {
		return n.Name()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", src), "*")
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(name string) RawValue

// Lookup calls f
func (f SourceFunc) Lookup(name string) RawValue { return f(name) }

// MapSource serves values from a fixed map. Strings are returned as String,
// everything else as Primitive.
type MapSource struct {
	name   string
	values map[string]any
}

// NewMapSource copies values into a new static source.
func NewMapSource(name string, values map[string]any) *MapSource {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	if name == "" {
		name = "map"
	}
	return &MapSource{name: name, values: cp}
}

// Lookup implements Source
func (m *MapSource) Lookup(name string) RawValue {
	v, ok := m.values[name]
	if !ok {
		return Absent()
	}
	return Primitive(v)
}

// Name implements Named
func (m *MapSource) Name() string { return m.name }

// snapshot holds an adapter's parsed values. Refresh swaps the whole map so
// Lookup never waits on I/O.
type snapshot struct {
	values atomic.Pointer[map[string]RawValue]
}

func (s *snapshot) lookup(name string) RawValue {
	m := s.values.Load()
	if m == nil {
		return Absent()
	}
	return (*m)[name]
}

func (s *snapshot) store(values map[string]RawValue) {
	s.values.Store(&values)
}

// loaded reports whether a snapshot was ever stored
func (s *snapshot) loaded() bool {
	return s.values.Load() != nil
}

// namespaceStripped strips a prefix namespace from key.
// It returns false when the key does not carry the namespace.
func namespaceStripped(namespace, key string) (string, bool) {
	if namespace == "" {
		return key, true
	}
	if !strings.HasPrefix(key, namespace) {
		return "", false
	}
	return key[len(namespace):], true
}
