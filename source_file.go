// FILE: lixenwraith/confclass/source_file.go
package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Supported structured file formats
const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatAuto = "auto"
)

// FileOptions selects the data and the scope of a structured file source.
// Exactly one of Path and Reader must be set.
type FileOptions struct {
	Path   string
	Reader io.Reader

	// Namespace is the chain of nested keys holding the fields
	// e.g. ["nested", "configuration"]
	Namespace []string

	// Format is one of json, toml, yaml or auto (default): extension first,
	// then content sniffing
	Format string

	// Flatten exposes nested tables as dotted names ("server.port")
	// instead of key=value text
	Flatten bool
}

// FileSource reads top-level scalar keys of a JSON, TOML or YAML document.
// Strings are returned as String, numbers and bools as Primitive. Arrays and
// tables of scalars are rendered as list and key=value text so List and
// KeyValueMap fields can read them.
type FileSource struct {
	snapshot
	*content
	format    string
	namespace []string
	flatten   bool
}

// NewFileSource parses a structured configuration file
func NewFileSource(opts FileOptions) (*FileSource, error) {
	if (opts.Path == "") == (opts.Reader == nil) {
		return nil, fmt.Errorf("%w: exactly one of path and reader is required", ErrInvalidSource)
	}

	s := &FileSource{
		format:    strings.ToLower(opts.Format),
		namespace: append([]string(nil), opts.Namespace...),
		flatten:   opts.Flatten,
	}
	if s.format == "" {
		s.format = FormatAuto
	}
	switch s.format {
	case FormatJSON, FormatTOML, FormatYAML, FormatAuto:
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidSource, opts.Format)
	}

	if opts.Path != "" {
		s.content = &content{path: opts.Path}
	} else {
		c, err := readerContent(opts.Reader)
		if err != nil {
			return nil, err
		}
		s.content = c
	}

	if err := s.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewJSONSource reads a JSON file, optionally scoped to a nested namespace
func NewJSONSource(path string, namespace ...string) (*FileSource, error) {
	return NewFileSource(FileOptions{Path: path, Namespace: namespace, Format: FormatJSON})
}

// NewTOMLSource reads a TOML file, optionally scoped to nested tables
func NewTOMLSource(path string, namespace ...string) (*FileSource, error) {
	return NewFileSource(FileOptions{Path: path, Namespace: namespace, Format: FormatTOML})
}

// NewYAMLSource reads a YAML file, optionally scoped to nested mappings
func NewYAMLSource(path string, namespace ...string) (*FileSource, error) {
	return NewFileSource(FileOptions{Path: path, Namespace: namespace, Format: FormatYAML})
}

// Lookup implements Source
func (s *FileSource) Lookup(name string) RawValue {
	return s.lookup(name)
}

// Name implements Named
func (s *FileSource) Name() string {
	name := s.format + ":" + s.describe()
	if len(s.namespace) > 0 {
		name += "#" + strings.Join(s.namespace, ".")
	}
	return name
}

// Refresh re-reads and re-parses the document
func (s *FileSource) Refresh(ctx context.Context) error {
	data, err := s.read(ctx)
	if err != nil {
		return err
	}

	format := s.format
	if format == FormatAuto {
		if format = detectFileFormat(s.path); format == "" {
			if format = detectFormatFromContent(data); format == "" {
				return fmt.Errorf("unable to determine config format for %s", s.describe())
			}
		}
	}

	doc, err := parseDocument(format, data)
	if err != nil {
		return fmt.Errorf("failed to parse %s config %s: %w", strings.ToUpper(format), s.describe(), err)
	}

	scope, err := navigateToPath(doc, s.namespace)
	if err != nil {
		return err
	}

	if s.flatten {
		scope = flattenMap(scope, "")
	}

	values := make(map[string]RawValue, len(scope))
	for key, v := range scope {
		if raw := documentValue(v); !raw.IsAbsent() {
			values[key] = raw
		}
	}
	s.store(values)
	return nil
}

func parseDocument(format string, data []byte) (map[string]any, error) {
	doc := make(map[string]any)
	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Keep integers apart from floats
		if err := decoder.Decode(&doc); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return doc, nil
}

// documentValue maps a decoded document value to a RawValue
func documentValue(v any) RawValue {
	switch t := v.(type) {
	case nil:
		return Absent()
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Primitive(i)
		}
		if f, err := t.Float64(); err == nil {
			return Primitive(f)
		}
		return String(t.String())
	case time.Time:
		return String(t.Format(time.RFC3339Nano))
	case []any:
		elems := make([]string, 0, len(t))
		for _, e := range t {
			text, ok := scalarText(e)
			if !ok {
				return Primitive(v)
			}
			elems = append(elems, text)
		}
		return String(JoinList(elems))
	case map[string]any:
		pairs := make(map[string]string, len(t))
		for k, e := range t {
			text, ok := scalarText(e)
			if !ok {
				return Primitive(v)
			}
			pairs[k] = text
		}
		return String(JoinPairs(pairs))
	default:
		return Primitive(v)
	}
}

// scalarText renders a scalar element of an array or table
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case time.Time:
		return t.Format(time.RFC3339Nano), true
	case bool, int, int64, uint64, float64:
		return formatPrimitive(normalizePrimitive(t)), true
	}
	return "", false
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// JSON first (strict format)
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	// TOML before YAML, YAML accepts almost any text
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return FormatYAML
	}

	return ""
}
