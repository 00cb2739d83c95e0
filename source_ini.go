// FILE: lixenwraith/confclass/source_ini.go
package config

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/ini.v1"
)

// INISource reads one section of an INI file. Keys are case-insensitive.
// An empty section selects the keys before the first section header.
type INISource struct {
	snapshot
	*content
	section string
}

// NewINISource parses an INI file
func NewINISource(path, section string) (*INISource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty ini path", ErrInvalidSource)
	}
	s := &INISource{content: &content{path: path}, section: section}
	if err := s.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewINIReader parses INI data from r
func NewINIReader(r io.Reader, section string) (*INISource, error) {
	c, err := readerContent(r)
	if err != nil {
		return nil, err
	}
	s := &INISource{content: c, section: section}
	if err := s.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup implements Source, ignoring case
func (s *INISource) Lookup(name string) RawValue {
	return s.lookup(strings.ToUpper(name))
}

// Name implements Named
func (s *INISource) Name() string {
	if s.section != "" {
		return "ini:" + s.describe() + "[" + s.section + "]"
	}
	return "ini:" + s.describe()
}

// Refresh re-reads the file
func (s *INISource) Refresh(ctx context.Context) error {
	data, err := s.read(ctx)
	if err != nil {
		return err
	}

	file, err := ini.Load(data)
	if err != nil {
		return fmt.Errorf("failed to parse ini %s: %w", s.describe(), err)
	}

	name := s.section
	if name == "" {
		name = ini.DefaultSection
	}
	sec, err := file.GetSection(name)
	if err != nil {
		return fmt.Errorf("%w: section %q in %s", ErrNamespaceNotFound, s.section, s.describe())
	}

	values := make(map[string]RawValue)
	for _, key := range sec.Keys() {
		values[strings.ToUpper(key.Name())] = String(quoteStripped(key.Value()))
	}
	s.store(values)
	return nil
}
