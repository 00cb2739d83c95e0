// FILE: lixenwraith/confclass/source_dotenv.go
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// DefaultDotEnvPath is read when a DotEnvSource is created without path or reader
const DefaultDotEnvPath = ".env"

// DotEnvSource reads KEY=value pairs from a dotenv file.
type DotEnvSource struct {
	snapshot
	*content
	namespace string
}

// NewDotEnvSource parses a dotenv file. An empty path reads DefaultDotEnvPath.
func NewDotEnvSource(path, namespace string) (*DotEnvSource, error) {
	if path == "" {
		path = DefaultDotEnvPath
	}
	s := &DotEnvSource{content: &content{path: path}, namespace: namespace}
	if err := s.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDotEnvReader parses dotenv data from r
func NewDotEnvReader(r io.Reader, namespace string) (*DotEnvSource, error) {
	c, err := readerContent(r)
	if err != nil {
		return nil, err
	}
	s := &DotEnvSource{content: c, namespace: namespace}
	if err := s.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup implements Source
func (s *DotEnvSource) Lookup(name string) RawValue {
	return s.lookup(name)
}

// Refresh re-reads the file
func (s *DotEnvSource) Refresh(ctx context.Context) error {
	data, err := s.read(ctx)
	if err != nil {
		return err
	}

	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse dotenv %s: %w", s.describe(), err)
	}

	values := make(map[string]RawValue, len(vars))
	for key, value := range vars {
		name, ok := namespaceStripped(s.namespace, key)
		if !ok || name == "" {
			continue
		}
		values[name] = String(quoteStripped(value))
	}
	s.store(values)
	return nil
}

// Name implements Named
func (s *DotEnvSource) Name() string {
	return "dotenv:" + s.describe()
}

// content is the backing data of a file-based source: a path re-read on each
// refresh, or the bytes captured from a reader. Reads are serialized; a
// refresh that overran its deadline may still hold the reader.
type content struct {
	mu   sync.Mutex
	path string
	data []byte
	seek io.ReadSeeker
	off  int64
}

// readerContent captures r. Seekable readers are re-read from their starting
// offset on refresh; others are buffered once.
func readerContent(r io.Reader) (*content, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrInvalidSource)
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		off, err := rs.Seek(0, io.SeekCurrent)
		if err == nil {
			return &content{seek: rs, off: off}, nil
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	return &content{data: data}, nil
}

func (c *content) read(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case c.path != "":
		data, err := os.ReadFile(c.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, c.path)
			}
			return nil, fmt.Errorf("failed to read config file '%s': %w", c.path, err)
		}
		return data, nil
	case c.seek != nil:
		if _, err := c.seek.Seek(c.off, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind config reader: %w", err)
		}
		return io.ReadAll(c.seek)
	default:
		return c.data, nil
	}
}

func (c *content) describe() string {
	if c.path != "" {
		return c.path
	}
	return "reader"
}
