// File: lixenwraith/confclass/builder.go
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Builder provides a fluent interface for declaring a configuration shape.
// Sources are checked in the order they are added, the first added wins.
// A builder with no source declared reads the unprefixed environment.
type Builder struct {
	key      string
	fields   []*FieldSchema
	defaults any
	sources  []Source
	declared bool // a source method was called, even if it added nothing
	args     []string
	errs     []error
}

// NewBuilder creates a builder for the shape cached under key
func NewBuilder(key string) *Builder {
	return &Builder{
		key:  key,
		args: os.Args[1:],
	}
}

// Field declares a field. Declaration errors are reported by Build.
func (b *Builder) Field(name string, typ TypeTag, opts ...FieldOption) *Builder {
	f, err := NewField(name, typ, opts...)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.fields = append(b.fields, f)
	return b
}

// AddFields appends prebuilt field schemas
func (b *Builder) AddFields(fields ...*FieldSchema) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// WithDefaults declares fields from a struct, see SchemaFromStruct.
// Struct fields are placed before fields declared with Field.
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// WithArgs sets the command-line arguments used by WithCLI and WithFileDiscovery
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithSources appends sources in priority order
func (b *Builder) WithSources(sources ...Source) *Builder {
	b.declared = true
	for _, src := range sources {
		if src == nil {
			b.errs = append(b.errs, fmt.Errorf("%w: nil source", ErrInvalidSource))
			continue
		}
		b.sources = append(b.sources, src)
	}
	return b
}

// WithCLI appends a command-line source over the builder's args
func (b *Builder) WithCLI() *Builder {
	return b.WithSources(NewCLISource(b.args))
}

// WithEnv appends an environment source
func (b *Builder) WithEnv(namespace string) *Builder {
	return b.WithSources(NewEnvSource(namespace))
}

// WithDotEnv appends a dotenv source. A missing file is skipped.
func (b *Builder) WithDotEnv(path, namespace string) *Builder {
	b.declared = true
	src, err := NewDotEnvSource(path, namespace)
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			b.errs = append(b.errs, err)
		}
		return b
	}
	return b.WithSources(src)
}

// WithFile appends a structured file source, format detected from the
// extension or content. A missing file is skipped.
func (b *Builder) WithFile(path string, namespace ...string) *Builder {
	b.declared = true
	if path == "" {
		return b
	}
	src, err := NewFileSource(FileOptions{Path: path, Namespace: namespace})
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			b.errs = append(b.errs, err)
		}
		return b
	}
	return b.WithSources(src)
}

// WithFileDiscovery locates a configuration file and appends it as a source.
// Finding no file is not an error, the shape can resolve from other sources.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	b.declared = true
	path, err := DiscoverFile(opts, b.args)
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			b.errs = append(b.errs, err)
		}
		return b
	}
	return b.WithFile(path)
}

// Build creates the shape with all declared fields and sources
func (b *Builder) Build() (*Shape, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	fields := b.fields
	if b.defaults != nil {
		derived, err := FieldsFromStruct(b.defaults)
		if err != nil {
			return nil, fmt.Errorf("failed to derive fields from defaults: %w", err)
		}
		fields = append(derived, b.fields...)
	}

	schema, err := NewSchema(b.key, fields...)
	if err != nil {
		return nil, err
	}
	sources := b.sources
	if !b.declared {
		sources = []Source{NewEnvSource("")}
	}
	return NewShape(schema, sources...)
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Shape {
	shape, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return shape
}

// BuildAndLoad builds the shape and loads it into reg, or the default
// registry when reg is nil.
func (b *Builder) BuildAndLoad(ctx context.Context, reg *Registry) (*Instance, error) {
	shape, err := b.Build()
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = DefaultRegistry()
	}
	return reg.Load(ctx, shape)
}

// BuildAndDecode loads the shape and decodes the instance into target
func (b *Builder) BuildAndDecode(ctx context.Context, reg *Registry, target any) (*Instance, error) {
	inst, err := b.BuildAndLoad(ctx, reg)
	if err != nil {
		return nil, err
	}
	if err := inst.Decode(target); err != nil {
		return inst, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return inst, nil
}
