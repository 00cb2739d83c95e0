// FILE: lixenwraith/confclass/registry.go
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Shape binds a schema to the ordered sources it resolves from.
// The schema key is the cache key.
type Shape struct {
	key     string
	schema  *Schema
	sources []Source
}

// NewShape creates a shape. Sources are checked in the order given.
func NewShape(schema *Schema, sources ...Source) (*Shape, error) {
	if schema == nil {
		return nil, &SchemaError{Reason: "nil schema"}
	}
	for i, src := range sources {
		if src == nil {
			return nil, fmt.Errorf("%w: source %d is nil", ErrInvalidSource, i)
		}
	}
	return &Shape{
		key:     schema.key,
		schema:  schema,
		sources: append([]Source(nil), sources...),
	}, nil
}

// Key returns the cache key
func (s *Shape) Key() string { return s.key }

// Schema returns the field schema
func (s *Shape) Schema() *Schema { return s.schema }

// Sources returns the sources in priority order
func (s *Shape) Sources() []Source { return append([]Source(nil), s.sources...) }

// equivalent reports whether o declares the same fields, in order and with
// the same types, over sources with the same names.
func (s *Shape) equivalent(o *Shape) bool {
	if s == o {
		return true
	}
	if s.key != o.key || s.schema.Len() != o.schema.Len() || len(s.sources) != len(o.sources) {
		return false
	}
	for i, f := range s.schema.fields {
		g := o.schema.fields[i]
		if f.name != g.name || f.typ.String() != g.typ.String() {
			return false
		}
	}
	for i, src := range s.sources {
		if SourceName(src) != SourceName(o.sources[i]) {
			return false
		}
	}
	return true
}

// entry is the cache slot of one shape
type entry struct {
	mu      sync.Mutex // serializes initial population and reload
	shape   *Shape
	current atomic.Pointer[Instance]
	watcher *watcher // guarded by Registry.mu
}

// Registry caches one resolved instance per shape key.
type Registry struct {
	mu            sync.RWMutex
	entries       map[string]*entry
	logger        *slog.Logger
	metrics       Metrics
	reloadTimeout time.Duration
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithLogger sets the structured logger. The default discards.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink. The default is a no-op.
func WithMetrics(m Metrics) RegistryOption {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithReloadTimeout bounds source preparation for each resolution pass.
func WithReloadTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.reloadTimeout = d
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:       make(map[string]*entry),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:       nopMetrics{},
		reloadTimeout: DefaultReloadTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry, created on first use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Load returns the cached instance for the shape's key, resolving it on first
// use. Concurrent first callers wait for a single resolution pass and share its
// result. A failed pass stores nothing.
func (r *Registry) Load(ctx context.Context, shape *Shape) (*Instance, error) {
	if shape == nil {
		return nil, &SchemaError{Reason: "nil shape"}
	}

	for {
		e, err := r.entryFor(shape)
		if err != nil {
			return nil, err
		}

		// Fast path, no locking
		if inst := e.current.Load(); inst != nil {
			return inst, nil
		}

		inst, retry, err := r.populate(ctx, e)
		if retry {
			// The slot was dropped by a failed pass while we waited
			continue
		}
		return inst, err
	}
}

// populate runs the initial resolution of e. retry reports that e is no
// longer the registered slot for its key.
func (r *Registry) populate(ctx context.Context, e *entry) (inst *Instance, retry bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Another caller may have finished while we waited
	if inst := e.current.Load(); inst != nil {
		return inst, false, nil
	}
	if !r.registered(e) {
		return nil, true, nil
	}

	inst, err = r.resolveEntry(ctx, e, false)
	if err != nil {
		r.dropIfEmpty(e.shape.key, e)
		return nil, false, err
	}

	e.current.Store(inst)
	return inst, false, nil
}

// MustLoad is like Load but panics on error.
func (r *Registry) MustLoad(ctx context.Context, shape *Shape) *Instance {
	inst, err := r.Load(ctx, shape)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return inst
}

// Current returns the cached instance for key without resolving.
func (r *Registry) Current(key string) (*Instance, bool) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	inst := e.current.Load()
	return inst, inst != nil
}

// Keys returns the registered shape keys
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for k, e := range r.entries {
		if e.current.Load() != nil {
			keys = append(keys, k)
		}
	}
	return keys
}

// Reload refreshes the sources of a loaded shape and replaces its instance.
// On any failure the previous instance remains current.
func (r *Registry) Reload(ctx context.Context, key string) error {
	_, _, err := r.reload(ctx, key)
	return err
}

// Teardown stops every auto reload and drops all cached instances.
func (r *Registry) Teardown() {
	r.mu.Lock()
	var watchers []*watcher
	for _, e := range r.entries {
		if e.watcher != nil {
			watchers = append(watchers, e.watcher)
			e.watcher = nil
		}
	}
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, w := range watchers {
		w.stop()
	}
}

// entryFor returns the slot for shape's key, creating it when missing.
// An equivalent shape shares the existing slot; any other shape bound to the
// key is a conflict.
func (r *Registry) entryFor(shape *Shape) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[shape.key]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if e, ok = r.entries[shape.key]; !ok {
			e = &entry{shape: shape}
			r.entries[shape.key] = e
		}
		r.mu.Unlock()
	}

	if !e.shape.equivalent(shape) {
		return nil, fmt.Errorf("%w: %s", ErrShapeConflict, shape.key)
	}
	return e, nil
}

func (r *Registry) registered(e *entry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[e.shape.key] == e
}

// dropIfEmpty forgets a slot whose initial resolution failed
func (r *Registry) dropIfEmpty(key string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[key]; ok && cur == e && e.current.Load() == nil {
		delete(r.entries, key)
	}
}

func (r *Registry) lookupEntry(key string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok || e.current.Load() == nil {
		return nil, fmt.Errorf("%w: %s", ErrShapeNotFound, key)
	}
	return e, nil
}

// Load resolves shape through the default registry.
func Load(ctx context.Context, shape *Shape) (*Instance, error) {
	return DefaultRegistry().Load(ctx, shape)
}

// Reload reloads key in the default registry.
func Reload(ctx context.Context, key string) error {
	return DefaultRegistry().Reload(ctx, key)
}
