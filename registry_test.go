// FILE: lixenwraith/confclass/registry_test.go
package config

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mutableSource is a refreshable in-memory source for reload tests
type mutableSource struct {
	mu        sync.Mutex
	values    map[string]any
	refreshes atomic.Int32
	failWith  error
	block     chan struct{} // when set, Refresh waits on it
}

func newMutableSource(values map[string]any) *mutableSource {
	return &mutableSource{values: values}
}

func (m *mutableSource) Set(name string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = v
}

func (m *mutableSource) FailRefresh(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *mutableSource) Lookup(name string) RawValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	if !ok {
		return Absent()
	}
	return Primitive(v)
}

func (m *mutableSource) Refresh(ctx context.Context) error {
	m.refreshes.Add(1)
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failWith
}

func (m *mutableSource) Name() string { return "mutable" }

// countingMetrics records observations for assertions
type countingMetrics struct {
	resolutions atomic.Int32
	failures    atomic.Int32
	reloads     atomic.Int32
}

func (c *countingMetrics) ObserveResolution(_ string, _ time.Duration, err error) {
	c.resolutions.Add(1)
	if err != nil {
		c.failures.Add(1)
	}
}

func (c *countingMetrics) ObserveReload(string, error) { c.reloads.Add(1) }

func portShape(t *testing.T, key string, sources ...Source) *Shape {
	t.Helper()
	schema := mustSchema(t, key,
		MustField("PORT", TypeInt),
		MustField("HOST", TypeString, WithDefault("localhost")),
	)
	shape, err := NewShape(schema, sources...)
	require.NoError(t, err)
	return shape
}

func TestNewShape(t *testing.T) {
	_, err := NewShape(nil)
	assert.ErrorIs(t, err, ErrInvalidSchema)

	schema := mustSchema(t, "svc", MustField("A", TypeInt))
	_, err = NewShape(schema, NewMapSource("m", nil), nil)
	assert.ErrorIs(t, err, ErrInvalidSource)

	src := NewMapSource("m", nil)
	shape, err := NewShape(schema, src)
	require.NoError(t, err)
	assert.Equal(t, "svc", shape.Key())
	assert.Same(t, schema, shape.Schema())
	assert.Len(t, shape.Sources(), 1)
}

func TestRegistryLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Idempotent", func(t *testing.T) {
		metrics := &countingMetrics{}
		reg := NewRegistry(WithMetrics(metrics))
		shape := portShape(t, "svc", NewMapSource("m", map[string]any{"PORT": 1}))

		first, err := reg.Load(ctx, shape)
		require.NoError(t, err)
		second, err := reg.Load(ctx, shape)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, uint64(1), first.Generation())
		assert.Same(t, shape, first.Shape())
		assert.Equal(t, int32(1), metrics.resolutions.Load())
	})

	t.Run("ConcurrentFirstLoad", func(t *testing.T) {
		metrics := &countingMetrics{}
		reg := NewRegistry(WithMetrics(metrics))
		shape := portShape(t, "svc", NewMapSource("m", map[string]any{"PORT": 1}))

		const n = 32
		results := make([]*Instance, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				inst, err := reg.Load(ctx, shape)
				assert.NoError(t, err)
				results[i] = inst
			}(i)
		}
		wg.Wait()

		for _, inst := range results {
			assert.Same(t, results[0], inst)
		}
		assert.Equal(t, int32(1), metrics.resolutions.Load())
	})

	t.Run("EquivalentShapeShares", func(t *testing.T) {
		metrics := &countingMetrics{}
		reg := NewRegistry(WithMetrics(metrics))

		first, err := reg.Load(ctx, portShape(t, "svc", NewMapSource("m", map[string]any{"PORT": 1})))
		require.NoError(t, err)
		second, err := reg.Load(ctx, portShape(t, "svc", NewMapSource("m", map[string]any{"PORT": 2})))
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), metrics.resolutions.Load())
	})

	t.Run("ShapeConflict", func(t *testing.T) {
		reg := NewRegistry()
		src := NewMapSource("m", map[string]any{"PORT": 1})
		_, err := reg.Load(ctx, portShape(t, "svc", src))
		require.NoError(t, err)

		shapeOf := func(fields ...*FieldSchema) *Shape {
			shape, err := NewShape(mustSchema(t, "svc", fields...), src)
			require.NoError(t, err)
			return shape
		}

		conflicting := map[string]*Shape{
			"source name":  portShape(t, "svc", NewMapSource("n", nil)),
			"extra source": portShape(t, "svc", src, src),
			"field type": shapeOf(
				MustField("PORT", TypeString),
				MustField("HOST", TypeString, WithDefault("localhost")),
			),
			"field order": shapeOf(
				MustField("HOST", TypeString, WithDefault("localhost")),
				MustField("PORT", TypeInt),
			),
			"missing field": shapeOf(MustField("PORT", TypeInt)),
		}
		for name, shape := range conflicting {
			_, err = reg.Load(ctx, shape)
			assert.ErrorIs(t, err, ErrShapeConflict, name)
		}
	})

	t.Run("QueuedLoadAfterFailedPass", func(t *testing.T) {
		reg := NewRegistry()

		var lookups atomic.Int32
		entered := make(chan struct{})
		gate := make(chan struct{})
		src := SourceFunc(func(name string) RawValue {
			if name != "PORT" {
				return Absent()
			}
			if lookups.Add(1) == 1 {
				// First pass fails once released
				close(entered)
				<-gate
				return Absent()
			}
			return Primitive(7)
		})
		shape := portShape(t, "svc", src)

		firstErr := make(chan error, 1)
		go func() {
			_, err := reg.Load(ctx, shape)
			firstErr <- err
		}()
		<-entered

		second := make(chan *Instance, 1)
		go func() {
			inst, err := reg.Load(ctx, shape)
			assert.NoError(t, err)
			second <- inst
		}()
		// Let the second caller queue behind the failing pass
		time.Sleep(50 * time.Millisecond)
		close(gate)

		assert.ErrorIs(t, <-firstErr, ErrMissing)
		inst := <-second
		require.NotNil(t, inst)

		cached, ok := reg.Current("svc")
		require.True(t, ok)
		assert.Same(t, inst, cached)

		again, err := reg.Load(ctx, shape)
		require.NoError(t, err)
		assert.Same(t, inst, again)
		assert.Equal(t, int32(2), lookups.Load())
	})

	t.Run("FailedLoadStoresNothing", func(t *testing.T) {
		reg := NewRegistry()
		src := newMutableSource(map[string]any{})
		shape := portShape(t, "svc", src)

		_, err := reg.Load(ctx, shape)
		assert.ErrorIs(t, err, ErrMissing)
		_, ok := reg.Current("svc")
		assert.False(t, ok)
		assert.Empty(t, reg.Keys())

		// Retry with the same shape succeeds once the source is fixed
		src.Set("PORT", 7)
		inst, err := reg.Load(ctx, shape)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), inst.Generation())

		// A different shape may now claim a key whose load failed
		other := portShape(t, "other", newMutableSource(map[string]any{}))
		_, err = reg.Load(ctx, other)
		require.Error(t, err)
		_, err = reg.Load(ctx, portShape(t, "other", NewMapSource("m", map[string]any{"PORT": 2})))
		assert.NoError(t, err)
	})

	t.Run("NilShape", func(t *testing.T) {
		_, err := NewRegistry().Load(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidSchema)
	})

	t.Run("MustLoadPanics", func(t *testing.T) {
		reg := NewRegistry()
		shape := portShape(t, "svc", newMutableSource(map[string]any{}))
		assert.Panics(t, func() { reg.MustLoad(ctx, shape) })
	})

	t.Run("LoadDoesNotRefresh", func(t *testing.T) {
		reg := NewRegistry()
		src := newMutableSource(map[string]any{"PORT": 1})
		_, err := reg.Load(ctx, portShape(t, "svc", src))
		require.NoError(t, err)
		assert.Equal(t, int32(0), src.refreshes.Load())
	})
}

func TestRegistryReload(t *testing.T) {
	ctx := context.Background()

	t.Run("SwapsAndIncrementsGeneration", func(t *testing.T) {
		metrics := &countingMetrics{}
		reg := NewRegistry(WithMetrics(metrics))
		src := newMutableSource(map[string]any{"PORT": 1})
		first, err := reg.Load(ctx, portShape(t, "svc", src))
		require.NoError(t, err)

		src.Set("PORT", 2)
		require.NoError(t, reg.Reload(ctx, "svc"))

		cur, ok := reg.Current("svc")
		require.True(t, ok)
		assert.NotSame(t, first, cur)
		assert.Equal(t, uint64(2), cur.Generation())
		port, _ := cur.Int64("PORT")
		assert.Equal(t, int64(2), port)

		// Previously obtained instances are unchanged
		oldPort, _ := first.Int64("PORT")
		assert.Equal(t, int64(1), oldPort)

		assert.Equal(t, int32(1), src.refreshes.Load())
		assert.Equal(t, int32(1), metrics.reloads.Load())
		assert.Equal(t, int32(2), metrics.resolutions.Load())
	})

	t.Run("ResolutionFailureKeepsPrevious", func(t *testing.T) {
		reg := NewRegistry()
		src := newMutableSource(map[string]any{"PORT": 1})
		first, err := reg.Load(ctx, portShape(t, "svc", src))
		require.NoError(t, err)

		src.Set("PORT", "not a number")
		err = reg.Reload(ctx, "svc")
		assert.ErrorIs(t, err, ErrTypeMismatch)

		cur, _ := reg.Current("svc")
		assert.Same(t, first, cur)

		// The next good reload continues the generation sequence
		src.Set("PORT", 3)
		require.NoError(t, reg.Reload(ctx, "svc"))
		cur, _ = reg.Current("svc")
		assert.Equal(t, uint64(2), cur.Generation())
	})

	t.Run("RefreshFailureKeepsPrevious", func(t *testing.T) {
		reg := NewRegistry()
		src := newMutableSource(map[string]any{"PORT": 1})
		first, err := reg.Load(ctx, portShape(t, "svc", src))
		require.NoError(t, err)

		cause := errors.New("backend down")
		src.FailRefresh(cause)
		err = reg.Reload(ctx, "svc")
		assert.ErrorIs(t, err, ErrSourceRefresh)
		assert.ErrorIs(t, err, cause)

		cur, _ := reg.Current("svc")
		assert.Same(t, first, cur)
	})

	t.Run("Timeout", func(t *testing.T) {
		reg := NewRegistry(WithReloadTimeout(50 * time.Millisecond))
		src := newMutableSource(map[string]any{"PORT": 1})
		first, err := reg.Load(ctx, portShape(t, "svc", src))
		require.NoError(t, err)

		src.block = make(chan struct{})
		defer close(src.block)

		start := time.Now()
		err = reg.Reload(ctx, "svc")
		assert.ErrorIs(t, err, ErrSourceRefresh)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)

		cur, _ := reg.Current("svc")
		assert.Same(t, first, cur)
	})

	t.Run("NotLoaded", func(t *testing.T) {
		err := NewRegistry().Reload(ctx, "missing")
		assert.ErrorIs(t, err, ErrShapeNotFound)
	})

	t.Run("ConcurrentReadsDuringReload", func(t *testing.T) {
		reg := NewRegistry()
		src := newMutableSource(map[string]any{"PORT": 0})
		_, err := reg.Load(ctx, portShape(t, "svc", src))
		require.NoError(t, err)

		stop := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var last uint64
				for {
					select {
					case <-stop:
						return
					default:
					}
					inst, ok := reg.Current("svc")
					if !assert.True(t, ok) {
						return
					}
					// Generations never go backwards for a reader
					assert.GreaterOrEqual(t, inst.Generation(), last)
					last = inst.Generation()
				}
			}()
		}

		for i := 1; i <= 20; i++ {
			src.Set("PORT", i)
			require.NoError(t, reg.Reload(ctx, "svc"))
		}
		close(stop)
		wg.Wait()

		cur, _ := reg.Current("svc")
		assert.Equal(t, uint64(21), cur.Generation())
	})
}

func TestRegistryTeardown(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	_, err := reg.Load(ctx, portShape(t, "a", NewMapSource("m", map[string]any{"PORT": 1})))
	require.NoError(t, err)
	_, err = reg.Load(ctx, portShape(t, "b", NewMapSource("m", map[string]any{"PORT": 1})))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, reg.Keys())

	require.NoError(t, reg.AutoReload("a", WatchOptions{PollInterval: time.Hour}))
	reg.Teardown()

	assert.Empty(t, reg.Keys())
	assert.False(t, reg.IsAutoReloading("a"))
	_, ok := reg.Current("a")
	assert.False(t, ok)

	// The key can be bound to a new shape afterwards
	_, err = reg.Load(ctx, portShape(t, "a", NewMapSource("m", map[string]any{"PORT": 2})))
	assert.NoError(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	t.Cleanup(DefaultRegistry().Teardown)
	assert.Same(t, DefaultRegistry(), DefaultRegistry())

	shape := portShape(t, "default-registry-test", NewMapSource("m", map[string]any{"PORT": 5}))
	inst, err := Load(context.Background(), shape)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), inst.Generation())

	require.NoError(t, Reload(context.Background(), "default-registry-test"))
	cur, _ := DefaultRegistry().Current("default-registry-test")
	assert.Equal(t, uint64(2), cur.Generation())
}
