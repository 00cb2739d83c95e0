// FILE: lixenwraith/confclass/reload.go
package config

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// reload re-resolves a loaded shape and swaps the cached instance.
// It returns the replaced and the new instance on success.
func (r *Registry) reload(ctx context.Context, key string) (old, cur *Instance, err error) {
	e, err := r.lookupEntry(key)
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	old = e.current.Load()
	cur, err = r.resolveEntry(ctx, e, true)
	r.metrics.ObserveReload(key, err)
	if err != nil {
		r.logger.Warn("reload failed, keeping previous configuration",
			"shape", key,
			"generation", old.generation,
			"error", err)
		return old, nil, err
	}

	e.current.Store(cur)
	r.logger.Info("configuration reloaded",
		"shape", key,
		"generation", cur.generation,
		"changed", len(changedFields(old, cur)))
	return old, cur, nil
}

// resolveEntry prepares the sources and runs one resolution pass.
// The caller holds e.mu.
func (r *Registry) resolveEntry(ctx context.Context, e *entry, refresh bool) (*Instance, error) {
	shape := e.shape
	start := time.Now()

	r.logger.Debug("resolving configuration",
		"shape", shape.key,
		"fields", shape.schema.Len(),
		"sources", len(shape.sources),
		"refresh", refresh)

	inst, err := r.prepareAndResolve(ctx, shape, refresh)
	elapsed := time.Since(start)
	r.metrics.ObserveResolution(shape.key, elapsed, err)
	if err != nil {
		r.logger.Debug("resolution failed", "shape", shape.key, "duration", elapsed, "error", err)
		return nil, err
	}

	inst.shape = shape
	inst.generation = 1
	if prev := e.current.Load(); prev != nil {
		inst.generation = prev.generation + 1
	}

	r.logger.Debug("resolution finished", "shape", shape.key, "duration", elapsed, "generation", inst.generation)
	return inst, nil
}

func (r *Registry) prepareAndResolve(ctx context.Context, shape *Shape, refresh bool) (*Instance, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, r.reloadTimeout)
	defer cancel()

	if err := prepareSources(ctx, shape, refresh); err != nil {
		return nil, err
	}
	return Resolve(shape.schema, shape.sources)
}

// prepareSources binds fields on binders and, when refresh is set, re-reads
// every refresher. Each refresh runs in its own goroutine so a source that
// ignores ctx cannot hold the pass past the deadline.
func prepareSources(ctx context.Context, shape *Shape, refresh bool) error {
	var errs []error

	for _, src := range shape.sources {
		if b, ok := src.(FieldBinder); ok {
			if err := b.BindFields(shape.schema); err != nil {
				errs = append(errs, fmt.Errorf("bind %s: %w", SourceName(src), err))
			}
		}

		if !refresh {
			continue
		}
		rf, ok := src.(Refresher)
		if !ok {
			continue
		}

		done := make(chan error, 1)
		go func() {
			done <- rf.Refresh(ctx)
		}()

		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Errorf("refresh %s: %w", SourceName(src), err))
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("refresh %s: %w", SourceName(src), ctx.Err()))
			// Remaining sources would hit the same deadline
			return fmt.Errorf("%w: %w", ErrSourceRefresh, errors.Join(errs...))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrSourceRefresh, errors.Join(errs...))
	}
	return nil
}

// changedFields lists the fields whose value differs between two instances
func changedFields(old, cur *Instance) []string {
	var changed []string
	for _, name := range cur.Fields() {
		if old == nil {
			changed = append(changed, name)
			continue
		}
		ov, oldOK := old.values[name]
		nv := cur.values[name]
		if !oldOK || !valuesEqual(ov, nv) {
			changed = append(changed, name)
		}
	}
	return changed
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case EnumVariant:
		bv, ok := b.(EnumVariant)
		return ok && av.Equal(bv)
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case map[string]string:
		bv, ok := b.(map[string]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if w, ok := bv[k]; !ok || w != v {
				return false
			}
		}
		return true
	case bool, int64, uint64, float64, string:
		return a == b
	default:
		return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
	}
}
