// FILE: lixenwraith/confclass/source_env.go
package config

import (
	"context"
	"os"
	"strings"
)

// EnvSource reads environment variables. Names are case-sensitive.
// With a namespace only variables starting with it are considered, and the
// namespace is stripped before matching field names.
type EnvSource struct {
	snapshot
	namespace string
	environ   func() []string
}

// EnvOption configures an EnvSource
type EnvOption func(*EnvSource)

// WithEnviron replaces os.Environ as the variable source, mostly for tests.
func WithEnviron(fn func() []string) EnvOption {
	return func(s *EnvSource) {
		if fn != nil {
			s.environ = fn
		}
	}
}

// WithEnvMap serves variables from a fixed map
func WithEnvMap(vars map[string]string) EnvOption {
	return WithEnviron(func() []string {
		env := make([]string, 0, len(vars))
		for k, v := range vars {
			env = append(env, k+"="+v)
		}
		return env
	})
}

// NewEnvSource creates an environment source and reads the current environment.
func NewEnvSource(namespace string, opts ...EnvOption) *EnvSource {
	s := &EnvSource{
		namespace: namespace,
		environ:   os.Environ,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.read()
	return s
}

// Lookup implements Source
func (s *EnvSource) Lookup(name string) RawValue {
	return s.lookup(name)
}

// Refresh re-reads the environment
func (s *EnvSource) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.read()
	return nil
}

// Name implements Named
func (s *EnvSource) Name() string {
	if s.namespace != "" {
		return "env:" + s.namespace
	}
	return "env"
}

func (s *EnvSource) read() {
	values := make(map[string]RawValue)
	for _, kv := range s.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name, ok := namespaceStripped(s.namespace, key)
		if !ok || name == "" {
			continue
		}
		values[name] = String(quoteStripped(value))
	}
	s.store(values)
}
