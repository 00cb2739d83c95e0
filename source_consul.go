// FILE: lixenwraith/confclass/source_consul.go
package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ConsulSource reads the keys under a namespace of a Consul KV store.
// Keys are stored without the namespace and upper-cased; lookups ignore case.
type ConsulSource struct {
	snapshot
	root      string
	namespace string
	client    *http.Client
}

// ConsulOption configures a ConsulSource
type ConsulOption func(*ConsulSource)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(client *http.Client) ConsulOption {
	return func(s *ConsulSource) {
		if client != nil {
			s.client = client
		}
	}
}

// consulEntry is one element of the /v1/kv recurse response
type consulEntry struct {
	Key   string  `json:"Key"`
	Value *string `json:"Value"`
}

// NewConsulSource fetches the namespace from the Consul HTTP API at root,
// e.g. "http://127.0.0.1:8500".
func NewConsulSource(ctx context.Context, root, namespace string, opts ...ConsulOption) (*ConsulSource, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty consul address", ErrInvalidSource)
	}
	s := &ConsulSource{
		root:      strings.TrimRight(root, "/"),
		namespace: strings.Trim(namespace, "/"),
		client:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup implements Source
func (s *ConsulSource) Lookup(name string) RawValue {
	return s.lookup(strings.ToUpper(name))
}

// Name implements Named
func (s *ConsulSource) Name() string {
	return "consul:" + s.namespace
}

// Refresh fetches the namespace again
func (s *ConsulSource) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/kv/%s?recurse=true", s.root, s.namespace)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build consul request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("consul request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Consul answers 404 when nothing lives under the prefix
		return fmt.Errorf("%w: consul prefix %q", ErrNamespaceNotFound, s.namespace)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("consul returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var entries []consulEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode consul response: %w", err)
	}

	values := make(map[string]RawValue, len(entries))
	for _, e := range entries {
		key, ok := strings.CutPrefix(e.Key, s.namespace)
		if !ok || (s.namespace != "" && key != "" && !strings.HasPrefix(key, "/")) {
			continue // Sibling prefix such as "app2" for namespace "app"
		}
		key = strings.ToUpper(strings.TrimPrefix(key, "/"))
		if key == "" || strings.HasSuffix(key, "/") || e.Value == nil {
			continue // Namespace itself, folders and null values
		}

		decoded, err := base64.StdEncoding.DecodeString(*e.Value)
		if err != nil {
			return fmt.Errorf("consul key %s: invalid base64 value: %w", e.Key, err)
		}
		values[key] = String(string(decoded))
	}
	s.store(values)
	return nil
}
