// File: lixenwraith/confclass/helper.go
package config

import (
	"fmt"
	"strings"
)

// flattenMap converts a nested map[string]any to a flat map[string]any with dot-notation paths.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		newPath := key
		if prefix != "" {
			newPath = prefix + "." + key
		}

		if nestedMap, isMap := value.(map[string]any); isMap {
			for subPath, subValue := range flattenMap(nestedMap, newPath) {
				flat[subPath] = subValue
			}
		} else {
			flat[newPath] = value
		}
	}

	return flat
}

// setNestedValue sets a value in a nested map using a dot-notation path.
// It creates intermediate maps if they don't exist.
// If a segment exists but is not a map, it will be overwritten by a new map.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested

	for _, segment := range segments[:len(segments)-1] {
		if nextMap, isMap := current[segment].(map[string]any); isMap {
			current = nextMap
			continue
		}
		newMap := make(map[string]any)
		current[segment] = newMap
		current = newMap
	}

	current[segments[len(segments)-1]] = value
}

// navigateToPath descends through nested maps along path.
// A missing segment, or one that is not a map, is ErrNamespaceNotFound.
func navigateToPath(doc map[string]any, path []string) (map[string]any, error) {
	current := doc
	for i, segment := range path {
		next, exists := current[segment]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, strings.Join(path[:i+1], "."))
		}
		nextMap, isMap := next.(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("%w: %s is not a table", ErrNamespaceNotFound, strings.Join(path[:i+1], "."))
		}
		current = nextMap
	}
	return current, nil
}
