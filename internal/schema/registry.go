package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownSchema is returned by Lookup for unregistered keys.
	ErrUnknownSchema = errors.New("unknown schema")

	// ErrDuplicateSchema is returned by Add when the key is taken.
	ErrDuplicateSchema = errors.New("schema already registered")
)

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds a definition to the registry.
// Panics if the definition is invalid or the key is already registered.
func Register(def Definition) {
	if err := Add(def); err != nil {
		panic(err.Error())
	}
}

// Add is like Register but returns an error instead of panicking.
func Add(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, def.Key)
	}
	registry[def.Key] = def
	return nil
}

// Get returns a definition by key.
// Returns false if not found.
func Get(key string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Lookup is like Get but returns ErrUnknownSchema when the key is missing.
func Lookup(key string) (Definition, error) {
	def, ok := Get(key)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownSchema, key)
	}
	return def, nil
}

// All returns all registered definitions.
// Sorted by key for consistent ordering.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Count returns the number of registered definitions.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered definitions.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Definition)
}
