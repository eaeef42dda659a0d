package store

import (
	"fmt"
	"sort"
	"sync"
)

// Builder creates a store from config.
type Builder func(cfg Config) (Store, error)

var (
	buildersMu sync.RWMutex
	builders   = make(map[string]Builder)
)

// Register adds a backend to the factory. The backend packages register
// themselves from init so importing them is enough.
func Register(storeType string, b Builder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[storeType] = b
}

// New creates a store for cfg.Type.
func New(cfg Config) (Store, error) {
	buildersMu.RLock()
	b, ok := builders[cfg.Type]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported store type: %s (supported: %v)", cfg.Type, SupportedTypes())
	}
	return b(cfg)
}

// SupportedTypes returns the registered backend names, sorted.
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
