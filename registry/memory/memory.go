// Package memory provides an in-memory provider registry.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/types"
)

// Compile-time interface checks.
var (
	_ registry.Registry = (*Registry)(nil)
	_ registry.Reader   = (*Registry)(nil)
)

// Registry keeps counters in a map.
type Registry struct {
	mu    sync.RWMutex
	stats map[types.Address]registry.Stats
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{stats: make(map[types.Address]registry.Stats)}
}

// Record implements registry.Registry.
func (r *Registry) Record(_ context.Context, provider types.Address, d registry.Delta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.stats[provider].Apply(d)
	if err != nil {
		return err
	}
	r.stats[provider] = next
	return nil
}

// Stats implements registry.Reader.
func (r *Registry) Stats(_ context.Context, provider types.Address) (registry.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats[provider], nil
}
