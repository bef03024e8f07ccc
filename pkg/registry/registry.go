// Package registry stores compiled mappings by symbolic name. A Registry is
// an explicit instance injected into the facade rather than package-global
// state, so definition and execution stay testable in isolation.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/containerd/errdefs"

	"github.com/ndisidore/crosswalk/pkg/mapping"
)

// Registry maps symbolic names to compiled mappings. The zero value is not
// usable; construct with New. Registration normally happens during a
// single-threaded definition phase; the lock exists so the explicit reload
// path (Replace) is still safe against concurrent lookups.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*mapping.Mapping
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*mapping.Mapping)}
}

// Register stores a mapping under a unique name. Registering a name twice
// fails with an errdefs.IsAlreadyExists error; use Replace to overwrite.
func (r *Registry) Register(name string, m *mapping.Mapping) error {
	if name == "" {
		return fmt.Errorf("mapping name must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("mapping %q: %w", name, errdefs.ErrAlreadyExists)
	}
	r.byName[name] = m
	return nil
}

// Replace stores a mapping under a name, overwriting any previous entry.
// This is the reload path; replacing a mapping while a batch is executing
// against it is unsupported.
func (r *Registry) Replace(name string, m *mapping.Mapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = m
}

// Get returns the mapping registered under name, failing with an
// errdefs.IsNotFound error on a miss.
func (r *Registry) Get(name string) (*mapping.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("mapping %q: %w", name, errdefs.ErrNotFound)
	}
	return m, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
