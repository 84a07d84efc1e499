package collector

import (
	"sync"

	"github.com/daryltucker/onetrace/internal/model"
)

// Key selects a factory.
type Key struct {
	Domain  model.Domain
	Backend model.Backend
}

// Registry is the factory table the tracer builds collectors from.
type Registry struct {
	mu        sync.RWMutex
	factories map[Key]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Key]Factory)}
}

// Register installs or replaces the factory for a domain/backend pair.
func (r *Registry) Register(d model.Domain, b model.Backend, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[Key{Domain: d, Backend: b}] = f
}

// Lookup returns the factory for a pair, if any.
func (r *Registry) Lookup(d model.Domain, b model.Backend) (Factory, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[Key{Domain: d, Backend: b}]
	return f, ok && f != nil
}

// Plan lists the keys to build for a domain on a given platform, in
// creation order.
func (r *Registry) Plan(d model.Domain, p Platform) []Key {
	var keys []Key
	for _, b := range model.Backends {
		if p == nil || !p.Available(b) {
			continue
		}
		if _, ok := r.Lookup(d, b); !ok {
			continue
		}
		keys = append(keys, Key{Domain: d, Backend: b})
	}
	return keys
}
