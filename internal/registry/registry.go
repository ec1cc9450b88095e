// Package registry holds live pipeline instances for the lifetime of their
// owning component (typically the API server). It replaces ad-hoc
// process-global maps with an explicit, injectable registry.
package registry

import (
	"sort"
	"sync"

	"github.com/stepline-labs/stepline-go/internal/engine"
)

type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*engine.Pipeline
}

func New() *Registry {
	return &Registry{pipelines: map[string]*engine.Pipeline{}}
}

// Put registers the pipeline under its identifier, replacing any previous
// instance with the same id.
func (r *Registry) Put(p *engine.Pipeline) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines[p.ID()] = p
}

// Get returns the pipeline registered under id.
func (r *Registry) Get(id string) (*engine.Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[id]
	return p, ok
}

// Remove drops the pipeline registered under id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pipelines, id)
}

// IDs returns the registered identifiers in stable order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.pipelines))
	for id := range r.pipelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered pipelines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pipelines)
}
