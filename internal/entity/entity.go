// Package entity exposes derived metrics as addressable entities. Every
// entity implements a fixed capability interface and is registered into a
// mapping keyed by identifier at construction time - there is no discovery
// or introspection.
package entity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Entity is the capability interface every registered entity implements.
type Entity interface {
	// ID is the stable identifier the entity is registered under.
	ID() string
	// Value returns the entity's current value, computing it on first use.
	Value() (any, error)
	// Update recomputes the entity's value from its source.
	Update() error
}

// Registry maps entity IDs to entities.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]Entity
}

// NewRegistry creates an empty entity registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]Entity)}
}

// Register adds an entity. Registering an existing ID replaces it.
func (r *Registry) Register(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[e.ID()] = e
}

// Deregister removes an entity by ID.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, id)
}

// Get returns the entity registered under id.
func (r *Registry) Get(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	return e, ok
}

// IDs returns all registered entity IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateAll recomputes every registered entity. Individual failures are
// logged and do not stop the sweep.
func (r *Registry) UpdateAll() {
	r.mu.RLock()
	entities := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		entities = append(entities, e)
	}
	r.mu.RUnlock()

	for _, e := range entities {
		if err := e.Update(); err != nil {
			log.Warn().Err(err).Str("entity", e.ID()).Msg("Entity update failed")
		}
	}
}

// Values returns a snapshot of all entity values keyed by ID.
func (r *Registry) Values() map[string]any {
	r.mu.RLock()
	entities := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		entities = append(entities, e)
	}
	r.mu.RUnlock()

	out := make(map[string]any, len(entities))
	for _, e := range entities {
		v, err := e.Value()
		if err != nil {
			out[e.ID()] = fmt.Sprintf("error: %v", err)
			continue
		}
		out[e.ID()] = v
	}
	return out
}
