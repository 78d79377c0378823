// Package stores provides centralized access to typed state stores.
package stores

import (
	"github.com/Moritzheine/growflow-homeassistant/internal/grow"
	"github.com/Moritzheine/growflow-homeassistant/internal/state"
)

// Resource kinds persisted in the state store.
const (
	KindPlant   = "plant"
	KindGrowbox = "growbox"
)

// Registry provides centralized access to all typed stores.
type Registry struct {
	base         *state.Store
	plantStore   *state.TypedStore[grow.Plant]
	growboxStore *state.TypedStore[grow.Growbox]
}

// NewRegistry creates a new store registry with typed stores for each
// resource kind.
func NewRegistry(base *state.Store) *Registry {
	return &Registry{
		base:         base,
		plantStore:   state.NewTypedStore[grow.Plant](base, KindPlant),
		growboxStore: state.NewTypedStore[grow.Growbox](base, KindGrowbox),
	}
}

// Plants returns the typed store for plant records.
func (r *Registry) Plants() *state.TypedStore[grow.Plant] {
	return r.plantStore
}

// Growboxes returns the typed store for growbox records.
func (r *Registry) Growboxes() *state.TypedStore[grow.Growbox] {
	return r.growboxStore
}

// Clear removes all state from all stores.
func (r *Registry) Clear() error {
	if err := r.plantStore.Clear(); err != nil {
		return err
	}
	return r.growboxStore.Clear()
}
