package gatewayrepo

import (
	"fmt"
)

// Registry resolves adapters by name. Which name is "active" is decided
// per-call from a settings snapshot, never from mutable package state, so a
// provider switch can never retarget an intent that already initiated.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown payment gateway %q", name)
	}
	return a, nil
}

func (r *Registry) Known(name string) bool {
	_, ok := r.adapters[name]
	return ok
}
