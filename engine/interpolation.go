package engine

import (
	"sync"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/registry"
)

// Interpolation keeps the last two fixed-step states of registered
// component types so render preparation can sample a linear blend between
// them. Keyed by entity slot: interpolation outlives nothing, a despawned
// slot is removed explicitly by the snapshot system
type Interpolation struct {
	mu    sync.RWMutex
	types map[registry.TypeID]*interpRing
}

// interpRing is the previous/current pair for one component type
type interpRing struct {
	lerp     func(a, b any, f float64) any
	previous map[uint32]any
	current  map[uint32]any
}

// NewInterpolation creates an empty interpolation layer
func NewInterpolation() *Interpolation {
	return &Interpolation{
		types: make(map[registry.TypeID]*interpRing),
	}
}

// RegisterType enables interpolation for a registered component type.
// Idempotent. The registry entry must declare a Lerp function
func (ip *Interpolation) RegisterType(id registry.TypeID) error {
	entry, err := registry.MustLookup(id)
	if err != nil {
		return err
	}
	if entry.Lerp == nil {
		return &core.InvalidInputError{Details: "component " + entry.Name + " declares no interpolation"}
	}

	ip.mu.Lock()
	defer ip.mu.Unlock()
	if _, ok := ip.types[id]; ok {
		return nil
	}
	ip.types[id] = &interpRing{
		lerp:     entry.Lerp,
		previous: make(map[uint32]any),
		current:  make(map[uint32]any),
	}
	return nil
}

// UpdateCurrent overwrites the current entry for the entity slot
func (ip *Interpolation) UpdateCurrent(slot uint32, id registry.TypeID, v any) error {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	ring, ok := ip.types[id]
	if !ok {
		return &core.ComponentNotRegisteredError{TypeID: id.String()}
	}
	ring.current[slot] = v
	return nil
}

// GetInterpolated returns previous blended toward current by factor.
// With no previous entry it returns current unblended; factor outside
// [0,1] fails before any lookup
func (ip *Interpolation) GetInterpolated(slot uint32, id registry.TypeID, factor float64) (any, error) {
	if factor < 0 || factor > 1 {
		return nil, &core.InvalidFactorError{Factor: factor}
	}

	ip.mu.RLock()
	defer ip.mu.RUnlock()

	ring, ok := ip.types[id]
	if !ok {
		return nil, &core.ComponentNotRegisteredError{TypeID: id.String()}
	}
	cur, ok := ring.current[slot]
	if !ok {
		return nil, core.ErrEntityNotFound
	}
	prev, ok := ring.previous[slot]
	if !ok {
		return cur, nil
	}
	return ring.lerp(prev, cur, factor), nil
}

// AdvanceFrame swaps previous and current and clears the new current.
// Called before every fixed step so the step's snapshot lands in current
func (ip *Interpolation) AdvanceFrame() {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	for _, ring := range ip.types {
		ring.previous, ring.current = ring.current, ring.previous
		clear(ring.current)
	}
}

// RemoveEntity drops the slot from both maps of every type
func (ip *Interpolation) RemoveEntity(slot uint32) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	for _, ring := range ip.types {
		delete(ring.previous, slot)
		delete(ring.current, slot)
	}
}

// Registered reports whether the type identifier is interpolated
func (ip *Interpolation) Registered(id registry.TypeID) bool {
	ip.mu.RLock()
	defer ip.mu.RUnlock()
	_, ok := ip.types[id]
	return ok
}
