// Package engine hosts the entity-component store, the interpolation ring,
// the system scheduler and the hybrid game loop.
//
// Storage is archetypal: entities sharing one exact component signature live
// in the same archetype, stored as parallel dense arrays for cache-friendly
// iteration. Mutation operations are transactional per call: either the
// change completes and the storage invariants hold, or the World is left
// unmodified and an error is returned. A detected invariant violation
// poisons the World; every later operation fails until it is recreated.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/registry"
)

// entityMeta records where a live entity resides and which generation of
// its slot is current
type entityMeta struct {
	generation uint32
	archetype  *Archetype
	row        int
}

// World owns entities, their components, the change tick and the shared
// resource store
type World struct {
	mu sync.RWMutex

	archetypes map[string]*Archetype
	metas      []entityMeta
	freeSlots  []uint32

	tick     atomic.Uint64
	poisoned atomic.Bool

	// Resources is the bag of process-scope singletons keyed by type
	Resources *ResourceStore
}

// NewWorld creates an empty World.
// Slot 0 is reserved so the zero Entity handle never resolves
func NewWorld() *World {
	w := &World{
		archetypes: make(map[string]*Archetype),
		metas:      make([]entityMeta, 1),
		Resources:  NewResourceStore(),
	}
	w.tick.Store(1)
	return w
}

// CurrentTick returns the change tick of the running step
func (w *World) CurrentTick() core.Tick {
	return core.Tick(w.tick.Load())
}

// AdvanceTick bumps the change tick. Called once per scheduler step
func (w *World) AdvanceTick() core.Tick {
	return core.Tick(w.tick.Add(1))
}

// Poisoned reports whether an invariant violation has been detected
func (w *World) Poisoned() bool {
	return w.poisoned.Load()
}

// poison marks the World unusable after an invariant violation
func (w *World) poison() error {
	w.poisoned.Store(true)
	return core.ErrWorldPoisoned
}

// Spawn allocates a new entity in the empty-signature archetype.
// Freed slots are reused with an incremented generation so stale handles
// keep failing
func (w *World) Spawn() (core.Entity, error) {
	if w.Poisoned() {
		return core.Entity{}, core.ErrWorldPoisoned
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	var slot uint32
	if n := len(w.freeSlots); n > 0 {
		slot = w.freeSlots[n-1]
		w.freeSlots = w.freeSlots[:n-1]
	} else {
		w.metas = append(w.metas, entityMeta{})
		slot = uint32(len(w.metas) - 1)
	}

	meta := &w.metas[slot]
	meta.generation++
	e := core.Entity{Slot: slot, Generation: meta.generation}

	empty, err := w.archetypeFor(nil)
	if err != nil {
		return core.Entity{}, err
	}
	empty.entities = append(empty.entities, e)
	meta.archetype = empty
	meta.row = empty.Len() - 1
	return e, nil
}

// Despawn removes the entity from its archetype with swap-remove and frees
// the slot. The handle is stale afterwards
func (w *World) Despawn(e core.Entity) error {
	if w.Poisoned() {
		return core.ErrWorldPoisoned
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	meta, err := w.resolve(e)
	if err != nil {
		return err
	}

	moved := meta.archetype.swapRemove(meta.row)
	if !moved.IsZero() {
		w.metas[moved.Slot].row = meta.row
	}
	if !meta.archetype.dense() {
		return w.poison()
	}

	meta.archetype = nil
	meta.row = 0
	w.freeSlots = append(w.freeSlots, e.Slot)
	return nil
}

// Alive reports whether the handle still resolves
func (w *World) Alive(e core.Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, err := w.resolve(e)
	return err == nil
}

// AddByID relocates the entity to the archetype extending its signature
// with the given type and stores the value there. An already-owned
// component is overwritten in place
func (w *World) AddByID(e core.Entity, id registry.TypeID, v any) error {
	if w.Poisoned() {
		return core.ErrWorldPoisoned
	}
	if _, err := registry.MustLookup(id); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	meta, err := w.resolve(e)
	if err != nil {
		return err
	}

	tick := w.CurrentTick()
	if col, ok := meta.archetype.columns[id]; ok {
		col.Set(meta.row, v, tick)
		return nil
	}
	return w.relocate(e, meta, meta.archetype.sig.with(id), id, v, tick)
}

// RemoveByID relocates the entity to the archetype lacking the given type
func (w *World) RemoveByID(e core.Entity, id registry.TypeID) error {
	if w.Poisoned() {
		return core.ErrWorldPoisoned
	}
	if _, err := registry.MustLookup(id); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	meta, err := w.resolve(e)
	if err != nil {
		return err
	}
	if !meta.archetype.sig.contains(id) {
		return core.ErrComponentNotInArchetype
	}
	return w.relocate(e, meta, meta.archetype.sig.without(id), registry.TypeID{}, nil, w.CurrentTick())
}

// GetByID returns a copy of the entity's component value
func (w *World) GetByID(e core.Entity, id registry.TypeID) (any, error) {
	if w.Poisoned() {
		return nil, core.ErrWorldPoisoned
	}
	if _, err := registry.MustLookup(id); err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	meta, err := w.resolve(e)
	if err != nil {
		return nil, err
	}
	col, ok := meta.archetype.columns[id]
	if !ok {
		return nil, core.ErrComponentNotInArchetype
	}
	return col.Get(meta.row), nil
}

// SetByID overwrites an owned component value and bumps its mutation tick.
// Fails with ErrComponentNotInArchetype when the entity does not own the
// type; callers wanting add-on-set semantics fall back to AddByID
func (w *World) SetByID(e core.Entity, id registry.TypeID, v any) error {
	if w.Poisoned() {
		return core.ErrWorldPoisoned
	}
	if _, err := registry.MustLookup(id); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	meta, err := w.resolve(e)
	if err != nil {
		return err
	}
	col, ok := meta.archetype.columns[id]
	if !ok {
		return core.ErrComponentNotInArchetype
	}
	col.Set(meta.row, v, w.CurrentTick())
	return nil
}

// HasByID reports component ownership without an error path
func (w *World) HasByID(e core.Entity, id registry.TypeID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	meta, err := w.resolve(e)
	if err != nil {
		return false
	}
	_, ok := meta.archetype.columns[id]
	return ok
}

// Signature returns the entity's current component identifiers in
// canonical order
func (w *World) Signature(e core.Entity) ([]registry.TypeID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	meta, err := w.resolve(e)
	if err != nil {
		return nil, err
	}
	out := make([]registry.TypeID, len(meta.archetype.sig))
	copy(out, meta.archetype.sig)
	return out, nil
}

// resolve maps a handle to its live meta record.
// Caller holds w.mu
func (w *World) resolve(e core.Entity) (*entityMeta, error) {
	if e.Slot == 0 || int(e.Slot) >= len(w.metas) {
		return nil, core.ErrEntityNotFound
	}
	meta := &w.metas[e.Slot]
	if meta.archetype == nil || meta.generation != e.Generation {
		return nil, core.ErrEntityNotFound
	}
	return meta, nil
}

// archetypeFor returns the archetype for a signature, creating it on first
// use. Caller holds w.mu
func (w *World) archetypeFor(sig signature) (*Archetype, error) {
	key := sig.key()
	if a, ok := w.archetypes[key]; ok {
		return a, nil
	}
	a, err := newArchetype(sig)
	if err != nil {
		return nil, err
	}
	w.archetypes[key] = a
	return a, nil
}

// relocate moves the entity's row from its archetype to the one matching
// target. Component values present in both signatures travel through the
// registry cloner keeping their ticks; added carries the new value for an
// extending move. A missing registry entry aborts before any mutation.
// Caller holds w.mu
func (w *World) relocate(e core.Entity, meta *entityMeta, target signature, added registry.TypeID, addedValue any, tick core.Tick) error {
	src := meta.archetype
	dst, err := w.archetypeFor(target)
	if err != nil {
		return err
	}

	// Stage entries before touching rows so failure leaves the source intact
	type moveCol struct {
		id    registry.TypeID
		clone func(any) any
	}
	shared := make([]moveCol, 0, len(target))
	for _, id := range target {
		if id == added {
			continue
		}
		entry, err := registry.MustLookup(id)
		if err != nil {
			return err
		}
		shared = append(shared, moveCol{id: id, clone: entry.Clone})
	}

	row := meta.row
	for _, mc := range shared {
		srcCol := src.columns[mc.id]
		dstCol := dst.columns[mc.id]
		dstCol.AppendRaw(mc.clone(srcCol.Get(row)), srcCol.Added(row), srcCol.Mutated(row))
	}
	if addedValue != nil {
		dst.columns[added].Append(addedValue, tick)
	}
	dst.entities = append(dst.entities, e)

	moved := src.swapRemove(row)
	if !moved.IsZero() {
		w.metas[moved.Slot].row = row
	}

	meta.archetype = dst
	meta.row = dst.Len() - 1

	if !src.dense() || !dst.dense() {
		return w.poison()
	}
	return nil
}
