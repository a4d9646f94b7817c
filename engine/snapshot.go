package engine

import (
	"github.com/lixenwraith/ember/registry"
)

// WorldSnapshot is a deep copy of World storage, taken at a frame boundary.
// The loop uses it to save the editor scene before entering play mode and
// to restore it afterwards
type WorldSnapshot struct {
	archetypes map[string]*Archetype
	metas      []entityMeta
	freeSlots  []uint32
	tick       uint64
}

// Snapshot deep-copies all storage through the registry cloners
func (w *World) Snapshot() (*WorldSnapshot, error) {
	if w.Poisoned() {
		return nil, w.poison()
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	archetypes, remap, err := cloneArchetypes(w.archetypes)
	if err != nil {
		return nil, err
	}

	snap := &WorldSnapshot{
		archetypes: archetypes,
		metas:      make([]entityMeta, len(w.metas)),
		freeSlots:  make([]uint32, len(w.freeSlots)),
		tick:       w.tick.Load(),
	}
	copy(snap.freeSlots, w.freeSlots)
	for i, meta := range w.metas {
		snap.metas[i] = entityMeta{
			generation: meta.generation,
			archetype:  remap[meta.archetype],
			row:        meta.row,
		}
	}
	return snap, nil
}

// Restore replaces World storage with a fresh copy of the snapshot.
// The snapshot stays intact and can be restored again
func (w *World) Restore(snap *WorldSnapshot) error {
	archetypes, remap, err := cloneArchetypes(snap.archetypes)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.archetypes = archetypes
	w.metas = make([]entityMeta, len(snap.metas))
	for i, meta := range snap.metas {
		w.metas[i] = entityMeta{
			generation: meta.generation,
			archetype:  remap[meta.archetype],
			row:        meta.row,
		}
	}
	w.freeSlots = make([]uint32, len(snap.freeSlots))
	copy(w.freeSlots, snap.freeSlots)
	w.tick.Store(snap.tick)
	w.poisoned.Store(false)
	return nil
}

// cloneArchetypes deep-copies archetype storage and returns the pointer
// remap table so entity metas can follow
func cloneArchetypes(src map[string]*Archetype) (map[string]*Archetype, map[*Archetype]*Archetype, error) {
	out := make(map[string]*Archetype, len(src))
	remap := make(map[*Archetype]*Archetype, len(src)+1)
	remap[nil] = nil

	for key, arch := range src {
		cloned, err := newArchetype(arch.sig)
		if err != nil {
			return nil, nil, err
		}
		cloned.entities = append(cloned.entities, arch.entities...)
		for _, id := range arch.sig {
			entry, err := registry.MustLookup(id)
			if err != nil {
				return nil, nil, err
			}
			srcCol := arch.columns[id]
			dstCol := cloned.columns[id]
			for row := 0; row < srcCol.Len(); row++ {
				dstCol.AppendRaw(entry.Clone(srcCol.Get(row)), srcCol.Added(row), srcCol.Mutated(row))
			}
		}
		out[key] = cloned
		remap[arch] = cloned
	}
	return out, remap, nil
}
