package engine

import (
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/registry"
)

// Archetype groups every entity sharing one exact component signature.
// One dense column per member type plus a parallel entity array; row i of
// every array belongs to the same entity
type Archetype struct {
	sig      signature
	columns  map[registry.TypeID]registry.Column
	entities []core.Entity
}

// newArchetype materialises storage for the signature.
// Every member type must be registered; the first missing entry aborts
func newArchetype(sig signature) (*Archetype, error) {
	a := &Archetype{
		sig:     sig,
		columns: make(map[registry.TypeID]registry.Column, len(sig)),
	}
	for _, id := range sig {
		entry, err := registry.MustLookup(id)
		if err != nil {
			return nil, err
		}
		a.columns[id] = entry.NewColumn()
	}
	return a, nil
}

// Len is the entity count (equal to every column length)
func (a *Archetype) Len() int {
	return len(a.entities)
}

// Column exposes the dense storage for a member type
func (a *Archetype) Column(id registry.TypeID) (registry.Column, bool) {
	c, ok := a.columns[id]
	return c, ok
}

// dense verifies invariant I1: all arrays share the entity count
func (a *Archetype) dense() bool {
	for _, c := range a.columns {
		if c.Len() != len(a.entities) {
			return false
		}
	}
	return true
}

// swapRemove removes row, swapping the last row into its place.
// Returns the entity that now occupies row, or the zero handle when the
// removed row was the last one
func (a *Archetype) swapRemove(row int) core.Entity {
	last := len(a.entities) - 1
	moved := core.Entity{}
	if row != last {
		moved = a.entities[last]
		a.entities[row] = moved
	}
	a.entities = a.entities[:last]
	for _, c := range a.columns {
		c.SwapRemove(row)
	}
	return moved
}
