package engine

import (
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/registry"
)

// QueryBuilder accumulates a signature selector and yields every row of
// every archetype whose signature is a superset of it. Archetype order is
// unspecified; rows within an archetype come out in row order
type QueryBuilder struct {
	world    *World
	selector signature
	since    core.Tick
	hasSince bool
}

// Query starts a selector over the given component identifiers
func (w *World) Query(ids ...registry.TypeID) *QueryBuilder {
	return &QueryBuilder{
		world:    w,
		selector: newSignature(ids...),
	}
}

// With adds another component identifier to the selector
func (qb *QueryBuilder) With(id registry.TypeID) *QueryBuilder {
	qb.selector = qb.selector.with(id)
	return qb
}

// ChangedSince keeps only rows with at least one selected component whose
// mutation tick is greater than t. Unchanged rows are skipped without
// reading component data
func (qb *QueryBuilder) ChangedSince(t core.Tick) *QueryBuilder {
	qb.since = t
	qb.hasSince = true
	return qb
}

// Item is one query result row
type Item struct {
	Entity    core.Entity
	archetype *Archetype
	row       int
}

// Component returns a copy of the row's value for the given identifier
func (it Item) Component(id registry.TypeID) (any, bool) {
	col, ok := it.archetype.columns[id]
	if !ok {
		return nil, false
	}
	return col.Get(it.row), true
}

// ItemGet returns a typed copy of the row's T value
func ItemGet[T any](it Item) (T, bool) {
	var zero T
	id, ok := registry.IDOf[T]()
	if !ok {
		return zero, false
	}
	col, ok := it.archetype.columns[id]
	if !ok {
		return zero, false
	}
	typed, ok := col.(*registry.TypedColumn[T])
	if !ok {
		return zero, false
	}
	return typed.Values[it.row], true
}

// Each invokes fn for every matching row. Returning false stops iteration.
// The callback must not mutate World structure (spawn, despawn, add,
// remove); value updates through Set are safe
func (qb *QueryBuilder) Each(fn func(it Item) bool) {
	w := qb.world
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, arch := range w.archetypes {
		if arch.Len() == 0 || !arch.sig.superset(qb.selector) {
			continue
		}
		cols := make([]registry.Column, 0, len(qb.selector))
		for _, id := range qb.selector {
			cols = append(cols, arch.columns[id])
		}
		for row := 0; row < arch.Len(); row++ {
			if qb.hasSince && !rowChanged(cols, row, qb.since) {
				continue
			}
			if !fn(Item{Entity: arch.entities[row], archetype: arch, row: row}) {
				return
			}
		}
	}
}

// Entities collects matching handles for callers that only need identity
func (qb *QueryBuilder) Entities() []core.Entity {
	result := make([]core.Entity, 0, 16)
	qb.Each(func(it Item) bool {
		result = append(result, it.Entity)
		return true
	})
	return result
}

// Count returns the number of matching rows
func (qb *QueryBuilder) Count() int {
	n := 0
	qb.Each(func(Item) bool {
		n++
		return true
	})
	return n
}

// rowChanged reports whether any selected column mutated after t
func rowChanged(cols []registry.Column, row int, t core.Tick) bool {
	for _, c := range cols {
		if c.Mutated(row) > t {
			return true
		}
	}
	return false
}
