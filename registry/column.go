package registry

import "github.com/lixenwraith/ember/core"

// Column is type-erased dense component storage for one archetype.
// Rows are parallel to the archetype's entity array; removal swaps with the
// last row to preserve density
type Column interface {
	// Append adds a value at the end, recording tick as both the added
	// and mutated tick, and returns the new row index
	Append(v any, tick core.Tick) int

	// Get returns a copy of the value at row
	Get(row int) any

	// Set overwrites the value at row and bumps its mutated tick
	Set(row int, v any, tick core.Tick)

	// SwapRemove swaps row with the last row and shrinks by one
	SwapRemove(row int)

	// Len is the current row count
	Len() int

	// Added returns the tick at which row was inserted
	Added(row int) core.Tick

	// Mutated returns the tick of the last mutation of row
	Mutated(row int) core.Tick

	// Touch bumps the mutated tick without changing the value.
	// Used when a mutable reference is handed out
	Touch(row int, tick core.Tick)

	// AppendRaw adds a value preserving explicit ticks.
	// Used by archetype relocation so a moved row keeps its history
	AppendRaw(v any, added, mutated core.Tick) int
}

// TypedColumn is the concrete Column for component type T.
// Values is exported so typed accessors can reach rows without boxing
type TypedColumn[T any] struct {
	Values  []T
	added   []core.Tick
	mutated []core.Tick
}

func (c *TypedColumn[T]) Append(v any, tick core.Tick) int {
	c.Values = append(c.Values, v.(T))
	c.added = append(c.added, tick)
	c.mutated = append(c.mutated, tick)
	return len(c.Values) - 1
}

func (c *TypedColumn[T]) Get(row int) any {
	return c.Values[row]
}

func (c *TypedColumn[T]) Set(row int, v any, tick core.Tick) {
	c.Values[row] = v.(T)
	c.mutated[row] = tick
}

func (c *TypedColumn[T]) SwapRemove(row int) {
	last := len(c.Values) - 1
	c.Values[row] = c.Values[last]
	c.added[row] = c.added[last]
	c.mutated[row] = c.mutated[last]
	c.Values = c.Values[:last]
	c.added = c.added[:last]
	c.mutated = c.mutated[:last]
}

func (c *TypedColumn[T]) Len() int {
	return len(c.Values)
}

func (c *TypedColumn[T]) Added(row int) core.Tick {
	return c.added[row]
}

func (c *TypedColumn[T]) Mutated(row int) core.Tick {
	return c.mutated[row]
}

func (c *TypedColumn[T]) Touch(row int, tick core.Tick) {
	c.mutated[row] = tick
}

func (c *TypedColumn[T]) AppendRaw(v any, added, mutated core.Tick) int {
	c.Values = append(c.Values, v.(T))
	c.added = append(c.added, added)
	c.mutated = append(c.mutated, mutated)
	return len(c.Values) - 1
}
