package engine

import (
	"fmt"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/registry"
)

// Typed convenience layer over the identifier-based World operations.
// Systems use these; the script boundary stays on the ByID forms.

// Add stores component value v on the entity, relocating its archetype
func Add[T any](w *World, e core.Entity, v T) error {
	id, ok := registry.IDOf[T]()
	if !ok {
		return notRegistered[T]()
	}
	return w.AddByID(e, id, v)
}

// Remove strips component type T from the entity
func Remove[T any](w *World, e core.Entity) error {
	id, ok := registry.IDOf[T]()
	if !ok {
		return notRegistered[T]()
	}
	return w.RemoveByID(e, id)
}

// Get returns a copy of the entity's T component
func Get[T any](w *World, e core.Entity) (T, error) {
	var zero T
	id, ok := registry.IDOf[T]()
	if !ok {
		return zero, notRegistered[T]()
	}
	v, err := w.GetByID(e, id)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Set overwrites an owned T component and bumps its mutation tick
func Set[T any](w *World, e core.Entity, v T) error {
	id, ok := registry.IDOf[T]()
	if !ok {
		return notRegistered[T]()
	}
	return w.SetByID(e, id, v)
}

// GetMut returns a pointer into the component's dense row and bumps the
// row's mutation tick. The pointer stays valid only until the next
// structural change (add/remove/despawn) touching the entity's archetype
func GetMut[T any](w *World, e core.Entity) (*T, error) {
	id, ok := registry.IDOf[T]()
	if !ok {
		return nil, notRegistered[T]()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	meta, err := w.resolve(e)
	if err != nil {
		return nil, err
	}
	col, ok := meta.archetype.columns[id]
	if !ok {
		return nil, core.ErrComponentNotInArchetype
	}
	typed, ok := col.(*registry.TypedColumn[T])
	if !ok {
		return nil, notRegistered[T]()
	}
	col.Touch(meta.row, w.CurrentTick())
	return &typed.Values[meta.row], nil
}

// Has reports whether the entity owns component type T
func Has[T any](w *World, e core.Entity) bool {
	id, ok := registry.IDOf[T]()
	if !ok {
		return false
	}
	return w.HasByID(e, id)
}

func notRegistered[T any]() error {
	var zero T
	return &core.ComponentNotRegisteredError{TypeID: fmt.Sprintf("%T", zero)}
}
