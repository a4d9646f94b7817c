package system

import (
	"time"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/registry"
)

// InterpolationSnapshot records post-simulation transforms into the
// interpolation ring at the end of every fixed step. It runs after
// every mutating system so the ring holds the step's final values.
func InterpolationSnapshot() engine.SystemDesc {
	s := &snapshotRunner{known: make(map[uint32]bool)}
	return engine.SystemDesc{
		Name:      NameSnapshot,
		Class:     engine.Fixed,
		RunsAfter: []string{NameMovement, NameScripts},
		Fn:        s.step,
	}
}

type snapshotRunner struct {
	// known tracks slots present in the ring so despawned entities are
	// evicted rather than interpolated against stale state
	known map[uint32]bool
}

func (s *snapshotRunner) step(w *engine.World, ctx *engine.Context, _ time.Duration) error {
	transformID, ok := registry.IDOf[component.TransformComponent]()
	if !ok {
		return &core.ComponentNotRegisteredError{TypeID: "component.TransformComponent"}
	}
	if !ctx.Interp.Registered(transformID) {
		if err := ctx.Interp.RegisterType(transformID); err != nil {
			return err
		}
	}

	seen := make(map[uint32]bool, len(s.known))
	var updateErr error
	w.Query(transformID).Each(func(it engine.Item) bool {
		tr, ok := engine.ItemGet[component.TransformComponent](it)
		if !ok {
			return true
		}
		if err := ctx.Interp.UpdateCurrent(it.Entity.Slot, transformID, tr); err != nil {
			updateErr = err
			return false
		}
		seen[it.Entity.Slot] = true
		return true
	})
	if updateErr != nil {
		return updateErr
	}

	for slot := range s.known {
		if !seen[slot] {
			ctx.Interp.RemoveEntity(slot)
		}
	}
	s.known = seen
	return nil
}
