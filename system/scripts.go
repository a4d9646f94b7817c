package system

import (
	"log"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/script"
)

// Scripts drives the guest lifecycle hooks for every entity carrying a
// ScriptComponent: init once on first sight, update(dt) every fixed
// step, destroy when the component or entity disappears. A guest fault
// is recorded against the entity and the simulation continues.
func Scripts(host *script.Host) engine.SystemDesc {
	s := &scriptRunner{host: host, started: make(map[uint32]activeScript)}
	return engine.SystemDesc{
		Name:      NameScripts,
		Class:     engine.Fixed,
		RunsAfter: []string{NameMovement},
		Fn:        s.step,
	}
}

// activeScript remembers the full handle and module bound to a slot so
// destroy fires with a resolvable identity even after despawn.
type activeScript struct {
	entity core.Entity
	module string
}

type scriptRunner struct {
	host *script.Host

	// started maps entity slot to its bound script, so despawned,
	// stripped, or re-bound entities get their destroy hook
	started map[uint32]activeScript
}

func (s *scriptRunner) step(w *engine.World, ctx *engine.Context, dt time.Duration) error {
	scriptID, ok := registry.IDOf[component.ScriptComponent]()
	if !ok {
		return &core.ComponentNotRegisteredError{TypeID: "component.ScriptComponent"}
	}

	type live struct {
		e      core.Entity
		module string
		first  bool
	}
	seen := make(map[uint32]bool, len(s.started))
	alive := make([]live, 0, 16)

	w.Query(scriptID).Each(func(it engine.Item) bool {
		sc, ok := engine.ItemGet[component.ScriptComponent](it)
		if !ok || sc.Module == "" {
			return true
		}
		seen[it.Entity.Slot] = true
		alive = append(alive, live{e: it.Entity, module: sc.Module, first: !sc.Started})
		return true
	})

	// Destroy hooks for entities that disappeared since the last step
	for slot, rec := range s.started {
		if seen[slot] {
			continue
		}
		s.invoke(ctx, rec.module, "destroy", rec.entity)
		delete(s.started, slot)
	}

	dtArg := lua.LNumber(dt.Seconds())
	for _, l := range alive {
		rec, tracked := s.started[l.e.Slot]
		rebound := tracked && rec.module != l.module
		if rebound {
			s.invoke(ctx, rec.module, "destroy", rec.entity)
		}
		if l.first || rebound {
			s.invoke(ctx, l.module, "init", l.e)
			sc, err := engine.Get[component.ScriptComponent](w, l.e)
			if err == nil {
				sc.Started = true
				if serr := engine.Set(w, l.e, sc); serr != nil {
					return serr
				}
			}
		}
		s.started[l.e.Slot] = activeScript{entity: l.e, module: l.module}
		s.invoke(ctx, l.module, "update", l.e, dtArg)
	}
	return nil
}

// invoke runs one hook if the module exports it, recording faults
// without stopping the step.
func (s *scriptRunner) invoke(ctx *engine.Context, module, hook string, e core.Entity, extra ...lua.LValue) {
	if !s.host.HasExport(module, hook) {
		return
	}
	args := append([]lua.LValue{script.EntityArg(s.host, e)}, extra...)
	if _, err := s.host.Call(module, hook, args...); err != nil {
		log.Printf("script %s.%s on entity %s: %v", module, hook, e, err)
		ctx.Status.Ints.Get("script.hook_faults").Add(1)
		ctx.PushEvent(event.TypeScriptFault, &event.ScriptFaultPayload{
			Script: module,
			Hook:   hook,
			Err:    err,
		})
	}
}
