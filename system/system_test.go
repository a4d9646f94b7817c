package system

import (
	"math"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/script"
	"github.com/lixenwraith/ember/status"
	"github.com/lixenwraith/ember/vmath"
)

func newTestRig(t *testing.T) (*engine.World, *engine.Context) {
	t.Helper()
	registry.Reset()
	component.RegisterAll()
	return engine.NewWorld(), engine.NewContext()
}

func spawnMover(t *testing.T, w *engine.World, pos, linear vmath.Vec3) core.Entity {
	t.Helper()
	e, err := w.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(w, e, component.NewTransform(pos)); err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(w, e, component.VelocityComponent{Linear: linear}); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestMovementIntegratesLinearVelocity(t *testing.T) {
	w, ctx := newTestRig(t)
	e := spawnMover(t, w, vmath.Vec3{}, vmath.Vec3{X: 2, Y: -4})

	desc := Movement()
	for i := 0; i < 4; i++ {
		if err := desc.Fn(w, ctx, 250*time.Millisecond); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	tr, err := engine.Get[component.TransformComponent](w, e)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(tr.Position.X-2) > 1e-9 || math.Abs(tr.Position.Y+4) > 1e-9 {
		t.Errorf("Expected position (2,-4,0) after one second, got %+v", tr.Position)
	}
}

func TestMovementIntegratesAngularVelocity(t *testing.T) {
	w, ctx := newTestRig(t)
	e, err := w.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(w, e, component.NewTransform(vmath.Vec3{})); err != nil {
		t.Fatal(err)
	}
	// Half pi per second about Z
	if err := engine.Add(w, e, component.VelocityComponent{Angular: vmath.Vec3{Z: math.Pi / 2}}); err != nil {
		t.Fatal(err)
	}

	desc := Movement()
	if err := desc.Fn(w, ctx, time.Second); err != nil {
		t.Fatal(err)
	}

	tr, err := engine.Get[component.TransformComponent](w, e)
	if err != nil {
		t.Fatal(err)
	}
	want := vmath.QFromAxisAngle(vmath.Vec3{Z: 1}, math.Pi/2)
	if math.Abs(tr.Rotation.Z-want.Z) > 1e-6 || math.Abs(tr.Rotation.W-want.W) > 1e-6 {
		t.Errorf("Expected quarter turn about Z, got %+v", tr.Rotation)
	}
}

func TestMovementSkipsEntitiesWithoutVelocity(t *testing.T) {
	w, ctx := newTestRig(t)
	e, err := w.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(w, e, component.NewTransform(vmath.Vec3{X: 5})); err != nil {
		t.Fatal(err)
	}

	if err := Movement().Fn(w, ctx, time.Second); err != nil {
		t.Fatal(err)
	}
	tr, _ := engine.Get[component.TransformComponent](w, e)
	if tr.Position.X != 5 {
		t.Errorf("Expected stationary entity untouched, got %+v", tr.Position)
	}
}

func TestScriptLifecycleHooks(t *testing.T) {
	w, ctx := newTestRig(t)
	host := script.NewHost(w, ctx.Bus, status.NewRegistry())
	defer host.Close()

	src := `
inits = inits or 0
updates = updates or 0
destroys = destroys or 0
function init(e) inits = inits + 1 end
function update(e, dt) updates = updates + 1 end
function destroy(e) destroys = destroys + 1 end
`
	if err := host.Load("actor", src); err != nil {
		t.Fatalf("load: %v", err)
	}

	e, err := w.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(w, e, component.ScriptComponent{Module: "actor"}); err != nil {
		t.Fatal(err)
	}

	desc := Scripts(host)
	step := func() {
		t.Helper()
		if err := desc.Fn(w, ctx, 16*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}

	step()
	step()
	step()

	m, _ := host.Module("actor")
	get := func(name string) float64 {
		return float64(m.Env.RawGetString(name).(lua.LNumber))
	}
	if get("inits") != 1 {
		t.Errorf("Expected init once, got %v", get("inits"))
	}
	if get("updates") != 3 {
		t.Errorf("Expected update each step, got %v", get("updates"))
	}

	if err := w.Despawn(e); err != nil {
		t.Fatal(err)
	}
	step()
	if get("destroys") != 1 {
		t.Errorf("Expected destroy after despawn, got %v", get("destroys"))
	}
}

func TestScriptRebindFiresDestroyAndInit(t *testing.T) {
	w, ctx := newTestRig(t)
	host := script.NewHost(w, ctx.Bus, status.NewRegistry())
	defer host.Close()

	counterSrc := `
inits = inits or 0
destroys = destroys or 0
function init(e) inits = inits + 1 end
function update(e, dt) end
function destroy(e) destroys = destroys + 1 end
`
	if err := host.Load("first", counterSrc); err != nil {
		t.Fatal(err)
	}
	if err := host.Load("second", counterSrc); err != nil {
		t.Fatal(err)
	}

	e, err := w.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(w, e, component.ScriptComponent{Module: "first"}); err != nil {
		t.Fatal(err)
	}

	desc := Scripts(host)
	if err := desc.Fn(w, ctx, 16*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	// Re-bind the entity to another module between steps
	if err := engine.Set(w, e, component.ScriptComponent{Module: "second", Started: true}); err != nil {
		t.Fatal(err)
	}
	if err := desc.Fn(w, ctx, 16*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	get := func(module, name string) float64 {
		m, _ := host.Module(module)
		return float64(m.Env.RawGetString(name).(lua.LNumber))
	}
	if get("first", "destroys") != 1 {
		t.Errorf("Expected old module's destroy on rebind, got %v", get("first", "destroys"))
	}
	if get("second", "inits") != 1 {
		t.Errorf("Expected new module's init on rebind, got %v", get("second", "inits"))
	}
}

func TestDestroyReceivesFullHandle(t *testing.T) {
	w, ctx := newTestRig(t)
	host := script.NewHost(w, ctx.Bus, status.NewRegistry())
	defer host.Close()

	src := `
function init(e) end
function update(e, dt) end
function destroy(e)
    last_slot = e.slot
    last_gen = e.generation
end
`
	if err := host.Load("tracker", src); err != nil {
		t.Fatal(err)
	}

	// Recycle a slot so the live generation is non-zero
	stale, err := w.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Despawn(stale); err != nil {
		t.Fatal(err)
	}
	e, err := w.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if e.Generation == 0 {
		t.Fatalf("Expected a recycled slot with bumped generation, got %+v", e)
	}
	if err := engine.Add(w, e, component.ScriptComponent{Module: "tracker"}); err != nil {
		t.Fatal(err)
	}

	desc := Scripts(host)
	if err := desc.Fn(w, ctx, 16*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := w.Despawn(e); err != nil {
		t.Fatal(err)
	}
	if err := desc.Fn(w, ctx, 16*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	m, _ := host.Module("tracker")
	slot := float64(m.Env.RawGetString("last_slot").(lua.LNumber))
	gen := float64(m.Env.RawGetString("last_gen").(lua.LNumber))
	if uint32(slot) != e.Slot || uint32(gen) != e.Generation {
		t.Errorf("Expected destroy handle %d/%d, got %v/%v", e.Slot, e.Generation, slot, gen)
	}
}

func TestScriptFaultDoesNotStopStep(t *testing.T) {
	w, ctx := newTestRig(t)
	host := script.NewHost(w, ctx.Bus, status.NewRegistry())
	defer host.Close()

	if err := host.Load("broken", `function update(e, dt) error("boom") end`); err != nil {
		t.Fatal(err)
	}

	e, err := w.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(w, e, component.ScriptComponent{Module: "broken"}); err != nil {
		t.Fatal(err)
	}

	desc := Scripts(host)
	if err := desc.Fn(w, ctx, 16*time.Millisecond); err != nil {
		t.Fatalf("Expected fault contained, got %v", err)
	}

	var faults int
	for _, ev := range ctx.Events.Consume() {
		if ev.Type == event.TypeScriptFault {
			faults++
			payload := ev.Payload.(*event.ScriptFaultPayload)
			if payload.Script != "broken" || payload.Hook != "update" {
				t.Errorf("Expected fault attributed to broken.update, got %+v", payload)
			}
		}
	}
	if faults == 0 {
		t.Error("Expected a fault event")
	}
	if got := ctx.Status.Ints.Get("script.hook_faults").Load(); got == 0 {
		t.Error("Expected fault counter incremented")
	}
}

func TestSnapshotFeedsInterpolation(t *testing.T) {
	w, ctx := newTestRig(t)
	e := spawnMover(t, w, vmath.Vec3{}, vmath.Vec3{X: 10})

	move := Movement()
	snap := InterpolationSnapshot()
	fixedStep := func() {
		t.Helper()
		ctx.Interp.AdvanceFrame()
		if err := move.Fn(w, ctx, time.Second); err != nil {
			t.Fatal(err)
		}
		if err := snap.Fn(w, ctx, time.Second); err != nil {
			t.Fatal(err)
		}
	}

	fixedStep()
	fixedStep()

	transformID, _ := registry.IDOf[component.TransformComponent]()
	mid, err := ctx.Interp.GetInterpolated(e.Slot, transformID, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	tr := mid.(component.TransformComponent)
	if math.Abs(tr.Position.X-15) > 1e-6 {
		t.Errorf("Expected midpoint x=15 between steps, got %v", tr.Position.X)
	}
}

func TestSnapshotEvictsDespawned(t *testing.T) {
	w, ctx := newTestRig(t)
	e := spawnMover(t, w, vmath.Vec3{X: 1}, vmath.Vec3{})

	snap := InterpolationSnapshot()
	if err := snap.Fn(w, ctx, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := w.Despawn(e); err != nil {
		t.Fatal(err)
	}
	if err := snap.Fn(w, ctx, time.Second); err != nil {
		t.Fatal(err)
	}

	transformID, _ := registry.IDOf[component.TransformComponent]()
	if _, err := ctx.Interp.GetInterpolated(e.Slot, transformID, 0); err == nil {
		t.Error("Expected despawned entity evicted from the ring")
	}
}
