package script

import (
	"errors"
	"fmt"
	"log"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/vmath"
)

// installAPI publishes the engine surface as globals on the shared VM.
// Every entry point checks the calling module's capability set before
// touching the host.
func installAPI(h *Host) {
	L := h.L

	console := L.NewTable()
	L.SetFuncs(console, map[string]lua.LGFunction{
		"log": h.apiConsoleLog,
	})
	L.SetGlobal("console", console)

	world := L.NewTable()
	L.SetFuncs(world, map[string]lua.LGFunction{
		"spawn":   h.apiWorldSpawn,
		"despawn": h.apiWorldDespawn,
		"query":   h.apiWorldQuery,
	})
	L.SetGlobal("world", world)

	entity := L.NewTable()
	L.SetFuncs(entity, map[string]lua.LGFunction{
		"get_component": h.apiGetComponent,
		"set_component": h.apiSetComponent,
		"add_component": h.apiAddComponent,
	})
	L.SetGlobal("entity", entity)

	events := L.NewTable()
	L.SetFuncs(events, map[string]lua.LGFunction{
		"emit":   h.apiEventsEmit,
		"on":     h.apiEventsOn,
		"remove": h.apiEventsRemove,
	})
	L.SetGlobal("events", events)

	input := L.NewTable()
	L.SetFuncs(input, map[string]lua.LGFunction{
		"is_key_pressed":       h.apiIsKeyPressed,
		"mouse_position":       h.apiMousePosition,
		"is_mouse_button_down": h.apiIsMouseButtonDown,
	})
	L.SetGlobal("input", input)

	physics := L.NewTable()
	L.SetFuncs(physics, map[string]lua.LGFunction{
		"apply_force":   h.apiApplyForce,
		"apply_impulse": h.apiApplyImpulse,
		"raycast":       h.apiRaycast,
	})
	L.SetGlobal("physics", physics)

	files := L.NewTable()
	L.SetFuncs(files, map[string]lua.LGFunction{
		"read":  h.apiFileRead,
		"write": h.apiFileWrite,
	})
	L.SetGlobal("files", files)
}

// EntityArg boxes a handle for passing into a guest call.
func EntityArg(h *Host, e core.Entity) lua.LValue {
	return entityToLua(h.L, e)
}

// entityToLua boxes a handle for the guest.
func entityToLua(L *lua.LState, e core.Entity) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("slot", lua.LNumber(e.Slot))
	t.RawSetString("generation", lua.LNumber(e.Generation))
	return t
}

// checkEntity unboxes a guest handle argument.
func checkEntity(L *lua.LState, n int) (core.Entity, error) {
	tbl, ok := L.Get(n).(*lua.LTable)
	if !ok {
		return core.Entity{}, &core.InvalidInputError{Details: fmt.Sprintf("argument %d: expected entity", n)}
	}
	slot, ok1 := tbl.RawGetString("slot").(lua.LNumber)
	gen, ok2 := tbl.RawGetString("generation").(lua.LNumber)
	if !ok1 || !ok2 {
		return core.Entity{}, &core.InvalidInputError{Details: fmt.Sprintf("argument %d: malformed entity", n)}
	}
	return core.Entity{Slot: uint32(slot), Generation: uint32(gen)}, nil
}

// checkName validates a guest string argument against the length ceiling.
func checkName(L *lua.LState, n int) (string, error) {
	s, ok := L.Get(n).(lua.LString)
	if !ok {
		return "", &core.InvalidInputError{Details: fmt.Sprintf("argument %d: expected string", n)}
	}
	if err := validateString(string(s)); err != nil {
		return "", err
	}
	return string(s), nil
}

// componentEntry resolves a guest component name.
func componentEntry(name string) (*registry.Entry, error) {
	entry, ok := registry.LookupName(name)
	if !ok {
		return nil, &core.ComponentNotRegisteredError{TypeID: name}
	}
	return entry, nil
}

func (h *Host) apiConsoleLog(L *lua.LState) int {
	if err := h.check(core.PermConsoleWrite); err != nil {
		return h.raise(L, err)
	}
	msg, err := checkName(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	who := "?"
	if h.active != nil {
		who = h.active.Name
	}
	log.Printf("script %s: %s", who, msg)
	h.countInt("script.console_lines", 1)
	return 0
}

func (h *Host) apiWorldSpawn(L *lua.LState) int {
	if err := h.check(core.PermEntityCreate); err != nil {
		return h.raise(L, err)
	}
	e, err := h.world.Spawn()
	if err != nil {
		return h.raise(L, err)
	}
	L.Push(entityToLua(L, e))
	return 1
}

func (h *Host) apiWorldDespawn(L *lua.LState) int {
	if err := h.check(core.PermEntityCreate); err != nil {
		return h.raise(L, err)
	}
	e, err := checkEntity(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	if err := h.world.Despawn(e); err != nil {
		return h.raise(L, err)
	}
	return 0
}

// apiWorldQuery returns an iterator over entities owning every named
// component, Lua generic-for style:
//
//	for e in world.query("transform", "velocity") do ... end
func (h *Host) apiWorldQuery(L *lua.LState) int {
	if err := h.check(core.PermSceneQuery); err != nil {
		return h.raise(L, err)
	}
	ids := make([]registry.TypeID, 0, L.GetTop())
	for n := 1; n <= L.GetTop(); n++ {
		name, err := checkName(L, n)
		if err != nil {
			return h.raise(L, err)
		}
		entry, err := componentEntry(name)
		if err != nil {
			return h.raise(L, err)
		}
		ids = append(ids, entry.ID)
	}

	// Snapshot matches up front so the guest may mutate while iterating
	matches := h.world.Query(ids...).Entities()
	i := 0
	L.Push(L.NewFunction(func(L *lua.LState) int {
		if i >= len(matches) {
			L.Push(lua.LNil)
			return 1
		}
		e := matches[i]
		i++
		L.Push(entityToLua(L, e))
		return 1
	}))
	return 1
}

func (h *Host) apiGetComponent(L *lua.LState) int {
	if err := h.check(core.PermComponentWrite); err != nil {
		return h.raise(L, err)
	}
	e, err := checkEntity(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	name, err := checkName(L, 2)
	if err != nil {
		return h.raise(L, err)
	}
	entry, err := componentEntry(name)
	if err != nil {
		return h.raise(L, err)
	}
	v, err := h.world.GetByID(e, entry.ID)
	if err != nil {
		if errors.Is(err, core.ErrComponentNotInArchetype) {
			L.Push(lua.LNil)
			return 1
		}
		return h.raise(L, err)
	}
	tbl, err := marshalComponent(L, entry, v)
	if err != nil {
		return h.raise(L, err)
	}
	L.Push(tbl)
	return 1
}

// apiSetComponent writes a component value; a component the entity does
// not yet own is added instead of failing.
func (h *Host) apiSetComponent(L *lua.LState) int {
	return h.writeComponent(L, true)
}

func (h *Host) apiAddComponent(L *lua.LState) int {
	return h.writeComponent(L, false)
}

func (h *Host) writeComponent(L *lua.LState, setFirst bool) int {
	if err := h.check(core.PermComponentWrite); err != nil {
		return h.raise(L, err)
	}
	e, err := checkEntity(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	name, err := checkName(L, 2)
	if err != nil {
		return h.raise(L, err)
	}
	entry, err := componentEntry(name)
	if err != nil {
		return h.raise(L, err)
	}
	tbl, ok := L.Get(3).(*lua.LTable)
	if !ok {
		return h.raise(L, &core.InvalidInputError{Details: "argument 3: expected component table"})
	}
	v, err := unmarshalComponent(entry, tbl)
	if err != nil {
		return h.raise(L, err)
	}
	if setFirst {
		err = h.world.SetByID(e, entry.ID, v)
		if errors.Is(err, core.ErrComponentNotInArchetype) {
			err = h.world.AddByID(e, entry.ID, v)
		}
	} else {
		err = h.world.AddByID(e, entry.ID, v)
	}
	if err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) apiEventsEmit(L *lua.LState) int {
	if err := h.check(core.PermConsoleWrite); err != nil {
		return h.raise(L, err)
	}
	name, err := checkName(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	h.bus.Emit(name, luaToAny(L.Get(2)))
	return 0
}

func (h *Host) apiEventsOn(L *lua.LState) int {
	if err := h.check(core.PermConsoleWrite); err != nil {
		return h.raise(L, err)
	}
	name, err := checkName(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	cb, ok := L.Get(2).(*lua.LFunction)
	if !ok {
		return h.raise(L, &core.InvalidInputError{Details: "argument 2: expected function"})
	}

	owner := h.active
	busID := h.bus.On(name, func(payload any) {
		// Listener callback re-enters the guest under full ceilings,
		// attributed to the registering module
		if _, err := h.call(owner, cb, anyToLua(h.L, payload)); err != nil {
			log.Printf("script %s: event %s listener: %v", owner.Name, name, err)
			h.countInt("script.listener_faults", 1)
		}
	})

	h.nextListen++
	id := h.nextListen
	h.listeners[id] = listener{module: owner.Name, busID: busID}
	L.Push(lua.LNumber(id))
	return 1
}

// apiEventsRemove is idempotent: removing an unknown id is a no-op.
func (h *Host) apiEventsRemove(L *lua.LState) int {
	if err := h.check(core.PermConsoleWrite); err != nil {
		return h.raise(L, err)
	}
	id, ok := L.Get(1).(lua.LNumber)
	if !ok {
		return h.raise(L, &core.InvalidInputError{Details: "argument 1: expected listener id"})
	}
	if l, found := h.listeners[uint64(id)]; found {
		h.bus.Remove(l.busID)
		delete(h.listeners, uint64(id))
	}
	return 0
}

func (h *Host) apiIsKeyPressed(L *lua.LState) int {
	if err := h.check(core.PermSceneQuery); err != nil {
		return h.raise(L, err)
	}
	name, err := checkName(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	L.Push(lua.LBool(h.Input.IsKeyPressed(name)))
	return 1
}

func (h *Host) apiMousePosition(L *lua.LState) int {
	if err := h.check(core.PermSceneQuery); err != nil {
		return h.raise(L, err)
	}
	x, y := h.Input.MousePosition()
	L.Push(lua.LNumber(x))
	L.Push(lua.LNumber(y))
	return 2
}

func (h *Host) apiIsMouseButtonDown(L *lua.LState) int {
	if err := h.check(core.PermSceneQuery); err != nil {
		return h.raise(L, err)
	}
	button, ok := L.Get(1).(lua.LNumber)
	if !ok {
		return h.raise(L, &core.InvalidInputError{Details: "argument 1: expected button number"})
	}
	L.Push(lua.LBool(h.Input.IsMouseButtonDown(int(button))))
	return 1
}

// checkVec3 unboxes a {x=, y=, z=} table argument.
func checkVec3(L *lua.LState, n int) (vmath.Vec3, error) {
	tbl, ok := L.Get(n).(*lua.LTable)
	if !ok {
		return vmath.Vec3{}, &core.InvalidInputError{Details: fmt.Sprintf("argument %d: expected vector table", n)}
	}
	get := func(key string) float64 {
		if num, ok := tbl.RawGetString(key).(lua.LNumber); ok {
			return float64(num)
		}
		return 0
	}
	return vmath.Vec3{X: get("x"), Y: get("y"), Z: get("z")}, nil
}

func vec3ToLua(L *lua.LState, v vmath.Vec3) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	t.RawSetString("z", lua.LNumber(v.Z))
	return t
}

func (h *Host) apiApplyForce(L *lua.LState) int {
	return h.applyPhysics(L, h.Physics.ApplyForce)
}

func (h *Host) apiApplyImpulse(L *lua.LState) int {
	return h.applyPhysics(L, h.Physics.ApplyImpulse)
}

func (h *Host) applyPhysics(L *lua.LState, apply func(core.Entity, vmath.Vec3) error) int {
	if err := h.check(core.PermComponentWrite); err != nil {
		return h.raise(L, err)
	}
	e, err := checkEntity(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	v, err := checkVec3(L, 2)
	if err != nil {
		return h.raise(L, err)
	}
	if err := apply(e, v); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) apiRaycast(L *lua.LState) int {
	if err := h.check(core.PermComponentWrite); err != nil {
		return h.raise(L, err)
	}
	origin, err := checkVec3(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	dir, err := checkVec3(L, 2)
	if err != nil {
		return h.raise(L, err)
	}
	max, ok := L.Get(3).(lua.LNumber)
	if !ok {
		return h.raise(L, &core.InvalidInputError{Details: "argument 3: expected max distance"})
	}
	hit, point, found := h.Physics.Raycast(origin, dir, float64(max))
	if !found {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(entityToLua(L, hit))
	L.Push(vec3ToLua(L, point))
	return 2
}

func (h *Host) apiFileRead(L *lua.LState) int {
	if err := h.check(core.PermFileRead); err != nil {
		return h.raise(L, err)
	}
	p, err := checkName(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	full, err := resolvePath(h.root, p)
	if err != nil {
		return h.raise(L, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return h.raise(L, &core.FileSystemError{Path: p, Err: err})
	}
	L.Push(lua.LString(data))
	return 1
}

func (h *Host) apiFileWrite(L *lua.LState) int {
	if err := h.check(core.PermFileWrite); err != nil {
		return h.raise(L, err)
	}
	p, err := checkName(L, 1)
	if err != nil {
		return h.raise(L, err)
	}
	data, ok := L.Get(2).(lua.LString)
	if !ok {
		return h.raise(L, &core.InvalidInputError{Details: "argument 2: expected string data"})
	}
	full, err := resolvePath(h.root, p)
	if err != nil {
		return h.raise(L, err)
	}
	if err := os.WriteFile(full, []byte(data), 0o644); err != nil {
		return h.raise(L, &core.FileSystemError{Path: p, Err: err})
	}
	return 0
}
