package script

import (
	lua "github.com/yuin/gopher-lua"
)

// openSafeLibs loads the side-effect-free parts of the Lua standard
// library. os, io, debug, and package stay closed; the host API is the
// only route to the outside.
func openSafeLibs(L *lua.LState) {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// dofile/loadfile reach the filesystem behind the capability gate's
	// back; drop them from the sandboxed base library
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
}

// newModuleEnv builds an environment table whose reads fall through to
// the shared globals. Writes land on the table itself, so module-level
// bindings stay private to the module and survive across entries.
func newModuleEnv(L *lua.LState) *lua.LTable {
	env := L.NewTable()
	meta := L.NewTable()
	meta.RawSetString("__index", L.G.Global)
	L.SetMetatable(env, meta)
	return env
}

// mergeEnv folds a freshly executed scratch environment into the live
// one: function bindings are always replaced and re-homed onto the live
// environment so their global reads and writes resolve against the
// module's persistent state; non-function bindings are only adopted
// when the live environment has no value for the key.
func mergeEnv(L *lua.LState, live, scratch *lua.LTable) {
	scratch.ForEach(func(k, v lua.LValue) {
		if fn, ok := v.(*lua.LFunction); ok {
			if !fn.IsG {
				L.SetFEnv(fn, live)
			}
			live.RawSet(k, v)
			return
		}
		if live.RawGet(k) == lua.LNil {
			live.RawSet(k, v)
		}
	})
}
