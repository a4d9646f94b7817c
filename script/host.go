package script

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/parameter"
	"github.com/lixenwraith/ember/status"
)

// Ceilings bounds each top-level entry into the guest.
type Ceilings struct {
	Time      time.Duration
	Memory    uint64
	Recursion int
	Source    int
}

// DefaultCeilings returns the tuned engine defaults.
func DefaultCeilings() Ceilings {
	return Ceilings{
		Time:      parameter.ScriptTimeCeiling,
		Memory:    parameter.ScriptMemoryCeiling,
		Recursion: parameter.ScriptCallStackSize,
		Source:    parameter.ScriptSourceCeiling,
	}
}

// Host owns one guest VM and every module loaded into it. All entries
// into the guest are funnelled through call, which arms the ceiling
// watchdog and the capability context. The Host is confined to the
// simulation thread; it is not safe for concurrent use.
type Host struct {
	L       *lua.LState
	world   *engine.World
	bus     *event.Bus
	metrics *status.Registry

	modules map[string]*Module
	order   []string

	ceilings Ceilings
	root     string

	Input   InputProvider
	Physics PhysicsProvider

	// active is the module currently executing, for the capability gate
	active *Module

	// breach is set by the watchdog when it cancels a guest entry
	breach atomic.Value

	// hostErr carries a structured host-side error across the VM
	// unwind so callers see the taxonomy type, not a string
	hostErr error

	listeners  map[uint64]listener
	nextListen uint64
}

type listener struct {
	module string
	busID  event.HandlerID
}

// Option configures a Host at construction.
type Option func(*Host)

// WithCeilings overrides the default resource ceilings.
func WithCeilings(c Ceilings) Option {
	return func(h *Host) { h.ceilings = c }
}

// WithRoot sets the sandbox root for path-typed guest arguments.
func WithRoot(root string) Option {
	return func(h *Host) { h.root = root }
}

// WithInput attaches an input device bridge.
func WithInput(p InputProvider) Option {
	return func(h *Host) { h.Input = p }
}

// WithPhysics attaches a physics backend bridge.
func WithPhysics(p PhysicsProvider) Option {
	return func(h *Host) { h.Physics = p }
}

// NewHost builds a sandboxed VM with the engine API installed.
func NewHost(world *engine.World, bus *event.Bus, metrics *status.Registry, opts ...Option) *Host {
	h := &Host{
		world:     world,
		bus:       bus,
		metrics:   metrics,
		modules:   make(map[string]*Module),
		ceilings:  DefaultCeilings(),
		root:      ".",
		Input:     nullInput{},
		Physics:   nullPhysics{},
		listeners: make(map[uint64]listener),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.L = lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: h.ceilings.Recursion,
		RegistrySize:  parameter.ScriptRegistrySize,
	})
	openSafeLibs(h.L)
	installAPI(h)
	return h
}

// Close tears down the VM and every bus listener scripts registered.
func (h *Host) Close() {
	for _, l := range h.listeners {
		h.bus.Remove(l.busID)
	}
	h.listeners = nil
	h.L.Close()
}

// Module returns a loaded module by name.
func (h *Host) Module(name string) (*Module, bool) {
	m, ok := h.modules[name]
	return m, ok
}

// Modules lists loaded module names in load order.
func (h *Host) Modules() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Load compiles source and executes its top level once inside a fresh
// persistent environment. deps name modules this one depends on for
// dirty-marking. Loading an already-loaded name is a hot reload.
func (h *Host) Load(name, source string, deps ...string) error {
	if err := validateString(name); err != nil {
		return err
	}
	if _, ok := h.modules[name]; ok {
		return h.HotReload(name, source)
	}

	proto, err := compile(name, source, h.ceilings.Source)
	if err != nil {
		return err
	}

	m := &Module{
		Name:         name,
		Source:       source,
		Hash:         sourceHash(source),
		Proto:        proto,
		Env:          newModuleEnv(h.L),
		Dependencies: append([]string(nil), deps...),
		Grants:       make(map[core.Permission]bool),
	}

	if err := h.runChunk(m, proto, m.Env); err != nil {
		return err
	}
	h.modules[name] = m
	h.order = append(h.order, name)
	h.countInt("script.loaded", 1)
	return nil
}

// LoadFile loads a module from a path relative to the sandbox root and
// records the path for reload-driven re-reads.
func (h *Host) LoadFile(name, rel string, deps ...string) error {
	full, err := resolvePath(h.root, rel)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return &core.FileSystemError{Path: rel, Err: err}
	}
	if err := h.Load(name, string(data), deps...); err != nil {
		return err
	}
	h.modules[name].Path = rel
	return nil
}

// HotReload compiles candidate source and, on success, re-runs the
// chunk in a scratch environment and merges the result into the live
// module: functions are replaced, existing non-function bindings are
// preserved. On compile failure the live artifact and hash are
// untouched. Reloading identical source is observationally idempotent
// for modules whose top level only defines bindings.
func (h *Host) HotReload(name, source string) error {
	m, ok := h.modules[name]
	if !ok {
		return &core.InvalidInputError{Details: fmt.Sprintf("unknown script module %q", name)}
	}

	proto, err := compile(name, source, h.ceilings.Source)
	if err != nil {
		return err
	}

	scratch := newModuleEnv(h.L)
	m.commit(source, sourceHash(source), proto)
	if err := h.runChunk(m, proto, scratch); err != nil {
		m.rollback()
		return err
	}

	mergeEnv(h.L, m.Env, scratch)
	m.dirty = false
	h.countInt("script.reloaded", 1)
	return nil
}

// MarkDependentsDirty flags every module that transitively depends on
// name. Dirty modules are candidates for ReloadDirty.
func (h *Host) MarkDependentsDirty(name string) []string {
	marked := []string{}
	seen := map[string]bool{name: true}
	changed := true
	for changed {
		changed = false
		for _, modName := range h.order {
			m := h.modules[modName]
			if m.dirty || seen[modName] {
				continue
			}
			for _, dep := range m.Dependencies {
				if seen[dep] {
					m.dirty = true
					seen[modName] = true
					marked = append(marked, modName)
					changed = true
					break
				}
			}
		}
	}
	return marked
}

// ReloadDirty reloads every dirty module in dependency order, fetching
// current source through load. The first failure stops the pass and is
// returned; already-reloaded modules stay reloaded.
func (h *Host) ReloadDirty(load func(name string) (string, error)) error {
	for _, name := range h.dependencyOrder() {
		m := h.modules[name]
		if !m.dirty {
			continue
		}
		src, err := load(name)
		if err != nil {
			return &core.FileSystemError{Path: name, Err: err}
		}
		if err := h.HotReload(name, src); err != nil {
			return err
		}
	}
	return nil
}

// dependencyOrder sorts loaded modules so dependencies precede their
// dependents, load order breaking ties.
func (h *Host) dependencyOrder() []string {
	indegree := make(map[string]int, len(h.modules))
	for _, name := range h.order {
		indegree[name] = 0
	}
	for _, name := range h.order {
		for _, dep := range h.modules[name].Dependencies {
			if _, ok := h.modules[dep]; ok {
				indegree[name]++
			}
		}
	}

	out := make([]string, 0, len(h.order))
	ready := []string{}
	for _, name := range h.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)
		for _, other := range h.order {
			for _, dep := range h.modules[other].Dependencies {
				if dep == name {
					indegree[other]--
					if indegree[other] == 0 {
						ready = append(ready, other)
					}
				}
			}
		}
	}
	// A dependency cycle leaves leftovers; append them in load order so
	// every dirty module still gets one reload attempt.
	if len(out) < len(h.order) {
		present := make(map[string]bool, len(out))
		for _, n := range out {
			present[n] = true
		}
		for _, n := range h.order {
			if !present[n] {
				out = append(out, n)
			}
		}
	}
	return out
}

// HasExport reports whether the module defines the named binding.
func (h *Host) HasExport(module, name string) bool {
	m, ok := h.modules[module]
	if !ok {
		return false
	}
	return m.Env.RawGetString(name) != lua.LNil
}

// Call invokes an exported function with the ceilings armed. Arguments
// and the single return value cross the boundary as deep copies.
func (h *Host) Call(module, fn string, args ...lua.LValue) (lua.LValue, error) {
	m, ok := h.modules[module]
	if !ok {
		return lua.LNil, &core.InvalidInputError{Details: fmt.Sprintf("unknown script module %q", module)}
	}
	v := m.Env.RawGetString(fn)
	f, ok := v.(*lua.LFunction)
	if !ok {
		return lua.LNil, &core.InvalidInputError{Details: fmt.Sprintf("script %s has no function %q", module, fn)}
	}
	return h.call(m, f, args...)
}

// runChunk executes a compiled top level inside env under the ceilings.
func (h *Host) runChunk(m *Module, proto *lua.FunctionProto, env *lua.LTable) error {
	fn := h.L.NewFunctionFromProto(proto)
	h.L.SetFEnv(fn, env)
	_, err := h.call(m, fn)
	return err
}

// call is the single entry point into the guest. It attributes the
// execution to m for the capability gate, arms the time and memory
// watchdog, and maps VM errors onto the engine taxonomy.
func (h *Host) call(m *Module, fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	prev := h.active
	h.active = m
	defer func() { h.active = prev }()

	h.breach.Store(core.CeilingKind(""))
	h.hostErr = nil
	ctx, cancel := context.WithTimeout(context.Background(), h.ceilings.Time)
	defer cancel()

	stopGuard := h.armMemoryGuard(ctx, cancel)
	outer := h.L.Context()
	h.L.SetContext(ctx)
	defer func() {
		if outer != nil {
			h.L.SetContext(outer)
		} else {
			h.L.RemoveContext()
		}
		stopGuard()
	}()

	err := h.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	if err != nil {
		return lua.LNil, h.guestError(m, err, ctx)
	}
	ret := h.L.Get(-1)
	h.L.Pop(1)
	return ret, nil
}

// armMemoryGuard samples heap growth while the guest runs and cancels
// the entry when it exceeds the memory ceiling.
func (h *Host) armMemoryGuard(ctx context.Context, cancel context.CancelFunc) func() {
	if h.ceilings.Memory == 0 {
		return func() {}
	}
	var base runtime.MemStats
	runtime.ReadMemStats(&base)
	done := make(chan struct{})
	finished := make(chan struct{})
	core.Go(func() {
		defer close(finished)
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				var now runtime.MemStats
				runtime.ReadMemStats(&now)
				if now.HeapAlloc > base.HeapAlloc && now.HeapAlloc-base.HeapAlloc > h.ceilings.Memory {
					h.breach.Store(core.CeilingMemory)
					cancel()
					return
				}
			}
		}
	})
	return func() {
		close(done)
		<-finished
	}
}

// guestError classifies a VM error as a ceiling breach or runtime fault.
func (h *Host) guestError(m *Module, err error, ctx context.Context) error {
	if h.hostErr != nil {
		stashed := h.hostErr
		h.hostErr = nil
		// A stashed host error only applies when it actually unwound to
		// the top. A guest may pcall around the raise and fail later for
		// an unrelated reason; that failure must not be misattributed
		if vmErrorCarries(err, stashed) {
			return stashed
		}
	}
	if kind, ok := h.breach.Load().(core.CeilingKind); ok && kind != "" {
		return &core.CeilingExceededError{Kind: kind}
	}
	if ctx.Err() != nil {
		return &core.CeilingExceededError{Kind: core.CeilingTime}
	}
	msg := err.Error()
	if strings.Contains(msg, "stack overflow") {
		return &core.CeilingExceededError{Kind: core.CeilingRecursion}
	}
	fault := &core.RuntimeFaultError{Script: m.Name, Details: msg, Cause: err}
	if apiErr, ok := err.(*lua.ApiError); ok && apiErr.Object != lua.LNil {
		fault.Details = apiErr.Object.String()
	}
	return fault
}

// vmErrorCarries reports whether the VM error propagated the stashed
// host error to the top level rather than the guest catching it. The
// raise path embeds the message verbatim, so uncaught raises always
// carry it, position-prefixed by the VM
func vmErrorCarries(err error, stashed error) bool {
	msg := err.Error()
	if apiErr, ok := err.(*lua.ApiError); ok && apiErr.Object != lua.LNil {
		msg = apiErr.Object.String()
	}
	return strings.Contains(msg, stashed.Error())
}

// check enforces the capability gate for the currently executing module.
func (h *Host) check(p core.Permission) error {
	if h.active == nil || !h.active.Granted(p) {
		return &core.PermissionDeniedError{Permission: p}
	}
	return nil
}

// raise converts a host error into a guest error the VM can unwind.
// The structured error is stashed so the top-level caller receives the
// taxonomy type rather than its string form.
func (h *Host) raise(L *lua.LState, err error) int {
	h.hostErr = err
	L.RaiseError("%s", err.Error())
	return 0
}

func (h *Host) countInt(key string, delta int64) {
	if h.metrics != nil {
		h.metrics.Ints.Get(key).Add(delta)
	}
}
