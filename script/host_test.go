package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/status"
)

func newTestHost(t *testing.T, opts ...Option) (*Host, *engine.World) {
	t.Helper()
	registry.Reset()
	component.RegisterAll()

	w := engine.NewWorld()
	h := NewHost(w, event.NewBus(), status.NewRegistry(), opts...)
	t.Cleanup(h.Close)
	return h, w
}

func grantAll(t *testing.T, h *Host, name string) {
	t.Helper()
	m, ok := h.Module(name)
	if !ok {
		t.Fatalf("module %s not loaded", name)
	}
	m.Grant(core.PermFileRead, core.PermFileWrite, core.PermConsoleWrite,
		core.PermEntityCreate, core.PermComponentWrite, core.PermSceneQuery)
}

func TestHotReloadPreservesModuleState(t *testing.T) {
	h, _ := newTestHost(t)

	v1 := `
counter = counter or 0
function inc()
    counter = counter + 1
end
`
	if err := h.Load("counter", v1); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := h.Call("counter", "inc"); err != nil {
			t.Fatalf("inc %d: %v", i, err)
		}
	}

	v2 := `
counter = counter or 0
function inc()
    counter = counter + 2
end
`
	if err := h.HotReload("counter", v2); err != nil {
		t.Fatalf("hot reload: %v", err)
	}
	if _, err := h.Call("counter", "inc"); err != nil {
		t.Fatalf("inc after reload: %v", err)
	}

	m, _ := h.Module("counter")
	got := m.Env.RawGetString("counter")
	if num, ok := got.(lua.LNumber); !ok || float64(num) != 12 {
		t.Errorf("Expected counter 12 after reload, got %v", got)
	}
}

func TestHotReloadIdempotent(t *testing.T) {
	h, _ := newTestHost(t)

	src := `
value = value or 41
function get()
    return value
end
`
	if err := h.Load("idem", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := h.HotReload("idem", src); err != nil {
		t.Fatalf("reload same source: %v", err)
	}

	ret, err := h.Call("idem", "get")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if num, ok := ret.(lua.LNumber); !ok || float64(num) != 41 {
		t.Errorf("Expected unchanged state 41, got %v", ret)
	}
}

func TestHotReloadFailureKeepsPriorArtifact(t *testing.T) {
	h, _ := newTestHost(t)

	good := `
function answer()
    return 7
end
`
	if err := h.Load("mod", good); err != nil {
		t.Fatalf("load: %v", err)
	}
	goodHash := func() string {
		m, _ := h.Module("mod")
		return m.Hash
	}()

	err := h.HotReload("mod", "function answer( broken")
	var ce *core.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected CompilationFailed diagnostic, got %v", err)
	}
	if ce.Line == 0 {
		t.Errorf("Expected a source line in the diagnostic, got %+v", ce)
	}

	m, _ := h.Module("mod")
	if m.Hash != goodHash {
		t.Errorf("Expected prior hash retained after failed reload")
	}
	ret, err := h.Call("mod", "answer")
	if err != nil {
		t.Fatalf("call after failed reload: %v", err)
	}
	if num, ok := ret.(lua.LNumber); !ok || float64(num) != 7 {
		t.Errorf("Expected prior behaviour (7), got %v", ret)
	}
}

func TestTimeCeilingInterruptsGuest(t *testing.T) {
	h, _ := newTestHost(t, WithCeilings(Ceilings{
		Time:      50 * time.Millisecond,
		Recursion: 120,
	}))

	src := `
function init()
    while true do end
end
`
	if err := h.Load("spin", src); err != nil {
		t.Fatalf("load: %v", err)
	}

	start := time.Now()
	_, err := h.Call("spin", "init")
	elapsed := time.Since(start)

	var ceiling *core.CeilingExceededError
	if !errors.As(err, &ceiling) || ceiling.Kind != core.CeilingTime {
		t.Fatalf("Expected CeilingExceeded(Time), got %v", err)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("Expected interruption within 200ms, took %v", elapsed)
	}

	// Host stays usable for well-formed scripts
	if err := h.Load("fine", `function ok() return 1 end`); err != nil {
		t.Fatalf("load after timeout: %v", err)
	}
	if _, err := h.Call("fine", "ok"); err != nil {
		t.Errorf("Expected host usable after timeout, got %v", err)
	}
}

func TestRecursionCeiling(t *testing.T) {
	h, _ := newTestHost(t)

	src := `
function deep(n)
    return 1 + deep(n + 1)
end
function init()
    return deep(0)
end
`
	if err := h.Load("deep", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err := h.Call("deep", "init")
	var ceiling *core.CeilingExceededError
	if !errors.As(err, &ceiling) || ceiling.Kind != core.CeilingRecursion {
		t.Errorf("Expected CeilingExceeded(Recursion), got %v", err)
	}
}

func TestSourceSizeCeiling(t *testing.T) {
	h, _ := newTestHost(t, WithCeilings(Ceilings{
		Time:      time.Second,
		Recursion: 120,
		Source:    64,
	}))

	big := make([]byte, 65)
	for i := range big {
		big[i] = ' '
	}
	err := h.Load("big", string(big))
	var ceiling *core.CeilingExceededError
	if !errors.As(err, &ceiling) || ceiling.Kind != core.CeilingInputSize {
		t.Errorf("Expected CeilingExceeded(InputSize), got %v", err)
	}
}

func TestCapabilityGateDeniesFileRead(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(secret, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, _ := newTestHost(t, WithRoot(dir))

	src := `
function try()
    return files.read("secret.txt")
end
`
	if err := h.Load("probe", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	// ConsoleWrite only; no FileRead
	m, _ := h.Module("probe")
	m.Grant(core.PermConsoleWrite)

	_, err := h.Call("probe", "try")
	var denied *core.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("Expected PermissionDenied, got %v", err)
	}
	if denied.Permission != core.PermFileRead {
		t.Errorf("Expected denial to name FileRead, got %s", denied.Permission)
	}

	// With the grant the same call succeeds
	m.Grant(core.PermFileRead)
	ret, err := h.Call("probe", "try")
	if err != nil {
		t.Fatalf("granted read: %v", err)
	}
	if s, ok := ret.(lua.LString); !ok || string(s) != "data" {
		t.Errorf("Expected file contents, got %v", ret)
	}
}

func TestCaughtHostErrorDoesNotMaskLaterFault(t *testing.T) {
	h, _ := newTestHost(t, WithRoot(t.TempDir()))

	// The guest swallows the denial with pcall, then fails on its own
	src := `
function go()
    pcall(function() return files.read("x.txt") end)
    error("boom")
end
`
	if err := h.Load("sneaky", src); err != nil {
		t.Fatalf("load: %v", err)
	}

	_, err := h.Call("sneaky", "go")
	var denied *core.PermissionDeniedError
	if errors.As(err, &denied) {
		t.Fatalf("Expected the caught denial discarded, got %v", err)
	}
	var fault *core.RuntimeFaultError
	if !errors.As(err, &fault) {
		t.Fatalf("Expected a runtime fault, got %v", err)
	}
	if !strings.Contains(fault.Details, "boom") {
		t.Errorf("Expected the guest's own error reported, got %q", fault.Details)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	h, _ := newTestHost(t, WithRoot(dir))

	if err := h.Load("esc", `
function try(p)
    return files.read(p)
end
`); err != nil {
		t.Fatalf("load: %v", err)
	}
	grantAll(t, h, "esc")

	for _, p := range []string{"../outside.txt", "a/../../etc/passwd", "/etc/passwd"} {
		_, err := h.Call("esc", "try", lua.LString(p))
		var invalid *core.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("Expected InvalidInput for %q, got %v", p, err)
		}
	}
}

func TestGuestWorldRoundTrip(t *testing.T) {
	h, w := newTestHost(t)

	src := `
function build()
    local e = world.spawn()
    entity.add_component(e, "name", { value = "guest" })
    entity.set_component(e, "transform", {
        position = { x = 1, y = 2, z = 3 },
        rotation = { x = 0, y = 0, z = 0, w = 1 },
        scale = { x = 1, y = 1, z = 1 },
    })
    return e
end

function read(e)
    local tr = entity.get_component(e, "transform")
    return tr.position.y
end
`
	if err := h.Load("builder", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	grantAll(t, h, "builder")

	ret, err := h.Call("builder", "build")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	eTbl, ok := ret.(*lua.LTable)
	if !ok {
		t.Fatalf("Expected entity table, got %v", ret)
	}

	// set_component on an unowned transform added it
	slot := uint32(eTbl.RawGetString("slot").(lua.LNumber))
	gen := uint32(eTbl.RawGetString("generation").(lua.LNumber))
	e := core.Entity{Slot: slot, Generation: gen}

	tr, err := engine.Get[component.TransformComponent](w, e)
	if err != nil {
		t.Fatalf("host-side get: %v", err)
	}
	if tr.Position.Y != 2 {
		t.Errorf("Expected guest-written position, got %+v", tr.Position)
	}

	y, err := h.Call("builder", "read", EntityArg(h, e))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if num, ok := y.(lua.LNumber); !ok || float64(num) != 2 {
		t.Errorf("Expected y=2 through the guest, got %v", y)
	}
}

func TestUnknownComponentFieldRejected(t *testing.T) {
	h, _ := newTestHost(t)

	src := `
function bad()
    local e = world.spawn()
    entity.add_component(e, "name", { bogus = true })
end
`
	if err := h.Load("strict", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	grantAll(t, h, "strict")

	_, err := h.Call("strict", "bad")
	var invalid *core.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidInput for unknown field, got %v", err)
	}
}

func TestGuestQueryIterator(t *testing.T) {
	h, w := newTestHost(t)

	for i := 0; i < 3; i++ {
		e, _ := w.Spawn()
		if err := engine.Add(w, e, component.NameComponent{Value: "n"}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	src := `
function count()
    local n = 0
    for e in world.query("name") do
        n = n + 1
    end
    return n
end
`
	if err := h.Load("q", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	grantAll(t, h, "q")

	ret, err := h.Call("q", "count")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if num, ok := ret.(lua.LNumber); !ok || float64(num) != 3 {
		t.Errorf("Expected 3 matches, got %v", ret)
	}
}

func TestGuestEvents(t *testing.T) {
	h, _ := newTestHost(t)

	src := `
received = received or 0

function subscribe()
    id = events.on("ping", function(payload)
        received = received + payload
    end)
    return id
end

function send()
    events.emit("ping", 5)
end

function unsubscribe()
    events.remove(id)
end
`
	if err := h.Load("ev", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	grantAll(t, h, "ev")

	if _, err := h.Call("ev", "subscribe"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := h.Call("ev", "send"); err != nil {
		t.Fatalf("send: %v", err)
	}

	m, _ := h.Module("ev")
	if got := m.Env.RawGetString("received"); got != lua.LNumber(5) {
		t.Errorf("Expected listener to receive 5, got %v", got)
	}

	if _, err := h.Call("ev", "unsubscribe"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	// Idempotent removal
	if _, err := h.Call("ev", "unsubscribe"); err != nil {
		t.Errorf("Expected removing twice to be a no-op, got %v", err)
	}
	if _, err := h.Call("ev", "send"); err != nil {
		t.Fatalf("send after remove: %v", err)
	}
	m, _ = h.Module("ev")
	if got := m.Env.RawGetString("received"); got != lua.LNumber(5) {
		t.Errorf("Expected no delivery after removal, got %v", got)
	}
}

func TestDependencyDirtyMarking(t *testing.T) {
	h, _ := newTestHost(t)

	if err := h.Load("base", `function v() return 1 end`); err != nil {
		t.Fatalf("load base: %v", err)
	}
	if err := h.Load("mid", `function v() return 2 end`, "base"); err != nil {
		t.Fatalf("load mid: %v", err)
	}
	if err := h.Load("top", `function v() return 3 end`, "mid"); err != nil {
		t.Fatalf("load top: %v", err)
	}

	marked := h.MarkDependentsDirty("base")
	if len(marked) != 2 {
		t.Fatalf("Expected transitive dependents [mid top], got %v", marked)
	}

	var reloaded []string
	err := h.ReloadDirty(func(name string) (string, error) {
		reloaded = append(reloaded, name)
		return `function v() return 9 end`, nil
	})
	if err != nil {
		t.Fatalf("reload dirty: %v", err)
	}
	if len(reloaded) != 2 || reloaded[0] != "mid" || reloaded[1] != "top" {
		t.Errorf("Expected dependency-order reload [mid top], got %v", reloaded)
	}

	ret, _ := h.Call("top", "v")
	if num, ok := ret.(lua.LNumber); !ok || float64(num) != 9 {
		t.Errorf("Expected reloaded behaviour, got %v", ret)
	}
}

func TestModuleIsolation(t *testing.T) {
	h, _ := newTestHost(t)

	if err := h.Load("a", `secret = 1`); err != nil {
		t.Fatalf("load a: %v", err)
	}
	if err := h.Load("b", `
function peek()
    return secret
end
`); err != nil {
		t.Fatalf("load b: %v", err)
	}

	ret, err := h.Call("b", "peek")
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if ret != lua.LNil {
		t.Errorf("Expected module-level bindings to stay private, got %v", ret)
	}
}
