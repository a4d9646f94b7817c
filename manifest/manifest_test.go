package manifest

import (
	"math"
	"testing"
	"time"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/render"
	"github.com/lixenwraith/ember/vmath"
)

func assemble(t *testing.T) *Engine {
	t.Helper()
	eng, err := Assemble(Config{
		Mode:         engine.ModeStandalonePlay,
		TimeProvider: engine.NewMockTimeProvider(time.Unix(0, 0)),
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func TestAssembledLoopSimulatesAndPublishesFrameState(t *testing.T) {
	eng := assemble(t)

	e, err := eng.World.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(eng.World, e, component.NewTransform(vmath.Vec3{})); err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(eng.World, e, component.VelocityComponent{Linear: vmath.Vec3{X: 60}}); err != nil {
		t.Fatal(err)
	}
	cam, err := eng.World.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(eng.World, cam, component.NewTransform(vmath.Vec3{Z: -10})); err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(eng.World, cam, component.CameraComponent{}); err != nil {
		t.Fatal(err)
	}

	step := eng.Loop.Step()
	var totalSteps int
	for i := 0; i < 10; i++ {
		res, err := eng.Loop.Update(step)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		totalSteps += res.FixedSteps
	}
	if totalSteps != 10 {
		t.Errorf("Expected one fixed step per step-sized frame, got %d", totalSteps)
	}

	tr, err := engine.Get[component.TransformComponent](eng.World, e)
	if err != nil {
		t.Fatal(err)
	}
	want := 60 * (step.Seconds() * 10)
	if math.Abs(tr.Position.X-want) > 1e-6 {
		t.Errorf("Expected x=%v after 10 steps, got %v", want, tr.Position.X)
	}

	fs, ok := engine.GetResource[*render.FrameState](eng.World.Resources)
	if !ok {
		t.Fatal("Expected a published frame state resource")
	}
	if len(fs.Cameras) != 1 {
		t.Errorf("Expected 1 camera in frame state, got %d", len(fs.Cameras))
	}
	if len(fs.Renderables) != 2 {
		t.Errorf("Expected 2 renderables, got %d", len(fs.Renderables))
	}
}

func TestAssembledScriptDrivesEntity(t *testing.T) {
	eng := assemble(t)

	src := `
function update(e, dt)
    local tr = entity.get_component(e, "transform")
    tr.position.y = tr.position.y + dt
    entity.set_component(e, "transform", tr)
end
`
	if err := eng.Host.Load("riser", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	m, _ := eng.Host.Module("riser")
	m.Grant(core.PermComponentWrite, core.PermSceneQuery)

	e, err := eng.World.Spawn()
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(eng.World, e, component.NewTransform(vmath.Vec3{})); err != nil {
		t.Fatal(err)
	}
	if err := engine.Add(eng.World, e, component.ScriptComponent{Module: "riser"}); err != nil {
		t.Fatal(err)
	}

	step := eng.Loop.Step()
	for i := 0; i < 5; i++ {
		if _, err := eng.Loop.Update(step); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	tr, err := engine.Get[component.TransformComponent](eng.World, e)
	if err != nil {
		t.Fatal(err)
	}
	want := step.Seconds() * 5
	if math.Abs(tr.Position.Y-want) > 1e-6 {
		t.Errorf("Expected y=%v after 5 scripted steps, got %v", want, tr.Position.Y)
	}
}
