// Package manifest is the authoritative assembly of the engine core:
// which components exist, which systems run, and in what declared
// order. Shells (the demo, the benchmark, tests) call Assemble instead
// of wiring the pieces by hand.
package manifest

import (
	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/physics"
	"github.com/lixenwraith/ember/script"
	"github.com/lixenwraith/ember/system"
)

// Engine is the assembled core handed to a shell.
type Engine struct {
	World *engine.World
	Ctx   *engine.Context
	Sched *engine.Scheduler
	Loop  *engine.Loop
	Host  *script.Host
}

// Config selects assembly options.
type Config struct {
	// Mode is the loop's starting mode; zero value is editor
	Mode engine.Mode

	// ScriptRoot is the sandbox root for guest file access
	ScriptRoot string

	// TimeProvider overrides the clock source (tests)
	TimeProvider engine.TimeProvider

	// Input and Physics bridge host services into scripts. A nil
	// Physics gets the built-in kinematic backend
	Input   script.InputProvider
	Physics script.PhysicsProvider
}

// Assemble registers the built-in components, builds the core around a
// fresh world, installs the built-in systems and resolves the schedule.
func Assemble(cfg Config) (*Engine, error) {
	component.RegisterAll()

	world := engine.NewWorld()
	ctx := engine.NewContext()
	sched := engine.NewScheduler()

	hostOpts := []script.Option{}
	if cfg.ScriptRoot != "" {
		hostOpts = append(hostOpts, script.WithRoot(cfg.ScriptRoot))
	}
	if cfg.Input != nil {
		hostOpts = append(hostOpts, script.WithInput(cfg.Input))
	}
	if cfg.Physics == nil {
		cfg.Physics = physics.NewProvider(world)
	}
	hostOpts = append(hostOpts, script.WithPhysics(cfg.Physics))
	host := script.NewHost(world, ctx.Bus, ctx.Status, hostOpts...)

	loopOpts := []engine.LoopOption{engine.WithMode(cfg.Mode)}
	if cfg.TimeProvider != nil {
		loopOpts = append(loopOpts, engine.WithTimeProvider(cfg.TimeProvider))
	}
	loop := engine.NewLoop(world, sched, ctx, loopOpts...)

	for _, desc := range []engine.SystemDesc{
		system.Movement(),
		system.Scripts(host),
		system.InterpolationSnapshot(),
		system.CameraPrep(loop),
	} {
		if err := sched.Add(desc); err != nil {
			host.Close()
			return nil, err
		}
	}
	if err := sched.Resolve(); err != nil {
		host.Close()
		return nil, err
	}

	return &Engine{
		World: world,
		Ctx:   ctx,
		Sched: sched,
		Loop:  loop,
		Host:  host,
	}, nil
}

// Close releases the guest VM and its listeners.
func (e *Engine) Close() {
	e.Host.Close()
}
