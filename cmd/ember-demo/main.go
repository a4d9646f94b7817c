// Command ember-demo runs the engine core against a terminal presenter:
// a scripted orbiting entity rendered as glyphs, live script hot reload
// from a content directory, and an audio cue on reload.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/ember/asset"
	"github.com/lixenwraith/ember/audio"
	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/config"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/event"
	"github.com/lixenwraith/ember/input"
	"github.com/lixenwraith/ember/manifest"
	"github.com/lixenwraith/ember/reload"
	"github.com/lixenwraith/ember/vmath"
)

func main() {
	configPath := flag.String("config", "ember.yaml", "engine configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Printf("ember-demo: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	devices := input.NewState()
	eng, err := manifest.Assemble(manifest.Config{
		Mode:       engine.ModeStandalonePlay,
		ScriptRoot: cfg.Content.Root,
		Input:      devices,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := seedScene(eng); err != nil {
		return err
	}

	coordinator, catalog, err := attachReload(eng, cfg)
	if err != nil {
		// The demo still runs without a content tree to watch
		log.Printf("hot reload disabled: %v", err)
	} else {
		defer coordinator.Close()
		_ = catalog
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	cues := audio.NewPlayer()

	quit := make(chan struct{})
	core.Go(func() {
		for {
			ev := screen.PollEvent()
			switch tev := ev.(type) {
			case *tcell.EventKey:
				if tev.Key() == tcell.KeyEscape || tev.Key() == tcell.KeyCtrlC {
					close(quit)
					return
				}
				if tev.Rune() == 'p' {
					toggle(eng.Loop)
				}
				if tev.Rune() != 0 {
					devices.SetKey(string(tev.Rune()), true)
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	})

	last := time.Now()
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now

			if coordinator != nil {
				coordinator.Dispatch()
			}

			if _, err := eng.Loop.Update(delta); err != nil {
				return err
			}

			for _, engineEv := range eng.Ctx.Events.Consume() {
				switch engineEv.Type {
				case event.TypeScriptReloaded:
					cues.ReloadCue()
				case event.TypeScriptFault:
					cues.FaultCue()
				}
			}

			draw(screen, eng)
		}
	}
}

// seedScene spawns the demo content: a camera and an orbiting entity
// driven by the orbit script when one is present on disk.
func seedScene(eng *manifest.Engine) error {
	cam, err := eng.World.Spawn()
	if err != nil {
		return err
	}
	if err := engine.Add(eng.World, cam, component.NewTransform(vmath.Vec3{})); err != nil {
		return err
	}
	if err := engine.Add(eng.World, cam, component.CameraComponent{
		RenderOrder: 0,
		FieldOfView: 60,
		NearPlane:   0.1,
		FarPlane:    1000,
		Viewport:    [4]float64{0, 0, 1, 1},
	}); err != nil {
		return err
	}

	e, err := eng.World.Spawn()
	if err != nil {
		return err
	}
	tr := component.NewTransform(vmath.Vec3{X: 10, Y: 5})
	if err := engine.Add(eng.World, e, tr); err != nil {
		return err
	}
	if err := engine.Add(eng.World, e, component.VelocityComponent{
		Angular: vmath.Vec3{Z: 0.8},
	}); err != nil {
		return err
	}
	if err := engine.Add(eng.World, e, component.NameComponent{Value: "orbiter"}); err != nil {
		return err
	}

	// Attach the orbit script when the content tree provides it
	if err := eng.Host.LoadFile("orbit", "scripts/orbit.lua"); err == nil {
		m, _ := eng.Host.Module("orbit")
		m.Grant(core.PermComponentWrite, core.PermSceneQuery, core.PermConsoleWrite)
		if err := engine.Add(eng.World, e, component.ScriptComponent{Module: "orbit"}); err != nil {
			return err
		}
	}
	return nil
}

// attachReload wires the watcher, catalogue and script handler over
// the content root.
func attachReload(eng *manifest.Engine, cfg config.Config) (*reload.Coordinator, *asset.Catalog, error) {
	catalog := asset.NewCatalog(cfg.Content.Root)
	if err := catalog.Load(cfg.Content.Catalog); err != nil {
		log.Printf("asset catalogue: %v", err)
	}

	coordinator, err := reload.NewCoordinator(cfg.Content.Root, eng.Ctx.Status)
	if err != nil {
		return nil, nil, err
	}
	coordinator.RegisterHandler(asset.KindScript,
		reload.ScriptHandler(eng.Host, catalog, eng.Ctx, cfg.Content.Root))
	return coordinator, catalog, nil
}

func toggle(loop *engine.Loop) {
	if loop.Mode() == engine.ModePaused {
		loop.Resume()
	} else {
		loop.RequestMode(engine.ModePaused)
	}
}
