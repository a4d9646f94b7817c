// Command worldbench stress-tests the entity store and the fixed-step
// pipeline: spawn a population, integrate movement for a fixed number
// of steps, and report throughput. Run with -profile to capture a CPU
// profile of the hot loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/profile"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/manifest"
	"github.com/lixenwraith/ember/vmath"
)

func main() {
	entities := flag.Int("entities", 100000, "entities to spawn")
	steps := flag.Int("steps", 600, "fixed steps to run")
	profiling := flag.Bool("profile", false, "write a CPU profile")
	flag.Parse()

	if *profiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	if err := run(*entities, *steps); err != nil {
		log.Printf("worldbench: %v", err)
		os.Exit(1)
	}
}

func run(entities, steps int) error {
	eng, err := manifest.Assemble(manifest.Config{
		Mode:         engine.ModeStandalonePlay,
		TimeProvider: engine.NewMockTimeProvider(time.Unix(0, 0)),
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	rng := rand.New(rand.NewSource(1))

	spawnStart := time.Now()
	for i := 0; i < entities; i++ {
		e, err := eng.World.Spawn()
		if err != nil {
			return err
		}
		tr := component.NewTransform(vmath.Vec3{
			X: rng.Float64()*200 - 100,
			Y: rng.Float64()*200 - 100,
			Z: rng.Float64()*200 - 100,
		})
		if err := engine.Add(eng.World, e, tr); err != nil {
			return err
		}
		if err := engine.Add(eng.World, e, component.VelocityComponent{
			Linear: vmath.Vec3{
				X: rng.Float64()*2 - 1,
				Y: rng.Float64()*2 - 1,
				Z: rng.Float64()*2 - 1,
			},
		}); err != nil {
			return err
		}
	}
	spawnElapsed := time.Since(spawnStart)

	step := eng.Loop.Step()
	stepStart := time.Now()
	for i := 0; i < steps; i++ {
		if _, err := eng.Loop.Update(step); err != nil {
			return err
		}
	}
	stepElapsed := time.Since(stepStart)

	perStep := stepElapsed / time.Duration(steps)
	fmt.Printf("spawned  %d entities in %v (%.0f/ms)\n",
		entities, spawnElapsed, float64(entities)/float64(spawnElapsed.Milliseconds()+1))
	fmt.Printf("stepped  %d fixed steps in %v (%v/step, %.1f Mrow/s)\n",
		steps, stepElapsed, perStep,
		float64(entities)*float64(steps)/stepElapsed.Seconds()/1e6)

	for key, val := range eng.Ctx.Status.Snapshot() {
		fmt.Printf("metric   %s = %.0f\n", key, val)
	}
	return nil
}
