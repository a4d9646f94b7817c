// Package physics is the built-in kinematic backend for the script
// bridge: forces and impulses act on VelocityComponent, raycasts test
// entity positions against a segment. A real dynamics engine can
// replace it by implementing script.PhysicsProvider.
package physics

import (
	"errors"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/vmath"
)

// Provider applies guest physics calls directly to World velocities.
type Provider struct {
	world *engine.World

	// InverseMass scales forces; 1 treats every entity as unit mass
	InverseMass float64

	// HitRadius is the sphere radius used when raycasting entities
	HitRadius float64
}

// NewProvider builds a kinematic provider over a world.
func NewProvider(world *engine.World) *Provider {
	return &Provider{
		world:       world,
		InverseMass: 1,
		HitRadius:   0.5,
	}
}

// ApplyForce accumulates into linear velocity. Entities without a
// velocity get one, so scripts can push static scenery into motion.
func (p *Provider) ApplyForce(e core.Entity, v vmath.Vec3) error {
	return p.accumulate(e, vmath.V3Scale(v, p.InverseMass))
}

// ApplyImpulse is an instantaneous velocity change.
func (p *Provider) ApplyImpulse(e core.Entity, v vmath.Vec3) error {
	return p.accumulate(e, v)
}

func (p *Provider) accumulate(e core.Entity, dv vmath.Vec3) error {
	vel, err := engine.Get[component.VelocityComponent](p.world, e)
	if err != nil {
		if errors.Is(err, core.ErrComponentNotInArchetype) {
			return engine.Add(p.world, e, component.VelocityComponent{Linear: dv})
		}
		return err
	}
	vel.Linear = vmath.V3Add(vel.Linear, dv)
	return engine.Set(p.world, e, vel)
}

// Raycast walks every positioned entity and returns the nearest one
// whose position lies within HitRadius of the segment origin+t*dir,
// t in [0, max].
func (p *Provider) Raycast(origin, dir vmath.Vec3, max float64) (core.Entity, vmath.Vec3, bool) {
	transformID, ok := registry.IDOf[component.TransformComponent]()
	if !ok {
		return core.Entity{}, vmath.Vec3{}, false
	}
	d := vmath.V3Normalize(dir)
	if vmath.V3MagSq(d) == 0 {
		return core.Entity{}, vmath.Vec3{}, false
	}

	var (
		best     core.Entity
		bestAt   vmath.Vec3
		bestDist = max + 1
		found    bool
	)
	radiusSq := p.HitRadius * p.HitRadius

	p.world.Query(transformID).Each(func(it engine.Item) bool {
		tr, ok := engine.ItemGet[component.TransformComponent](it)
		if !ok {
			return true
		}
		to := vmath.V3Sub(tr.Position, origin)
		t := vmath.V3Dot(to, d)
		if t < 0 || t > max {
			return true
		}
		closest := vmath.V3Add(origin, vmath.V3Scale(d, t))
		offset := vmath.V3Sub(tr.Position, closest)
		if vmath.V3MagSq(offset) > radiusSq {
			return true
		}
		if t < bestDist {
			best = it.Entity
			bestAt = closest
			bestDist = t
			found = true
		}
		return true
	})
	return best, bestAt, found
}
