package script

import (
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/vmath"
)

// InputProvider bridges the host input device state into the guest
// `input` table. The engine shell swaps in a real implementation;
// headless runs keep the inert default.
type InputProvider interface {
	IsKeyPressed(name string) bool
	MousePosition() (x, y float64)
	IsMouseButtonDown(button int) bool
}

// PhysicsProvider bridges the guest `physics` table to whatever
// simulation backend is attached.
type PhysicsProvider interface {
	ApplyForce(e core.Entity, v vmath.Vec3) error
	ApplyImpulse(e core.Entity, v vmath.Vec3) error
	Raycast(origin, dir vmath.Vec3, max float64) (core.Entity, vmath.Vec3, bool)
}

// nullInput reports no keys, no buttons, cursor at origin.
type nullInput struct{}

func (nullInput) IsKeyPressed(string) bool      { return false }
func (nullInput) MousePosition() (x, y float64) { return 0, 0 }
func (nullInput) IsMouseButtonDown(int) bool    { return false }

// nullPhysics accepts and discards forces, and never hits anything.
type nullPhysics struct{}

func (nullPhysics) ApplyForce(core.Entity, vmath.Vec3) error   { return nil }
func (nullPhysics) ApplyImpulse(core.Entity, vmath.Vec3) error { return nil }
func (nullPhysics) Raycast(vmath.Vec3, vmath.Vec3, float64) (core.Entity, vmath.Vec3, bool) {
	return core.Entity{}, vmath.Vec3{}, false
}
