package component

import "github.com/lixenwraith/ember/vmath"

// VelocityComponent is linear and angular velocity in units per second.
// The movement system integrates it into the transform each fixed step
type VelocityComponent struct {
	Linear  vmath.Vec3
	Angular vmath.Vec3
}
