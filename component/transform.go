package component

import (
	"github.com/lixenwraith/ember/vmath"
)

// TransformComponent is world-space placement: position, rotation, scale.
// The snapshot system feeds it to the interpolation ring every fixed step
type TransformComponent struct {
	Position vmath.Vec3
	Rotation vmath.Quat
	Scale    vmath.Vec3
}

// NewTransform returns an identity transform at the given position
func NewTransform(position vmath.Vec3) TransformComponent {
	return TransformComponent{
		Position: position,
		Rotation: vmath.QuatIdentity(),
		Scale:    vmath.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// LerpTransform blends two transforms for render sampling:
// componentwise position and scale, nlerp rotation
func LerpTransform(a, b TransformComponent, f float64) TransformComponent {
	return TransformComponent{
		Position: vmath.V3Lerp(a.Position, b.Position, f),
		Rotation: vmath.QNlerp(a.Rotation, b.Rotation, f),
		Scale:    vmath.V3Lerp(a.Scale, b.Scale, f),
	}
}
