package component

import (
	"github.com/lixenwraith/ember/registry"
)

// Component names as scripts and asset files see them.
const (
	NameTransform = "transform"
	NameVelocity  = "velocity"
	NameCamera    = "camera"
	NameScript    = "script"
	NameName      = "name"
)

// RegisterAll records every built-in component with the process-wide
// registry. Registration is idempotent, so engine shells and tests may
// both call it. Transform is the one interpolatable built-in.
func RegisterAll() {
	registry.MustRegister[TransformComponent](NameTransform, registry.WithLerp(LerpTransform))
	registry.MustRegister[VelocityComponent](NameVelocity)
	registry.MustRegister[CameraComponent](NameCamera)
	registry.MustRegister[ScriptComponent](NameScript)
	registry.MustRegister[NameComponent](NameName)
}
