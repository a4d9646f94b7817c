// Package system holds the built-in systems the engine installs on its
// scheduler: deterministic simulation on the fixed cadence, presentation
// preparation on the variable cadence.
package system

import (
	"time"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/vmath"
)

// Canonical system names used in RunsAfter edges.
const (
	NameMovement   = "movement"
	NameScripts    = "scripts"
	NameSnapshot   = "interpolation_snapshot"
	NameCameraPrep = "camera_prep"
)

// Movement integrates linear and angular velocity into transforms on
// every fixed step.
func Movement() engine.SystemDesc {
	return engine.SystemDesc{
		Name:  NameMovement,
		Class: engine.Fixed,
		Fn:    movementStep,
	}
}

func movementStep(w *engine.World, _ *engine.Context, dt time.Duration) error {
	transformID, ok := registry.IDOf[component.TransformComponent]()
	if !ok {
		return &core.ComponentNotRegisteredError{TypeID: "component.TransformComponent"}
	}
	velocityID, ok := registry.IDOf[component.VelocityComponent]()
	if !ok {
		return &core.ComponentNotRegisteredError{TypeID: "component.VelocityComponent"}
	}

	seconds := dt.Seconds()
	type update struct {
		e  core.Entity
		tr component.TransformComponent
	}
	updates := make([]update, 0, 64)

	w.Query(transformID, velocityID).Each(func(it engine.Item) bool {
		tr, ok1 := engine.ItemGet[component.TransformComponent](it)
		vel, ok2 := engine.ItemGet[component.VelocityComponent](it)
		if !ok1 || !ok2 {
			return true
		}
		tr.Position = vmath.V3Add(tr.Position, vmath.V3Scale(vel.Linear, seconds))
		tr.Rotation = integrateAngular(tr.Rotation, vel.Angular, seconds)
		updates = append(updates, update{e: it.Entity, tr: tr})
		return true
	})

	for _, u := range updates {
		if err := engine.Set(w, u.e, u.tr); err != nil {
			return err
		}
	}
	return nil
}

// integrateAngular applies an axis-scaled angular velocity (radians per
// second about each axis) to a rotation.
func integrateAngular(q vmath.Quat, angular vmath.Vec3, seconds float64) vmath.Quat {
	if angular.X == 0 && angular.Y == 0 && angular.Z == 0 {
		return q
	}
	step := vmath.V3Scale(angular, seconds)
	magnitude := vmath.V3Mag(step)
	if magnitude == 0 {
		return q
	}
	axis := vmath.V3Scale(step, 1/magnitude)
	dq := vmath.QFromAxisAngle(axis, magnitude)
	return vmath.QNormalize(vmath.QMul(dq, q))
}
