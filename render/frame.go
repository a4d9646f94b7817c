package render

import (
	"sort"

	"github.com/lixenwraith/ember/component"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/vmath"
)

// CameraView is one camera resolved for the current frame, with its
// interpolated transform baked in.
type CameraView struct {
	Entity      core.Entity
	Camera      component.CameraComponent
	Position    vmath.Vec3
	Rotation    vmath.Quat
	RenderOrder int
}

// Renderable is an entity with an interpolated transform, ready for a
// presentation backend to draw.
type Renderable struct {
	Entity    core.Entity
	Transform component.TransformComponent
	Name      string
}

// FrameState is the per-frame snapshot handed to presentation backends.
// It is rebuilt every variable-rate frame and stored as a world resource.
type FrameState struct {
	Frame       int64
	Fraction    float64
	Cameras     []CameraView
	Renderables []Renderable
}

// BuildFrameState collects every camera and every entity carrying a
// transform into a FrameState. Cameras are ordered by ascending
// RenderOrder, ties broken by entity slot so the result is stable
// across frames.
func BuildFrameState(w *engine.World, interp *engine.Interpolation, frame int64, fraction float64) (*FrameState, error) {
	fs := &FrameState{
		Frame:    frame,
		Fraction: fraction,
	}

	transformID, ok := registry.IDOf[component.TransformComponent]()
	if !ok {
		return nil, &core.ComponentNotRegisteredError{TypeID: "component.TransformComponent"}
	}
	cameraID, ok := registry.IDOf[component.CameraComponent]()
	if !ok {
		return nil, &core.ComponentNotRegisteredError{TypeID: "component.CameraComponent"}
	}

	w.Query(cameraID, transformID).Each(func(it engine.Item) bool {
		cam, ok := engine.ItemGet[component.CameraComponent](it)
		if !ok {
			return true
		}
		view := CameraView{
			Entity:      it.Entity,
			Camera:      cam,
			RenderOrder: cam.RenderOrder,
		}
		tr := interpolatedTransform(interp, it, transformID, fraction)
		view.Position = tr.Position
		view.Rotation = tr.Rotation
		fs.Cameras = append(fs.Cameras, view)
		return true
	})

	sort.SliceStable(fs.Cameras, func(i, j int) bool {
		if fs.Cameras[i].RenderOrder != fs.Cameras[j].RenderOrder {
			return fs.Cameras[i].RenderOrder < fs.Cameras[j].RenderOrder
		}
		return fs.Cameras[i].Entity.Slot < fs.Cameras[j].Entity.Slot
	})

	w.Query(transformID).Each(func(it engine.Item) bool {
		r := Renderable{
			Entity:    it.Entity,
			Transform: interpolatedTransform(interp, it, transformID, fraction),
		}
		if name, ok := engine.ItemGet[component.NameComponent](it); ok {
			r.Name = name.Value
		}
		fs.Renderables = append(fs.Renderables, r)
		return true
	})

	return fs, nil
}

// interpolatedTransform prefers the interpolation ring and falls back to
// the simulated value for entities the ring has not seen yet.
func interpolatedTransform(interp *engine.Interpolation, it engine.Item, transformID registry.TypeID, fraction float64) component.TransformComponent {
	if interp != nil && interp.Registered(transformID) {
		if v, err := interp.GetInterpolated(it.Entity.Slot, transformID, fraction); err == nil {
			if tr, ok := v.(component.TransformComponent); ok {
				return tr
			}
		}
	}
	tr, _ := engine.ItemGet[component.TransformComponent](it)
	return tr
}
