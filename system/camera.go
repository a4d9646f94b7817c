package system

import (
	"time"

	"github.com/lixenwraith/ember/engine"
	"github.com/lixenwraith/ember/render"
)

// CameraPrep rebuilds the per-frame render state on the variable
// cadence and publishes it as a world resource for presentation
// backends. Culling is the renderer's job; the frame state only
// exposes the ordered camera set and interpolated transforms.
func CameraPrep(loop *engine.Loop) engine.SystemDesc {
	return engine.SystemDesc{
		Name:  NameCameraPrep,
		Class: engine.Variable,
		Fn: func(w *engine.World, ctx *engine.Context, _ time.Duration) error {
			fs, err := render.BuildFrameState(w, ctx.Interp, ctx.Frame(), loop.Fraction())
			if err != nil {
				return err
			}
			if existing, ok := engine.GetResource[*render.FrameState](w.Resources); ok {
				*existing = *fs
				return nil
			}
			engine.AddResource(w.Resources, fs)
			return nil
		},
	}
}
