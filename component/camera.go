package component

// Projection selects how a camera maps view space to clip space
type Projection int

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthographic
)

// CameraComponent declares a render viewpoint.
// The camera prep system collects all of them each frame, ordered by
// RenderOrder ascending, and hands the set to the renderer
type CameraComponent struct {
	// RenderOrder sorts cameras; lower renders first
	RenderOrder int

	Projection Projection

	// FieldOfView in degrees (perspective) or half-height (orthographic)
	FieldOfView float64
	NearPlane   float64
	FarPlane    float64

	// ClearColor is RGBA in [0,1]
	ClearColor [4]float64

	// Viewport is the normalised target rectangle {x, y, w, h}
	Viewport [4]float64

	// Target names an off-screen render target; empty means the surface
	Target string
}
