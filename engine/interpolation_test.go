package engine

import (
	"errors"
	"testing"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/registry"
	"github.com/lixenwraith/ember/vmath"
)

type blendVec struct {
	V vmath.Vec3
}

func registerBlend(t *testing.T) registry.TypeID {
	t.Helper()
	registry.Reset()
	return registry.MustRegister[blendVec]("blendVec", registry.WithLerp(func(a, b blendVec, f float64) blendVec {
		return blendVec{V: vmath.V3Lerp(a.V, b.V, f)}
	}))
}

func TestInterpolationMidpoint(t *testing.T) {
	id := registerBlend(t)
	ip := NewInterpolation()
	if err := ip.RegisterType(id); err != nil {
		t.Fatalf("register type: %v", err)
	}

	if err := ip.UpdateCurrent(1, id, blendVec{}); err != nil {
		t.Fatalf("update current: %v", err)
	}
	ip.AdvanceFrame()
	if err := ip.UpdateCurrent(1, id, blendVec{V: vmath.Vec3{X: 10, Y: 20, Z: 30}}); err != nil {
		t.Fatalf("update current: %v", err)
	}

	v, err := ip.GetInterpolated(1, id, 0.5)
	if err != nil {
		t.Fatalf("get interpolated: %v", err)
	}
	got := v.(blendVec).V
	want := vmath.Vec3{X: 5, Y: 10, Z: 15}
	if got != want {
		t.Errorf("Expected %+v at factor 0.5, got %+v", want, got)
	}
}

func TestInterpolationIdentity(t *testing.T) {
	id := registerBlend(t)
	ip := NewInterpolation()
	ip.RegisterType(id)

	val := blendVec{V: vmath.Vec3{X: 4, Y: 5, Z: 6}}
	ip.UpdateCurrent(2, id, val)
	ip.AdvanceFrame()
	ip.UpdateCurrent(2, id, val)

	for _, f := range []float64{0, 0.25, 0.5, 0.75, 1} {
		v, err := ip.GetInterpolated(2, id, f)
		if err != nil {
			t.Fatalf("factor %v: %v", f, err)
		}
		if v.(blendVec) != val {
			t.Errorf("Expected identity at factor %v, got %+v", f, v)
		}
	}
}

func TestInterpolationNoPreviousReturnsCurrent(t *testing.T) {
	id := registerBlend(t)
	ip := NewInterpolation()
	ip.RegisterType(id)

	val := blendVec{V: vmath.Vec3{X: 1}}
	ip.UpdateCurrent(3, id, val)

	v, err := ip.GetInterpolated(3, id, 0.9)
	if err != nil {
		t.Fatalf("get interpolated: %v", err)
	}
	if v.(blendVec) != val {
		t.Errorf("Expected current value without previous, got %+v", v)
	}
}

func TestInterpolationInvalidFactor(t *testing.T) {
	id := registerBlend(t)
	ip := NewInterpolation()
	ip.RegisterType(id)
	ip.UpdateCurrent(4, id, blendVec{})

	for _, f := range []float64{-0.01, 1.01} {
		_, err := ip.GetInterpolated(4, id, f)
		var invalid *core.InvalidFactorError
		if !errors.As(err, &invalid) {
			t.Errorf("Expected InvalidFactor for %v, got %v", f, err)
		}
	}
}

func TestInterpolationUnknownEntity(t *testing.T) {
	id := registerBlend(t)
	ip := NewInterpolation()
	ip.RegisterType(id)

	if _, err := ip.GetInterpolated(99, id, 0.5); !errors.Is(err, core.ErrEntityNotFound) {
		t.Errorf("Expected EntityNotFound for unseen slot, got %v", err)
	}
}

func TestInterpolationRemoveEntity(t *testing.T) {
	id := registerBlend(t)
	ip := NewInterpolation()
	ip.RegisterType(id)

	ip.UpdateCurrent(5, id, blendVec{})
	ip.AdvanceFrame()
	ip.UpdateCurrent(5, id, blendVec{V: vmath.Vec3{X: 1}})
	ip.RemoveEntity(5)

	if _, err := ip.GetInterpolated(5, id, 0.5); !errors.Is(err, core.ErrEntityNotFound) {
		t.Errorf("Expected EntityNotFound after removal, got %v", err)
	}
}

func TestRegisterTypeRequiresLerp(t *testing.T) {
	registry.Reset()
	id := registry.MustRegister[Pos]("plainPos")
	ip := NewInterpolation()
	if err := ip.RegisterType(id); err == nil {
		t.Error("Expected registration of non-interpolatable type to fail")
	}
}
