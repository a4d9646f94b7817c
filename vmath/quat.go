package vmath

import "math"

// Quat is a rotation quaternion (W scalar part)
type Quat struct {
	X, Y, Z, W float64
}

// QuatIdentity is the no-rotation quaternion
func QuatIdentity() Quat {
	return Quat{W: 1}
}

func QDot(a, b Quat) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

func QNeg(q Quat) Quat {
	return Quat{-q.X, -q.Y, -q.Z, -q.W}
}

func QMagSq(q Quat) float64 {
	return q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
}

func QMag(q Quat) float64 {
	return math.Sqrt(QMagSq(q))
}

// QNormalize renormalises, falling back to identity for zero-length input
func QNormalize(q Quat) Quat {
	mag := QMag(q)
	if mag == 0 {
		return QuatIdentity()
	}
	inv := 1.0 / mag
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// QNlerp is normalised linear interpolation with hemisphere correction:
// when q0·q1 < 0 the blend runs toward -q1 so rotation takes the short arc.
// The result is renormalised; zero-length blends collapse to identity
func QNlerp(a, b Quat, t float64) Quat {
	if QDot(a, b) < 0 {
		b = QNeg(b)
	}
	blended := Quat{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
		W: a.W + (b.W-a.W)*t,
	}
	return QNormalize(blended)
}

// QMul composes two rotations; the result applies b first, then a
func QMul(a, b Quat) Quat {
	return Quat{
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

// QFromAxisAngle builds a rotation of angle radians around a unit axis
func QFromAxisAngle(axis Vec3, angle float64) Quat {
	half := angle * 0.5
	s := math.Sin(half)
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: math.Cos(half),
	}
}
