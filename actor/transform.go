package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rigid isometry: a rotation followed by a translation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// Translation creates a pure translation
func Translation(v mgl64.Vec3) Transform {
	return Transform{Position: v, Rotation: mgl64.QuatIdent()}
}

// Rotation creates a pure rotation of angle radians about axis
func Rotation(angle float64, axis mgl64.Vec3) Transform {
	return Transform{Rotation: mgl64.QuatRotate(angle, axis)}
}

// Normalize returns t with a unit rotation. A zero quaternion (the zero value
// of Transform) becomes the identity rotation.
func (t Transform) Normalize() Transform {
	if t.Rotation.Len() < 1e-12 {
		t.Rotation = mgl64.QuatIdent()
		return t
	}
	t.Rotation = t.Rotation.Normalize()
	return t
}

// Mul composes t and other: the result applies other first, then t.
func (t Transform) Mul(other Transform) Transform {
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(other.Position)),
		Rotation: t.Rotation.Mul(other.Rotation).Normalize(),
	}
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Position: inv.Rotate(t.Position).Mul(-1),
		Rotation: inv,
	}
}

// Point maps a local point to world space.
func (t Transform) Point(p mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(p))
}

// Vector maps a local direction to world space (no translation).
func (t Transform) Vector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(v)
}

// InversePoint maps a world point to local space.
func (t Transform) InversePoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(p.Sub(t.Position))
}

// InverseVector maps a world direction to local space.
func (t Transform) InverseVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(v)
}
