// Package constraint holds the XPBD constraints the world solves each
// substep: contacts and joints.
package constraint

import (
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Constraint is solved in two passes. SolvePosition returns the largest
// violation measured before its correction.
type Constraint interface {
	SolvePosition(dt float64) float64
	SolveVelocity(dt float64)
}

var (
	_ Constraint = (*ContactConstraint)(nil)
	_ Constraint = (*JointConstraint)(nil)
)

func ComputeRestitution(matA, matB actor.Material) float64 {
	// Average (more realistic)
	return (matA.Restitution + matB.Restitution) / 2.0
}

func ComputeStaticFriction(matA, matB actor.Material) float64 {
	// Moyenne géométrique (standard en physique)
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func ComputeDynamicFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

func clampSmallVelocities(rb *actor.RigidBody) {
	const velocityThreshold = 1e-5

	if !rb.IsDynamic() {
		return
	}
	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec3{0, 0, 0}
	}
	if rb.AngularVelocity.Len() < velocityThreshold {
		rb.AngularVelocity = mgl64.Vec3{0, 0, 0}
	}
}

// ==========
// XPBD primitives. Body 2 receives +λ, body 1 receives -λ.

const weightEpsilon = 1e-12

// linearWeight is the generalized inverse mass of b for a correction along n
// applied at offset r from its center.
func linearWeight(b *actor.RigidBody, r, n mgl64.Vec3) float64 {
	if !b.IsDynamic() {
		return 0
	}
	rn := r.Cross(n)
	return b.InverseMass() + b.GetInverseInertiaWorld().Mul3x1(rn).Dot(rn)
}

func angularWeight(b *actor.RigidBody, axis mgl64.Vec3) float64 {
	if !b.IsDynamic() {
		return 0
	}
	return b.GetInverseInertiaWorld().Mul3x1(axis).Dot(axis)
}

// solveLinear drives c = (p2 - p1)·n to zero, where p1 = x1 + r1 and p2 = x2 + r2.
func solveLinear(b1, b2 *actor.RigidBody, r1, r2, n mgl64.Vec3, c, alphaTilde float64) float64 {
	w := linearWeight(b1, r1, n) + linearWeight(b2, r2, n)
	if w < weightEpsilon {
		return 0
	}
	lambda := -c / (w + alphaTilde)
	p := n.Mul(lambda)

	if b1.IsDynamic() {
		b1.Transform.Position = b1.Transform.Position.Sub(p.Mul(b1.InverseMass()))
		b1.Rotate(b1.GetInverseInertiaWorld().Mul3x1(r1.Cross(p)).Mul(-1))
	}
	if b2.IsDynamic() {
		b2.Transform.Position = b2.Transform.Position.Add(p.Mul(b2.InverseMass()))
		b2.Rotate(b2.GetInverseInertiaWorld().Mul3x1(r2.Cross(p)))
	}
	return lambda
}

// solveAngular drives c, the angle body 2 is ahead of body 1 about the unit
// axis, to zero.
func solveAngular(b1, b2 *actor.RigidBody, axis mgl64.Vec3, c, alphaTilde float64) float64 {
	w := angularWeight(b1, axis) + angularWeight(b2, axis)
	if w < weightEpsilon {
		return 0
	}
	lambda := -c / (w + alphaTilde)
	p := axis.Mul(lambda)

	if b1.IsDynamic() {
		b1.Rotate(b1.GetInverseInertiaWorld().Mul3x1(p).Mul(-1))
	}
	if b2.IsDynamic() {
		b2.Rotate(b2.GetInverseInertiaWorld().Mul3x1(p))
	}
	return lambda
}

// solveRotation applies the rotation vector correction to body 2 relative to
// body 1 and returns its magnitude.
func solveRotation(b1, b2 *actor.RigidBody, correction mgl64.Vec3, alphaTilde float64) float64 {
	angle := correction.Len()
	if angle < 1e-12 {
		return 0
	}
	solveAngular(b1, b2, correction.Mul(1/angle), -angle, alphaTilde)
	return angle
}

func applyLinearImpulse(b1, b2 *actor.RigidBody, r1, r2, n mgl64.Vec3, lambda float64) {
	p := n.Mul(lambda)
	if b1.IsDynamic() {
		b1.Velocity = b1.Velocity.Sub(p.Mul(b1.InverseMass()))
		b1.AngularVelocity = b1.AngularVelocity.Sub(b1.GetInverseInertiaWorld().Mul3x1(r1.Cross(p)))
	}
	if b2.IsDynamic() {
		b2.Velocity = b2.Velocity.Add(p.Mul(b2.InverseMass()))
		b2.AngularVelocity = b2.AngularVelocity.Add(b2.GetInverseInertiaWorld().Mul3x1(r2.Cross(p)))
	}
}

func applyAngularImpulse(b1, b2 *actor.RigidBody, axis mgl64.Vec3, lambda float64) {
	p := axis.Mul(lambda)
	if b1.IsDynamic() {
		b1.AngularVelocity = b1.AngularVelocity.Sub(b1.GetInverseInertiaWorld().Mul3x1(p))
	}
	if b2.IsDynamic() {
		b2.AngularVelocity = b2.AngularVelocity.Add(b2.GetInverseInertiaWorld().Mul3x1(p))
	}
}

// ==========
// Jacobian columns. A column moves the points x1 + r1 and x2 + r2 along lin
// and rotates the bodies about ang at the same time.

// columnWeight is the generalized inverse mass of b along the column.
func columnWeight(b *actor.RigidBody, r, lin, ang mgl64.Vec3) float64 {
	if !b.IsDynamic() {
		return 0
	}
	a := r.Cross(lin).Add(ang)
	return b.InverseMass()*lin.LenSqr() + b.GetInverseInertiaWorld().Mul3x1(a).Dot(a)
}

// solveColumn drives c, measured along the column, to zero.
func solveColumn(b1, b2 *actor.RigidBody, r1, r2, lin, ang mgl64.Vec3, c, alphaTilde float64) float64 {
	w := columnWeight(b1, r1, lin, ang) + columnWeight(b2, r2, lin, ang)
	if w < weightEpsilon {
		return 0
	}
	lambda := -c / (w + alphaTilde)
	p := lin.Mul(lambda)
	l := ang.Mul(lambda)

	if b1.IsDynamic() {
		b1.Transform.Position = b1.Transform.Position.Sub(p.Mul(b1.InverseMass()))
		b1.Rotate(b1.GetInverseInertiaWorld().Mul3x1(r1.Cross(p).Add(l)).Mul(-1))
	}
	if b2.IsDynamic() {
		b2.Transform.Position = b2.Transform.Position.Add(p.Mul(b2.InverseMass()))
		b2.Rotate(b2.GetInverseInertiaWorld().Mul3x1(r2.Cross(p).Add(l)))
	}
	return lambda
}

func applyColumnImpulse(b1, b2 *actor.RigidBody, r1, r2, lin, ang mgl64.Vec3, lambda float64) {
	applyLinearImpulse(b1, b2, r1, r2, lin, lambda)
	applyAngularImpulse(b1, b2, ang, lambda)
}

// skew returns the matrix of the cross product r × v.
func skew(r mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, r.Z(), -r.Y(),
		-r.Z(), 0, r.X(),
		r.Y(), -r.X(), 0,
	}
}

// pointMass returns K such that an impulse p applied at offset r changes the
// velocity of that point by K·p.
func pointMass(b *actor.RigidBody, r mgl64.Vec3) mgl64.Mat3 {
	if !b.IsDynamic() {
		return mgl64.Mat3{}
	}
	s := skew(r)
	return mgl64.Ident3().Mul(b.InverseMass()).Sub(s.Mul3(b.GetInverseInertiaWorld()).Mul3(s))
}

// pointResponse returns the velocity change of the point at offset r for a
// unit impulse along the column.
func pointResponse(b *actor.RigidBody, r, lin, ang mgl64.Vec3) mgl64.Vec3 {
	if !b.IsDynamic() {
		return mgl64.Vec3{}
	}
	return pointMass(b, r).Mul3x1(lin).Add(b.GetInverseInertiaWorld().Mul3x1(ang).Cross(r))
}
