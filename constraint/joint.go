package constraint

import (
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/joint"
	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl64"
)

// JointConstraint holds Child to Parent through a joint. ParentShift places
// the joint anchor in the parent body frame, BodyShift in the child body frame.
type JointConstraint struct {
	Parent      *actor.RigidBody
	Child       *actor.RigidBody
	ParentShift actor.Transform
	BodyShift   actor.Transform
	Joint       joint.Joint

	// Compliance softens the locked motions, 0 is rigid.
	Compliance float64
}

func NewJointConstraint(parent, child *actor.RigidBody, parentShift, bodyShift actor.Transform, j joint.Joint) *JointConstraint {
	return &JointConstraint{
		Parent:      parent,
		Child:       child,
		ParentShift: parentShift.Normalize(),
		BodyShift:   bodyShift.Normalize(),
		Joint:       j,
	}
}

// Anchors returns the world frames of the joint on the parent and on the child.
func (c *JointConstraint) Anchors() (actor.Transform, actor.Transform) {
	return c.Parent.Transform.Mul(c.ParentShift), c.Child.Transform.Mul(c.BodyShift)
}

// Measure updates the joint offsets from the current body poses.
func (c *JointConstraint) Measure() {
	a1, a2 := c.Anchors()
	c.Joint.Measure(a1.Inverse().Mul(a2))
}

func (c *JointConstraint) asleep() bool {
	parentIdle := c.Parent.IsSleeping || !c.Parent.IsDynamic()
	childIdle := c.Child.IsSleeping || !c.Child.IsDynamic()
	return parentIdle && childIdle
}

// SolvePosition corrects, in order, the locked orientation, the locked
// translation, the screw coupling and the violated limits.
func (c *JointConstraint) SolvePosition(dt float64) float64 {
	if c.asleep() {
		return 0
	}

	alphaTilde := c.Compliance / (dt * dt)
	layout := c.Joint.Layout()
	var residual float64

	// ========== 1. Orientation ==========
	a1, a2 := c.Anchors()
	if correction, ok := c.angularCorrection(layout, a1, a2); ok {
		residual = math.Max(residual, solveRotation(c.Parent, c.Child, correction, alphaTilde))
	}

	// ========== 2. Translation ==========
	c.Measure()
	a1, a2 = c.Anchors()
	target := a1.Point(c.Joint.LocalTransform().Position)
	delta := a2.Position.Sub(target)
	for _, axis := range layout.LinearFree {
		free := a1.Vector(axis)
		delta = delta.Sub(free.Mul(delta.Dot(free)))
	}
	if distance := delta.Len(); distance > 1e-12 {
		residual = math.Max(residual, distance)
		r1 := target.Sub(c.Parent.Transform.Position)
		r2 := a2.Position.Sub(c.Child.Transform.Position)
		solveLinear(c.Parent, c.Child, r1, r2, delta.Mul(1/distance), distance, alphaTilde)
	}

	// ========== 3. Screw ==========
	if layout.Screw {
		c.Measure()
		a1, a2 = c.Anchors()
		axis := a1.Vector(layout.Axis1)
		// axial translation minus Pitch * angle
		slip := a2.Position.Sub(a1.Point(c.Joint.LocalTransform().Position)).Dot(axis)
		if math.Abs(slip) > 1e-12 {
			residual = math.Max(residual, math.Abs(slip))
			r1 := a2.Position.Sub(c.Parent.Transform.Position)
			r2 := a2.Position.Sub(c.Child.Transform.Position)
			solveColumn(c.Parent, c.Child, r1, r2, axis, axis.Mul(-layout.Pitch), slip, alphaTilde)
		}
	}

	// ========== 4. Limits ==========
	c.Measure()
	a1, a2 = c.Anchors()
	for i, t := range c.Joint.Jacobian() {
		violation := c.Joint.Dof(i).Violation()
		if violation == 0 {
			continue
		}
		lin, ang, norm := worldColumn(a1, t)
		if norm < weightEpsilon {
			continue
		}
		residual = math.Max(residual, math.Abs(violation))

		r1 := a2.Position.Sub(c.Parent.Transform.Position)
		r2 := a2.Position.Sub(c.Child.Transform.Position)
		solveColumn(c.Parent, c.Child, r1, r2, lin.Mul(1/norm), ang.Mul(1/norm), violation, alphaTilde)
	}

	return residual
}

// angularCorrection returns the rotation vector that brings the child anchor
// back onto the allowed orientations.
func (c *JointConstraint) angularCorrection(layout joint.Layout, a1, a2 actor.Transform) (mgl64.Vec3, bool) {
	switch layout.Angular {
	case joint.AngularLocked:
		target := a1.Rotation.Mul(c.Joint.LocalTransform().Rotation)
		q := target.Mul(a2.Rotation.Conjugate())
		if q.W < 0 {
			q = q.Scale(-1)
		}
		return joint.RotationVector(q), true
	case joint.AngularHinge:
		h1 := a1.Vector(layout.Axis1)
		h2 := a2.Vector(layout.Axis1)
		// |h2 x h1| = sin(angle), good enough for small drifts
		cross := h2.Cross(h1)
		s := cross.Len()
		if s < 1e-12 {
			if h1.Dot(h2) >= 0 {
				return mgl64.Vec3{}, false
			}
			// axis flipped
			t, _ := actor.TangentBasis(h1)
			return t.Mul(math.Pi), true
		}
		angle := math.Atan2(s, h1.Dot(h2))
		return cross.Mul(angle / s), true
	case joint.AngularUniversal:
		u1 := a1.Vector(layout.Axis1)
		u2 := a2.Vector(layout.Axis2)
		axis := u1.Cross(u2)
		l := axis.Len()
		if l < 1e-12 {
			return mgl64.Vec3{}, false
		}
		dot := scalar.Clamp(u1.Dot(u2), -1, 1)
		return axis.Mul(math.Asin(dot) / l), true
	}
	return mgl64.Vec3{}, false
}

// worldColumn returns the Jacobian column t in world space and its squared
// norm. The rate of a Dof is the relative velocity along the column divided
// by that norm.
func worldColumn(a1 actor.Transform, t joint.Twist) (lin, ang mgl64.Vec3, norm float64) {
	return a1.Vector(t.Linear), a1.Vector(t.Angular), t.Linear.LenSqr() + t.Angular.LenSqr()
}

// rate returns the relative velocity of the child along a world column,
// taken at the child anchor p.
func (c *JointConstraint) rate(p, lin, ang mgl64.Vec3) float64 {
	v := c.Child.PointVelocity(p).Sub(c.Parent.PointVelocity(p)).Dot(lin)
	return v + c.Child.AngularVelocity.Sub(c.Parent.AngularVelocity).Dot(ang)
}

// MeasureVelocity updates the Dof velocities from the body velocities.
func (c *JointConstraint) MeasureVelocity() {
	a1, a2 := c.Anchors()
	for i, t := range c.Joint.Jacobian() {
		lin, ang, norm := worldColumn(a1, t)
		if norm < weightEpsilon {
			continue
		}
		c.Joint.Dof(i).Velocity = c.rate(a2.Position, lin, ang) / norm
	}
}

// lockedProjector projects onto the translations of the child anchor the
// joint forbids. ok is false when every translation is free.
func lockedProjector(layout joint.Layout, a1 actor.Transform) (mgl64.Mat3, bool) {
	if len(layout.LinearFree) >= 3 {
		return mgl64.Mat3{}, false
	}
	p := mgl64.Ident3()
	for _, axis := range layout.LinearFree {
		f := a1.Vector(axis)
		p = p.Sub(f.OuterProd3(f))
	}
	return p, true
}

// SolveVelocity drives the motors and applies the joint damping. The anchor
// reaction is included: the impulse along a column comes with the impulse at
// the anchor that keeps its locked translations at rest, so the whole link
// responds.
func (c *JointConstraint) SolveVelocity(dt float64) {
	if c.asleep() {
		return
	}

	a1, a2 := c.Anchors()
	p := a2.Position
	r1 := p.Sub(c.Parent.Transform.Position)
	r2 := p.Sub(c.Child.Transform.Position)
	locked, hasLocked := lockedProjector(c.Joint.Layout(), a1)
	var kInv mgl64.Mat3
	if hasLocked {
		k := pointMass(c.Parent, r1).Add(pointMass(c.Child, r2))
		// free directions are left out of the anchor reaction
		k = locked.Mul3(k).Mul3(locked).Add(mgl64.Ident3().Sub(locked))
		if math.Abs(k.Det()) < weightEpsilon {
			hasLocked = false
		} else {
			kInv = k.Inv()
		}
	}

	for i, t := range c.Joint.Jacobian() {
		dof := c.Joint.Dof(i)
		if !dof.MotorEnabled && dof.Damping <= 0 {
			continue
		}
		lin, ang, norm := worldColumn(a1, t)
		if norm < weightEpsilon {
			continue
		}

		w := columnWeight(c.Parent, r1, lin, ang) + columnWeight(c.Child, r2, lin, ang)
		// reaction impulse at the anchor per unit of lambda
		var reaction mgl64.Vec3
		if hasLocked {
			response := locked.Mul3x1(pointResponse(c.Parent, r1, lin, ang).Add(pointResponse(c.Child, r2, lin, ang)))
			reaction = kInv.Mul3x1(response).Mul(-1)
			w += response.Dot(reaction)
		}
		if w < weightEpsilon {
			continue
		}

		v := c.rate(p, lin, ang)
		var lambda float64
		if dof.MotorEnabled {
			lambda = (dof.TargetVelocity*norm - v) / w
			limit := dof.MaxForce * dt
			lambda = scalar.Clamp(lambda, -limit, limit)
		} else {
			lambda = -v * math.Min(1, dof.Damping*dt) / w
		}

		applyColumnImpulse(c.Parent, c.Child, r1, r2, lin, ang, lambda)
		if hasLocked {
			applyLinearImpulse(c.Parent, c.Child, r1, r2, reaction, lambda)
		}
	}
}
