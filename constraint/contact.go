package constraint

import (
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultCompliance controls soft constraint stiffness for contact resolution.
	// Lower values = stiffer contacts (less penetration, potential jitter)
	// Higher values = softer contacts (more penetration, smoother)
	// Typical range: 1e-10 (very stiff) to 1e-6 (soft)
	DefaultCompliance = 1e-7
)

// ContactPoint is a point of a manifold. The anchors are the matching points
// on each body, in body space, so the penetration can be measured again after
// every correction.
type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64

	localA  mgl64.Vec3
	localB  mgl64.Vec3
	lambdaN float64
}

type ContactConstraint struct {
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	Points []ContactPoint
	Normal mgl64.Vec3 // from A toward B

	Restitution     float64
	StaticFriction  float64
	DynamicFriction float64
	Compliance      float64

	// RestitutionThreshold is the approach speed under which no bounce is applied.
	RestitutionThreshold float64
}

// NewContactConstraint combines the two materials and anchors every point on
// both bodies.
func NewContactConstraint(bodyA, bodyB *actor.RigidBody, matA, matB actor.Material, normal mgl64.Vec3, points []ContactPoint) *ContactConstraint {
	c := &ContactConstraint{
		BodyA:           bodyA,
		BodyB:           bodyB,
		Normal:          normal,
		Points:          points,
		Restitution:     ComputeRestitution(matA, matB),
		StaticFriction:  ComputeStaticFriction(matA, matB),
		DynamicFriction: ComputeDynamicFriction(matA, matB),
		Compliance:      DefaultCompliance,
	}

	for i := range c.Points {
		point := &c.Points[i]
		half := normal.Mul(0.5 * point.Penetration)
		point.localA = bodyA.Transform.InversePoint(point.Position.Add(half))
		point.localB = bodyB.Transform.InversePoint(point.Position.Sub(half))
		point.lambdaN = 0
	}

	return c
}

// worldPoints returns the current anchors and the penetration along the normal.
func (c *ContactConstraint) worldPoints(point *ContactPoint) (pA, pB mgl64.Vec3, penetration float64) {
	pA = c.BodyA.Transform.Point(point.localA)
	pB = c.BodyB.Transform.Point(point.localB)
	return pA, pB, pA.Sub(pB).Dot(c.Normal)
}

// Penetration returns the deepest current penetration.
func (c *ContactConstraint) Penetration() float64 {
	deepest := math.Inf(-1)
	for i := range c.Points {
		_, _, penetration := c.worldPoints(&c.Points[i])
		deepest = math.Max(deepest, penetration)
	}
	return deepest
}

// SolvePosition resolves penetration, then static friction, point by point.
func (c *ContactConstraint) SolvePosition(dt float64) float64 {
	if len(c.Points) == 0 {
		return 0
	}
	if c.BodyA.IsSleeping && c.BodyB.IsSleeping {
		return 0
	}

	bodyA := c.BodyA
	bodyB := c.BodyB
	alphaTilde := c.Compliance / (dt * dt)

	var residual float64
	for i := range c.Points {
		point := &c.Points[i]

		// ========== 1. Normal correction ==========
		pA, pB, penetration := c.worldPoints(point)
		point.Penetration = penetration
		if penetration <= 0 {
			continue
		}
		residual = math.Max(residual, penetration)

		rA := pA.Sub(bodyA.Transform.Position)
		rB := pB.Sub(bodyB.Transform.Position)
		point.lambdaN += solveLinear(bodyA, bodyB, rA, rB, c.Normal, -penetration, alphaTilde)

		// ========== 2. Static friction ==========
		if c.StaticFriction <= 0 || point.lambdaN <= 0 {
			continue
		}
		pA = bodyA.Transform.Point(point.localA)
		pB = bodyB.Transform.Point(point.localB)
		prevA := bodyA.PreviousTransform.Point(point.localA)
		prevB := bodyB.PreviousTransform.Point(point.localB)

		// relative displacement of B against A during the substep
		drift := pB.Sub(prevB).Sub(pA.Sub(prevA))
		tangential := drift.Sub(c.Normal.Mul(drift.Dot(c.Normal)))
		slip := tangential.Len()
		if slip < 1e-9 {
			continue
		}
		tangent := tangential.Mul(1 / slip)

		rA = pA.Sub(bodyA.Transform.Position)
		rB = pB.Sub(bodyB.Transform.Position)
		w := linearWeight(bodyA, rA, tangent) + linearWeight(bodyB, rB, tangent)
		if w < weightEpsilon {
			continue
		}

		// Coulomb: the tangential correction stays within the cone
		if slip/(w+alphaTilde) <= c.StaticFriction*point.lambdaN {
			solveLinear(bodyA, bodyB, rA, rB, tangent, slip, alphaTilde)
		}
	}

	return residual
}

// SolveVelocity applies restitution and dynamic friction.
func (c *ContactConstraint) SolveVelocity(dt float64) {
	if len(c.Points) == 0 {
		return
	}
	if c.BodyA.IsSleeping && c.BodyB.IsSleeping {
		return
	}

	bodyA := c.BodyA
	bodyB := c.BodyB

	for i := range c.Points {
		point := &c.Points[i]
		pA, pB, _ := c.worldPoints(point)
		contact := pA.Add(pB).Mul(0.5)
		rA := contact.Sub(bodyA.Transform.Position)
		rB := contact.Sub(bodyB.Transform.Position)

		// ========== Velocities ==========
		relativeVel := bodyB.PointVelocity(contact).Sub(bodyA.PointVelocity(contact))
		normalVel := relativeVel.Dot(c.Normal)

		active := point.lambdaN > 0
		if !active && normalVel >= 0 {
			continue // touching, separating
		}

		// ========== Pre-resolution velocity ==========
		vAPrev := bodyA.PresolveVelocity.Add(bodyA.PresolveAngularVelocity.Cross(rA))
		vBPrev := bodyB.PresolveVelocity.Add(bodyB.PresolveAngularVelocity.Cross(rB))
		normalVelPrev := vBPrev.Sub(vAPrev).Dot(c.Normal)

		// ========== DYNAMIC FRICTION ==========
		tangentVel := relativeVel.Sub(c.Normal.Mul(normalVel))
		tangentSpeed := tangentVel.Len()
		if active && tangentSpeed > 1e-9 && c.DynamicFriction > 0 {
			tangentDir := tangentVel.Mul(1.0 / tangentSpeed)
			// |Δv| ≤ μ * |f_n| * h, with f_n = λ_n / h²
			deltaV := math.Min(c.DynamicFriction*point.lambdaN/dt, tangentSpeed)
			w := linearWeight(bodyA, rA, tangentDir) + linearWeight(bodyB, rB, tangentDir)
			if w > weightEpsilon {
				applyLinearImpulse(bodyA, bodyB, rA, rB, tangentDir, -deltaV/w)
			}
		}

		// ========== NORMAL (restitution) ==========
		restitution := c.Restitution
		if math.Abs(normalVelPrev) <= c.RestitutionThreshold {
			restitution = 0
		}
		targetVel := math.Max(-restitution*normalVelPrev, 0)
		deltaV := targetVel - normalVel
		if !active && deltaV < 0 {
			continue // Prevent attractive impulses
		}

		w := linearWeight(bodyA, rA, c.Normal) + linearWeight(bodyB, rB, c.Normal)
		if w < weightEpsilon {
			continue
		}
		applyLinearImpulse(bodyA, bodyB, rA, rB, c.Normal, deltaV/w)
	}

	clampSmallVelocities(bodyA)
	clampSmallVelocities(bodyB)
}
