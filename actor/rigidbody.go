package actor

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidMass is returned for negative, NaN or infinite mass properties.
var ErrInvalidMass = errors.New("actor: invalid mass properties")

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic

	// BodyTypeKinematic bodies follow their velocity and ignore forces.
	// The solver treats them as infinitely heavy.
	BodyTypeKinematic
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeDynamic:
		return "dynamic"
	case BodyTypeStatic:
		return "static"
	case BodyTypeKinematic:
		return "kinematic"
	}
	return fmt.Sprintf("BodyType(%d)", int(t))
}

// Material describes the surface of a collider and the density used to derive
// the mass of the body it is attached to.
type Material struct {
	Density     float64
	Restitution float64 // 0= no rebound, 1= perfect restitution

	StaticFriction  float64
	DynamicFriction float64
}

// Validate rejects negative or non finite coefficients.
func (m Material) Validate() error {
	for _, v := range []float64{m.Density, m.Restitution, m.StaticFriction, m.DynamicFriction} {
		if !scalar.IsFinite(v) || v < 0 {
			return fmt.Errorf("%w: material coefficient %v", ErrInvalidMass, v)
		}
	}
	return nil
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	PresolveVelocity mgl64.Vec3
	Velocity         mgl64.Vec3 // Linear velocity (m/s)

	// Angular motion
	PresolveAngularVelocity mgl64.Vec3
	AngularVelocity         mgl64.Vec3 // rad/s

	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3

	LinearDamping  float64 // 0.0 - 1.0, typique : 0.01
	AngularDamping float64 // 0.0 - 1.0, typique : 0.05

	mass     float64
	hasMass  bool
	invMass  float64
	BodyType BodyType // Dynamic, Static or Kinematic

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	IsSleeping bool
	SleepTimer float64
}

// NewRigidBody creates a rigid body at transform. Dynamic bodies start with a
// unit mass and unit inertia until mass properties are set or added.
func NewRigidBody(transform Transform, bodyType BodyType) *RigidBody {
	transform = transform.Normalize()
	rb := &RigidBody{
		PreviousTransform: transform,
		Transform:         transform,
		BodyType:          bodyType,
	}

	if bodyType == BodyTypeDynamic {
		rb.setMass(1, mgl64.Ident3())
	} else {
		rb.mass = math.Inf(1)
	}

	return rb
}

func (rb *RigidBody) setMass(mass float64, inertia mgl64.Mat3) {
	rb.mass = mass
	rb.InertiaLocal = inertia
	if mass > 0 {
		rb.invMass = 1.0 / mass
	} else {
		rb.invMass = 0
	}
	if inertia.Det() > 1e-18 {
		rb.InverseInertiaLocal = inertia.Inv()
	} else {
		rb.InverseInertiaLocal = mgl64.Mat3{}
	}
}

// SetMassProperties replaces the mass and the local inertia tensor.
// It is a no-op for static and kinematic bodies.
func (rb *RigidBody) SetMassProperties(mass float64, inertia mgl64.Mat3) error {
	if !scalar.IsFinite(mass) || mass < 0 {
		return fmt.Errorf("%w: mass %v", ErrInvalidMass, mass)
	}
	if rb.BodyType != BodyTypeDynamic {
		return nil
	}
	rb.hasMass = true
	rb.setMass(mass, inertia)
	return nil
}

// AddMassProperties adds mass and inertia (expressed about the body origin).
// The default unit mass is dropped on the first call.
func (rb *RigidBody) AddMassProperties(mass float64, inertia mgl64.Mat3) error {
	if !scalar.IsFinite(mass) || mass < 0 {
		return fmt.Errorf("%w: mass %v", ErrInvalidMass, mass)
	}
	if rb.BodyType != BodyTypeDynamic || mass == 0 {
		return nil
	}
	if !rb.hasMass {
		rb.hasMass = true
		rb.setMass(mass, inertia)
		return nil
	}
	rb.setMass(rb.mass+mass, rb.InertiaLocal.Add(inertia))
	return nil
}

// Mass returns the mass, +Inf for static and kinematic bodies.
func (rb *RigidBody) Mass() float64 {
	if rb.BodyType != BodyTypeDynamic {
		return math.Inf(1)
	}
	return rb.mass
}

// InverseMass returns 0 for bodies the solver must not move.
func (rb *RigidBody) InverseMass() float64 {
	if rb.BodyType != BodyTypeDynamic {
		return 0
	}
	return rb.invMass
}

// IsDynamic reports whether the solver may move the body.
func (rb *RigidBody) IsDynamic() bool {
	return rb.BodyType == BodyTypeDynamic
}

// TrySleep advances the sleep timer of a quiet dynamic body and reports
// whether it stayed quiet for timeThreshold. A moving body restarts its
// timer. The body itself is left awake: its island decides.
func (rb *RigidBody) TrySleep(dt, timeThreshold, velocityThreshold float64) bool {
	if rb.BodyType != BodyTypeDynamic {
		return false
	}
	if !rb.IsQuiet(velocityThreshold) {
		rb.SleepTimer = 0
		return false
	}
	rb.SleepTimer += dt
	return rb.SleepTimer >= timeThreshold
}

// IsQuiet reports whether both velocities are under threshold.
func (rb *RigidBody) IsQuiet(velocityThreshold float64) bool {
	return rb.Velocity.Len() < velocityThreshold && rb.AngularVelocity.Len() < velocityThreshold
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	rb.ClearForces()
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}

// Integrate applies gravity and accumulated forces, then predicts the
// position for this substep. The previous transform is kept for Update.
func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic || rb.IsSleeping {
		return
	}

	rb.PreviousTransform = rb.Transform

	if rb.BodyType == BodyTypeDynamic {
		// ========== LINEAR INTEGRATION ==========
		acceleration := gravity.Add(rb.accumulatedForce.Mul(rb.invMass))
		rb.Velocity = rb.Velocity.Add(acceleration.Mul(dt))
		rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.LinearDamping * dt))

		// ========== ANGULAR INTEGRATION ==========
		angularAccel := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
		rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))
		rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.AngularDamping * dt))
	}

	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// ========== UPDATE QUATERNION ==========
	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()

	rb.PresolveVelocity = rb.Velocity
	rb.PresolveAngularVelocity = rb.AngularVelocity
}

// Update derives the velocities from the solved positions.
func (rb *RigidBody) Update(dt float64) {
	if rb.BodyType != BodyTypeDynamic || rb.IsSleeping {
		return
	}

	rb.Velocity = rb.Transform.Position.Sub(rb.PreviousTransform.Position).Mul(1.0 / dt)
	qDelta := rb.Transform.Rotation.Mul(rb.PreviousTransform.Rotation.Conjugate())
	qDelta = qDelta.Normalize()
	if qDelta.W >= 0.0 {
		rb.AngularVelocity = qDelta.V.Mul(2.0 / dt)
	} else {
		rb.AngularVelocity = qDelta.V.Mul(-2.0 / dt)
	}
}

// Rotate applies a small world-space rotation vector to the orientation.
func (rb *RigidBody) Rotate(deltaRotation mgl64.Vec3) {
	if deltaRotation.Len() < 1e-14 {
		return
	}
	// For a small angle δθ, the rotation quaternion is q_delta ≈ [1, δθ/2]
	qDelta := mgl64.Quat{W: 1.0, V: deltaRotation.Mul(0.5)}.Normalize()
	rb.Transform.Rotation = qDelta.Mul(rb.Transform.Rotation).Normalize()
}

// AddForce accumulates a force (N) applied at the center of mass until the
// end of the next step.
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.Awake()
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque accumulates a torque (N⋅m).
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.BodyType == BodyTypeDynamic {
		rb.Awake()
		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

// AddForceAtPoint accumulates a force applied at a world point.
func (rb *RigidBody) AddForceAtPoint(force, point mgl64.Vec3) {
	rb.AddForce(force)
	rb.AddTorque(point.Sub(rb.Transform.Position).Cross(force))
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// Force returns the force accumulated for the next step.
func (rb *RigidBody) Force() mgl64.Vec3 {
	return rb.accumulatedForce
}

// PointVelocity returns the velocity of a world point attached to the body.
func (rb *RigidBody) PointVelocity(point mgl64.Vec3) mgl64.Vec3 {
	return rb.Velocity.Add(rb.AngularVelocity.Cross(point.Sub(rb.Transform.Position)))
}

// Inertie en espace monde
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	// I_world = R * I_local * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// Inverse de l'inertie en espace monde
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.BodyType != BodyTypeDynamic {
		return mgl64.Mat3{}
	}

	// I_world^(-1) = R * I_local^(-1) * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}
