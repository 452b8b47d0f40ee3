// Package joint describes the joints connecting the links of a multibody.
//
// A joint relates two frames: the anchor frame on the parent link and the
// anchor frame on the child link. At the current offsets the child anchor is
// parentAnchor * LocalTransform(). The set of variants is closed: Fixed, Free,
// Revolute, Prismatic, Ball, Universal, Helical, Planar, Rectangular and
// PinSlot.
package joint

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrZeroAxis is returned when a joint axis has (near) zero length.
	ErrZeroAxis = errors.New("joint: zero length axis")
	// ErrAxesNotOrthogonal is returned when two joint axes must be orthogonal and are not.
	ErrAxesNotOrthogonal = errors.New("joint: axes are not orthogonal")
	// ErrInvalidLimits is returned when min > max or a bound is NaN.
	ErrInvalidLimits = errors.New("joint: invalid limits")
	// ErrNonFinite is returned for NaN or infinite joint parameters.
	ErrNonFinite = errors.New("joint: non finite parameter")
)

const (
	axisEpsilon       = 1e-9
	orthogonalEpsilon = 1e-6
)

// Kind identifies a joint variant.
type Kind int

const (
	KindFixed Kind = iota
	KindFree
	KindRevolute
	KindPrismatic
	KindBall
	KindUniversal
	KindHelical
	KindPlanar
	KindRectangular
	KindPinSlot
)

var kindNames = [...]string{
	KindFixed:       "fixed",
	KindFree:        "free",
	KindRevolute:    "revolute",
	KindPrismatic:   "prismatic",
	KindBall:        "ball",
	KindUniversal:   "universal",
	KindHelical:     "helical",
	KindPlanar:      "planar",
	KindRectangular: "rectangular",
	KindPinSlot:     "pinslot",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Twist is a spatial velocity: the angular part is a rotation axis scaled by
// the rate, the linear part the velocity of the child anchor origin.
type Twist struct {
	Angular mgl64.Vec3
	Linear  mgl64.Vec3
}

// AngularLock says how the orientation of the child anchor is constrained.
type AngularLock int

const (
	// AngularLocked: the relative rotation equals LocalTransform().Rotation.
	AngularLocked AngularLock = iota
	// AngularHinge: only rotation about Layout.Axis1 is allowed.
	AngularHinge
	// AngularUniversal: Axis1 (parent) and Axis2 (child) stay orthogonal.
	AngularUniversal
	// AngularFree: no orientation constraint.
	AngularFree
)

// Layout tells the solver which relative motions a joint leaves free.
// Directions are expressed in the parent anchor frame.
type Layout struct {
	// LinearFree lists orthonormal translation axes along which the child
	// anchor may move. The other components must match LocalTransform().Position.
	LinearFree []mgl64.Vec3
	Angular    AngularLock
	Axis1      mgl64.Vec3
	Axis2      mgl64.Vec3

	// Screw couples the translation along Axis1, which must be listed in
	// LinearFree, to the hinge angle: translation = Pitch * angle.
	Screw bool
	Pitch float64
}

// Dof is the state of one degree of freedom.
type Dof struct {
	Offset   float64
	Velocity float64

	MinEnabled bool
	Min        float64
	MaxEnabled bool
	Max        float64

	MotorEnabled   bool
	TargetVelocity float64
	// MaxForce bounds the motor force (or torque), +Inf by default.
	MaxForce float64

	Damping float64
}

func newDofs(n int) []Dof {
	dofs := make([]Dof, n)
	for i := range dofs {
		dofs[i].MaxForce = math.Inf(1)
	}
	return dofs
}

// SetLimits enables both bounds.
func (d *Dof) SetLimits(lo, hi float64) error {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidLimits, lo, hi)
	}
	d.MinEnabled, d.Min = true, lo
	d.MaxEnabled, d.Max = true, hi
	return nil
}

// SetMin enables the lower bound only.
func (d *Dof) SetMin(lo float64) {
	d.MinEnabled, d.Min = true, lo
}

// SetMax enables the upper bound only.
func (d *Dof) SetMax(hi float64) {
	d.MaxEnabled, d.Max = true, hi
}

func (d *Dof) DisableLimits() {
	d.MinEnabled = false
	d.MaxEnabled = false
}

// EnableMotor drives the velocity toward target with a force bounded by
// maxForce. A non positive or NaN maxForce means unbounded.
func (d *Dof) EnableMotor(target, maxForce float64) {
	if math.IsNaN(maxForce) || maxForce <= 0 {
		maxForce = math.Inf(1)
	}
	d.MotorEnabled = true
	d.TargetVelocity = target
	d.MaxForce = maxForce
}

func (d *Dof) DisableMotor() {
	d.MotorEnabled = false
}

// Violation returns how far the offset is outside the enabled limits:
// negative below Min, positive above Max, zero inside.
func (d *Dof) Violation() float64 {
	if d.MinEnabled && d.Offset < d.Min {
		return d.Offset - d.Min
	}
	if d.MaxEnabled && d.Offset > d.Max {
		return d.Offset - d.Max
	}
	return 0
}

// Joint is implemented by the variants of this package only.
type Joint interface {
	Kind() Kind
	DegreesOfFreedom() int
	// Dof returns the state of degree of freedom i, nil when out of range.
	Dof(i int) *Dof
	// LocalTransform is the child anchor relative to the parent anchor at
	// the current offsets.
	LocalTransform() actor.Transform
	// Jacobian returns one column per degree of freedom: the relative twist
	// produced by a unit rate of that offset, in the parent anchor frame.
	Jacobian() []Twist
	Layout() Layout
	// Measure updates the offsets from a relative transform, keeping angles
	// continuous with the previous offsets.
	Measure(rel actor.Transform)
	Validate() error
	Clone() Joint

	sealed()
}

type base struct {
	dofs []Dof
}

func (b *base) DegreesOfFreedom() int { return len(b.dofs) }

func (b *base) Dof(i int) *Dof {
	if i < 0 || i >= len(b.dofs) {
		return nil
	}
	return &b.dofs[i]
}

func (b *base) clone() base {
	return base{dofs: append([]Dof(nil), b.dofs...)}
}

func (b *base) sealed() {}

// validateDofs rejects inconsistent limits.
func (b *base) validateDofs() error {
	for i, d := range b.dofs {
		if (d.MinEnabled && !scalar.IsFinite(d.Min)) || (d.MaxEnabled && !scalar.IsFinite(d.Max)) {
			return fmt.Errorf("%w: dof %d", ErrInvalidLimits, i)
		}
		if d.MinEnabled && d.MaxEnabled && d.Min > d.Max {
			return fmt.Errorf("%w: dof %d min %v > max %v", ErrInvalidLimits, i, d.Min, d.Max)
		}
	}
	return nil
}

// Velocities returns the relative twist for the current Dof velocities.
func Velocities(j Joint) Twist {
	var t Twist
	for i, col := range j.Jacobian() {
		v := j.Dof(i).Velocity
		t.Angular = t.Angular.Add(col.Angular.Mul(v))
		t.Linear = t.Linear.Add(col.Linear.Mul(v))
	}
	return t
}

// ==========
// helpers

func unitAxis(axis mgl64.Vec3) (mgl64.Vec3, error) {
	l := axis.Len()
	if l < axisEpsilon || !scalar.IsFiniteVec3(axis) {
		return mgl64.Vec3{}, fmt.Errorf("%w: %v", ErrZeroAxis, axis)
	}
	return axis.Mul(1 / l), nil
}

func orthogonal(a, b mgl64.Vec3) error {
	if math.Abs(a.Dot(b)) > orthogonalEpsilon {
		return fmt.Errorf("%w: %v . %v = %v", ErrAxesNotOrthogonal, a, b, a.Dot(b))
	}
	return nil
}

// twistAngle returns the signed angle of the rotation q about axis, in (-π, π].
func twistAngle(q mgl64.Quat, axis mgl64.Vec3) float64 {
	return scalar.WrapAngle(2 * math.Atan2(q.V.Dot(axis), q.W))
}

// unwrap returns the angle equivalent to raw closest to prev.
func unwrap(prev, raw float64) float64 {
	return prev + scalar.WrapAngle(raw-prev)
}

// RotationVector returns axis*angle for a unit quaternion, angle in [0, π].
func RotationVector(q mgl64.Quat) mgl64.Vec3 {
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := q.V.Len()
	if s < 1e-12 {
		return q.V.Mul(2)
	}
	angle := 2 * math.Atan2(s, q.W)
	return q.V.Mul(angle / s)
}

// QuatFromRotationVector is the inverse of RotationVector.
func QuatFromRotationVector(v mgl64.Vec3) mgl64.Quat {
	angle := v.Len()
	if angle < 1e-12 {
		return mgl64.Quat{W: 1, V: v.Mul(0.5)}.Normalize()
	}
	return mgl64.QuatRotate(angle, v.Mul(1/angle))
}

func canonicalAxes() []mgl64.Vec3 {
	return []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}
