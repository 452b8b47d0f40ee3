package joint

import (
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Revolute rotates the child about Axis.
type Revolute struct {
	base
	Axis mgl64.Vec3
}

func NewRevolute(axis mgl64.Vec3) (*Revolute, error) {
	a, err := unitAxis(axis)
	if err != nil {
		return nil, err
	}
	return &Revolute{base: base{dofs: newDofs(1)}, Axis: a}, nil
}

func (j *Revolute) Kind() Kind { return KindRevolute }

func (j *Revolute) Angle() float64 { return j.dofs[0].Offset }

func (j *Revolute) LocalTransform() actor.Transform {
	return actor.Rotation(j.dofs[0].Offset, j.Axis)
}

func (j *Revolute) Jacobian() []Twist { return []Twist{{Angular: j.Axis}} }

func (j *Revolute) Layout() Layout { return Layout{Angular: AngularHinge, Axis1: j.Axis} }

func (j *Revolute) Measure(rel actor.Transform) {
	j.dofs[0].Offset = unwrap(j.dofs[0].Offset, twistAngle(rel.Rotation, j.Axis))
}

func (j *Revolute) Validate() error {
	if _, err := unitAxis(j.Axis); err != nil {
		return err
	}
	return j.validateDofs()
}

func (j *Revolute) Clone() Joint { return &Revolute{base: j.clone(), Axis: j.Axis} }

// Ball leaves the three rotations free. Offsets are the rotation vector.
type Ball struct {
	base
}

func NewBall() *Ball {
	return &Ball{base: base{dofs: newDofs(3)}}
}

func (j *Ball) Kind() Kind { return KindBall }

func (j *Ball) LocalTransform() actor.Transform {
	rv := mgl64.Vec3{j.dofs[0].Offset, j.dofs[1].Offset, j.dofs[2].Offset}
	return actor.Transform{Rotation: QuatFromRotationVector(rv)}
}

func (j *Ball) Jacobian() []Twist {
	cols := make([]Twist, 0, 3)
	for _, e := range canonicalAxes() {
		cols = append(cols, Twist{Angular: e})
	}
	return cols
}

func (j *Ball) Layout() Layout { return Layout{Angular: AngularFree} }

func (j *Ball) Measure(rel actor.Transform) {
	rv := RotationVector(rel.Rotation)
	for i := range j.dofs {
		j.dofs[i].Offset = rv[i]
	}
}

func (j *Ball) Validate() error { return j.validateDofs() }
func (j *Ball) Clone() Joint    { return &Ball{base: j.clone()} }

// Universal rotates about Axis1 (attached to the parent) then about Axis2
// (attached to the child). The two axes stay orthogonal.
type Universal struct {
	base
	Axis1 mgl64.Vec3
	Axis2 mgl64.Vec3
}

func NewUniversal(axis1, axis2 mgl64.Vec3) (*Universal, error) {
	a1, err := unitAxis(axis1)
	if err != nil {
		return nil, err
	}
	a2, err := unitAxis(axis2)
	if err != nil {
		return nil, err
	}
	if err := orthogonal(a1, a2); err != nil {
		return nil, err
	}
	return &Universal{base: base{dofs: newDofs(2)}, Axis1: a1, Axis2: a2}, nil
}

func (j *Universal) Kind() Kind { return KindUniversal }

func (j *Universal) LocalTransform() actor.Transform {
	q1 := mgl64.QuatRotate(j.dofs[0].Offset, j.Axis1)
	q2 := mgl64.QuatRotate(j.dofs[1].Offset, j.Axis2)
	return actor.Transform{Rotation: q1.Mul(q2).Normalize()}
}

func (j *Universal) Jacobian() []Twist {
	q1 := mgl64.QuatRotate(j.dofs[0].Offset, j.Axis1)
	return []Twist{
		{Angular: j.Axis1},
		{Angular: q1.Rotate(j.Axis2)},
	}
}

func (j *Universal) Layout() Layout {
	return Layout{Angular: AngularUniversal, Axis1: j.Axis1, Axis2: j.Axis2}
}

func (j *Universal) Measure(rel actor.Transform) {
	// image of the child axis, projected on the plane normal to Axis1
	image := rel.Rotation.Rotate(j.Axis2)
	image = image.Sub(j.Axis1.Mul(image.Dot(j.Axis1)))

	theta1 := math.Atan2(j.Axis2.Cross(image).Dot(j.Axis1), j.Axis2.Dot(image))
	theta1 = unwrap(j.dofs[0].Offset, theta1)

	rest := mgl64.QuatRotate(theta1, j.Axis1).Conjugate().Mul(rel.Rotation)
	j.dofs[0].Offset = theta1
	j.dofs[1].Offset = unwrap(j.dofs[1].Offset, twistAngle(rest, j.Axis2))
}

func (j *Universal) Validate() error {
	if _, err := unitAxis(j.Axis1); err != nil {
		return err
	}
	if _, err := unitAxis(j.Axis2); err != nil {
		return err
	}
	if err := orthogonal(j.Axis1, j.Axis2); err != nil {
		return err
	}
	return j.validateDofs()
}

func (j *Universal) Clone() Joint {
	return &Universal{base: j.clone(), Axis1: j.Axis1, Axis2: j.Axis2}
}
