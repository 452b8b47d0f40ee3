package joint

import (
	"fmt"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl64"
)

// Helical rotates the child about Axis and translates it along Axis by
// Pitch per radian.
type Helical struct {
	base
	Axis  mgl64.Vec3
	Pitch float64
}

func NewHelical(axis mgl64.Vec3, pitch float64) (*Helical, error) {
	a, err := unitAxis(axis)
	if err != nil {
		return nil, err
	}
	if !scalar.IsFinite(pitch) {
		return nil, fmt.Errorf("%w: pitch %v", ErrNonFinite, pitch)
	}
	return &Helical{base: base{dofs: newDofs(1)}, Axis: a, Pitch: pitch}, nil
}

func (j *Helical) Kind() Kind { return KindHelical }

func (j *Helical) LocalTransform() actor.Transform {
	angle := j.dofs[0].Offset
	return actor.Transform{
		Position: j.Axis.Mul(j.Pitch * angle),
		Rotation: mgl64.QuatRotate(angle, j.Axis),
	}
}

func (j *Helical) Jacobian() []Twist {
	return []Twist{{Angular: j.Axis, Linear: j.Axis.Mul(j.Pitch)}}
}

func (j *Helical) Layout() Layout {
	return Layout{
		LinearFree: []mgl64.Vec3{j.Axis},
		Angular:    AngularHinge,
		Axis1:      j.Axis,
		Screw:      true,
		Pitch:      j.Pitch,
	}
}

func (j *Helical) Measure(rel actor.Transform) {
	j.dofs[0].Offset = unwrap(j.dofs[0].Offset, twistAngle(rel.Rotation, j.Axis))
}

func (j *Helical) Validate() error {
	if _, err := unitAxis(j.Axis); err != nil {
		return err
	}
	if !scalar.IsFinite(j.Pitch) {
		return fmt.Errorf("%w: pitch %v", ErrNonFinite, j.Pitch)
	}
	return j.validateDofs()
}

func (j *Helical) Clone() Joint {
	return &Helical{base: j.clone(), Axis: j.Axis, Pitch: j.Pitch}
}

// Planar translates the child along Axis1 and Axis2 and rotates it about
// their normal. Offsets: translation 1, translation 2, angle.
type Planar struct {
	base
	Axis1 mgl64.Vec3
	Axis2 mgl64.Vec3
}

func NewPlanar(axis1, axis2 mgl64.Vec3) (*Planar, error) {
	a1, a2, err := planeAxes(axis1, axis2)
	if err != nil {
		return nil, err
	}
	return &Planar{base: base{dofs: newDofs(3)}, Axis1: a1, Axis2: a2}, nil
}

func (j *Planar) Kind() Kind { return KindPlanar }

// Normal is the rotation axis.
func (j *Planar) Normal() mgl64.Vec3 { return j.Axis1.Cross(j.Axis2).Normalize() }

func (j *Planar) LocalTransform() actor.Transform {
	return actor.Transform{
		Position: j.Axis1.Mul(j.dofs[0].Offset).Add(j.Axis2.Mul(j.dofs[1].Offset)),
		Rotation: mgl64.QuatRotate(j.dofs[2].Offset, j.Normal()),
	}
}

func (j *Planar) Jacobian() []Twist {
	return []Twist{{Linear: j.Axis1}, {Linear: j.Axis2}, {Angular: j.Normal()}}
}

func (j *Planar) Layout() Layout {
	return Layout{
		LinearFree: []mgl64.Vec3{j.Axis1, j.Axis2},
		Angular:    AngularHinge,
		Axis1:      j.Normal(),
	}
}

func (j *Planar) Measure(rel actor.Transform) {
	j.dofs[0].Offset = rel.Position.Dot(j.Axis1)
	j.dofs[1].Offset = rel.Position.Dot(j.Axis2)
	j.dofs[2].Offset = unwrap(j.dofs[2].Offset, twistAngle(rel.Rotation, j.Normal()))
}

func (j *Planar) Validate() error {
	if _, _, err := planeAxes(j.Axis1, j.Axis2); err != nil {
		return err
	}
	return j.validateDofs()
}

func (j *Planar) Clone() Joint {
	return &Planar{base: j.clone(), Axis1: j.Axis1, Axis2: j.Axis2}
}

// PinSlot slides the child along AxisV and rotates it about AxisW, the two
// motions being independent. Offsets: translation, angle.
type PinSlot struct {
	base
	AxisV mgl64.Vec3
	AxisW mgl64.Vec3
}

func NewPinSlot(axisV, axisW mgl64.Vec3) (*PinSlot, error) {
	v, err := unitAxis(axisV)
	if err != nil {
		return nil, err
	}
	w, err := unitAxis(axisW)
	if err != nil {
		return nil, err
	}
	return &PinSlot{base: base{dofs: newDofs(2)}, AxisV: v, AxisW: w}, nil
}

func (j *PinSlot) Kind() Kind { return KindPinSlot }

func (j *PinSlot) LocalTransform() actor.Transform {
	return actor.Transform{
		Position: j.AxisV.Mul(j.dofs[0].Offset),
		Rotation: mgl64.QuatRotate(j.dofs[1].Offset, j.AxisW),
	}
}

func (j *PinSlot) Jacobian() []Twist {
	return []Twist{{Linear: j.AxisV}, {Angular: j.AxisW}}
}

func (j *PinSlot) Layout() Layout {
	return Layout{LinearFree: []mgl64.Vec3{j.AxisV}, Angular: AngularHinge, Axis1: j.AxisW}
}

func (j *PinSlot) Measure(rel actor.Transform) {
	j.dofs[0].Offset = rel.Position.Dot(j.AxisV)
	j.dofs[1].Offset = unwrap(j.dofs[1].Offset, twistAngle(rel.Rotation, j.AxisW))
}

func (j *PinSlot) Validate() error {
	if _, err := unitAxis(j.AxisV); err != nil {
		return err
	}
	if _, err := unitAxis(j.AxisW); err != nil {
		return err
	}
	return j.validateDofs()
}

func (j *PinSlot) Clone() Joint {
	return &PinSlot{base: j.clone(), AxisV: j.AxisV, AxisW: j.AxisW}
}
