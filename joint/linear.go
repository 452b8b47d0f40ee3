package joint

import (
	"github.com/akmonengine/tendon/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Prismatic translates the child along Axis.
type Prismatic struct {
	base
	Axis mgl64.Vec3
}

func NewPrismatic(axis mgl64.Vec3) (*Prismatic, error) {
	a, err := unitAxis(axis)
	if err != nil {
		return nil, err
	}
	return &Prismatic{base: base{dofs: newDofs(1)}, Axis: a}, nil
}

func (j *Prismatic) Kind() Kind { return KindPrismatic }

func (j *Prismatic) LocalTransform() actor.Transform {
	return actor.Translation(j.Axis.Mul(j.dofs[0].Offset))
}

func (j *Prismatic) Jacobian() []Twist { return []Twist{{Linear: j.Axis}} }

func (j *Prismatic) Layout() Layout {
	return Layout{LinearFree: []mgl64.Vec3{j.Axis}, Angular: AngularLocked}
}

func (j *Prismatic) Measure(rel actor.Transform) {
	j.dofs[0].Offset = rel.Position.Dot(j.Axis)
}

func (j *Prismatic) Validate() error {
	if _, err := unitAxis(j.Axis); err != nil {
		return err
	}
	return j.validateDofs()
}

func (j *Prismatic) Clone() Joint { return &Prismatic{base: j.clone(), Axis: j.Axis} }

// Rectangular translates the child in the plane spanned by Axis1 and Axis2,
// without rotation.
type Rectangular struct {
	base
	Axis1 mgl64.Vec3
	Axis2 mgl64.Vec3
}

func NewRectangular(axis1, axis2 mgl64.Vec3) (*Rectangular, error) {
	a1, a2, err := planeAxes(axis1, axis2)
	if err != nil {
		return nil, err
	}
	return &Rectangular{base: base{dofs: newDofs(2)}, Axis1: a1, Axis2: a2}, nil
}

func (j *Rectangular) Kind() Kind { return KindRectangular }

func (j *Rectangular) LocalTransform() actor.Transform {
	return actor.Translation(j.Axis1.Mul(j.dofs[0].Offset).Add(j.Axis2.Mul(j.dofs[1].Offset)))
}

func (j *Rectangular) Jacobian() []Twist {
	return []Twist{{Linear: j.Axis1}, {Linear: j.Axis2}}
}

func (j *Rectangular) Layout() Layout {
	return Layout{LinearFree: []mgl64.Vec3{j.Axis1, j.Axis2}, Angular: AngularLocked}
}

func (j *Rectangular) Measure(rel actor.Transform) {
	j.dofs[0].Offset = rel.Position.Dot(j.Axis1)
	j.dofs[1].Offset = rel.Position.Dot(j.Axis2)
}

func (j *Rectangular) Validate() error {
	if _, _, err := planeAxes(j.Axis1, j.Axis2); err != nil {
		return err
	}
	return j.validateDofs()
}

func (j *Rectangular) Clone() Joint {
	return &Rectangular{base: j.clone(), Axis1: j.Axis1, Axis2: j.Axis2}
}

func planeAxes(axis1, axis2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, error) {
	a1, err := unitAxis(axis1)
	if err != nil {
		return a1, a1, err
	}
	a2, err := unitAxis(axis2)
	if err != nil {
		return a1, a2, err
	}
	if err := orthogonal(a1, a2); err != nil {
		return a1, a2, err
	}
	return a1, a2, nil
}
