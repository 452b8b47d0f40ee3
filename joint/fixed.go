package joint

import (
	"fmt"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl64"
)

// Fixed welds the child anchor to the parent anchor at a constant isometry.
type Fixed struct {
	base
	Iso actor.Transform
}

func NewFixed(iso actor.Transform) *Fixed {
	return &Fixed{Iso: iso.Normalize()}
}

func (j *Fixed) Kind() Kind                      { return KindFixed }
func (j *Fixed) LocalTransform() actor.Transform { return j.Iso }
func (j *Fixed) Jacobian() []Twist               { return nil }
func (j *Fixed) Layout() Layout                  { return Layout{Angular: AngularLocked} }
func (j *Fixed) Measure(actor.Transform)         {}
func (j *Fixed) Clone() Joint                    { return &Fixed{Iso: j.Iso} }

func (j *Fixed) Validate() error {
	if !scalar.IsFiniteVec3(j.Iso.Position) {
		return fmt.Errorf("%w: fixed joint position %v", ErrNonFinite, j.Iso.Position)
	}
	return nil
}

// Free leaves all six relative motions free. Offsets 0..2 are the
// translation, 3..5 the rotation vector.
type Free struct {
	base
}

func NewFree() *Free {
	return &Free{base: base{dofs: newDofs(6)}}
}

func (j *Free) Kind() Kind { return KindFree }

func (j *Free) LocalTransform() actor.Transform {
	d := j.dofs
	return actor.Transform{
		Position: mgl64.Vec3{d[0].Offset, d[1].Offset, d[2].Offset},
		Rotation: QuatFromRotationVector(mgl64.Vec3{d[3].Offset, d[4].Offset, d[5].Offset}),
	}
}

func (j *Free) Jacobian() []Twist {
	cols := make([]Twist, 0, 6)
	for _, e := range canonicalAxes() {
		cols = append(cols, Twist{Linear: e})
	}
	for _, e := range canonicalAxes() {
		cols = append(cols, Twist{Angular: e})
	}
	return cols
}

func (j *Free) Layout() Layout {
	return Layout{LinearFree: canonicalAxes(), Angular: AngularFree}
}

func (j *Free) Measure(rel actor.Transform) {
	rv := RotationVector(rel.Rotation)
	for i := 0; i < 3; i++ {
		j.dofs[i].Offset = rel.Position[i]
		j.dofs[3+i].Offset = rv[i]
	}
}

func (j *Free) Validate() error { return j.validateDofs() }
func (j *Free) Clone() Joint    { return &Free{base: j.clone()} }
