package tendon

import (
	"math"
	"testing"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/joint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func revoluteZ(t *testing.T) joint.Joint {
	t.Helper()
	j, err := joint.NewRevolute(mgl64.Vec3{0, 0, 1})
	require.NoError(t, err)
	return j
}

// pendulumDesc hangs a unit link one meter below a pivot at (0, 2, 0).
func pendulumDesc(t *testing.T, j joint.Joint) *MultibodyDesc {
	return NewMultibodyDesc(j).
		SetParentShift(mgl64.Vec3{0, 2, 0}).
		SetBodyShift(mgl64.Vec3{0, 1, 0})
}

func TestMultibodyDesc_BuildOrder(t *testing.T) {
	root := NewMultibodyDesc(revoluteZ(t))
	a := root.AddChild(revoluteZ(t))
	a.AddChild(revoluteZ(t))
	root.AddChild(revoluteZ(t))

	mb, err := root.Build()
	require.NoError(t, err)
	require.Equal(t, 4, mb.Len())

	// depth-first preorder
	wantParents := []int{-1, 0, 1, 0}
	for i, want := range wantParents {
		link, ok := mb.Link(i)
		require.True(t, ok)
		assert.Equal(t, i, link.Index())
		assert.Equal(t, want, link.Parent(), "link %d", i)
	}
}

func TestMultibodyDesc_Invalid(t *testing.T) {
	_, err := NewMultibodyDesc(nil).Build()
	assert.ErrorIs(t, err, ErrInvalidMultibody)

	root := NewMultibodyDesc(revoluteZ(t))
	root.AddChild(&joint.Revolute{})
	_, err = root.Build()
	assert.ErrorIs(t, err, ErrInvalidMultibody)
	assert.ErrorIs(t, err, joint.ErrZeroAxis)

	_, err = NewMultibodyDesc(revoluteZ(t)).SetParentShift(mgl64.Vec3{math.NaN(), 0, 0}).Build()
	assert.ErrorIs(t, err, ErrInvalidMultibody)
}

func TestMultibody_LinkLookup(t *testing.T) {
	for _, children := range []int{0, 1, 5} {
		w := NewWorld(gravity)
		desc := NewMultibodyDesc(revoluteZ(t))
		parent := desc
		for range children {
			parent = parent.AddChild(revoluteZ(t)).SetParentShift(mgl64.Vec3{0, -1, 0})
		}

		h, err := w.InsertMultibody(desc)
		require.NoError(t, err)

		mb, ok := w.Multibody(h)
		require.True(t, ok)
		assert.Equal(t, children+1, mb.Len())

		for i := 0; i <= children; i++ {
			link, ok := w.MultibodyLink(h, i)
			require.True(t, ok, "link %d", i)
			assert.Equal(t, i, link.Index())
		}
		_, ok = w.MultibodyLink(h, children+1)
		assert.False(t, ok)
		_, ok = w.MultibodyLink(h, -1)
		assert.False(t, ok)

		require.True(t, w.RemoveMultibody(h))
		_, ok = w.MultibodyLink(h, 0)
		assert.False(t, ok, "stale multibody handle")
		assert.False(t, w.RemoveMultibody(h))
	}
}

func TestMultibody_ForwardKinematics(t *testing.T) {
	w := NewWorld(gravity)
	desc := pendulumDesc(t, revoluteZ(t))
	desc.AddChild(revoluteZ(t)).SetBodyShift(mgl64.Vec3{0, 1, 0}).SetParentShift(mgl64.Vec3{0, -1, 0})

	h, err := w.InsertMultibody(desc)
	require.NoError(t, err)
	mb, _ := w.Multibody(h)

	root, _ := mb.Link(0)
	child, _ := mb.Link(1)
	assert.True(t, root.Body.Transform.Position.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9), "root at %v", root.Body.Transform.Position)
	assert.True(t, child.Body.Transform.Position.ApproxEqualThreshold(mgl64.Vec3{0, -1, 0}, 1e-9), "child at %v", child.Body.Transform.Position)

	// swing the root a quarter turn: the chain becomes horizontal
	require.NoError(t, mb.SetCoordinates([]float64{math.Pi / 2, 0}))
	assert.True(t, root.Body.Transform.Position.ApproxEqualThreshold(mgl64.Vec3{1, 2, 0}, 1e-9), "root at %v", root.Body.Transform.Position)
	assert.True(t, child.Body.Transform.Position.ApproxEqualThreshold(mgl64.Vec3{3, 2, 0}, 1e-9), "child at %v", child.Body.Transform.Position)
	assert.InDeltaSlice(t, []float64{math.Pi / 2, 0}, mb.Coordinates(), 1e-12)

	assert.ErrorIs(t, mb.SetCoordinates([]float64{1}), ErrInvalidMultibody)
}

func TestMultibody_RevoluteKeepsHingeAxis(t *testing.T) {
	w := NewWorld(gravity, WithSleep(0, 0))
	h, err := w.InsertMultibody(pendulumDesc(t, revoluteZ(t)))
	require.NoError(t, err)
	mb, _ := w.Multibody(h)
	require.NoError(t, mb.SetCoordinates([]float64{math.Pi / 2}))

	link, _ := w.MultibodyLink(h, 0)
	// push out of the hinge plane
	w.AddForceGenerator(func(*World, float64) {
		link.Body.AddTorque(mgl64.Vec3{5, 0, 0})
		link.Body.AddForce(mgl64.Vec3{0, 0, 3})
	})

	for range 120 {
		w.Step(testDt)

		_, a2 := link.Constraint().Anchors()
		axis := a2.Vector(mgl64.Vec3{0, 0, 1})
		require.Greater(t, axis.Z(), 0.999, "hinge axis drifted to %v", axis)
		require.Less(t, math.Abs(a2.Position.Z()), 0.01, "anchor left the pivot: %v", a2.Position)
	}

	// the pendulum swung: the offset went through zero
	assert.Less(t, link.Dof(0).Offset, math.Pi/2)
}

func TestMultibody_MotorConvergence(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	h, err := w.InsertMultibody(pendulumDesc(t, revoluteZ(t)))
	require.NoError(t, err)

	require.True(t, w.EnableMotor(h, 0, 0, 2, 0))
	for range 60 {
		w.Step(testDt)
	}

	link, _ := w.MultibodyLink(h, 0)
	assert.InDelta(t, 2, link.Dof(0).Velocity, 1e-3)
	assert.False(t, link.Body.IsSleeping, "a motorized link never sleeps")

	require.True(t, w.DisableMotor(h, 0, 0))
	assert.False(t, link.Dof(0).MotorEnabled)
}

func TestMultibody_MotorHandles(t *testing.T) {
	w := NewWorld(gravity)
	h, err := w.InsertMultibody(pendulumDesc(t, revoluteZ(t)))
	require.NoError(t, err)

	assert.False(t, w.EnableMotor(h, 1, 0, 1, 0), "out of range link")
	assert.False(t, w.EnableMotor(h, 0, 1, 1, 0), "out of range dof")
	assert.False(t, w.EnableMotor(MultibodyHandle{}, 0, 0, 1, 0), "zero handle")
	assert.False(t, w.SetLimits(h, 0, 0, 1, -1), "inverted limits")
	assert.True(t, w.SetMotorVelocity(h, 0, 0, 3))

	link, _ := w.MultibodyLink(h, 0)
	assert.Equal(t, 3.0, link.Dof(0).TargetVelocity)
	assert.False(t, link.Dof(0).MotorEnabled)
}

func TestMultibody_LimitsRespected(t *testing.T) {
	prismatic, err := joint.NewPrismatic(mgl64.Vec3{1, 0, 0})
	require.NoError(t, err)

	// gravity pulls along the slider
	w := NewWorld(mgl64.Vec3{-9.81, 0, 0}, WithSleep(0, 0))
	h, err := w.InsertMultibody(NewMultibodyDesc(prismatic))
	require.NoError(t, err)
	require.True(t, w.SetLimits(h, 0, 0, -0.5, 0.5))

	link, _ := w.MultibodyLink(h, 0)
	for range 120 {
		w.Step(testDt)
		require.GreaterOrEqual(t, link.Dof(0).Offset, -0.5-1e-2)
	}
	assert.InDelta(t, -0.5, link.Dof(0).Offset, 1e-2)
	assert.InDelta(t, 0, link.Body.Transform.Position.Y(), 1e-6, "the slider stays on its axis")

	require.True(t, w.DisableLimits(h, 0, 0))
	w.Step(testDt)
	w.Step(testDt)
	assert.Less(t, link.Dof(0).Offset, -0.5)
}

func TestMultibody_MotorStopsAtLimits(t *testing.T) {
	tests := []struct {
		name   string
		target float64
		bound  float64
	}{
		{"driven into the max bound", 3, 0.5},
		{"driven into the min bound", -3, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prismatic, err := joint.NewPrismatic(mgl64.Vec3{1, 0, 0})
			require.NoError(t, err)
			w := NewWorld(mgl64.Vec3{}, WithSleep(0, 0))
			h, err := w.InsertMultibody(NewMultibodyDesc(prismatic))
			require.NoError(t, err)
			require.True(t, w.SetLimits(h, 0, 0, -0.5, 0.5))
			require.True(t, w.EnableMotor(h, 0, 0, tt.target, 50))

			link, _ := w.MultibodyLink(h, 0)
			for range 120 {
				w.Step(testDt)
				require.LessOrEqual(t, math.Abs(link.Dof(0).Offset), 0.5+1e-2)
			}
			assert.InDelta(t, tt.bound, link.Dof(0).Offset, 1e-2)
		})
	}
}

func TestMultibody_RevoluteMaxLimit(t *testing.T) {
	w := NewWorld(gravity, WithSleep(0, 0))
	h, err := w.InsertMultibody(pendulumDesc(t, revoluteZ(t)))
	require.NoError(t, err)
	link, _ := w.MultibodyLink(h, 0)
	// swings toward positive angles
	link.Dof(0).Velocity = 4
	mb, _ := w.Multibody(h)
	mb.ForwardKinematics()
	require.True(t, w.SetLimits(h, 0, 0, -0.3, 0.3))

	var highest float64
	for range 120 {
		w.Step(testDt)
		highest = max(highest, link.Dof(0).Offset)
	}
	assert.LessOrEqual(t, highest, 0.3+1e-2)
	assert.Greater(t, highest, 0.25, "the link reached the bound")
}

func TestMultibody_HelicalScrewsUnderGravity(t *testing.T) {
	helical, err := joint.NewHelical(mgl64.Vec3{0, 1, 0}, 0.5)
	require.NoError(t, err)
	w := NewWorld(gravity, WithSleep(0, 0))
	h, err := w.InsertMultibody(NewMultibodyDesc(helical).SetParentShift(mgl64.Vec3{0, 2, 0}))
	require.NoError(t, err)
	link, _ := w.MultibodyLink(h, 0)

	for range 60 {
		w.Step(testDt)
	}

	// the weight turns the screw: about -2 rad after a second
	angle := link.Dof(0).Offset
	assert.Less(t, angle, -1.0)
	assert.Less(t, link.Dof(0).Velocity, 0.0)
	assert.InDelta(t, 0.5*angle, link.Body.Transform.Position.Y()-2, 1e-3, "translation follows the pitch")
	assert.InDelta(t, 0, link.Body.Transform.Position.X(), 1e-6)
}

func TestMultibody_Damping(t *testing.T) {
	w := NewWorld(mgl64.Vec3{}, WithSleep(0, 0))
	h, err := w.InsertMultibody(pendulumDesc(t, revoluteZ(t)))
	require.NoError(t, err)
	mb, _ := w.Multibody(h)
	link, _ := mb.Link(0)

	link.Dof(0).Velocity = 2
	mb.ForwardKinematics()
	mb.SetDamping(5)

	for range 60 {
		w.Step(testDt)
	}
	assert.Less(t, math.Abs(link.Dof(0).Velocity), 0.1)
}

func TestMultibody_Colliders(t *testing.T) {
	w := NewWorld(gravity)
	desc := pendulumDesc(t, revoluteZ(t))
	desc.AddChild(revoluteZ(t)).SetParentShift(mgl64.Vec3{0, -1, 0}).SetBodyShift(mgl64.Vec3{0, 1, 0})
	h, err := w.InsertMultibody(desc)
	require.NoError(t, err)

	box := &actor.Box{HalfExtents: mgl64.Vec3{0.2, 1.2, 0.2}}
	var handles []ColliderHandle
	for i := range 2 {
		ch, err := w.InsertCollider(ColliderDesc{Shape: box, Material: DefaultMaterial}, PartOfLink(h, i))
		require.NoError(t, err)
		handles = append(handles, ch)
	}
	_, err = w.InsertCollider(ColliderDesc{Shape: box}, PartOfLink(h, 2))
	assert.ErrorIs(t, err, ErrInvalidBodyPart)

	// overlapping links of one multibody do not collide
	report := w.Step(testDt)
	assert.Zero(t, report.Contacts)

	require.True(t, w.RemoveMultibody(h))
	for _, ch := range handles {
		_, ok := w.Collider(ch)
		assert.False(t, ok)
	}
}
