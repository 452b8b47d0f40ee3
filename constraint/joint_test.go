package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/joint"
	"github.com/go-gl/mathgl/mgl64"
)

// newPendulum hangs a dynamic body one unit along +x from a static pivot at
// the origin. The joint sits at the pivot.
func newPendulum(j joint.Joint) (*JointConstraint, *actor.RigidBody) {
	pivot := createStaticBody(mgl64.Vec3{})
	bob := createDynamicBody(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{})
	c := NewJointConstraint(pivot, bob, actor.NewTransform(), actor.Translation(mgl64.Vec3{-1, 0, 0}), j)
	return c, bob
}

func solvePositions(c *JointConstraint, iterations int) float64 {
	var residual float64
	for i := 0; i < iterations; i++ {
		residual = c.SolvePosition(testDt)
	}
	return residual
}

func TestJointConstraint_RevoluteRestoresHinge(t *testing.T) {
	revolute, err := joint.NewRevolute(mgl64.Vec3{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	c, bob := newPendulum(revolute)

	bob.Transform.Position = mgl64.Vec3{1, 0.1, 0.2}
	bob.Transform.Rotation = mgl64.QuatRotate(0.3, mgl64.Vec3{1, 0, 0})

	first := c.SolvePosition(testDt)
	residual := solvePositions(c, 100)

	if residual >= first {
		t.Errorf("residual did not decrease: %v -> %v", first, residual)
	}
	a1, a2 := c.Anchors()
	if d := a2.Position.Sub(a1.Position).Len(); d > 1e-3 {
		t.Errorf("anchors %v apart", d)
	}
	if dot := a2.Vector(mgl64.Vec3{0, 0, 1}).Dot(mgl64.Vec3{0, 0, 1}); dot < 1-1e-4 {
		t.Errorf("hinge axis tilted, dot = %v", dot)
	}
}

func TestJointConstraint_RevoluteKeepsFreeRotation(t *testing.T) {
	revolute, _ := joint.NewRevolute(mgl64.Vec3{0, 0, 1})
	c, bob := newPendulum(revolute)

	// a pure rotation about the hinge is allowed
	rotation := mgl64.QuatRotate(0.5, mgl64.Vec3{0, 0, 1})
	bob.Transform.Position = rotation.Rotate(mgl64.Vec3{1, 0, 0})
	bob.Transform.Rotation = rotation

	residual := c.SolvePosition(testDt)
	c.Measure()

	if residual > 1e-9 {
		t.Errorf("residual = %v, want 0", residual)
	}
	if math.Abs(revolute.Angle()-0.5) > 1e-9 {
		t.Errorf("angle = %v, want 0.5", revolute.Angle())
	}
}

func TestJointConstraint_PrismaticLocksOffAxis(t *testing.T) {
	prismatic, err := joint.NewPrismatic(mgl64.Vec3{1, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	c, bob := newPendulum(prismatic)

	bob.Transform.Position = mgl64.Vec3{1.4, 0.3, 0}
	solvePositions(c, 50)
	c.Measure()

	if math.Abs(bob.Transform.Position.Y()) > 1e-3 {
		t.Errorf("off-axis drift not corrected: %v", bob.Transform.Position)
	}
	if math.Abs(prismatic.Dof(0).Offset-0.4) > 0.05 {
		t.Errorf("offset = %v, want about 0.4", prismatic.Dof(0).Offset)
	}
}

func TestJointConstraint_Limits(t *testing.T) {
	prismatic, _ := joint.NewPrismatic(mgl64.Vec3{1, 0, 0})
	if err := prismatic.Dof(0).SetLimits(0, 0.5); err != nil {
		t.Fatal(err)
	}
	c, bob := newPendulum(prismatic)

	bob.Transform.Position = mgl64.Vec3{2, 0, 0}
	solvePositions(c, 20)
	c.Measure()

	if got := prismatic.Dof(0).Offset; math.Abs(got-0.5) > 1e-6 {
		t.Errorf("offset = %v, want 0.5", got)
	}
}

func TestJointConstraint_FixedRestoresOrientation(t *testing.T) {
	c, bob := newPendulum(joint.NewFixed(actor.NewTransform()))

	bob.Transform.Rotation = mgl64.QuatRotate(0.4, mgl64.Vec3{0, 1, 0})
	solvePositions(c, 100)

	a1, a2 := c.Anchors()
	if angle := joint.RotationVector(a1.Rotation.Conjugate().Mul(a2.Rotation)).Len(); angle > 1e-3 {
		t.Errorf("relative angle = %v, want 0", angle)
	}
	if d := a2.Position.Sub(a1.Position).Len(); d > 1e-3 {
		t.Errorf("anchors %v apart", d)
	}
}

func TestJointConstraint_Motor(t *testing.T) {
	tests := []struct {
		name     string
		maxForce float64
		expected float64
	}{
		{"unbounded motor reaches target", 0, 2},
		// the clamped impulse turns the bob about the pivot: inertia 1 + 1
		{"bounded motor is clamped", 1, 1 * 0.01 / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revolute, _ := joint.NewRevolute(mgl64.Vec3{0, 0, 1})
			revolute.Dof(0).EnableMotor(2, tt.maxForce)
			c, bob := newPendulum(revolute)

			c.SolveVelocity(0.01)

			if math.Abs(bob.AngularVelocity.Z()-tt.expected) > 1e-9 {
				t.Errorf("angular velocity = %v, want z=%v", bob.AngularVelocity, tt.expected)
			}
		})
	}
}

func TestJointConstraint_Damping(t *testing.T) {
	revolute, _ := joint.NewRevolute(mgl64.Vec3{0, 0, 1})
	revolute.Dof(0).Damping = 10
	c, bob := newPendulum(revolute)
	bob.AngularVelocity = mgl64.Vec3{0, 0, 1}

	c.SolveVelocity(0.01)

	if math.Abs(bob.AngularVelocity.Z()-0.9) > 1e-9 {
		t.Errorf("angular velocity = %v, want z=0.9", bob.AngularVelocity)
	}
}

func TestJointConstraint_DampingKeepsPivotAtRest(t *testing.T) {
	revolute, _ := joint.NewRevolute(mgl64.Vec3{0, 0, 1})
	revolute.Dof(0).Damping = 10
	c, bob := newPendulum(revolute)
	// swinging about the pivot at the origin
	bob.AngularVelocity = mgl64.Vec3{0, 0, 1}
	bob.Velocity = mgl64.Vec3{0, 1, 0}

	c.SolveVelocity(0.01)

	if math.Abs(bob.AngularVelocity.Z()-0.9) > 1e-9 {
		t.Errorf("angular velocity = %v, want z=0.9", bob.AngularVelocity)
	}
	if bob.Velocity.Sub(mgl64.Vec3{0, 0.9, 0}).Len() > 1e-9 {
		t.Errorf("velocity = %v, want (0, 0.9, 0)", bob.Velocity)
	}
	if v := bob.PointVelocity(mgl64.Vec3{}); v.Len() > 1e-9 {
		t.Errorf("pivot moves at %v", v)
	}
}

func TestJointConstraint_HelicalConvertsTranslation(t *testing.T) {
	helical, err := joint.NewHelical(mgl64.Vec3{1, 0, 0}, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	c, bob := newPendulum(helical)

	// pushed along the screw axis without turning
	bob.Transform.Position = mgl64.Vec3{1.2, 0, 0}
	solvePositions(c, 10)
	c.Measure()

	// inverse masses 1 along the axis, 0.25 through the pitch
	angle := helical.Dof(0).Offset
	if math.Abs(angle-0.08) > 1e-3 {
		t.Errorf("angle = %v, want 0.08", angle)
	}
	if got := bob.Transform.Position.X(); math.Abs(got-1.04) > 1e-3 {
		t.Errorf("x = %v, want 1.04", got)
	}
	a1, a2 := c.Anchors()
	if slip := a2.Position.Sub(a1.Position).X() - 0.5*angle; math.Abs(slip) > 1e-8 {
		t.Errorf("translation leaves the screw by %v", slip)
	}
}

func TestJointConstraint_HelicalVelocity(t *testing.T) {
	helical, _ := joint.NewHelical(mgl64.Vec3{1, 0, 0}, 0.5)
	c, bob := newPendulum(helical)
	bob.Velocity = mgl64.Vec3{0.5, 0, 0}
	bob.AngularVelocity = mgl64.Vec3{1, 0, 0}

	c.MeasureVelocity()
	if got := helical.Dof(0).Velocity; math.Abs(got-1) > 1e-12 {
		t.Errorf("velocity = %v, want 1", got)
	}

	bob.Velocity = mgl64.Vec3{}
	bob.AngularVelocity = mgl64.Vec3{}
	helical.Dof(0).EnableMotor(2, 0)
	c.SolveVelocity(0.01)

	if bob.AngularVelocity.Sub(mgl64.Vec3{2, 0, 0}).Len() > 1e-9 {
		t.Errorf("angular velocity = %v, want (2, 0, 0)", bob.AngularVelocity)
	}
	if bob.Velocity.Sub(mgl64.Vec3{1, 0, 0}).Len() > 1e-9 {
		t.Errorf("velocity = %v, want the pitch times the rate", bob.Velocity)
	}
}

func TestJointConstraint_MeasureVelocity(t *testing.T) {
	prismatic, _ := joint.NewPrismatic(mgl64.Vec3{1, 0, 0})
	c, bob := newPendulum(prismatic)
	bob.Velocity = mgl64.Vec3{3, 1, 0}

	c.MeasureVelocity()

	if got := prismatic.Dof(0).Velocity; math.Abs(got-3) > 1e-12 {
		t.Errorf("velocity = %v, want 3", got)
	}
}

func TestJointConstraint_StaticPairIsSkipped(t *testing.T) {
	revolute, _ := joint.NewRevolute(mgl64.Vec3{0, 0, 1})
	a := createStaticBody(mgl64.Vec3{})
	b := createStaticBody(mgl64.Vec3{3, 0, 0})
	c := NewJointConstraint(a, b, actor.NewTransform(), actor.NewTransform(), revolute)

	if residual := c.SolvePosition(testDt); residual != 0 {
		t.Errorf("residual = %v, want 0", residual)
	}
	if b.Transform.Position != (mgl64.Vec3{3, 0, 0}) {
		t.Errorf("static body moved to %v", b.Transform.Position)
	}
}
