package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/tendon/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func TestComputeRestitution(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"both zero restitution", 0, 0, 0},
		{"one zero, one high restitution - returns mean", 0, 0.8, 0.4},
		{"both same restitution", 0.5, 0.5, 0.5},
		{"different restitutions - returns mean", 0.3, 0.7, 0.5},
		{"both perfect restitution", 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeRestitution(actor.Material{Restitution: tt.a}, actor.Material{Restitution: tt.b})
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("ComputeRestitution() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestComputeFriction(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"frictionless side", 0, 0.9, 0},
		{"same material", 0.5, 0.5, 0.5},
		{"geometric mean", 0.25, 1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matA := actor.Material{StaticFriction: tt.a, DynamicFriction: tt.a}
			matB := actor.Material{StaticFriction: tt.b, DynamicFriction: tt.b}
			if got := ComputeStaticFriction(matA, matB); math.Abs(got-tt.expected) > 1e-10 {
				t.Errorf("ComputeStaticFriction() = %v, want %v", got, tt.expected)
			}
			if got := ComputeDynamicFriction(matA, matB); math.Abs(got-tt.expected) > 1e-10 {
				t.Errorf("ComputeDynamicFriction() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClampSmallVelocities(t *testing.T) {
	tests := []struct {
		name             string
		initialVelocity  mgl64.Vec3
		expectedVelocity mgl64.Vec3
	}{
		{"zero velocity stays zero", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 0}},
		{"very small velocity gets clamped", mgl64.Vec3{1e-9, 1e-9, 1e-9}, mgl64.Vec3{0, 0, 0}},
		{"normal velocity is not clamped", mgl64.Vec3{1.0, 2.0, 3.0}, mgl64.Vec3{1.0, 2.0, 3.0}},
		{"small but above threshold velocity is not clamped", mgl64.Vec3{2e-5, 0, 0}, mgl64.Vec3{2e-5, 0, 0}},
		{"negative velocity gets clamped if small enough", mgl64.Vec3{-1e-9, -1e-9, -1e-9}, mgl64.Vec3{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := actor.NewRigidBody(actor.NewTransform(), actor.BodyTypeDynamic)
			rb.Velocity = tt.initialVelocity

			clampSmallVelocities(rb)

			if rb.Velocity != tt.expectedVelocity {
				t.Errorf("clampSmallVelocities() velocity = %v, want %v", rb.Velocity, tt.expectedVelocity)
			}
		})
	}
}

func TestSolveLinear_StaticBodyDoesNotMove(t *testing.T) {
	static := actor.NewRigidBody(actor.NewTransform(), actor.BodyTypeStatic)
	dynamic := actor.NewRigidBody(actor.Translation(mgl64.Vec3{0, 1, 0}), actor.BodyTypeDynamic)

	lambda := solveLinear(static, dynamic, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, -0.5, 0)

	if math.Abs(lambda-0.5) > 1e-12 {
		t.Errorf("lambda = %v, want 0.5", lambda)
	}
	if static.Transform.Position != (mgl64.Vec3{}) {
		t.Errorf("static body moved to %v", static.Transform.Position)
	}
	if math.Abs(dynamic.Transform.Position.Y()-1.5) > 1e-12 {
		t.Errorf("dynamic body at %v, want y=1.5", dynamic.Transform.Position)
	}
}

func TestSolveLinear_TwoStaticBodies(t *testing.T) {
	a := actor.NewRigidBody(actor.NewTransform(), actor.BodyTypeStatic)
	b := actor.NewRigidBody(actor.NewTransform(), actor.BodyTypeKinematic)

	if lambda := solveLinear(a, b, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 1, 0); lambda != 0 {
		t.Errorf("lambda = %v, want 0", lambda)
	}
}

func TestSolveAngular_SplitsByInertia(t *testing.T) {
	a := actor.NewRigidBody(actor.NewTransform(), actor.BodyTypeDynamic)
	b := actor.NewRigidBody(actor.NewTransform(), actor.BodyTypeDynamic)
	axis := mgl64.Vec3{0, 0, 1}

	solveAngular(a, b, axis, -0.02, 0)

	angleA := 2 * math.Atan2(a.Transform.Rotation.V.Z(), a.Transform.Rotation.W)
	angleB := 2 * math.Atan2(b.Transform.Rotation.V.Z(), b.Transform.Rotation.W)
	if math.Abs(angleA+0.01) > 1e-5 || math.Abs(angleB-0.01) > 1e-5 {
		t.Errorf("angles = %v, %v, want -0.01, 0.01", angleA, angleB)
	}
}
