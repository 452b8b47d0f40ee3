package actor

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// Helper functions
func vec3Equal(a, b mgl64.Vec3, tolerance float64) bool {
	return math.Abs(a.X()-b.X()) < tolerance &&
		math.Abs(a.Y()-b.Y()) < tolerance &&
		math.Abs(a.Z()-b.Z()) < tolerance
}

func floatEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

// Helper function pour comparer les matrices 3x3
func mat3Equal(a, b mgl64.Mat3, tolerance float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) >= tolerance {
				return false
			}
		}
	}
	return true
}

// ========== INERTIA ==========
func TestBoxComputeInertia(t *testing.T) {
	tests := []struct {
		name         string
		box          *Box
		mass         float64
		expectedDiag mgl64.Vec3
	}{
		{"unit cube", &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, 12.0, mgl64.Vec3{8, 8, 8}},
		{"rectangular box 2x3x4", &Box{HalfExtents: mgl64.Vec3{2, 3, 4}}, 12.0, mgl64.Vec3{100, 80, 52}},
		{"thin box", &Box{HalfExtents: mgl64.Vec3{0.1, 5, 0.1}}, 60.0, mgl64.Vec3{500.2, 0.4, 500.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inertia := tt.box.ComputeInertia(tt.mass)
			if !mat3Equal(inertia, mgl64.Diag3(tt.expectedDiag), 1e-9) {
				t.Errorf("ComputeInertia() = %v, want diag %v", inertia, tt.expectedDiag)
			}
		})
	}
}

func TestSphereComputeInertia(t *testing.T) {
	s := &Sphere{Radius: 2}
	expected := 0.4 * 5 * 4
	if got := s.ComputeInertia(5); !mat3Equal(got, mgl64.Diag3(mgl64.Vec3{expected, expected, expected}), 1e-9) {
		t.Errorf("ComputeInertia() = %v", got)
	}
}

func TestComputeMass(t *testing.T) {
	tests := []struct {
		name     string
		shape    ShapeInterface
		density  float64
		expected float64
	}{
		{"box", &Box{HalfExtents: mgl64.Vec3{1, 2, 3}}, 2, 96},
		{"sphere", &Sphere{Radius: 1}, 3, 4 * math.Pi},
		{"plane", &Plane{Normal: mgl64.Vec3{0, 1, 0}}, 1, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.shape.ComputeMass(tt.density)
			if math.IsInf(tt.expected, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("ComputeMass() = %v, want +Inf", got)
				}
				return
			}
			if !floatEqual(got, tt.expected, 1e-9) {
				t.Errorf("ComputeMass() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// ========== CONSTRUCTORS ==========
func TestShapeValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() error
		wantErr bool
	}{
		{"valid box", func() error { _, err := NewBox(mgl64.Vec3{1, 1, 1}); return err }, false},
		{"negative half extent", func() error { _, err := NewBox(mgl64.Vec3{1, -1, 1}); return err }, true},
		{"nan half extent", func() error { _, err := NewBox(mgl64.Vec3{math.NaN(), 1, 1}); return err }, true},
		{"valid sphere", func() error { _, err := NewSphere(0.5); return err }, false},
		{"negative radius", func() error { _, err := NewSphere(-1); return err }, true},
		{"infinite radius", func() error { _, err := NewSphere(math.Inf(1)); return err }, true},
		{"valid plane", func() error { _, err := NewPlane(mgl64.Vec3{0, 2, 0}, 0); return err }, false},
		{"zero normal", func() error { _, err := NewPlane(mgl64.Vec3{}, 0); return err }, true},
		{"empty compound", func() error { _, err := NewCompound(); return err }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidShape) {
				t.Errorf("error %v does not wrap ErrInvalidShape", err)
			}
		})
	}
}

func TestNewPlane_NormalizesNormal(t *testing.T) {
	p, err := NewPlane(mgl64.Vec3{0, 3, 0}, -1)
	if err != nil {
		t.Fatal(err)
	}
	if !vec3Equal(p.Normal, mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Errorf("Normal = %v", p.Normal)
	}

	normal, point := p.WorldPlane(Translation(mgl64.Vec3{0, 2, 0}))
	if !vec3Equal(normal, mgl64.Vec3{0, 1, 0}, 1e-12) || !vec3Equal(point, mgl64.Vec3{0, 3, 0}, 1e-12) {
		t.Errorf("WorldPlane() = %v, %v", normal, point)
	}
}

func TestIsDegenerate(t *testing.T) {
	tests := []struct {
		name     string
		shape    ShapeInterface
		expected bool
	}{
		{"nil", nil, true},
		{"zero sphere", &Sphere{Radius: 0}, true},
		{"flat box", &Box{HalfExtents: mgl64.Vec3{1, 0, 1}}, true},
		{"unit box", &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, false},
		{"plane", &Plane{Normal: mgl64.Vec3{0, 1, 0}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDegenerate(tt.shape); got != tt.expected {
				t.Errorf("IsDegenerate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// ========== SUPPORT / FEATURES ==========
func TestSupport(t *testing.T) {
	box := &Box{HalfExtents: mgl64.Vec3{1, 2, 3}}
	sphere := &Sphere{Radius: 2}

	tests := []struct {
		name      string
		shape     ShapeInterface
		direction mgl64.Vec3
		expected  mgl64.Vec3
	}{
		{"box positive octant", box, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 2, 3}},
		{"box negative x", box, mgl64.Vec3{-1, 0.1, 0.1}, mgl64.Vec3{-1, 2, 3}},
		{"sphere along y", sphere, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, 2, 0}},
		{"sphere zero direction", sphere, mgl64.Vec3{}, mgl64.Vec3{2, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.Support(tt.direction); !vec3Equal(got, tt.expected, 1e-12) {
				t.Errorf("Support(%v) = %v, want %v", tt.direction, got, tt.expected)
			}
		})
	}
}

func TestBoxGetContactFeature(t *testing.T) {
	box := &Box{HalfExtents: mgl64.Vec3{1, 2, 3}}
	directions := []mgl64.Vec3{
		{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1},
	}

	for _, dir := range directions {
		face := box.GetContactFeature(dir)
		if len(face) != 4 {
			t.Fatalf("GetContactFeature(%v) returned %d points", dir, len(face))
		}
		for _, p := range face {
			if !floatEqual(p.Dot(dir), box.Support(dir).Dot(dir), 1e-12) {
				t.Errorf("GetContactFeature(%v): %v is not on the face", dir, p)
			}
		}
	}
}

func TestPlaneComputeAABB(t *testing.T) {
	p := &Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0}

	aabb := p.ComputeAABB(NewTransform())
	if aabb.Max.Y() != 0 || aabb.Min.Y() != -1 {
		t.Errorf("axis aligned plane AABB = %v", aabb)
	}
	if aabb.IsBounded() {
		t.Error("plane AABB must be unbounded")
	}
}
