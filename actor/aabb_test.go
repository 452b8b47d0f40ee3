package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func unitAABB(offset mgl64.Vec3) AABB {
	return AABB{Min: offset, Max: offset.Add(mgl64.Vec3{1, 1, 1})}
}

func TestAABBOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		aabb1    AABB
		aabb2    AABB
		expected bool
	}{
		{"separated on X", unitAABB(mgl64.Vec3{}), unitAABB(mgl64.Vec3{2, 0, 0}), false},
		{"separated on Y", unitAABB(mgl64.Vec3{}), unitAABB(mgl64.Vec3{0, -2, 0}), false},
		{"separated on Z", unitAABB(mgl64.Vec3{}), unitAABB(mgl64.Vec3{0, 0, 2}), false},
		{"overlap on all axes but one", unitAABB(mgl64.Vec3{}), unitAABB(mgl64.Vec3{0.5, 0.5, 1.5}), false},
		{"partial overlap", unitAABB(mgl64.Vec3{}), unitAABB(mgl64.Vec3{0.5, 0.5, 0.5}), true},
		{"face touching", unitAABB(mgl64.Vec3{}), unitAABB(mgl64.Vec3{1, 0, 0}), true},
		{"corner touching", unitAABB(mgl64.Vec3{}), unitAABB(mgl64.Vec3{1, 1, 1}), true},
		{"contained", AABB{Min: mgl64.Vec3{-5, -5, -5}, Max: mgl64.Vec3{5, 5, 5}}, unitAABB(mgl64.Vec3{}), true},
		{"point inside", unitAABB(mgl64.Vec3{}), AABB{Min: mgl64.Vec3{0.5, 0.5, 0.5}, Max: mgl64.Vec3{0.5, 0.5, 0.5}}, true},
		{"negative coordinates", unitAABB(mgl64.Vec3{-1, -1, -1}), unitAABB(mgl64.Vec3{-1.5, -1.5, -1.5}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.aabb1.Overlaps(tt.aabb2); got != tt.expected {
				t.Errorf("Overlaps() = %v, want %v", got, tt.expected)
			}
			if got := tt.aabb2.Overlaps(tt.aabb1); got != tt.expected {
				t.Errorf("Overlaps() is not symmetric")
			}
		})
	}
}

func TestAABBContainsPoint(t *testing.T) {
	aabb := AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}

	tests := []struct {
		name     string
		point    mgl64.Vec3
		expected bool
	}{
		{"center", mgl64.Vec3{0, 0, 0}, true},
		{"corner", mgl64.Vec3{1, 1, 1}, true},
		{"face center", mgl64.Vec3{0, -1, 0}, true},
		{"just outside", mgl64.Vec3{1 + 1e-9, 0, 0}, false},
		{"far away", mgl64.Vec3{10, 10, 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := aabb.ContainsPoint(tt.point); got != tt.expected {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.point, got, tt.expected)
			}
		})
	}
}

func TestAABBUnion(t *testing.T) {
	a := unitAABB(mgl64.Vec3{})
	b := unitAABB(mgl64.Vec3{2, -3, 0})

	u := a.Union(b)
	if u.Min != (mgl64.Vec3{0, -3, 0}) || u.Max != (mgl64.Vec3{3, 1, 1}) {
		t.Errorf("Union() = %v", u)
	}
	if got := EmptyAABB().Union(a); got != a {
		t.Errorf("EmptyAABB().Union(a) = %v, want %v", got, a)
	}
}

func TestAABBExpand(t *testing.T) {
	got := unitAABB(mgl64.Vec3{}).Expand(0.5)
	if got.Min != (mgl64.Vec3{-0.5, -0.5, -0.5}) || got.Max != (mgl64.Vec3{1.5, 1.5, 1.5}) {
		t.Errorf("Expand() = %v", got)
	}
}

func TestAABBIsBounded(t *testing.T) {
	tests := []struct {
		name     string
		aabb     AABB
		expected bool
	}{
		{"unit box", unitAABB(mgl64.Vec3{}), true},
		{"huge box", AABB{Min: mgl64.Vec3{-1e10, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}, false},
		{"infinite", EmptyAABB(), false},
		{"nan", AABB{Min: mgl64.Vec3{math.NaN(), 0, 0}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.aabb.IsBounded(); got != tt.expected {
				t.Errorf("IsBounded() = %v, want %v", got, tt.expected)
			}
		})
	}
}
