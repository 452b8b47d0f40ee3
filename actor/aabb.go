package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB is the identity of Union.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Union returns the smallest box containing a and other.
func (a AABB) Union(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{
			math.Min(a.Min[0], other.Min[0]),
			math.Min(a.Min[1], other.Min[1]),
			math.Min(a.Min[2], other.Min[2]),
		},
		Max: mgl64.Vec3{
			math.Max(a.Max[0], other.Max[0]),
			math.Max(a.Max[1], other.Max[1]),
			math.Max(a.Max[2], other.Max[2]),
		},
	}
}

// Expand grows the box by margin on every side.
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// IsBounded reports whether every bound is finite and not larger than
// MaxBoundedExtent. Unbounded boxes (planes) are kept out of the spatial grid.
func (a AABB) IsBounded() bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a.Min[i]) > MaxBoundedExtent || math.Abs(a.Max[i]) > MaxBoundedExtent {
			return false
		}
		if math.IsNaN(a.Min[i]) || math.IsNaN(a.Max[i]) {
			return false
		}
	}
	return true
}

// MaxBoundedExtent is the coordinate magnitude above which a box is
// considered unbounded.
const MaxBoundedExtent = 1e6
