// Package scalar holds the numeric helpers shared by the engine packages.
//
// The engine computes in float64 (mgl64) so that a world is deterministic for
// a given input. Hosts working in float32 (renderers, fixed-size GPU buffers)
// convert at the boundary with the mgl32 helpers below. The generic helpers
// accept any Real so that the same code serves both widths.
package scalar

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Real is the set of floating point types the engine accepts at its boundary.
type Real interface {
	constraints.Float
}

// Epsilon is the default tolerance for ApproxEqual.
const Epsilon = 1e-9

// Clamp bounds v to [lo, hi].
func Clamp[T Real](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApproxEqual reports whether a and b differ by at most tol.
func ApproxEqual[T Real](a, b, tol T) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite[T Real](v T) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// WrapAngle maps an angle to (-π, π].
func WrapAngle[T Real](a T) T {
	f := math.Remainder(float64(a), 2*math.Pi)
	if f <= -math.Pi {
		f += 2 * math.Pi
	}
	return T(f)
}

// Vec3 builds an engine vector from any Real components.
func Vec3[T Real](x, y, z T) mgl64.Vec3 {
	return mgl64.Vec3{float64(x), float64(y), float64(z)}
}

// IsFiniteVec3 reports whether every component of v is finite.
func IsFiniteVec3(v mgl64.Vec3) bool {
	return IsFinite(v[0]) && IsFinite(v[1]) && IsFinite(v[2])
}

// Vec3From32 widens a float32 vector.
func Vec3From32(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

// Vec3To32 narrows an engine vector for float32 hosts.
func Vec3To32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// QuatFrom32 widens a float32 quaternion.
func QuatFrom32(q mgl32.Quat) mgl64.Quat {
	return mgl64.Quat{W: float64(q.W), V: Vec3From32(q.V)}
}

// QuatTo32 narrows an engine quaternion for float32 hosts.
func QuatTo32(q mgl64.Quat) mgl32.Quat {
	return mgl32.Quat{W: float32(q.W), V: Vec3To32(q.V)}
}
