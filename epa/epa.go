// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects a collision to determine:
//   - Penetration depth (how far shapes overlap)
//   - Contact normal (direction to separate shapes)
//   - Contact points (where shapes touch)
//
// The algorithm expands a polytope (starting from GJK's final simplex) toward the origin
// in the Minkowski difference space, finding the closest face which gives us the
// Minimum Translation Vector (MTV) to separate the shapes.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/constraint"
	"github.com/akmonengine/tendon/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoConvergence is returned when the polytope did not converge; the pair
// must then be treated as not colliding.
var ErrNoConvergence = errors.New("epa: failed to converge")

const (
	// EPAMaxIterations limits polytope expansion to prevent infinite loops.
	// Typical convergence: 5-15 iterations for simple shapes.
	EPAMaxIterations = 32

	// EPAConvergenceTolerance defines when EPA has converged.
	// If the distance to a new support point improves by less than this threshold,
	// we've found the closest face to the origin.
	EPAConvergenceTolerance = 0.001

	// EPAMinFaceDistance is the minimum face distance before we skip it.
	// Faces very close to or behind the origin are likely degenerate.
	EPAMinFaceDistance = 0.0001

	// NormalSnapThreshold is used to clamp nearly-zero normal components to exactly zero.
	NormalSnapThreshold = 1e-8

	// DegeneratePenetrationEstimate is a fallback penetration depth for degenerate cases
	// where we have insufficient simplex points to compute accurate depth.
	DegeneratePenetrationEstimate = 0.01

	polytopeInitialCapacity = 4
)

// Manifold is the contact between two placed shapes. Normal points from A
// toward B; Depth is positive.
type Manifold struct {
	Normal mgl64.Vec3
	Depth  float64
	Points []constraint.ContactPoint
}

// EPA computes the contact manifold of two overlapping convex shapes, from the
// simplex GJK stopped on.
//
// Algorithm overview:
//  1. Build the initial polytope from the tetrahedron
//  2. Find the face closest to the origin
//  3. Get the support point along its normal
//  4. If it does not improve the distance → converged
//  5. Otherwise expand the polytope and repeat
func EPA(a, b actor.Placed, simplex *gjk.Simplex) (Manifold, error) {
	if simplex.Count < 4 {
		return handleDegenerateSimplex(a, b, simplex), nil
	}

	builder := polytopeBuilderPool.Get().(*PolytopeBuilder)
	defer polytopeBuilderPool.Put(builder)
	builder.Reset()

	if err := builder.BuildInitialFaces(simplex); err != nil {
		return Manifold{}, err
	}

	for i := 0; i < EPAMaxIterations; i++ {
		closestFaceIndex := builder.FindClosestFaceIndex()
		if closestFaceIndex < 0 {
			break
		}
		closestFace := builder.faces[closestFaceIndex]

		// Skip faces that are too close to or behind the origin (degenerate)
		if closestFace.Distance < EPAMinFaceDistance {
			builder.RemoveFace(closestFaceIndex)
			continue
		}

		support := gjk.MinkowskiSupport(a, b, closestFace.Normal)
		distance := support.Dot(closestFace.Normal)

		if distance-closestFace.Distance < EPAConvergenceTolerance {
			return newManifold(a, b, closestFace.Normal, closestFace.Distance), nil
		}

		if err := builder.AddPointAndRebuildFaces(support, closestFaceIndex); err != nil {
			// return current best estimate instead of failing
			return newManifold(a, b, closestFace.Normal, closestFace.Distance), nil
		}
	}

	return Manifold{}, fmt.Errorf("%w after %d iterations", ErrNoConvergence, EPAMaxIterations)
}

func newManifold(a, b actor.Placed, normal mgl64.Vec3, depth float64) Manifold {
	return Manifold{
		Normal: normal,
		Depth:  depth,
		Points: GenerateManifold(a, b, normal, depth),
	}
}

// handleDegenerateSimplex estimates the contact when GJK stopped before
// building a tetrahedron (shapes touching at a point or an edge).
func handleDegenerateSimplex(a, b actor.Placed, simplex *gjk.Simplex) Manifold {
	if simplex.Count >= 2 {
		p, q := simplex.Points[0], simplex.Points[1]

		// closest point to the origin
		closest := p
		if q.Len() < p.Len() {
			closest = q
		}
		if closest.Len() > NormalSnapThreshold {
			return newManifold(a, b, closest.Normalize(), closest.Len())
		}
	}

	// Estimate contact normal from centers
	normal := b.Center().Sub(a.Center())
	normalLen := normal.Len()
	if normalLen < NormalSnapThreshold {
		normal = mgl64.Vec3{0, 1, 0}
	} else {
		normal = normal.Mul(1.0 / normalLen)
	}

	return newManifold(a, b, normal, DegeneratePenetrationEstimate)
}

// snapNormalToAxis clamps nearly-zero components of a normal vector to exactly zero,
// then renormalizes. Axis aligned contacts (box on ground) then produce no
// tangential jitter.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	var clamped mgl64.Vec3
	for i := 0; i < 3; i++ {
		if math.Abs(normal[i]) >= NormalSnapThreshold {
			clamped[i] = normal[i]
		}
	}

	length := clamped.Len()
	if length <= 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}

	return clamped.Mul(1.0 / length)
}
