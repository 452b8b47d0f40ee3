package epa

import (
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	maxManifoldPoints = 4
	clipTolerance     = 1e-6
	parallelEpsilon   = 1e-10
)

// GenerateManifold returns 1 to 4 contact points for shapes a and b
// overlapping along normal (from a toward b) by depth.
//
// The features of both shapes facing each other (vertex, edge or face) are
// compared: the one with fewer points is the incident feature, clipped by
// the side planes of the reference feature (Sutherland-Hodgman), then
// trimmed to the points lying behind the reference face.
func GenerateManifold(a, b actor.Placed, normal mgl64.Vec3, depth float64) []constraint.ContactPoint {
	featureA := a.WorldFeature(normal)
	featureB := b.WorldFeature(normal.Mul(-1))

	reference, incident := featureA, featureB
	// faceNormal is the outward normal of the reference feature
	faceNormal := normal
	if len(featureB) > len(featureA) {
		reference, incident = featureB, featureA
		faceNormal = normal.Mul(-1)
	}

	points := func(positions []mgl64.Vec3) []constraint.ContactPoint {
		out := make([]constraint.ContactPoint, len(positions))
		for i, p := range positions {
			out[i] = constraint.ContactPoint{Position: p, Penetration: depth}
		}
		return out
	}

	if len(incident) == 1 {
		return points(incident)
	}

	clipped := clipIncidentAgainstReference(incident, reference, normal)
	if len(reference) >= 3 && len(clipped) > 0 {
		clipped = behindFace(clipped, reference, faceNormal)
	}

	if len(clipped) == 0 {
		return points([]mgl64.Vec3{b.SupportWorld(normal.Mul(-1))})
	}

	contacts := points(clipped)
	if len(contacts) > maxManifoldPoints {
		contacts = reduceTo4Points(contacts, normal)
	}
	return contacts
}

// behindFace keeps the points on or under the plane of face. The plane
// normal is taken from the face winding and oriented like outward.
func behindFace(points, face []mgl64.Vec3, outward mgl64.Vec3) []mgl64.Vec3 {
	n := face[1].Sub(face[0]).Cross(face[2].Sub(face[0]))
	if n.Len() > 1e-12 {
		n = n.Normalize()
		if n.Dot(outward) < 0 {
			n = n.Mul(-1)
		}
	} else {
		n = outward
	}

	offset := face[0].Dot(n)
	kept := points[:0]
	for _, p := range points {
		if p.Dot(n)-offset <= clipTolerance {
			kept = append(kept, p)
		}
	}
	return kept
}

// clipIncidentAgainstReference clips the incident polygon by the planes
// through each reference edge, parallel to normal and facing the reference
// centroid. A point or no reference leaves incident untouched.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if len(reference) < 2 {
		return incident
	}

	center := computeCenter(reference)
	output := incident
	for i, v1 := range reference {
		if len(output) == 0 {
			break
		}
		v2 := reference[(i+1)%len(reference)]

		side := v2.Sub(v1).Cross(normal).Normalize()
		if center.Sub(v1).Dot(side) < 0 {
			side = side.Mul(-1)
		}
		output = clipPolygonAgainstPlane(output, v1, side)
	}
	return output
}

// clipPolygonAgainstPlane keeps the part of polygon on the positive side of
// the plane, within clipTolerance.
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	if len(polygon) == 0 {
		return polygon
	}

	output := make([]mgl64.Vec3, 0, len(polygon)+1)
	for i, current := range polygon {
		next := polygon[(i+1)%len(polygon)]
		inside := current.Sub(planePoint).Dot(planeNormal) >= -clipTolerance
		nextInside := next.Sub(planePoint).Dot(planeNormal) >= -clipTolerance

		if inside {
			output = append(output, current)
		}
		if inside != nextInside {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}
	return output
}

// lineIntersectPlane returns where segment p1p2 crosses the plane, clamped to
// the segment. A segment parallel to the plane yields p1.
func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	denom := dir.Dot(planeNormal)
	if math.Abs(denom) < parallelEpsilon {
		return p1
	}

	t := -p1.Sub(planePoint).Dot(planeNormal) / denom
	return p1.Add(dir.Mul(max(0, min(1, t))))
}

func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	var sum mgl64.Vec3
	if len(points) == 0 {
		return sum
	}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

// reduceTo4Points keeps the points spanning the largest area in the contact
// plane: the furthest along a tangent, the furthest from it, the one making
// the widest triangle with both, then the one adding the most area on the
// other side. The result keeps the input order.
func reduceTo4Points(points []constraint.ContactPoint, normal mgl64.Vec3) []constraint.ContactPoint {
	if len(points) <= maxManifoldPoints {
		return points
	}
	tangent, _ := actor.TangentBasis(normal)

	argmax := func(score func(p mgl64.Vec3) float64) int {
		best, bestScore := 0, math.Inf(-1)
		for i, p := range points {
			if s := score(p.Position); s > bestScore {
				best, bestScore = i, s
			}
		}
		return best
	}
	// signed area of triangle abp, seen along normal
	area := func(a, b, p mgl64.Vec3) float64 {
		return b.Sub(a).Cross(p.Sub(a)).Dot(normal)
	}

	i0 := argmax(func(p mgl64.Vec3) float64 { return p.Dot(tangent) })
	p0 := points[i0].Position
	i1 := argmax(func(p mgl64.Vec3) float64 { return p.Sub(p0).LenSqr() })
	p1 := points[i1].Position
	i2 := argmax(func(p mgl64.Vec3) float64 { return math.Abs(area(p0, p1, p)) })
	p2 := points[i2].Position

	// the fourth point lies on the other side of p0p1 than p2
	side := math.Copysign(1, area(p0, p1, p2))
	i3 := argmax(func(p mgl64.Vec3) float64 { return -side * area(p0, p1, p) })

	keep := map[int]bool{i0: true, i1: true, i2: true, i3: true}
	result := make([]constraint.ContactPoint, 0, maxManifoldPoints)
	for i := range points {
		if keep[i] {
			result = append(result, points[i])
		}
	}
	return result
}
