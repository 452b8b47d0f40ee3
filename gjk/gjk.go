// Package gjk tests two placed convex shapes for overlap with the
// Gilbert-Johnson-Keerthi algorithm.
//
// The shapes overlap when their Minkowski difference A - B contains the
// origin. A simplex of up to four support points of the difference is grown
// toward the origin; on overlap the final tetrahedron seeds EPA.
package gjk

import (
	"sync"

	"github.com/akmonengine/tendon/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// maxIterations bounds the refinement loop on degenerate input.
	maxIterations = 32

	touchEpsilon      = 1e-16
	degenerateEdge    = 1e-8
	degenerateSurface = 1e-10
)

// Simplex holds 1 to 4 points of the Minkowski difference. Points[Count-1]
// is the most recent support point.
type Simplex struct {
	Points [4]mgl64.Vec3
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

func (s *Simplex) push(p mgl64.Vec3) {
	s.Points[s.Count] = p
	s.Count++
}

// set replaces the simplex, oldest point first.
func (s *Simplex) set(points ...mgl64.Vec3) {
	s.Count = copy(s.Points[:], points)
}

// SimplexPool recycles simplices across the narrow phase workers.
var SimplexPool = sync.Pool{
	New: func() any {
		return &Simplex{}
	},
}

// MinkowskiSupport returns the point of A - B furthest along direction.
func MinkowskiSupport(a, b actor.Placed, direction mgl64.Vec3) mgl64.Vec3 {
	return a.SupportWorld(direction).Sub(b.SupportWorld(direction.Mul(-1)))
}

// GJK reports whether a and b overlap. simplex is reset and, on overlap,
// usually left as a tetrahedron enclosing the origin. Touching shapes may
// stop on a smaller simplex.
func GJK(a, b actor.Placed, simplex *Simplex) bool {
	direction := b.Center().Sub(a.Center())
	if direction.LenSqr() < degenerateEdge {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.set(MinkowskiSupport(a, b, direction))
	direction = simplex.Points[0].Mul(-1)
	if direction.LenSqr() < touchEpsilon {
		return true
	}

	for range maxIterations {
		p := MinkowskiSupport(a, b, direction)
		// the support did not cross the origin: a separating axis exists
		if p.Dot(direction) <= 0 {
			return false
		}

		simplex.push(p)
		if refine(simplex, &direction) {
			return true
		}
	}

	return false
}

// refine keeps the feature of the simplex closest to the origin and points
// direction at the origin from it. It reports true once the origin is
// enclosed, or lies on the simplex.
func refine(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

// towardOrigin returns the component of ao orthogonal to edge.
func towardOrigin(edge, ao mgl64.Vec3) mgl64.Vec3 {
	return edge.Cross(ao).Cross(edge)
}

func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a, b := simplex.Points[1], simplex.Points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < degenerateEdge {
		if ao.LenSqr() < degenerateEdge {
			return true
		}
		simplex.set(a)
		*direction = ao
		return false
	}

	// origin beyond a
	if ab.Dot(ao) <= 0 {
		simplex.set(a)
		*direction = ao
		return false
	}

	perp := towardOrigin(ab, ao)
	if perp.LenSqr() < degenerateEdge {
		// origin on the segment
		return true
	}
	*direction = perp
	return false
}

func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a, b, c := simplex.Points[2], simplex.Points[1], simplex.Points[0]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	normal := ab.Cross(ac)

	// colinear: drop the oldest point
	if normal.LenSqr() < degenerateSurface {
		simplex.set(b, a)
		return line(simplex, direction)
	}

	if ab.Cross(normal).Dot(ao) > 0 {
		simplex.set(b, a)
		*direction = towardOrigin(ab, ao)
		return false
	}
	if normal.Cross(ac).Dot(ao) > 0 {
		simplex.set(c, a)
		*direction = towardOrigin(ac, ao)
		return false
	}

	if normal.Dot(ao) > 0 {
		*direction = normal
	} else {
		// wind the triangle so its normal faces the origin
		simplex.set(a, c, b)
		*direction = normal.Mul(-1)
	}
	return false
}

// outward orients the normal of a face away from the opposite vertex.
func outward(normal, toOpposite mgl64.Vec3) mgl64.Vec3 {
	if normal.Dot(toOpposite) > 0 {
		return normal.Mul(-1)
	}
	return normal
}

func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a, b, c, d := simplex.Points[3], simplex.Points[2], simplex.Points[1], simplex.Points[0]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	faces := [3]struct {
		normal mgl64.Vec3
		// the face as a triangle simplex, a last
		points [3]mgl64.Vec3
	}{
		{outward(ab.Cross(ac), ad), [3]mgl64.Vec3{c, b, a}},
		{outward(ac.Cross(ad), ab), [3]mgl64.Vec3{d, c, a}},
		{outward(ad.Cross(ab), ac), [3]mgl64.Vec3{b, d, a}},
	}

	for _, f := range faces {
		if f.normal.LenSqr() < degenerateSurface {
			simplex.set(c, b, a)
			return triangle(simplex, direction)
		}
	}

	for _, f := range faces {
		if f.normal.Dot(ao) > 0 {
			simplex.set(f.points[:]...)
			return triangle(simplex, direction)
		}
	}

	return true
}
