package epa

import (
	"fmt"
	"math"
	"sync"

	"github.com/akmonengine/tendon/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the polytope with its outward normal and its
// distance to the origin.
type Face struct {
	Points   [3]mgl64.Vec3 // Les 3 sommets du triangle
	Normal   mgl64.Vec3    // Normale pointant vers l'extérieur
	Distance float64       // Distance de l'origine au plan de la face
}

// EdgeEntry is an edge of the horizon, normalized so that A < B
// lexicographically. Count is 1 for a boundary edge.
type EdgeEntry struct {
	A, B  mgl64.Vec3
	Count int
}

// PolytopeBuilder owns the faces of the expanding polytope. Its buffers are
// reused through polytopeBuilderPool.
type PolytopeBuilder struct {
	faces          []Face
	edges          []EdgeEntry
	visibleIndices []int

	// a point strictly inside the polytope, used to orient new faces
	interior mgl64.Vec3
}

var polytopeBuilderPool = sync.Pool{
	New: func() interface{} {
		return &PolytopeBuilder{
			faces:          make([]Face, 0, polytopeInitialCapacity),
			edges:          make([]EdgeEntry, 0, polytopeInitialCapacity),
			visibleIndices: make([]int, 0, polytopeInitialCapacity),
		}
	},
}

func (b *PolytopeBuilder) Reset() {
	b.faces = b.faces[:0]
	b.edges = b.edges[:0]
	b.visibleIndices = b.visibleIndices[:0]
	b.interior = mgl64.Vec3{}
}

// Faces returns the current faces. The slice is owned by the builder.
func (b *PolytopeBuilder) Faces() []Face {
	return b.faces
}

// BuildInitialFaces creates the four faces of the GJK tetrahedron.
func (b *PolytopeBuilder) BuildInitialFaces(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return fmt.Errorf("invalid simplex count: %d (expected 4)", simplex.Count)
	}

	p0, p1, p2, p3 := simplex.Points[0], simplex.Points[1], simplex.Points[2], simplex.Points[3]
	b.interior = p0.Add(p1).Add(p2).Add(p3).Mul(0.25)

	candidateFaces := [4]Face{
		b.createFaceOutward(p0, p1, p2), // opposite point is p3
		b.createFaceOutward(p0, p2, p3), // opposite point is p1
		b.createFaceOutward(p0, p3, p1), // opposite point is p2
		b.createFaceOutward(p1, p3, p2), // opposite point is p0
	}

	for _, face := range candidateFaces {
		if face.Distance >= EPAMinFaceDistance {
			b.faces = append(b.faces, face)
		}
	}

	// Keep every face for a degenerate tetrahedron
	if len(b.faces) < 3 {
		b.faces = append(b.faces[:0], candidateFaces[:]...)
	}

	return nil
}

// createFaceOutward builds the face (p0, p1, p2) with its normal pointing away
// from the interior point and from the origin.
func (b *PolytopeBuilder) createFaceOutward(p0, p1, p2 mgl64.Vec3) Face {
	face := Face{Points: [3]mgl64.Vec3{p0, p1, p2}}

	normal := p1.Sub(p0).Cross(p2.Sub(p0))
	normalLength := normal.Len()
	if normalLength < 1e-8 {
		// Degenerate triangle (zero area)
		face.Normal = mgl64.Vec3{0, 1, 0}
		face.Distance = EPAMinFaceDistance
		return face
	}
	normal = normal.Mul(1.0 / normalLength)

	if normal.Dot(b.interior.Sub(p0)) > 0 {
		normal = normal.Mul(-1)
	}

	distance := p0.Dot(normal)
	if distance < 0 {
		normal = normal.Mul(-1)
		distance = -distance
	}
	if distance < EPAMinFaceDistance {
		distance = EPAMinFaceDistance
	}

	face.Normal = snapNormalToAxis(normal)
	face.Distance = distance

	return face
}

// FindClosestFaceIndex returns the index of the face closest to the origin,
// -1 when there is none.
func (b *PolytopeBuilder) FindClosestFaceIndex() int {
	closestIndex := -1
	minDistance := math.Inf(1)

	for i := range b.faces {
		if b.faces[i].Distance < minDistance {
			closestIndex = i
			minDistance = b.faces[i].Distance
		}
	}

	return closestIndex
}

// RemoveFace drops face i (swap with last).
func (b *PolytopeBuilder) RemoveFace(i int) {
	last := len(b.faces) - 1
	b.faces[i] = b.faces[last]
	b.faces = b.faces[:last]
}

// AddPointAndRebuildFaces expands the polytope with support:
// faces visible from the point are removed and the horizon is stitched to it.
func (b *PolytopeBuilder) AddPointAndRebuildFaces(support mgl64.Vec3, closestIndex int) error {
	b.visibleIndices = b.visibleIndices[:0]
	for i := range b.faces {
		face := &b.faces[i]
		if support.Sub(face.Points[0]).Dot(face.Normal) > 0 {
			b.visibleIndices = append(b.visibleIndices, i)
		}
	}

	// Safety: don't remove all faces
	if len(b.visibleIndices) >= len(b.faces) {
		b.visibleIndices = append(b.visibleIndices[:0], closestIndex)
	}

	b.edges = b.edges[:0]
	for _, idx := range b.visibleIndices {
		face := &b.faces[idx]
		b.addEdge(face.Points[0], face.Points[1])
		b.addEdge(face.Points[1], face.Points[2])
		b.addEdge(face.Points[2], face.Points[0])
	}

	// visibleIndices is ascending: remove from the end
	for i := len(b.visibleIndices) - 1; i >= 0; i-- {
		b.RemoveFace(b.visibleIndices[i])
	}

	for _, edge := range b.edges {
		if edge.Count == 1 {
			b.faces = append(b.faces, b.createFaceOutward(edge.A, edge.B, support))
		}
	}

	if len(b.faces) == 0 {
		return fmt.Errorf("polytope collapsed while adding %v", support)
	}

	return nil
}

func (b *PolytopeBuilder) addEdge(p, q mgl64.Vec3) {
	if compareVec3(p, q) > 0 {
		p, q = q, p
	}
	for i := range b.edges {
		if b.edges[i].A == p && b.edges[i].B == q {
			b.edges[i].Count++
			return
		}
	}
	b.edges = append(b.edges, EdgeEntry{A: p, B: q, Count: 1})
}

// compareVec3 orders vectors lexicographically (x, then y, then z).
func compareVec3(a, b mgl64.Vec3) int {
	for i := 0; i < 3; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
