package tendon

import (
	"math"
	"sort"
	"sync"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/constraint"
	"github.com/akmonengine/tendon/epa"
	"github.com/akmonengine/tendon/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Compliance of a few materials, usable as ContactConstraint.Compliance or
// JointConstraint.Compliance.
const (
	CONCRETE_COMPLIANCE = 0.04e-9
	WOOD_COMPLIANCE     = 0.16e-9
	LEATHER_COMPLIANCE  = 14e-8
	TENDON_COMPLIANCE   = 0.2e-7
	RUBBER_COMPLIANCE   = 1e-6
	MUSCLE_COMPLIANCE   = 0.2e-3
	FAT_COMPLIANCE      = 1e-3
)

// piecePair is one convex piece of each collider of a Pair.
type piecePair struct {
	pair           Pair
	childA, childB int
	a, b           actor.Placed
	simplex        *gjk.Simplex
}

// Contact is a manifold between two colliders, generated every substep.
type Contact struct {
	ColliderA *Collider
	ColliderB *Collider
	// ChildA and ChildB index the convex pieces of compound shapes.
	ChildA, ChildB int

	Constraint *constraint.ContactConstraint
}

// BroadPhase performs broad-phase collision detection using the spatial grid.
// It returns pairs of colliders whose AABBs overlap and might be colliding.
func BroadPhase(spatialGrid *SpatialGrid, colliders []*Collider, workersCount int) <-chan Pair {
	spatialGrid.Clear()
	for i, collider := range colliders {
		if collider.aabb.IsBounded() {
			spatialGrid.Insert(i, collider)
		}
	}
	spatialGrid.SortCells()

	return spatialGrid.FindPairsParallel(colliders, workersCount)
}

// NarrowPhase computes the manifolds of the candidate pairs. The result is
// sorted by collider handles then piece indices, whatever the worker count.
func NarrowPhase(pairs <-chan Pair, workersCount int) []Contact {
	// Dispatcher: split pairs into convex pieces, planes and spheres are analytic
	analyticPieces := make(chan piecePair, workersCount)
	gjkPieces := make(chan piecePair, workersCount)

	go func() {
		defer close(analyticPieces)
		defer close(gjkPieces)

		for pair := range pairs {
			for i, a := range pair.A.placed {
				for j, b := range pair.B.placed {
					if actor.IsDegenerate(a.Shape) || actor.IsDegenerate(b.Shape) {
						continue
					}
					if !a.AABB().Overlaps(b.AABB()) {
						continue
					}
					piece := piecePair{pair: pair, childA: i, childB: j, a: a, b: b}
					if isAnalytic(a.Shape, b.Shape) {
						analyticPieces <- piece
					} else {
						gjkPieces <- piece
					}
				}
			}
		}
	}()

	// Canal pour collecter tous les contacts
	allContacts := make(chan Contact, workersCount*2)
	var wg sync.WaitGroup
	// Path 1: GJK/EPA for convex objects
	wg.Add(1)
	go func() {
		defer wg.Done()
		collisionPieces := GJK(gjkPieces, workersCount)
		for contact := range EPA(collisionPieces, workersCount) {
			allContacts <- contact
		}
	}()

	// Path 2: analytic collisions
	wg.Add(1)
	go func() {
		defer wg.Done()
		for contact := range collideAnalytic(analyticPieces, workersCount) {
			allContacts <- contact
		}
	}()

	// Fermer le canal de sortie quand tout est fini
	go func() {
		wg.Wait()
		close(allContacts)
	}()

	// Collecter tous les contacts
	contacts := make([]Contact, 0)
	for c := range allContacts {
		contacts = append(contacts, c)
	}
	sortContacts(contacts)

	return contacts
}

func sortContacts(contacts []Contact) {
	sort.Slice(contacts, func(i, j int) bool {
		a, b := contacts[i], contacts[j]
		if ka, kb := a.ColliderA.handle.Index, b.ColliderA.handle.Index; ka != kb {
			return ka < kb
		}
		if ka, kb := a.ColliderB.handle.Index, b.ColliderB.handle.Index; ka != kb {
			return ka < kb
		}
		if a.ChildA != b.ChildA {
			return a.ChildA < b.ChildA
		}
		return a.ChildB < b.ChildB
	})
}

func isAnalytic(a, b actor.ShapeInterface) bool {
	if a.Type() == actor.ShapeTypePlane || b.Type() == actor.ShapeTypePlane {
		return true
	}
	return a.Type() == actor.ShapeTypeSphere && b.Type() == actor.ShapeTypeSphere
}

func GJK(pieces <-chan piecePair, workersCount int) <-chan piecePair {
	collisionChan := make(chan piecePair, workersCount)

	go func() {
		var wg sync.WaitGroup
		defer close(collisionChan)

		for range workersCount {
			wg.Add(1)
			go func() {
				defer wg.Done()

				for p := range pieces {
					simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
					simplex.Reset()

					if collision := gjk.GJK(p.a, p.b, simplex); collision {
						p.simplex = simplex
						collisionChan <- p
					} else {
						gjk.SimplexPool.Put(simplex)
					}
				}
			}()

		}
		wg.Wait()
	}()

	return collisionChan
}

func EPA(pieces <-chan piecePair, workersCount int) <-chan Contact {
	ch := make(chan Contact, workersCount)

	go func() {
		var wg sync.WaitGroup
		defer close(ch)

		for range workersCount {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for piece := range pieces {
					manifold, err := epa.EPA(piece.a, piece.b, piece.simplex)
					gjk.SimplexPool.Put(piece.simplex)
					if err != nil || len(manifold.Points) == 0 {
						continue
					}
					ch <- newContact(piece, manifold.Normal, manifold.Points)
				}
			}()
		}

		wg.Wait()
	}()

	return ch
}

func collideAnalytic(pieces <-chan piecePair, workersCount int) <-chan Contact {
	ch := make(chan Contact, workersCount)

	go func() {
		var wg sync.WaitGroup
		defer close(ch)

		for range workersCount {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for piece := range pieces {
					var normal mgl64.Vec3
					var points []constraint.ContactPoint
					var ok bool

					if piece.a.Shape.Type() == actor.ShapeTypeSphere && piece.b.Shape.Type() == actor.ShapeTypeSphere {
						normal, points, ok = collideSpheres(piece.a, piece.b)
					} else {
						normal, points, ok = collidePlane(piece.a, piece.b)
					}
					if !ok {
						continue
					}
					ch <- newContact(piece, normal, points)
				}
			}()
		}

		wg.Wait()
	}()

	return ch
}

func newContact(piece piecePair, normal mgl64.Vec3, points []constraint.ContactPoint) Contact {
	colliderA := piece.pair.A
	colliderB := piece.pair.B
	return Contact{
		ColliderA:  colliderA,
		ColliderB:  colliderB,
		ChildA:     piece.childA,
		ChildB:     piece.childB,
		Constraint: constraint.NewContactConstraint(colliderA.body, colliderB.body, colliderA.Material, colliderB.Material, normal, points),
	}
}

// collidePlane tests a plane against a convex piece. Points touching the
// plane are kept with a zero depth. The normal goes from a toward b.
func collidePlane(a, b actor.Placed) (mgl64.Vec3, []constraint.ContactPoint, bool) {
	planePiece, object := a, b
	sign := 1.0
	if b.Shape.Type() == actor.ShapeTypePlane {
		if a.Shape.Type() == actor.ShapeTypePlane {
			return mgl64.Vec3{}, nil, false // plane vs plane
		}
		planePiece, object = b, a
		sign = -1
	}

	plane := planePiece.Shape.(*actor.Plane)
	normal, origin := plane.WorldPlane(planePiece.Transform)

	var points []constraint.ContactPoint
	for _, p := range object.WorldFeature(normal.Mul(-1)) {
		distance := p.Sub(origin).Dot(normal)
		if distance > 0 {
			continue
		}
		depth := -distance
		points = append(points, constraint.ContactPoint{
			// midway between the object and the plane surface
			Position:    p.Add(normal.Mul(depth / 2)),
			Penetration: depth,
		})
	}
	if len(points) == 0 {
		return mgl64.Vec3{}, nil, false
	}

	return normal.Mul(sign), points, true
}

func collideSpheres(a, b actor.Placed) (mgl64.Vec3, []constraint.ContactPoint, bool) {
	radiusA := a.Shape.(*actor.Sphere).Radius
	radiusB := b.Shape.(*actor.Sphere).Radius

	delta := b.Center().Sub(a.Center())
	distance := delta.Len()
	if distance > radiusA+radiusB {
		return mgl64.Vec3{}, nil, false
	}

	normal := mgl64.Vec3{0, 1, 0}
	if distance > 1e-12 {
		normal = delta.Mul(1 / distance)
	}
	depth := math.Max(0, radiusA+radiusB-distance)

	return normal, []constraint.ContactPoint{{
		Position:    a.Center().Add(normal.Mul(radiusA - depth/2)),
		Penetration: depth,
	}}, true
}
