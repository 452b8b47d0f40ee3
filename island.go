package tendon

import (
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/constraint"
)

// Island is a set of dynamic bodies connected by joints or contacts, solved
// independently of the other islands.
type Island struct {
	bodies   []*actor.RigidBody
	joints   []*constraint.JointConstraint
	contacts []*constraint.ContactConstraint

	hasMotor bool
	awake    bool
}

func (isl *Island) Bodies() int { return len(isl.bodies) }

// unionFind over body indices, with path halving.
type unionFind []int

func newUnionFind(n int) unionFind {
	uf := make(unionFind, n)
	for i := range uf {
		uf[i] = i
	}
	return uf
}

func (uf unionFind) find(i int) int {
	for uf[i] != i {
		uf[i] = uf[uf[i]]
		i = uf[i]
	}
	return i
}

func (uf unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	// the smaller index stays root, islands are then ordered by first body
	if rb < ra {
		ra, rb = rb, ra
	}
	uf[rb] = ra
}

// buildIslands groups the dynamic bodies. Static and kinematic bodies never
// merge islands. A sleeping island touched by an awake one, or by a moving
// kinematic body, is woken up.
func buildIslands(bodies []*actor.RigidBody, joints []*constraint.JointConstraint, contacts []Contact) []*Island {
	index := make(map[*actor.RigidBody]int, len(bodies))
	for i, body := range bodies {
		if body.IsDynamic() {
			index[body] = i
		}
	}

	uf := newUnionFind(len(bodies))
	link := func(a, b *actor.RigidBody) {
		ia, okA := index[a]
		ib, okB := index[b]
		if okA && okB {
			uf.union(ia, ib)
		}
	}
	for _, j := range joints {
		link(j.Parent, j.Child)
	}
	for _, c := range contacts {
		link(c.Constraint.BodyA, c.Constraint.BodyB)
	}

	islands := make([]*Island, 0)
	byRoot := make(map[int]*Island)
	islandOf := func(i int) *Island {
		root := uf.find(i)
		isl, ok := byRoot[root]
		if !ok {
			isl = &Island{}
			byRoot[root] = isl
			islands = append(islands, isl)
		}
		return isl
	}

	for i, body := range bodies {
		if !body.IsDynamic() {
			continue
		}
		isl := islandOf(i)
		isl.bodies = append(isl.bodies, body)
		if !body.IsSleeping {
			isl.awake = true
		}
	}

	owner := func(a, b *actor.RigidBody) *Island {
		if i, ok := index[a]; ok {
			return islandOf(i)
		}
		if i, ok := index[b]; ok {
			return islandOf(i)
		}
		return nil
	}
	for _, j := range joints {
		isl := owner(j.Child, j.Parent)
		if isl == nil {
			continue
		}
		isl.joints = append(isl.joints, j)
		if movingKinematic(j.Parent) || movingKinematic(j.Child) {
			isl.awake = true
		}
		for i := range j.Joint.DegreesOfFreedom() {
			if j.Joint.Dof(i).MotorEnabled {
				isl.hasMotor = true
				isl.awake = true
			}
		}
	}
	for _, c := range contacts {
		isl := owner(c.Constraint.BodyA, c.Constraint.BodyB)
		if isl == nil {
			continue
		}
		isl.contacts = append(isl.contacts, c.Constraint)
		if movingKinematic(c.Constraint.BodyA) || movingKinematic(c.Constraint.BodyB) {
			isl.awake = true
		}
	}

	for _, isl := range islands {
		if !isl.awake {
			continue
		}
		for _, body := range isl.bodies {
			if body.IsSleeping {
				body.Awake()
				body.PreviousTransform = body.Transform
			}
		}
	}

	return islands
}

func movingKinematic(body *actor.RigidBody) bool {
	return body.BodyType == actor.BodyTypeKinematic &&
		(body.Velocity.LenSqr() > 0 || body.AngularVelocity.LenSqr() > 0)
}

// solvePosition sweeps the joints then the contacts until the largest
// residual drops below tolerance. It returns the residual of the last sweep
// and the number of sweeps.
func (isl *Island) solvePosition(h float64, iterations int, tolerance float64) (float64, int) {
	var residual float64
	n := 0
	for n < iterations {
		n++
		residual = 0
		for _, j := range isl.joints {
			residual = math.Max(residual, j.SolvePosition(h))
		}
		for _, c := range isl.contacts {
			residual = math.Max(residual, c.SolvePosition(h))
		}
		if residual < tolerance {
			break
		}
	}
	return residual, n
}

func (isl *Island) solveVelocity(h float64) {
	for _, j := range isl.joints {
		j.SolveVelocity(h)
	}
	for _, c := range isl.contacts {
		c.SolveVelocity(h)
	}
	for _, j := range isl.joints {
		j.MeasureVelocity()
		j.Measure()
	}
}

// trySleep puts the whole island to sleep once every body stayed quiet for
// timeThreshold. A non positive timeThreshold disables sleeping.
func (isl *Island) trySleep(h, timeThreshold, velocityThreshold float64) {
	if timeThreshold <= 0 {
		return
	}
	ready := !isl.hasMotor
	for _, body := range isl.bodies {
		if body.IsSleeping {
			continue
		}
		if isl.hasMotor {
			body.SleepTimer = 0
			continue
		}
		if !body.TrySleep(h, timeThreshold, velocityThreshold) {
			ready = false
		}
	}
	if !ready {
		return
	}
	for _, body := range isl.bodies {
		body.Sleep()
	}
}
