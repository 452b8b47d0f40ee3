package tendon

import (
	"fmt"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/arena"
	"github.com/akmonengine/tendon/constraint"
	"github.com/akmonengine/tendon/joint"
	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl64"
)

// MultibodyHandle addresses a multibody of a World.
type MultibodyHandle struct{ arena.Handle }

// MultibodyDesc describes one link and, recursively, the links attached to it.
//
// The link is placed at parentAnchor * joint.LocalTransform() *
// Translation(-bodyShift), where parentAnchor is the parent link (the ground
// for the root) times Translation(parentShift).
type MultibodyDesc struct {
	joint       joint.Joint
	parentShift mgl64.Vec3
	bodyShift   mgl64.Vec3
	mass        float64
	inertia     mgl64.Mat3
	children    []*MultibodyDesc
}

func NewMultibodyDesc(j joint.Joint) *MultibodyDesc {
	return &MultibodyDesc{joint: j}
}

// SetParentShift places the joint in the parent link frame.
func (d *MultibodyDesc) SetParentShift(shift mgl64.Vec3) *MultibodyDesc {
	d.parentShift = shift
	return d
}

// SetBodyShift places the joint in this link frame.
func (d *MultibodyDesc) SetBodyShift(shift mgl64.Vec3) *MultibodyDesc {
	d.bodyShift = shift
	return d
}

// SetMass gives the link an explicit mass; the inertia defaults to mass
// times the identity. Colliders with a density add to it.
func (d *MultibodyDesc) SetMass(mass float64, inertia mgl64.Mat3) *MultibodyDesc {
	d.mass = mass
	d.inertia = inertia
	return d
}

// AddChild attaches a new link through j and returns its description.
func (d *MultibodyDesc) AddChild(j joint.Joint) *MultibodyDesc {
	child := NewMultibodyDesc(j)
	d.children = append(d.children, child)
	return child
}

// Build validates the tree and creates the links in depth-first preorder.
// The root is not attached to anything until the multibody is inserted.
func (d *MultibodyDesc) Build() (*Multibody, error) {
	mb := &Multibody{}
	if err := d.build(mb, -1); err != nil {
		return nil, err
	}
	return mb, nil
}

func (d *MultibodyDesc) build(mb *Multibody, parent int) error {
	index := len(mb.links)
	if d.joint == nil {
		return fmt.Errorf("%w: link %d has no joint", ErrInvalidMultibody, index)
	}
	if err := d.joint.Validate(); err != nil {
		return fmt.Errorf("%w: link %d: %w", ErrInvalidMultibody, index, err)
	}
	if !scalar.IsFiniteVec3(d.parentShift) || !scalar.IsFiniteVec3(d.bodyShift) {
		return fmt.Errorf("%w: link %d: non finite shift", ErrInvalidMultibody, index)
	}

	body := actor.NewRigidBody(actor.NewTransform(), actor.BodyTypeDynamic)
	if d.mass > 0 {
		inertia := d.inertia
		if inertia == (mgl64.Mat3{}) {
			inertia = mgl64.Ident3().Mul(d.mass)
		}
		if err := body.SetMassProperties(d.mass, inertia); err != nil {
			return fmt.Errorf("link %d: %w", index, err)
		}
	}

	var parentBody *actor.RigidBody
	if parent >= 0 {
		parentBody = mb.links[parent].Body
	}
	link := &Link{
		index:  index,
		parent: parent,
		Body:   body,
		constraint: constraint.NewJointConstraint(
			parentBody,
			body,
			actor.Translation(d.parentShift),
			actor.Translation(d.bodyShift),
			d.joint.Clone(),
		),
	}
	mb.links = append(mb.links, link)

	for _, child := range d.children {
		if err := child.build(mb, index); err != nil {
			return err
		}
	}
	return nil
}

// Link is one rigid body of a multibody and the joint attaching it to its
// parent link.
type Link struct {
	index  int
	parent int
	Body   *actor.RigidBody

	constraint *constraint.JointConstraint
}

func (l *Link) Index() int { return l.index }

// Parent returns the parent link index, -1 for the root.
func (l *Link) Parent() int { return l.parent }

func (l *Link) Joint() joint.Joint { return l.constraint.Joint }

// Dof returns the degree of freedom i of the incoming joint, nil when out of range.
func (l *Link) Dof(i int) *joint.Dof { return l.constraint.Joint.Dof(i) }

// Constraint exposes the solver constraint, mainly to tune its compliance.
func (l *Link) Constraint() *constraint.JointConstraint { return l.constraint }

// Multibody is a tree of links. Link 0 is the root.
type Multibody struct {
	handle MultibodyHandle
	links  []*Link
}

func (mb *Multibody) Handle() MultibodyHandle { return mb.handle }

func (mb *Multibody) Len() int { return len(mb.links) }

// Link returns link i, false when out of range.
func (mb *Multibody) Link(i int) (*Link, bool) {
	if i < 0 || i >= len(mb.links) {
		return nil, false
	}
	return mb.links[i], true
}

// ForwardKinematics places every link from the joint offsets and velocities.
func (mb *Multibody) ForwardKinematics() {
	for _, link := range mb.links {
		c := link.constraint
		parent := actor.NewTransform()
		var parentVelocity, parentAngular mgl64.Vec3
		if c.Parent != nil {
			parent = c.Parent.Transform
			parentAngular = c.Parent.AngularVelocity
		}

		anchor := parent.Mul(c.ParentShift)
		childAnchor := anchor.Mul(c.Joint.LocalTransform())
		link.Body.Transform = childAnchor.Mul(c.BodyShift.Inverse())
		link.Body.PreviousTransform = link.Body.Transform

		if c.Parent != nil {
			parentVelocity = c.Parent.PointVelocity(childAnchor.Position)
		}
		twist := joint.Velocities(c.Joint)
		angular := parentAngular.Add(anchor.Vector(twist.Angular))
		anchorVelocity := parentVelocity.Add(anchor.Vector(twist.Linear))
		if link.Body.IsDynamic() {
			link.Body.AngularVelocity = angular
			link.Body.Velocity = anchorVelocity.Add(angular.Cross(link.Body.Transform.Position.Sub(childAnchor.Position)))
		}
	}
}

// Coordinates returns the joint offsets of all links, in link order.
func (mb *Multibody) Coordinates() []float64 {
	var q []float64
	for _, link := range mb.links {
		for i := range link.Joint().DegreesOfFreedom() {
			q = append(q, link.Dof(i).Offset)
		}
	}
	return q
}

// Velocities returns the joint velocities of all links, in link order.
func (mb *Multibody) Velocities() []float64 {
	var v []float64
	for _, link := range mb.links {
		for i := range link.Joint().DegreesOfFreedom() {
			v = append(v, link.Dof(i).Velocity)
		}
	}
	return v
}

// SetCoordinates replaces the joint offsets and places the links.
func (mb *Multibody) SetCoordinates(q []float64) error {
	if n := mb.dofCount(); len(q) != n {
		return fmt.Errorf("%w: %d coordinates for %d degrees of freedom", ErrInvalidMultibody, len(q), n)
	}
	k := 0
	for _, link := range mb.links {
		for i := range link.Joint().DegreesOfFreedom() {
			link.Dof(i).Offset = q[k]
			k++
		}
	}
	mb.ForwardKinematics()
	return nil
}

// SetDamping sets the damping of every degree of freedom.
func (mb *Multibody) SetDamping(damping float64) {
	for _, link := range mb.links {
		for i := range link.Joint().DegreesOfFreedom() {
			link.Dof(i).Damping = damping
		}
	}
}

func (mb *Multibody) dofCount() int {
	n := 0
	for _, link := range mb.links {
		n += link.Joint().DegreesOfFreedom()
	}
	return n
}

func (mb *Multibody) wake() {
	for _, link := range mb.links {
		link.Body.Awake()
	}
}

// ==========
// World

// InsertMultibody builds desc and attaches its root to the ground.
func (w *World) InsertMultibody(desc *MultibodyDesc) (MultibodyHandle, error) {
	if desc == nil {
		return MultibodyHandle{}, fmt.Errorf("%w: nil description", ErrInvalidMultibody)
	}
	mb, err := desc.Build()
	if err != nil {
		w.Logger.Debug("multibody rejected", "error", err)
		return MultibodyHandle{}, err
	}
	mb.links[0].constraint.Parent = w.ground
	mb.ForwardKinematics()

	h := MultibodyHandle{w.multibodies.Insert(mb)}
	mb.handle = h
	return h, nil
}

// RemoveMultibody removes a multibody and the colliders of its links.
func (w *World) RemoveMultibody(h MultibodyHandle) bool {
	mb, ok := w.multibodies.Remove(h.Handle)
	if !ok {
		return false
	}
	w.removeCollidersOf(func(c *Collider) bool { return c.part.Multibody == h })
	for i := range mb.links {
		w.Events.forgetPart(PartOfLink(h, i))
	}
	return true
}

func (w *World) Multibody(h MultibodyHandle) (*Multibody, bool) {
	return w.multibodies.Get(h.Handle)
}

// MultibodyLink returns link i of a multibody, false for a stale handle or an
// out of range index.
func (w *World) MultibodyLink(h MultibodyHandle, i int) (*Link, bool) {
	mb, ok := w.Multibody(h)
	if !ok {
		return nil, false
	}
	return mb.Link(i)
}

func (w *World) dof(h MultibodyHandle, link, i int) (*Multibody, *joint.Dof, bool) {
	mb, ok := w.Multibody(h)
	if !ok {
		return nil, nil, false
	}
	l, ok := mb.Link(link)
	if !ok {
		return nil, nil, false
	}
	dof := l.Dof(i)
	if dof == nil {
		return nil, nil, false
	}
	return mb, dof, true
}

// EnableMotor drives degree of freedom i of a link toward a target velocity.
// A non positive maxForce means unbounded.
func (w *World) EnableMotor(h MultibodyHandle, link, i int, target, maxForce float64) bool {
	mb, dof, ok := w.dof(h, link, i)
	if !ok {
		return false
	}
	dof.EnableMotor(target, maxForce)
	mb.wake()
	return true
}

func (w *World) DisableMotor(h MultibodyHandle, link, i int) bool {
	mb, dof, ok := w.dof(h, link, i)
	if !ok {
		return false
	}
	dof.DisableMotor()
	mb.wake()
	return true
}

// SetMotorVelocity changes the target of a motor without enabling it.
func (w *World) SetMotorVelocity(h MultibodyHandle, link, i int, target float64) bool {
	mb, dof, ok := w.dof(h, link, i)
	if !ok {
		return false
	}
	dof.TargetVelocity = target
	mb.wake()
	return true
}

// SetLimits bounds degree of freedom i. It reports false for inconsistent limits.
func (w *World) SetLimits(h MultibodyHandle, link, i int, lo, hi float64) bool {
	mb, dof, ok := w.dof(h, link, i)
	if !ok {
		return false
	}
	if err := dof.SetLimits(lo, hi); err != nil {
		w.Logger.Debug("limits rejected", "link", link, "dof", i, "error", err)
		return false
	}
	mb.wake()
	return true
}

func (w *World) DisableLimits(h MultibodyHandle, link, i int) bool {
	mb, dof, ok := w.dof(h, link, i)
	if !ok {
		return false
	}
	dof.DisableLimits()
	mb.wake()
	return true
}
