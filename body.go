package tendon

import (
	"fmt"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/arena"
	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// BodyHandle addresses a free rigid body of a World.
type BodyHandle struct{ arena.Handle }

// BodyPart designates what a collider is attached to: a free body, or one
// link of a multibody. Exactly one of Body and Multibody is set.
type BodyPart struct {
	Body      BodyHandle
	Multibody MultibodyHandle
	Link      int
}

func PartOfBody(h BodyHandle) BodyPart {
	return BodyPart{Body: h}
}

func PartOfLink(h MultibodyHandle, link int) BodyPart {
	return BodyPart{Multibody: h, Link: link}
}

func (p BodyPart) String() string {
	if !p.Multibody.IsZero() {
		return fmt.Sprintf("multibody %d/%d link %d", p.Multibody.Index, p.Multibody.Generation, p.Link)
	}
	return fmt.Sprintf("body %d/%d", p.Body.Index, p.Body.Generation)
}

// BodyDesc describes a free rigid body. With a zero Mass, a dynamic body gets
// its mass from the colliders attached to it (unit mass if none has a density).
type BodyDesc struct {
	Type            actor.BodyType
	Transform       actor.Transform
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	Mass float64
	// Inertia defaults to Mass times the identity.
	Inertia mgl64.Mat3

	LinearDamping  float64
	AngularDamping float64
}

func (d BodyDesc) validate() error {
	if !scalar.IsFiniteVec3(d.Transform.Position) || !scalar.IsFiniteVec3(d.Velocity) || !scalar.IsFiniteVec3(d.AngularVelocity) {
		return fmt.Errorf("%w: non finite body state", ErrInvalidMass)
	}
	if !scalar.IsFinite(d.Mass) || d.Mass < 0 {
		return fmt.Errorf("%w: mass %v", ErrInvalidMass, d.Mass)
	}
	if d.LinearDamping < 0 || d.AngularDamping < 0 {
		return fmt.Errorf("%w: negative damping", ErrInvalidMass)
	}
	return nil
}

// InsertBody adds a free rigid body.
func (w *World) InsertBody(desc BodyDesc) (BodyHandle, error) {
	if err := desc.validate(); err != nil {
		w.Logger.Debug("body rejected", "error", err)
		return BodyHandle{}, err
	}

	body := actor.NewRigidBody(desc.Transform, desc.Type)
	if desc.Mass > 0 {
		inertia := desc.Inertia
		if inertia == (mgl64.Mat3{}) {
			inertia = mgl64.Ident3().Mul(desc.Mass)
		}
		if err := body.SetMassProperties(desc.Mass, inertia); err != nil {
			return BodyHandle{}, err
		}
	}
	if desc.Type != actor.BodyTypeStatic {
		body.Velocity = desc.Velocity
		body.AngularVelocity = desc.AngularVelocity
	}
	body.LinearDamping = desc.LinearDamping
	body.AngularDamping = desc.AngularDamping

	return BodyHandle{w.bodies.Insert(body)}, nil
}

// RemoveBody removes a free body and every collider attached to it.
func (w *World) RemoveBody(h BodyHandle) bool {
	if _, ok := w.bodies.Remove(h.Handle); !ok {
		return false
	}
	w.removeCollidersOf(func(c *Collider) bool { return c.part.Body == h })
	w.Events.forgetPart(PartOfBody(h))
	return true
}

// Body returns the rigid body of h, false when h is stale.
func (w *World) Body(h BodyHandle) (*actor.RigidBody, bool) {
	return w.bodies.Get(h.Handle)
}

// Ground is a static body at the origin, the parent of every multibody root.
func (w *World) Ground() *actor.RigidBody {
	return w.ground
}

// BodyOf resolves a body part to its rigid body.
func (w *World) BodyOf(part BodyPart) (*actor.RigidBody, bool) {
	if !part.Multibody.IsZero() {
		if !part.Body.IsZero() {
			return nil, false
		}
		link, ok := w.MultibodyLink(part.Multibody, part.Link)
		if !ok {
			return nil, false
		}
		return link.Body, true
	}
	return w.Body(part.Body)
}

// Pose32 returns the pose of a body part in single precision, for renderers.
func (w *World) Pose32(part BodyPart) (mgl32.Vec3, mgl32.Quat, bool) {
	body, ok := w.BodyOf(part)
	if !ok {
		return mgl32.Vec3{}, mgl32.QuatIdent(), false
	}
	return scalar.Vec3To32(body.Transform.Position), scalar.QuatTo32(body.Transform.Rotation), true
}
