package tendon

import (
	"fmt"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/arena"
)

// ColliderHandle addresses a collider of a World.
type ColliderHandle struct{ arena.Handle }

// ColliderMaterial is the surface and density of a collider.
type ColliderMaterial = actor.Material

// DefaultMaterial is a unit density surface without rebound.
var DefaultMaterial = ColliderMaterial{
	Density:         1,
	Restitution:     0,
	StaticFriction:  0.5,
	DynamicFriction: 0.3,
}

type ColliderDesc struct {
	Shape    actor.ShapeInterface
	Material ColliderMaterial
	// LocalTransform places the shape relative to its body part.
	LocalTransform actor.Transform
	// Sensor colliders report trigger events and never generate contacts.
	Sensor bool
}

// Collider attaches a shape to a body part.
type Collider struct {
	Shape          actor.ShapeInterface
	Material       ColliderMaterial
	LocalTransform actor.Transform
	Sensor         bool

	part      BodyPart
	body      *actor.RigidBody
	multibody MultibodyHandle
	handle    ColliderHandle

	// refreshed every substep
	aabb   actor.AABB
	placed []actor.Placed
}

func (c *Collider) Handle() ColliderHandle { return c.handle }
func (c *Collider) Part() BodyPart         { return c.part }
func (c *Collider) Body() *actor.RigidBody { return c.body }

// AABB is the world bounding box computed at the last substep.
func (c *Collider) AABB() actor.AABB { return c.aabb }

func (c *Collider) WorldTransform() actor.Transform {
	return c.body.Transform.Mul(c.LocalTransform)
}

func (c *Collider) refresh() {
	transform := c.WorldTransform()
	c.aabb = c.Shape.ComputeAABB(transform)
	c.placed = actor.Flatten(c.placed[:0], c.Shape, transform)
}

// InsertCollider attaches a collider to a free body or a multibody link.
// A positive density adds the collider mass to a dynamic part.
func (w *World) InsertCollider(desc ColliderDesc, part BodyPart) (ColliderHandle, error) {
	if !part.Body.IsZero() && !part.Multibody.IsZero() {
		return ColliderHandle{}, fmt.Errorf("%w: both a body and a multibody", ErrInvalidBodyPart)
	}
	body, ok := w.BodyOf(part)
	if !ok {
		return ColliderHandle{}, fmt.Errorf("%w: %s", ErrInvalidBodyPart, part)
	}
	if desc.Shape == nil {
		return ColliderHandle{}, fmt.Errorf("%w: nil shape", ErrInvalidShape)
	}
	if err := desc.Shape.Validate(); err != nil {
		w.Logger.Debug("collider rejected", "part", part.String(), "error", err)
		return ColliderHandle{}, err
	}
	if err := desc.Material.Validate(); err != nil {
		return ColliderHandle{}, fmt.Errorf("collider material: %w", err)
	}

	local := desc.LocalTransform.Normalize()
	if desc.Material.Density > 0 && body.IsDynamic() && desc.Shape.Type() != actor.ShapeTypePlane {
		mass := desc.Shape.ComputeMass(desc.Material.Density)
		inertia := actor.ShiftInertia(desc.Shape.ComputeInertia(mass), mass, local)
		if err := body.AddMassProperties(mass, inertia); err != nil {
			return ColliderHandle{}, err
		}
	}

	collider := &Collider{
		Shape:          desc.Shape,
		Material:       desc.Material,
		LocalTransform: local,
		Sensor:         desc.Sensor,
		part:           part,
		body:           body,
		multibody:      part.Multibody,
	}
	h := ColliderHandle{w.colliders.Insert(collider)}
	collider.handle = h
	collider.refresh()

	return h, nil
}

// RemoveCollider detaches a collider. The mass it added stays on the body.
func (w *World) RemoveCollider(h ColliderHandle) bool {
	if _, ok := w.colliders.Remove(h.Handle); !ok {
		return false
	}
	w.Events.forgetCollider(h)
	return true
}

func (w *World) Collider(h ColliderHandle) (*Collider, bool) {
	return w.colliders.Get(h.Handle)
}

func (w *World) removeCollidersOf(match func(c *Collider) bool) {
	var stale []ColliderHandle
	w.colliders.Each(func(h arena.Handle, c *Collider) bool {
		if match(c) {
			stale = append(stale, ColliderHandle{h})
		}
		return true
	})
	for _, h := range stale {
		w.RemoveCollider(h)
	}
}

// activeColliders refreshes and lists the colliders in handle order.
func (w *World) activeColliders() []*Collider {
	w.colliderList = w.colliderList[:0]
	w.colliders.Each(func(_ arena.Handle, c *Collider) bool {
		w.colliderList = append(w.colliderList, c)
		return true
	})
	task(w.config.Workers, w.colliderList, func(c *Collider) {
		c.refresh()
	})
	return w.colliderList
}
