package actor

import "github.com/go-gl/mathgl/mgl64"

// Placed is a convex shape at a world transform, the unit the narrow phase
// works on.
type Placed struct {
	Shape     ShapeInterface
	Transform Transform
}

// SupportWorld returns the point of the placed shape furthest along direction.
func (p Placed) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	// 1. Transformer la direction en espace local (rotation inverse)
	localDirection := p.Transform.InverseVector(direction)

	// 2. Trouver le support en espace local
	localSupport := p.Shape.Support(localDirection)

	// 3. Transformer le point support en espace monde (rotation + translation)
	return p.Transform.Point(localSupport)
}

// Center is the origin of the shape in world space.
func (p Placed) Center() mgl64.Vec3 {
	return p.Transform.Position
}

// AABB returns the world bounding box.
func (p Placed) AABB() AABB {
	return p.Shape.ComputeAABB(p.Transform)
}

// WorldFeature returns the contact feature facing direction (world space),
// itself in world space.
func (p Placed) WorldFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	feature := p.Shape.GetContactFeature(p.Transform.InverseVector(direction))
	result := make([]mgl64.Vec3, len(feature))
	for i, point := range feature {
		result[i] = p.Transform.Point(point)
	}
	return result
}
