package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CompoundChild is one shape of a Compound, placed relative to the compound origin.
type CompoundChild struct {
	Shape     ShapeInterface
	Transform Transform
}

// Compound groups several shapes into a single rigid shape.
// Mass is distributed proportionally to each child's volume.
type Compound struct {
	Children []CompoundChild
	volume   float64
}

// NewCompound returns a validated compound. Planes cannot be children.
func NewCompound(children ...CompoundChild) (*Compound, error) {
	c := &Compound{Children: make([]CompoundChild, len(children))}
	for i, child := range children {
		c.Children[i] = CompoundChild{Shape: child.Shape, Transform: child.Transform.Normalize()}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	for _, child := range c.Children {
		c.volume += child.Shape.Volume()
	}
	return c, nil
}

func (c *Compound) Type() ShapeType { return ShapeTypeCompound }

func (c *Compound) Validate() error {
	if len(c.Children) == 0 {
		return fmt.Errorf("%w: compound has no children", ErrInvalidShape)
	}
	for i, child := range c.Children {
		if child.Shape == nil {
			return fmt.Errorf("%w: compound child %d has no shape", ErrInvalidShape, i)
		}
		if child.Shape.Type() == ShapeTypePlane {
			return fmt.Errorf("%w: compound child %d is a plane", ErrInvalidShape, i)
		}
		if err := child.Shape.Validate(); err != nil {
			return fmt.Errorf("compound child %d: %w", i, err)
		}
	}
	return nil
}

func (c *Compound) ComputeAABB(transform Transform) AABB {
	aabb := EmptyAABB()
	for _, child := range c.Children {
		aabb = aabb.Union(child.Shape.ComputeAABB(transform.Mul(child.Transform)))
	}
	return aabb
}

func (c *Compound) Volume() float64 {
	if c.volume == 0 {
		for _, child := range c.Children {
			c.volume += child.Shape.Volume()
		}
	}
	return c.volume
}

func (c *Compound) ComputeMass(density float64) float64 {
	return density * c.Volume()
}

// ComputeInertia sums the children's inertia about the compound origin
// (parallel axis theorem).
func (c *Compound) ComputeInertia(mass float64) mgl64.Mat3 {
	total := c.Volume()
	var inertia mgl64.Mat3
	if total <= 0 {
		return inertia
	}

	for _, child := range c.Children {
		childMass := mass * child.Shape.Volume() / total
		local := child.Shape.ComputeInertia(childMass)
		inertia = inertia.Add(ShiftInertia(local, childMass, child.Transform))
	}
	return inertia
}

// ShiftInertia rotates a body-frame inertia tensor by t.Rotation and moves it
// to t.Position: I' = R I Rᵀ + m (|d|² E − d dᵀ).
func ShiftInertia(inertia mgl64.Mat3, mass float64, t Transform) mgl64.Mat3 {
	r := t.Rotation.Mat4().Mat3()
	rotated := r.Mul3(inertia).Mul3(r.Transpose())

	d := t.Position
	dd := d.Dot(d)
	outer := d.OuterProd3(d)
	shift := mgl64.Ident3().Mul(dd).Sub(outer).Mul(mass)

	return rotated.Add(shift)
}

// Support of a compound is the support of its convex hull.
func (c *Compound) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := math.Inf(-1)
	var support mgl64.Vec3
	for _, child := range c.Children {
		local := child.Transform.InverseVector(direction)
		p := child.Transform.Point(child.Shape.Support(local))
		if d := p.Dot(direction); d > best {
			best = d
			support = p
		}
	}
	return support
}

// GetContactFeature returns the feature of the child extending the furthest
// along direction.
func (c *Compound) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	best := math.Inf(-1)
	var bestChild *CompoundChild
	for i := range c.Children {
		child := &c.Children[i]
		local := child.Transform.InverseVector(direction)
		p := child.Transform.Point(child.Shape.Support(local))
		if d := p.Dot(direction); d > best {
			best = d
			bestChild = child
		}
	}
	if bestChild == nil {
		return nil
	}

	feature := bestChild.Shape.GetContactFeature(bestChild.Transform.InverseVector(direction))
	for i, p := range feature {
		feature[i] = bestChild.Transform.Point(p)
	}
	return feature
}

// Flatten appends the convex pieces of shape placed at transform to dst.
// Compounds are expanded recursively.
func Flatten(dst []Placed, shape ShapeInterface, transform Transform) []Placed {
	if c, ok := shape.(*Compound); ok {
		for _, child := range c.Children {
			dst = Flatten(dst, child.Shape, transform.Mul(child.Transform))
		}
		return dst
	}
	return append(dst, Placed{Shape: shape, Transform: transform})
}
