package actor

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidShape is returned when a shape is built from malformed parameters.
var ErrInvalidShape = errors.New("actor: invalid shape")

// degenerateVolume is the volume under which a bounded shape produces no contact.
const degenerateVolume = 1e-12

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypePlane
	ShapeTypeCompound
)

// ShapeInterface is the interface that all collision shapes must implement.
// Shapes are immutable and may be shared by several colliders.
type ShapeInterface interface {
	Type() ShapeType
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform
	ComputeAABB(transform Transform) AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	Volume() float64
	Support(direction mgl64.Vec3) mgl64.Vec3
	GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3
	Validate() error
}

// IsDegenerate reports whether shape has no volume to collide with.
// Planes are never degenerate.
func IsDegenerate(shape ShapeInterface) bool {
	if shape == nil {
		return true
	}
	if shape.Type() == ShapeTypePlane {
		return false
	}
	v := shape.Volume()
	return math.IsNaN(v) || v <= degenerateVolume
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
}

// NewBox returns a validated box.
func NewBox(halfExtents mgl64.Vec3) (*Box, error) {
	b := &Box{HalfExtents: halfExtents}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

func (b *Box) Validate() error {
	if !scalar.IsFiniteVec3(b.HalfExtents) {
		return fmt.Errorf("%w: box half extents %v are not finite", ErrInvalidShape, b.HalfExtents)
	}
	if b.HalfExtents.X() < 0 || b.HalfExtents.Y() < 0 || b.HalfExtents.Z() < 0 {
		return fmt.Errorf("%w: box half extents %v must not be negative", ErrInvalidShape, b.HalfExtents)
	}
	return nil
}

func (b *Box) ComputeAABB(transform Transform) AABB {
	// Les 8 coins de la boîte en espace local
	corners := [8]mgl64.Vec3{
		{-b.HalfExtents.X(), -b.HalfExtents.Y(), -b.HalfExtents.Z()},
		{+b.HalfExtents.X(), -b.HalfExtents.Y(), -b.HalfExtents.Z()},
		{-b.HalfExtents.X(), +b.HalfExtents.Y(), -b.HalfExtents.Z()},
		{+b.HalfExtents.X(), +b.HalfExtents.Y(), -b.HalfExtents.Z()},
		{-b.HalfExtents.X(), -b.HalfExtents.Y(), +b.HalfExtents.Z()},
		{+b.HalfExtents.X(), -b.HalfExtents.Y(), +b.HalfExtents.Z()},
		{-b.HalfExtents.X(), +b.HalfExtents.Y(), +b.HalfExtents.Z()},
		{+b.HalfExtents.X(), +b.HalfExtents.Y(), +b.HalfExtents.Z()},
	}

	aabb := EmptyAABB()
	for _, corner := range corners {
		worldCorner := transform.Point(corner)
		aabb = aabb.Union(AABB{Min: worldCorner, Max: worldCorner})
	}

	return aabb
}

func (b *Box) Volume() float64 {
	return 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()
}

// ComputeMass calculates mass data for the box
func (b *Box) ComputeMass(density float64) float64 {
	return density * b.Volume()
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	// I = (m/12) * (dimension1² + dimension2²)
	factor := mass / 12.0
	return mgl64.Diag3(mgl64.Vec3{
		factor * (y*y + z*z),
		factor * (x*x + z*z),
		factor * (x*x + y*y),
	})
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

// GetContactFeature returns the face whose normal is the most aligned with
// direction, as a closed polygon.
func (b *Box) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	hx := b.HalfExtents.X()
	hy := b.HalfExtents.Y()
	hz := b.HalfExtents.Z()

	// Pick the dominant axis, then its sign
	abs := mgl64.Vec3{math.Abs(direction.X()), math.Abs(direction.Y()), math.Abs(direction.Z())}
	switch {
	case abs.X() >= abs.Y() && abs.X() >= abs.Z():
		if direction.X() >= 0 {
			return []mgl64.Vec3{{hx, -hy, -hz}, {hx, -hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}
		}
		return []mgl64.Vec3{{-hx, -hy, hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {-hx, hy, hz}}
	case abs.Y() >= abs.Z():
		if direction.Y() >= 0 {
			return []mgl64.Vec3{{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}
		}
		return []mgl64.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, -hy, -hz}, {-hx, -hy, -hz}}
	default:
		if direction.Z() >= 0 {
			return []mgl64.Vec3{{-hx, -hy, hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, -hy, hz}}
		}
		return []mgl64.Vec3{{hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}}
	}
}

// Sphere represents a spherical collision shape
type Sphere struct {
	Radius float64
}

// NewSphere returns a validated sphere.
func NewSphere(radius float64) (*Sphere, error) {
	s := &Sphere{Radius: radius}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

func (s *Sphere) Validate() error {
	if !scalar.IsFinite(s.Radius) || s.Radius < 0 {
		return fmt.Errorf("%w: sphere radius %v", ErrInvalidShape, s.Radius)
	}
	return nil
}

// ComputeAABB calculates the axis-aligned bounding box for the sphere
func (s *Sphere) ComputeAABB(transform Transform) AABB {
	// Sphere AABB is not affected by rotation, only by position
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	return AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

func (s *Sphere) Volume() float64 {
	return (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)
}

// ComputeMass calculates mass data for the sphere
func (s *Sphere) ComputeMass(density float64) float64 {
	return density * s.Volume()
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (2/5) * m * r²
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() < 1e-24 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

// Plane represents an infinite plane collision shape
// The plane is defined by the equation: Normal · p + Distance = 0
// where Normal is the plane's normal vector (must be normalized)
// and Distance is the signed distance from the origin along the normal
type Plane struct {
	Normal   mgl64.Vec3 // Plane normal (must be normalized)
	Distance float64    // Plane constant (signed distance from origin)
}

// NewPlane returns a plane with a normalized normal.
func NewPlane(normal mgl64.Vec3, distance float64) (*Plane, error) {
	p := &Plane{Normal: normal, Distance: distance}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Normal = normal.Normalize()
	return p, nil
}

func (p *Plane) Type() ShapeType { return ShapeTypePlane }

func (p *Plane) Validate() error {
	if !scalar.IsFiniteVec3(p.Normal) || !scalar.IsFinite(p.Distance) {
		return fmt.Errorf("%w: plane parameters are not finite", ErrInvalidShape)
	}
	if p.Normal.Len() < 1e-9 {
		return fmt.Errorf("%w: plane normal has zero length", ErrInvalidShape)
	}
	return nil
}

// ComputeAABB returns an unbounded box, except along the normal when the
// plane is axis aligned.
func (p *Plane) ComputeAABB(transform Transform) AABB {
	const thickness = 1.0 // épaisseur de détection du plan
	const infinity = 1e10 // grande valeur pour les dimensions infinies

	normal := transform.Vector(p.Normal)
	planePoint := transform.Point(p.Normal.Mul(-p.Distance))

	aabb := AABB{
		Min: mgl64.Vec3{-infinity, -infinity, -infinity},
		Max: mgl64.Vec3{infinity, infinity, infinity},
	}
	for i := 0; i < 3; i++ {
		if math.Abs(normal[i]) > 1-1e-9 {
			if normal[i] > 0 {
				aabb.Min[i] = planePoint[i] - thickness
				aabb.Max[i] = planePoint[i]
			} else {
				aabb.Min[i] = planePoint[i]
				aabb.Max[i] = planePoint[i] + thickness
			}
		}
	}

	return aabb
}

func (p *Plane) Volume() float64 {
	return math.Inf(1)
}

// ComputeMass calculates mass data for the plane
// Planes are always static with infinite mass
func (p *Plane) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

// Support treats the plane as a large thin slab below its surface.
func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	const halfSize = 1000.0
	const halfThickness = 0.5

	normal := p.Normal.Normalize()
	tangent1, tangent2 := getTangentBasis(normal)
	center := normal.Mul(-p.Distance)

	support := center
	if direction.Dot(tangent1) < 0 {
		support = support.Sub(tangent1.Mul(halfSize))
	} else {
		support = support.Add(tangent1.Mul(halfSize))
	}
	if direction.Dot(tangent2) < 0 {
		support = support.Sub(tangent2.Mul(halfSize))
	} else {
		support = support.Add(tangent2.Mul(halfSize))
	}
	if direction.Dot(normal) <= 0 {
		support = support.Sub(normal.Mul(2 * halfThickness))
	}

	return support
}

func (p *Plane) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	// For a plane, return 4 points forming a large square
	// IN LOCAL SPACE (centered on the plane origin)
	tangent1, tangent2 := getTangentBasis(p.Normal)
	center := p.Normal.Mul(-p.Distance)

	// Large size to cover contacts
	size := 1000.0

	return []mgl64.Vec3{
		center.Add(tangent1.Mul(-size)).Add(tangent2.Mul(-size)),
		center.Add(tangent1.Mul(-size)).Add(tangent2.Mul(size)),
		center.Add(tangent1.Mul(size)).Add(tangent2.Mul(size)),
		center.Add(tangent1.Mul(size)).Add(tangent2.Mul(-size)),
	}
}

// WorldPlane returns the plane's normal and a point on it in world space.
func (p *Plane) WorldPlane(transform Transform) (normal, point mgl64.Vec3) {
	normal = transform.Vector(p.Normal).Normalize()
	point = transform.Point(p.Normal.Mul(-p.Distance))
	return normal, point
}

// Helper to generate the tangent basis
func getTangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}

// TangentBasis returns two unit vectors orthogonal to normal and to each other.
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	return getTangentBasis(normal)
}
