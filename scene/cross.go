package scene

import (
	"fmt"

	"github.com/akmonengine/tendon"
	"github.com/akmonengine/tendon/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultCrossCount is the number of crosses along each axis of the cross scene.
const DefaultCrossCount = 6

const crossRadius = 5.0

var (
	groundMaterial = tendon.ColliderMaterial{Density: 0, Restitution: 0.3, StaticFriction: 0.6, DynamicFriction: 0.6}
	crossMaterial  = tendon.ColliderMaterial{Density: 1, Restitution: 0.3, StaticFriction: 0.5, DynamicFriction: 0.5}
)

// NewCross returns three orthogonal bars of length 2*radius sharing their center.
func NewCross(radius, thickness float64) (*actor.Compound, error) {
	bars := []mgl64.Vec3{
		{radius, thickness, thickness},
		{thickness, radius, thickness},
		{thickness, thickness, radius},
	}
	children := make([]actor.CompoundChild, 0, len(bars))
	for _, half := range bars {
		box, err := actor.NewBox(half)
		if err != nil {
			return nil, err
		}
		children = append(children, actor.CompoundChild{Shape: box, Transform: actor.NewTransform()})
	}
	return actor.NewCompound(children...)
}

// Ground adds a static body holding the y-up plane through the origin.
func Ground(w *tendon.World, material tendon.ColliderMaterial) (tendon.BodyHandle, error) {
	h, err := w.InsertBody(tendon.BodyDesc{Type: actor.BodyTypeStatic, Transform: actor.NewTransform()})
	if err != nil {
		return h, err
	}
	plane, err := actor.NewPlane(mgl64.Vec3{0, 1, 0}, 0)
	if err != nil {
		return h, err
	}
	_, err = w.InsertCollider(tendon.ColliderDesc{Shape: plane, Material: material}, tendon.PartOfBody(h))
	return h, err
}

// Cross drops a num*num*num block of crosses on a plane.
func Cross(w *tendon.World, num int) (*Scene, error) {
	if num < 1 {
		return nil, fmt.Errorf("cross scene: count %d < 1", num)
	}
	s := newScene("cross", w)

	if _, err := Ground(w, groundMaterial); err != nil {
		return nil, fmt.Errorf("cross scene: %w", err)
	}

	// every collider shares the same compound
	cross, err := NewCross(crossRadius, 0.25)
	if err != nil {
		return nil, err
	}

	shift := (crossRadius + 0.08) * 2
	centerX := shift * float64(num) / 2
	centerY := 30 + shift/2
	centerZ := shift * float64(num) / 2

	for i := range num {
		for j := range num {
			for k := range num {
				position := mgl64.Vec3{
					float64(i)*shift - centerX,
					float64(j)*shift + centerY,
					float64(k)*shift - centerZ,
				}
				h, err := w.InsertBody(tendon.BodyDesc{Transform: actor.Translation(position)})
				if err != nil {
					return nil, err
				}
				if _, err := w.InsertCollider(tendon.ColliderDesc{Shape: cross, Material: crossMaterial}, tendon.PartOfBody(h)); err != nil {
					return nil, err
				}
			}
		}
	}

	w.Logger.Info("scene ready", "scene", s.Name, "crosses", num*num*num)
	return s, nil
}
