package scene

import (
	"fmt"
	"math"

	"github.com/akmonengine/tendon"
	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/joint"
	"github.com/go-gl/mathgl/mgl64"
)

const linkRadius = 0.2

var linkMaterial = tendon.ColliderMaterial{Density: 1, StaticFriction: 0.5, DynamicFriction: 0.3}

// Helical and pin-slot motor rules of the multibody scene.
var (
	HelicalRule = MotorRule{EnableBelow: -5, DisableAbove: 0, Target: 4}
	PinSlotRule = MotorRule{EnableBelow: -10, DisableAbove: -4, Target: 3}
)

// multibodyBuilder keeps the first error so the scene reads as a sequence.
type multibodyBuilder struct {
	w   *tendon.World
	s   *Scene
	err error
}

func (b *multibodyBuilder) check(err error) bool {
	if err != nil && b.err == nil {
		b.err = err
	}
	return b.err == nil
}

// insert adds desc and one collider of shape per link.
func (b *multibodyBuilder) insert(name string, desc *tendon.MultibodyDesc, shape actor.ShapeInterface) tendon.MultibodyHandle {
	if b.err != nil {
		return tendon.MultibodyHandle{}
	}
	h, err := b.w.InsertMultibody(desc)
	if !b.check(err) {
		b.err = fmt.Errorf("%s: %w", name, err)
		return h
	}
	mb, _ := b.w.Multibody(h)
	for i := range mb.Len() {
		_, err := b.w.InsertCollider(tendon.ColliderDesc{Shape: shape, Material: linkMaterial}, tendon.PartOfLink(h, i))
		if !b.check(err) {
			return h
		}
	}
	if name != "" {
		b.s.Multibodies[name] = h
	}
	return h
}

// Multibody builds one multibody per joint type: revolute, prismatic and
// ball chains, a fixed+universal pair with a motor, a helical and a pin-slot
// joint whose motors are toggled by offset, and grids of planar and
// rectangular joints.
func Multibody(w *tendon.World) (*Scene, error) {
	s := newScene("multibody", w)
	b := &multibodyBuilder{w: w, s: s}

	cuboid, err := actor.NewBox(mgl64.Vec3{linkRadius, linkRadius, linkRadius})
	if err != nil {
		return nil, err
	}
	const num = 6

	// anchor for grabbing links
	ground, err := w.InsertBody(tendon.BodyDesc{Type: actor.BodyTypeStatic, Transform: actor.NewTransform()})
	if b.check(err) {
		s.Ground = ground
	}

	// ========== Revolute chain ==========
	revolute, err := joint.NewRevolute(mgl64.Vec3{1, 0, 0})
	if b.check(err) {
		revolute.Dof(0).Offset = -0.1
		bodyShift := mgl64.Vec3{0, 0, linkRadius * 3.2}
		desc := tendon.NewMultibodyDesc(revolute).
			SetBodyShift(bodyShift).
			SetParentShift(mgl64.Vec3{0, 5, 11})
		curr := desc
		for range num {
			curr = curr.AddChild(revolute).SetBodyShift(bodyShift)
		}
		h := b.insert("revolute", desc, cuboid)
		s.Probes = append(s.Probes, Probe{Label: "revolute", Multibody: h})
	}

	// ========== Prismatic chain ==========
	prismatic, err := joint.NewPrismatic(mgl64.Vec3{0, 1, 0})
	if b.check(err) {
		// keeps the chain from falling indefinitely
		prismatic.Dof(0).SetMin(-linkRadius * 2)
		desc := tendon.NewMultibodyDesc(prismatic).SetParentShift(mgl64.Vec3{0, 5, 5})
		curr := desc
		for range num {
			curr = curr.AddChild(prismatic).SetParentShift(mgl64.Vec3{0, 0, linkRadius * 3})
		}
		b.insert("prismatic", desc, cuboid)
	}

	// ========== Ball chain ==========
	{
		ball := joint.NewBall()
		desc := tendon.NewMultibodyDesc(ball).SetParentShift(mgl64.Vec3{0, 5, 0})
		curr := desc
		for i := range num {
			// links start along a circle
			angle := float64(i) * 2 * math.Pi / num
			bodyShift := mgl64.Vec3{math.Cos(angle), 0.3, math.Sin(angle)}.Mul(linkRadius * 5)
			curr = curr.AddChild(ball).SetBodyShift(bodyShift)
		}
		b.insert("ball", desc, cuboid)
	}

	// ========== Fixed + universal ==========
	universal, err := joint.NewUniversal(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1})
	if b.check(err) {
		universal.Dof(1).EnableMotor(5, 0)
		desc := tendon.NewMultibodyDesc(joint.NewFixed(actor.NewTransform())).
			SetParentShift(mgl64.Vec3{0, 3, -5})
		desc.AddChild(universal).SetBodyShift(mgl64.Vec3{0, 0, -1})
		h := b.insert("universal", desc, cuboid)
		// balances indefinitely
		if mb, ok := w.Multibody(h); ok {
			mb.SetDamping(0)
		}
	}

	// ========== Helical ==========
	helical, err := joint.NewHelical(mgl64.Vec3{0, 1, 0}, 1)
	if b.check(err) {
		helical.Dof(0).TargetVelocity = HelicalRule.Target
		desc := tendon.NewMultibodyDesc(helical).SetParentShift(mgl64.Vec3{0, -2, 10})
		h := b.insert("helical", desc, cuboid)
		rule := HelicalRule
		rule.Multibody = h
		s.AddRule(rule)
		s.Probes = append(s.Probes, Probe{Label: "helical", Multibody: h})
	}

	// ========== Planar and rectangular grids ==========
	width := 5 * linkRadius * 4
	for _, grid := range []struct {
		name  string
		shift mgl64.Vec3
		build func(x, y float64) (joint.Joint, error)
	}{
		{"planar", mgl64.Vec3{0, -2, 5}, func(x, y float64) (joint.Joint, error) {
			j, err := joint.NewPlanar(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0})
			if err != nil {
				return nil, err
			}
			j.Dof(0).Offset, j.Dof(1).Offset = x, y
			return j, nil
		}},
		{"rectangular", mgl64.Vec3{0, -2, 0}, func(x, y float64) (joint.Joint, error) {
			j, err := joint.NewRectangular(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0})
			if err != nil {
				return nil, err
			}
			j.Dof(0).Offset, j.Dof(1).Offset = x, y
			return j, nil
		}},
	} {
		for i := range 5 {
			for k := range 5 {
				x := float64(i)*linkRadius*4 - width/2
				y := float64(k)*linkRadius*4 - width/2
				if k%2 == 0 {
					x += linkRadius * 2
				}
				j, err := grid.build(x, y)
				if !b.check(err) {
					break
				}
				b.check(j.Dof(0).SetLimits(-width/2, width/2))
				j.Dof(1).SetMin(-5)
				b.insert(fmt.Sprintf("%s-%d-%d", grid.name, i, k), tendon.NewMultibodyDesc(j).SetParentShift(grid.shift), cuboid)
			}
		}
	}

	// ========== Pin-slot ==========
	slab, err := actor.NewBox(mgl64.Vec3{linkRadius * 5, linkRadius, linkRadius * 5})
	b.check(err)
	pinSlot, err := joint.NewPinSlot(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0})
	if b.check(err) {
		pinSlot.Dof(0).Offset = -10
		pinSlot.Dof(0).TargetVelocity = PinSlotRule.Target
		desc := tendon.NewMultibodyDesc(pinSlot).SetParentShift(mgl64.Vec3{0, 0, -1.5})
		h := b.insert("pinslot", desc, slab)
		rule := PinSlotRule
		rule.Multibody = h
		s.AddRule(rule)
		s.Probes = append(s.Probes, Probe{Label: "pin-slot", Multibody: h})
	}

	if b.err != nil {
		return nil, fmt.Errorf("multibody scene: %w", b.err)
	}
	w.Logger.Info("scene ready", "scene", s.Name, "multibodies", len(s.Multibodies))
	return s, nil
}
