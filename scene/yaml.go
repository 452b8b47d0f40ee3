package scene

import (
	"errors"
	"fmt"
	"os"

	"github.com/akmonengine/tendon"
	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/joint"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDescription is returned for a scene file that cannot be built.
var ErrInvalidDescription = errors.New("scene: invalid description")

// Description is the YAML form of a scene.
type Description struct {
	Name        string         `yaml:"name"`
	Config      *tendon.Config `yaml:"config,omitempty"`
	Ground      *MaterialDef   `yaml:"ground,omitempty"`
	Bodies      []BodyDef      `yaml:"bodies,omitempty"`
	Multibodies []MultibodyDef `yaml:"multibodies,omitempty"`
	Rules       []RuleDef      `yaml:"rules,omitempty"`
	Probes      []ProbeDef     `yaml:"probes,omitempty"`
}

type MaterialDef struct {
	Density         float64 `yaml:"density"`
	Restitution     float64 `yaml:"restitution"`
	StaticFriction  float64 `yaml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction"`
}

func (m *MaterialDef) material() tendon.ColliderMaterial {
	if m == nil {
		return tendon.DefaultMaterial
	}
	return tendon.ColliderMaterial(*m)
}

// RotationDef is an angle (radians) about an axis.
type RotationDef struct {
	Angle float64    `yaml:"angle"`
	Axis  mgl64.Vec3 `yaml:"axis"`
}

func transform(position mgl64.Vec3, rotation *RotationDef) actor.Transform {
	t := actor.Translation(position)
	if rotation != nil && rotation.Axis.Len() > 0 {
		t.Rotation = mgl64.QuatRotate(rotation.Angle, rotation.Axis.Normalize())
	}
	return t
}

type ShapeDef struct {
	// Type is one of box, sphere, plane, compound.
	Type        string     `yaml:"type"`
	HalfExtents mgl64.Vec3 `yaml:"half_extents,omitempty"`
	Radius      float64    `yaml:"radius,omitempty"`
	Normal      mgl64.Vec3 `yaml:"normal,omitempty"`
	Distance    float64    `yaml:"distance,omitempty"`
	Children    []ChildDef `yaml:"children,omitempty"`
}

type ChildDef struct {
	Shape    ShapeDef     `yaml:"shape"`
	Position mgl64.Vec3   `yaml:"position"`
	Rotation *RotationDef `yaml:"rotation,omitempty"`
}

func (s ShapeDef) build() (actor.ShapeInterface, error) {
	switch s.Type {
	case "box":
		return actor.NewBox(s.HalfExtents)
	case "sphere":
		return actor.NewSphere(s.Radius)
	case "plane":
		return actor.NewPlane(s.Normal, s.Distance)
	case "compound":
		children := make([]actor.CompoundChild, 0, len(s.Children))
		for i, child := range s.Children {
			shape, err := child.Shape.build()
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children = append(children, actor.CompoundChild{Shape: shape, Transform: transform(child.Position, child.Rotation)})
		}
		return actor.NewCompound(children...)
	}
	return nil, fmt.Errorf("%w: unknown shape %q", ErrInvalidDescription, s.Type)
}

type ColliderDef struct {
	Shape    ShapeDef     `yaml:"shape"`
	Material *MaterialDef `yaml:"material,omitempty"`
	Position mgl64.Vec3   `yaml:"position,omitempty"`
	Rotation *RotationDef `yaml:"rotation,omitempty"`
	Sensor   bool         `yaml:"sensor,omitempty"`
}

func (c ColliderDef) insert(w *tendon.World, part tendon.BodyPart) error {
	shape, err := c.Shape.build()
	if err != nil {
		return err
	}
	_, err = w.InsertCollider(tendon.ColliderDesc{
		Shape:          shape,
		Material:       c.Material.material(),
		LocalTransform: transform(c.Position, c.Rotation),
		Sensor:         c.Sensor,
	}, part)
	return err
}

type BodyDef struct {
	// Type is dynamic (default), static or kinematic.
	Type            string        `yaml:"type,omitempty"`
	Position        mgl64.Vec3    `yaml:"position"`
	Rotation        *RotationDef  `yaml:"rotation,omitempty"`
	Velocity        mgl64.Vec3    `yaml:"velocity,omitempty"`
	AngularVelocity mgl64.Vec3    `yaml:"angular_velocity,omitempty"`
	Mass            float64       `yaml:"mass,omitempty"`
	Colliders       []ColliderDef `yaml:"colliders,omitempty"`
}

func parseBodyType(name string) (actor.BodyType, error) {
	switch name {
	case "", "dynamic":
		return actor.BodyTypeDynamic, nil
	case "static":
		return actor.BodyTypeStatic, nil
	case "kinematic":
		return actor.BodyTypeKinematic, nil
	}
	return 0, fmt.Errorf("%w: unknown body type %q", ErrInvalidDescription, name)
}

type LimitDef struct {
	Dof int      `yaml:"dof"`
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

type MotorDef struct {
	Dof      int     `yaml:"dof"`
	Target   float64 `yaml:"target"`
	MaxForce float64 `yaml:"max_force,omitempty"`
	Enabled  bool    `yaml:"enabled"`
}

type JointDef struct {
	// Type is a joint kind name: fixed, free, revolute, prismatic, ball,
	// universal, helical, planar, rectangular, pinslot.
	Type    string     `yaml:"type"`
	Axis    mgl64.Vec3 `yaml:"axis,omitempty"`
	Axis2   mgl64.Vec3 `yaml:"axis2,omitempty"`
	Pitch   float64    `yaml:"pitch,omitempty"`
	Offsets []float64  `yaml:"offsets,omitempty"`
	Limits  []LimitDef `yaml:"limits,omitempty"`
	Motors  []MotorDef `yaml:"motors,omitempty"`
}

func (s JointDef) build() (joint.Joint, error) {
	kind, ok := joint.ParseKind(s.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown joint %q", ErrInvalidDescription, s.Type)
	}

	var j joint.Joint
	var err error
	switch kind {
	case joint.KindFixed:
		j = joint.NewFixed(actor.NewTransform())
	case joint.KindFree:
		j = joint.NewFree()
	case joint.KindRevolute:
		j, err = nonNil(joint.NewRevolute(s.Axis))
	case joint.KindPrismatic:
		j, err = nonNil(joint.NewPrismatic(s.Axis))
	case joint.KindBall:
		j = joint.NewBall()
	case joint.KindUniversal:
		j, err = nonNil(joint.NewUniversal(s.Axis, s.Axis2))
	case joint.KindHelical:
		j, err = nonNil(joint.NewHelical(s.Axis, s.Pitch))
	case joint.KindPlanar:
		j, err = nonNil(joint.NewPlanar(s.Axis, s.Axis2))
	case joint.KindRectangular:
		j, err = nonNil(joint.NewRectangular(s.Axis, s.Axis2))
	case joint.KindPinSlot:
		j, err = nonNil(joint.NewPinSlot(s.Axis, s.Axis2))
	}
	if err != nil {
		return nil, err
	}

	if len(s.Offsets) > j.DegreesOfFreedom() {
		return nil, fmt.Errorf("%w: %d offsets for a %s joint", ErrInvalidDescription, len(s.Offsets), kind)
	}
	for i, offset := range s.Offsets {
		j.Dof(i).Offset = offset
	}
	for _, l := range s.Limits {
		dof := j.Dof(l.Dof)
		if dof == nil {
			return nil, fmt.Errorf("%w: limit on dof %d of a %s joint", ErrInvalidDescription, l.Dof, kind)
		}
		if l.Min != nil {
			dof.SetMin(*l.Min)
		}
		if l.Max != nil {
			dof.SetMax(*l.Max)
		}
	}
	for _, m := range s.Motors {
		dof := j.Dof(m.Dof)
		if dof == nil {
			return nil, fmt.Errorf("%w: motor on dof %d of a %s joint", ErrInvalidDescription, m.Dof, kind)
		}
		dof.TargetVelocity = m.Target
		if m.Enabled {
			dof.EnableMotor(m.Target, m.MaxForce)
		}
	}
	return j, j.Validate()
}

// nonNil keeps a failed constructor from producing a non nil interface
// holding a nil pointer.
func nonNil[J joint.Joint](j J, err error) (joint.Joint, error) {
	if err != nil {
		return nil, err
	}
	return j, nil
}

type LinkDef struct {
	Joint       JointDef     `yaml:"joint"`
	ParentShift mgl64.Vec3   `yaml:"parent_shift,omitempty"`
	BodyShift   mgl64.Vec3   `yaml:"body_shift,omitempty"`
	Mass        float64      `yaml:"mass,omitempty"`
	Collider    *ColliderDef `yaml:"collider,omitempty"`
	Children    []LinkDef    `yaml:"children,omitempty"`
}

func (l LinkDef) desc(parent *tendon.MultibodyDesc) (*tendon.MultibodyDesc, error) {
	j, err := l.Joint.build()
	if err != nil {
		return nil, err
	}
	var d *tendon.MultibodyDesc
	if parent == nil {
		d = tendon.NewMultibodyDesc(j)
	} else {
		d = parent.AddChild(j)
	}
	d.SetParentShift(l.ParentShift).SetBodyShift(l.BodyShift)
	if l.Mass > 0 {
		d.SetMass(l.Mass, mgl64.Mat3{})
	}
	for i, child := range l.Children {
		if _, err := child.desc(d); err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
	}
	return d, nil
}

// colliders lists the link colliders in depth-first preorder, the link order.
func (l LinkDef) colliders(dst []*ColliderDef) []*ColliderDef {
	dst = append(dst, l.Collider)
	for _, child := range l.Children {
		dst = child.colliders(dst)
	}
	return dst
}

type MultibodyDef struct {
	Name    string  `yaml:"name"`
	Root    LinkDef `yaml:"root"`
	Damping float64 `yaml:"damping,omitempty"`
}

// RuleDef is a MotorRule on a named multibody.
type RuleDef struct {
	Multibody    string  `yaml:"multibody"`
	Link         int     `yaml:"link"`
	Dof          int     `yaml:"dof"`
	EnableBelow  float64 `yaml:"enable_below"`
	DisableAbove float64 `yaml:"disable_above"`
	Target       float64 `yaml:"target"`
	MaxForce     float64 `yaml:"max_force,omitempty"`
}

type ProbeDef struct {
	Label     string `yaml:"label,omitempty"`
	Multibody string `yaml:"multibody"`
	Link      int    `yaml:"link"`
	Dof       int    `yaml:"dof"`
}

// Parse decodes a YAML scene description.
func Parse(data []byte) (*Description, error) {
	cfg := tendon.DefaultConfig()
	d := Description{Config: &cfg}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Load reads a YAML scene description.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Save writes d as YAML.
func (d *Description) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WorldConfig returns the world configuration of the scene. Parse starts from
// the defaults, so keys missing from the file keep their default value.
func (d *Description) WorldConfig() tendon.Config {
	if d.Config == nil {
		return tendon.DefaultConfig()
	}
	return *d.Config
}

// Build creates the world and populates it.
func (d *Description) Build(opts ...tendon.Option) (*Scene, error) {
	w, err := tendon.NewWorldFromConfig(d.WorldConfig(), opts...)
	if err != nil {
		return nil, err
	}
	name := d.Name
	if name == "" {
		name = "custom"
	}
	s := newScene(name, w)

	if d.Ground != nil {
		if _, err := Ground(w, d.Ground.material()); err != nil {
			return nil, fmt.Errorf("ground: %w", err)
		}
	}

	for i, def := range d.Bodies {
		if err := d.insertBody(w, def); err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
	}

	for i, def := range d.Multibodies {
		if _, dup := s.Multibodies[def.Name]; dup && def.Name != "" {
			return nil, fmt.Errorf("%w: duplicate multibody %q", ErrInvalidDescription, def.Name)
		}
		h, err := insertMultibody(w, def)
		if err != nil {
			return nil, fmt.Errorf("multibody %d %q: %w", i, def.Name, err)
		}
		if def.Name != "" {
			s.Multibodies[def.Name] = h
		}
	}

	for _, def := range d.Rules {
		h, ok := s.Multibodies[def.Multibody]
		if !ok {
			return nil, fmt.Errorf("%w: rule on unknown multibody %q", ErrInvalidDescription, def.Multibody)
		}
		s.AddRule(MotorRule{
			Multibody:    h,
			Link:         def.Link,
			Dof:          def.Dof,
			EnableBelow:  def.EnableBelow,
			DisableAbove: def.DisableAbove,
			Target:       def.Target,
			MaxForce:     def.MaxForce,
		})
	}

	for _, def := range d.Probes {
		h, ok := s.Multibodies[def.Multibody]
		if !ok {
			return nil, fmt.Errorf("%w: probe on unknown multibody %q", ErrInvalidDescription, def.Multibody)
		}
		label := def.Label
		if label == "" {
			label = fmt.Sprintf("%s/%d/%d", def.Multibody, def.Link, def.Dof)
		}
		s.Probes = append(s.Probes, Probe{Label: label, Multibody: h, Link: def.Link, Dof: def.Dof})
	}

	return s, nil
}

func (d *Description) insertBody(w *tendon.World, def BodyDef) error {
	bodyType, err := parseBodyType(def.Type)
	if err != nil {
		return err
	}
	h, err := w.InsertBody(tendon.BodyDesc{
		Type:            bodyType,
		Transform:       transform(def.Position, def.Rotation),
		Velocity:        def.Velocity,
		AngularVelocity: def.AngularVelocity,
		Mass:            def.Mass,
	})
	if err != nil {
		return err
	}
	for _, c := range def.Colliders {
		if err := c.insert(w, tendon.PartOfBody(h)); err != nil {
			return err
		}
	}
	return nil
}

func insertMultibody(w *tendon.World, def MultibodyDef) (tendon.MultibodyHandle, error) {
	desc, err := def.Root.desc(nil)
	if err != nil {
		return tendon.MultibodyHandle{}, err
	}
	h, err := w.InsertMultibody(desc)
	if err != nil {
		return h, err
	}
	mb, _ := w.Multibody(h)
	mb.SetDamping(def.Damping)

	for i, c := range def.Root.colliders(nil) {
		if c == nil {
			continue
		}
		if err := c.insert(w, tendon.PartOfLink(h, i)); err != nil {
			return h, fmt.Errorf("link %d: %w", i, err)
		}
	}
	return h, nil
}
