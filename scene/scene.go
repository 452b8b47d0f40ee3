// Package scene builds ready to run worlds: the built-in demo scenes and
// scenes described in YAML.
package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/akmonengine/tendon"
)

// ErrUnknownScene is returned by New for a name that is not registered.
var ErrUnknownScene = errors.New("scene: unknown scene")

// Probe designates one joint offset worth watching, for plots and summaries.
type Probe struct {
	Label     string
	Multibody tendon.MultibodyHandle
	Link      int
	Dof       int
}

// Read returns the current offset, false if the joint no longer exists.
func (p Probe) Read(w *tendon.World) (float64, bool) {
	link, ok := w.MultibodyLink(p.Multibody, p.Link)
	if !ok {
		return 0, false
	}
	dof := link.Dof(p.Dof)
	if dof == nil {
		return 0, false
	}
	return dof.Offset, true
}

// MotorRule toggles a motor with hysteresis: it is enabled when the offset
// drops below EnableBelow and disabled once it rises above DisableAbove.
type MotorRule struct {
	Multibody    tendon.MultibodyHandle
	Link         int
	Dof          int
	EnableBelow  float64
	DisableAbove float64
	Target       float64
	// MaxForce bounds the motor, 0 for unbounded.
	MaxForce float64
}

// Apply checks the offset and toggles the motor. It reports false when the
// joint no longer exists.
func (r MotorRule) Apply(w *tendon.World) bool {
	link, ok := w.MultibodyLink(r.Multibody, r.Link)
	if !ok {
		return false
	}
	dof := link.Dof(r.Dof)
	if dof == nil {
		return false
	}

	switch {
	case dof.Offset < r.EnableBelow && !dof.MotorEnabled:
		w.EnableMotor(r.Multibody, r.Link, r.Dof, r.Target, r.MaxForce)
	case dof.Offset > r.DisableAbove && dof.MotorEnabled:
		w.DisableMotor(r.Multibody, r.Link, r.Dof)
	}
	return true
}

// Callback adapts the rule to World.AddCallback.
func (r MotorRule) Callback() tendon.StepCallback {
	return func(w *tendon.World, _ tendon.StepReport) {
		r.Apply(w)
	}
}

// Scene is a populated world.
type Scene struct {
	Name  string
	World *tendon.World

	// Multibodies by name, for the scenes that name them.
	Multibodies map[string]tendon.MultibodyHandle
	// Ground is a static body without collider, for the scenes that offer
	// an anchor to grab links with.
	Ground      tendon.BodyHandle
	Probes      []Probe
	Rules       []MotorRule
}

func newScene(name string, w *tendon.World) *Scene {
	return &Scene{Name: name, World: w, Multibodies: make(map[string]tendon.MultibodyHandle)}
}

// AddRule registers a motor rule, evaluated after every step.
func (s *Scene) AddRule(rule MotorRule) {
	s.Rules = append(s.Rules, rule)
	s.World.AddCallback(rule.Callback())
}

// Builder populates an empty world.
type Builder func(w *tendon.World) (*Scene, error)

var builtins = map[string]Builder{
	"cross": func(w *tendon.World) (*Scene, error) {
		return Cross(w, DefaultCrossCount)
	},
	"multibody": Multibody,
}

// Names lists the built-in scenes, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a world from cfg and populates it with a built-in scene.
func New(name string, cfg tendon.Config, opts ...tendon.Option) (*Scene, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	w, err := tendon.NewWorldFromConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return build(w)
}
