package scene

import (
	"path/filepath"
	"testing"

	"github.com/akmonengine/tendon"
	"github.com/akmonengine/tendon/joint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const armScene = `
name: arm
config:
  substeps: 2
ground:
  restitution: 0.3
  static_friction: 0.6
  dynamic_friction: 0.6
bodies:
  - position: [0, 3, 0]
    colliders:
      - shape: {type: sphere, radius: 0.5}
        material: {density: 2, static_friction: 0.5, dynamic_friction: 0.3}
  - type: static
    position: [4, 0, 0]
    colliders:
      - shape:
          type: compound
          children:
            - shape: {type: box, half_extents: [1, 0.1, 1]}
              position: [0, 1, 0]
        sensor: true
multibodies:
  - name: arm
    damping: 0.5
    root:
      joint:
        type: revolute
        axis: [0, 0, 1]
        offsets: [0.3]
        limits:
          - {dof: 0, min: -1, max: 1}
      parent_shift: [0, 5, 0]
      body_shift: [0, 1, 0]
      collider:
        shape: {type: box, half_extents: [0.2, 1, 0.2]}
      children:
        - joint:
            type: prismatic
            axis: [0, 1, 0]
            motors:
              - {dof: 0, target: 1.5, max_force: 100, enabled: true}
          parent_shift: [0, -1, 0]
          mass: 2
rules:
  - {multibody: arm, link: 0, dof: 0, enable_below: -0.5, disable_above: 0.5, target: 1}
probes:
  - {multibody: arm, link: 1, dof: 0}
`

func TestParseConfigDefaults(t *testing.T) {
	d, err := Parse([]byte(armScene))
	require.NoError(t, err)

	cfg := d.WorldConfig()
	assert.Equal(t, 2, cfg.Substeps)
	assert.Equal(t, tendon.DefaultIterations, cfg.Iterations)
	assert.Equal(t, tendon.DefaultConfig().Gravity, cfg.Gravity)

	d, err = Parse([]byte("name: empty"))
	require.NoError(t, err)
	assert.Equal(t, tendon.DefaultConfig(), d.WorldConfig())
	assert.Equal(t, tendon.DefaultConfig(), (&Description{}).WorldConfig())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("bodies: {"))
	assert.ErrorIs(t, err, ErrInvalidDescription)

	_, err = Parse([]byte("config: {substeps: -1}"))
	assert.ErrorIs(t, err, tendon.ErrInvalidConfig)
}

func TestBuild(t *testing.T) {
	d, err := Parse([]byte(armScene))
	require.NoError(t, err)

	s, err := d.Build(quiet())
	require.NoError(t, err)
	assert.Equal(t, "arm", s.Name)
	assert.Equal(t, 2, s.World.Config().Substeps)

	h, ok := s.Multibodies["arm"]
	require.True(t, ok)
	mb, ok := s.World.Multibody(h)
	require.True(t, ok)
	require.Equal(t, 2, mb.Len())

	root, _ := mb.Link(0)
	assert.Equal(t, joint.KindRevolute, root.Joint().Kind())
	assert.InDelta(t, 0.3, root.Dof(0).Offset, 1e-12)
	assert.True(t, root.Dof(0).MinEnabled)
	assert.Equal(t, 1.0, root.Dof(0).Max)
	assert.Equal(t, 0.5, root.Dof(0).Damping)

	child, _ := mb.Link(1)
	assert.Equal(t, 0, child.Parent())
	assert.True(t, child.Dof(0).MotorEnabled)
	assert.Equal(t, 100.0, child.Dof(0).MaxForce)
	assert.InDelta(t, 2.0, child.Body.Mass(), 1e-12)

	require.Len(t, s.Rules, 1)
	assert.Equal(t, h, s.Rules[0].Multibody)
	require.Len(t, s.Probes, 1)
	assert.Equal(t, "arm/1/0", s.Probes[0].Label)

	report := s.World.Step(testDt)
	assert.False(t, report.Skipped)
	_, ok = s.Probes[0].Read(s.World)
	assert.True(t, ok)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unknown shape", input: "bodies: [{colliders: [{shape: {type: cone}}]}]"},
		{name: "unknown body type", input: "bodies: [{type: ghost}]"},
		{name: "unknown joint", input: "multibodies: [{name: a, root: {joint: {type: hinge}}}]"},
		{name: "too many offsets", input: "multibodies: [{name: a, root: {joint: {type: ball, offsets: [1, 2, 3, 4]}}}]"},
		{name: "limit out of range", input: "multibodies: [{name: a, root: {joint: {type: revolute, axis: [1, 0, 0], limits: [{dof: 2, min: 0}]}}}]"},
		{name: "duplicate multibody", input: "multibodies: [{name: a, root: {joint: {type: ball}}}, {name: a, root: {joint: {type: ball}}}]"},
		{name: "rule on unknown multibody", input: "rules: [{multibody: b}]"},
		{name: "probe on unknown multibody", input: "probes: [{multibody: b}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			_, err = d.Build(quiet())
			assert.ErrorIs(t, err, ErrInvalidDescription)
		})
	}
}

func TestBuildJointErrors(t *testing.T) {
	d, err := Parse([]byte("multibodies: [{name: a, root: {joint: {type: revolute}}}]"))
	require.NoError(t, err)
	_, err = d.Build(quiet())
	assert.ErrorIs(t, err, joint.ErrZeroAxis)

	d, err = Parse([]byte("bodies: [{colliders: [{shape: {type: sphere, radius: -1}}]}]"))
	require.NoError(t, err)
	_, err = d.Build(quiet())
	assert.ErrorIs(t, err, tendon.ErrInvalidShape)
}

func TestDescriptionRoundTrip(t *testing.T) {
	d, err := Parse([]byte(armScene))
	require.NoError(t, err)

	data, err := yaml.Marshal(d)
	require.NoError(t, err)
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, d, again)

	path := filepath.Join(t.TempDir(), "arm.yaml")
	require.NoError(t, d.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
