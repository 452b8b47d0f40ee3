package tendon

import (
	"context"
	"log/slog"
	"math"

	"github.com/akmonengine/tendon/actor"
	"github.com/akmonengine/tendon/arena"
	"github.com/akmonengine/tendon/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// ForceGenerator is called at the start of every Step, before the substeps,
// to accumulate forces on the bodies.
type ForceGenerator func(w *World, dt float64)

// StepCallback is called after every Step, once the events are flushed.
type StepCallback func(w *World, report StepReport)

// StepReport describes how a Step went.
type StepReport struct {
	// Time is the simulated time after the step.
	Time       float64
	Dt         float64
	Substeps   int
	Iterations int
	// Residual is the largest position error left by the last sweep of any
	// island over the step.
	Residual  float64
	Converged bool
	Contacts  int
	Islands   int
	// Skipped is set when dt was not a positive number.
	Skipped bool
}

type World struct {
	config Config
	Logger *slog.Logger
	Events Events

	bodies      arena.Arena[*actor.RigidBody]
	colliders   arena.Arena[*Collider]
	multibodies arena.Arena[*Multibody]

	// ground anchors the multibody roots
	ground *actor.RigidBody
	grid   *SpatialGrid
	time   float64

	callbacks       []StepCallback
	forceGenerators []ForceGenerator

	// scratch, rebuilt every step
	colliderList []*Collider
	bodyList     []*actor.RigidBody
	partList     []BodyPart
	jointList    []*constraint.JointConstraint
}

// NewWorld creates an empty world with the default configuration.
func NewWorld(gravity mgl64.Vec3, opts ...Option) *World {
	cfg := DefaultConfig()
	cfg.Gravity = gravity
	w := newWorld(cfg)
	for _, opt := range opts {
		opt(w)
	}
	w.sanitize()
	return w
}

// NewWorldFromConfig creates an empty world, rejecting an invalid configuration.
func NewWorldFromConfig(cfg Config, opts ...Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := newWorld(cfg)
	for _, opt := range opts {
		opt(w)
	}
	w.sanitize()
	return w, nil
}

func newWorld(cfg Config) *World {
	return &World{
		config: cfg,
		Logger: slog.Default(),
		Events: NewEvents(),
		ground: actor.NewRigidBody(actor.NewTransform(), actor.BodyTypeStatic),
	}
}

func (w *World) sanitize() {
	w.config.Substeps = max(1, w.config.Substeps)
	w.config.Iterations = max(1, w.config.Iterations)
	w.config.Workers = max(DefaultWorkers, w.config.Workers)
	if !(w.config.CellSize > 0) {
		w.config.CellSize = DefaultCellSize
	}
	w.config.NumCells = max(1, w.config.NumCells)
	if w.Logger == nil {
		w.Logger = slog.Default()
	}
	w.grid = NewSpatialGrid(w.config.CellSize, w.config.NumCells)
}

// Config returns the configuration the world runs with.
func (w *World) Config() Config { return w.config }

func (w *World) Gravity() mgl64.Vec3 { return w.config.Gravity }

func (w *World) SetGravity(g mgl64.Vec3) { w.config.Gravity = g }

// Time is the simulated time.
func (w *World) Time() float64 { return w.time }

func (w *World) AddCallback(cb StepCallback) {
	w.callbacks = append(w.callbacks, cb)
}

func (w *World) AddForceGenerator(fg ForceGenerator) {
	w.forceGenerators = append(w.forceGenerators, fg)
}

// Step advances the simulation by dt, split in substeps.
func (w *World) Step(dt float64) StepReport {
	report := StepReport{Time: w.time, Dt: dt, Substeps: w.config.Substeps, Converged: true}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		report.Skipped = true
		return report
	}

	for _, fg := range w.forceGenerators {
		fg(w, dt)
	}

	w.collectBodies()
	h := dt / float64(w.config.Substeps)
	// below this normal speed a contact does not bounce
	restitutionThreshold := 2 * w.config.Gravity.Len() * h

	for range w.config.Substeps {
		w.integrate(h)

		// Phase 2.0: Collision pair finding - Broad phase
		// Phase 2.1: Collision pair finding - narrow phase
		contacts := w.detectCollision()
		contacts = w.Events.recordCollisions(contacts)
		for _, c := range contacts {
			c.Constraint.RestitutionThreshold = restitutionThreshold
		}
		report.Contacts = max(report.Contacts, len(contacts))

		islands := buildIslands(w.bodyList, w.jointList, contacts)
		active := islands[:0:0]
		for _, isl := range islands {
			if isl.awake {
				active = append(active, isl)
			}
		}
		report.Islands = max(report.Islands, len(active))

		// Phase 3: Solver
		w.solvePosition(h, active, &report)

		// Phase 4: Update Position & Velocity
		w.update(h)

		// Phase 5: Velocity
		task(w.config.Workers, active, func(isl *Island) {
			isl.solveVelocity(h)
		})

		for _, isl := range active {
			isl.trySleep(h, w.config.SleepTimeThreshold, w.config.SleepVelocityThreshold)
		}
	}

	w.time += dt
	report.Time = w.time

	w.Events.processSleepEvents(w.partList, w.bodyList)
	w.Events.flush()

	for _, body := range w.bodyList {
		body.ClearForces()
	}

	if !report.Converged {
		w.Logger.Debug("position solver did not converge",
			"time", w.time,
			"residual", report.Residual,
			"iterations", report.Iterations,
			"tolerance", w.config.Tolerance)
	}

	for _, cb := range w.callbacks {
		cb(w, report)
	}

	return report
}

// Run calls Step steps times, stopping early when ctx is done.
func (w *World) Run(ctx context.Context, dt float64, steps int) (StepReport, error) {
	var report StepReport
	for range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report = w.Step(dt)
	}
	return report, nil
}

// collectBodies lists the free bodies and the multibody links in handle order.
func (w *World) collectBodies() {
	w.bodyList = w.bodyList[:0]
	w.partList = w.partList[:0]
	w.jointList = w.jointList[:0]

	w.bodies.Each(func(h arena.Handle, body *actor.RigidBody) bool {
		w.bodyList = append(w.bodyList, body)
		w.partList = append(w.partList, PartOfBody(BodyHandle{h}))
		return true
	})
	w.multibodies.Each(func(h arena.Handle, mb *Multibody) bool {
		for i, link := range mb.links {
			w.bodyList = append(w.bodyList, link.Body)
			w.partList = append(w.partList, PartOfLink(MultibodyHandle{h}, i))
			w.jointList = append(w.jointList, link.constraint)
		}
		return true
	})
}

func (w *World) integrate(h float64) {
	task(w.config.Workers, w.bodyList, func(body *actor.RigidBody) {
		body.Integrate(h, w.config.Gravity)
	})
}

func (w *World) detectCollision() []Contact {
	colliders := w.activeColliders()
	return NarrowPhase(BroadPhase(w.grid, colliders, w.config.Workers), w.config.Workers)
}

func (w *World) solvePosition(h float64, islands []*Island, report *StepReport) {
	residuals := make([]float64, len(islands))
	iterations := make([]int, len(islands))
	indices := make([]int, len(islands))
	for i := range indices {
		indices[i] = i
	}

	task(w.config.Workers, indices, func(i int) {
		residuals[i], iterations[i] = islands[i].solvePosition(h, w.config.Iterations, w.config.Tolerance)
	})

	for i := range islands {
		report.Residual = math.Max(report.Residual, residuals[i])
		report.Iterations = max(report.Iterations, iterations[i])
		if residuals[i] >= w.config.Tolerance {
			report.Converged = false
		}
	}
}

func (w *World) update(h float64) {
	task(w.config.Workers, w.bodyList, func(body *actor.RigidBody) {
		body.Update(h)
	})
}
