package tendon

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/akmonengine/tendon/scalar"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSubsteps   = 8
	DefaultIterations = 4
	DefaultTolerance  = 1e-4
	DefaultWorkers    = 1

	DefaultCellSize = 2.0
	DefaultNumCells = 4096

	DefaultSleepTimeThreshold     = 0.1
	DefaultSleepVelocityThreshold = 0.05
)

// Config holds the tunables of a World. It can be stored as YAML.
type Config struct {
	Gravity mgl64.Vec3 `yaml:"gravity"`

	// Substeps splits every Step. Iterations bounds the position sweeps of
	// each substep, which stop early once the residual is under Tolerance.
	Substeps   int     `yaml:"substeps"`
	Iterations int     `yaml:"iterations"`
	Tolerance  float64 `yaml:"tolerance"`
	Workers    int     `yaml:"workers"`

	CellSize float64 `yaml:"cell_size"`
	NumCells int     `yaml:"num_cells"`

	SleepTimeThreshold     float64 `yaml:"sleep_time_threshold"`
	SleepVelocityThreshold float64 `yaml:"sleep_velocity_threshold"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:                mgl64.Vec3{0, -9.81, 0},
		Substeps:               DefaultSubsteps,
		Iterations:             DefaultIterations,
		Tolerance:              DefaultTolerance,
		Workers:                DefaultWorkers,
		CellSize:               DefaultCellSize,
		NumCells:               DefaultNumCells,
		SleepTimeThreshold:     DefaultSleepTimeThreshold,
		SleepVelocityThreshold: DefaultSleepVelocityThreshold,
	}
}

// LoadConfig reads a YAML file. Missing keys keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c Config) Validate() error {
	switch {
	case !scalar.IsFiniteVec3(c.Gravity):
		return fmt.Errorf("%w: gravity %v", ErrInvalidConfig, c.Gravity)
	case c.Substeps < 1:
		return fmt.Errorf("%w: substeps %d < 1", ErrInvalidConfig, c.Substeps)
	case c.Iterations < 1:
		return fmt.Errorf("%w: iterations %d < 1", ErrInvalidConfig, c.Iterations)
	case !scalar.IsFinite(c.Tolerance) || c.Tolerance < 0:
		return fmt.Errorf("%w: tolerance %v", ErrInvalidConfig, c.Tolerance)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d < 1", ErrInvalidConfig, c.Workers)
	case !scalar.IsFinite(c.CellSize) || c.CellSize <= 0:
		return fmt.Errorf("%w: cell size %v", ErrInvalidConfig, c.CellSize)
	case c.NumCells < 1:
		return fmt.Errorf("%w: num cells %d < 1", ErrInvalidConfig, c.NumCells)
	case c.SleepTimeThreshold < 0 || c.SleepVelocityThreshold < 0:
		return fmt.Errorf("%w: negative sleep threshold", ErrInvalidConfig)
	}
	return nil
}

// Option tweaks a World at construction.
type Option func(w *World)

func WithSubsteps(n int) Option {
	return func(w *World) { w.config.Substeps = n }
}

func WithIterations(n int) Option {
	return func(w *World) { w.config.Iterations = n }
}

func WithTolerance(tolerance float64) Option {
	return func(w *World) { w.config.Tolerance = tolerance }
}

func WithWorkers(n int) Option {
	return func(w *World) { w.config.Workers = n }
}

func WithGrid(cellSize float64, numCells int) Option {
	return func(w *World) {
		w.config.CellSize = cellSize
		w.config.NumCells = numCells
	}
}

// WithSleep sets the sleep thresholds. A zero time threshold disables sleeping.
func WithSleep(timeThreshold, velocityThreshold float64) Option {
	return func(w *World) {
		w.config.SleepTimeThreshold = timeThreshold
		w.config.SleepVelocityThreshold = velocityThreshold
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *World) { w.Logger = logger }
}
