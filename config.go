package feather2d

import (
	"errors"
	"fmt"
	"os"

	"github.com/akmonengine/feather2d/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const DEFAULT_WORKERS = 1

// SolverConfig tunes a single step of the solver
type SolverConfig struct {
	VelocityIterations int
	PositionIterations int
	WarmStarting       bool
	PositionCorrection bool
	Correction         constraint.CorrectionMode
}

// GridConfig sizes the broad phase
type GridConfig struct {
	CellSize float64
	Cells    int
}

// Config holds the world settings
type Config struct {
	// Gravity acceleration (m/s², or N/kg)
	Gravity    mgl64.Vec2
	Solver     SolverConfig
	AllowSleep bool
	Workers    int
	Grid       GridConfig
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Gravity: mgl64.Vec2{0, -10},
		Solver: SolverConfig{
			VelocityIterations: 8,
			PositionIterations: 3,
			WarmStarting:       true,
			PositionCorrection: true,
			Correction:         constraint.CorrectionBaumgarte,
		},
		AllowSleep: true,
		Workers:    DEFAULT_WORKERS,
		Grid: GridConfig{
			CellSize: 2.0,
			Cells:    1024,
		},
	}
}

// configFile mirrors Config with the yaml friendly types
type configFile struct {
	Gravity    *[2]float64 `yaml:"gravity"`
	Solver     *solverFile `yaml:"solver"`
	AllowSleep *bool       `yaml:"allow_sleep"`
	Workers    *int        `yaml:"workers"`
	Grid       *gridFile   `yaml:"grid"`
}

type gridFile struct {
	CellSize *float64 `yaml:"cell_size"`
	Cells    *int     `yaml:"cells"`
}

type solverFile struct {
	VelocityIterations *int    `yaml:"velocity_iterations"`
	PositionIterations *int    `yaml:"position_iterations"`
	WarmStarting       *bool   `yaml:"warm_starting"`
	PositionCorrection *bool   `yaml:"position_correction"`
	Correction         *string `yaml:"correction"`
}

// ParseCorrectionMode reads a correction mode by name
func ParseCorrectionMode(name string) (constraint.CorrectionMode, error) {
	for _, mode := range []constraint.CorrectionMode{constraint.CorrectionBaumgarte, constraint.CorrectionNGS} {
		if mode.String() == name {
			return mode, nil
		}
	}

	return 0, fmt.Errorf("unknown correction mode %q: %w", name, ErrInvalidConfig)
}

// ParseConfig reads a YAML document. Missing keys keep their DefaultConfig value.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("feather2d: parse config: %w", errors.Join(ErrInvalidConfig, err))
	}

	if file.Gravity != nil {
		config.Gravity = mgl64.Vec2(*file.Gravity)
	}
	if file.AllowSleep != nil {
		config.AllowSleep = *file.AllowSleep
	}
	if file.Workers != nil {
		config.Workers = *file.Workers
	}
	if g := file.Grid; g != nil {
		if g.CellSize != nil {
			config.Grid.CellSize = *g.CellSize
		}
		if g.Cells != nil {
			config.Grid.Cells = *g.Cells
		}
	}
	if s := file.Solver; s != nil {
		if s.VelocityIterations != nil {
			config.Solver.VelocityIterations = *s.VelocityIterations
		}
		if s.PositionIterations != nil {
			config.Solver.PositionIterations = *s.PositionIterations
		}
		if s.WarmStarting != nil {
			config.Solver.WarmStarting = *s.WarmStarting
		}
		if s.PositionCorrection != nil {
			config.Solver.PositionCorrection = *s.PositionCorrection
		}
		if s.Correction != nil {
			mode, err := ParseCorrectionMode(*s.Correction)
			if err != nil {
				return Config{}, fmt.Errorf("feather2d: parse config: %w", err)
			}
			config.Solver.Correction = mode
		}
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("feather2d: parse config: %w", err)
	}

	return config, nil
}

// LoadConfig reads and validates a YAML configuration file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("feather2d: load config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// Validate checks the ranges of every setting
func (c Config) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d: %w", c.Workers, ErrInvalidConfig)
	}
	if c.Grid.CellSize <= 0 {
		return fmt.Errorf("grid cell size must be positive, got %v: %w", c.Grid.CellSize, ErrInvalidConfig)
	}
	if c.Grid.Cells < 1 {
		return fmt.Errorf("grid cells must be at least 1, got %d: %w", c.Grid.Cells, ErrInvalidConfig)
	}

	return nil
}

func (s SolverConfig) Validate() error {
	if s.VelocityIterations < 1 {
		return fmt.Errorf("velocity iterations must be at least 1, got %d: %w", s.VelocityIterations, ErrInvalidConfig)
	}
	if s.PositionIterations < 1 {
		return fmt.Errorf("position iterations must be at least 1, got %d: %w", s.PositionIterations, ErrInvalidConfig)
	}
	if s.Correction != constraint.CorrectionBaumgarte && s.Correction != constraint.CorrectionNGS {
		return fmt.Errorf("unknown correction mode %d: %w", s.Correction, ErrInvalidConfig)
	}

	return nil
}
