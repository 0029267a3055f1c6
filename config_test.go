package feather2d

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/akmonengine/feather2d/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		expect func(config *Config)
	}{
		{
			name:   "empty document keeps the defaults",
			yaml:   "",
			expect: func(config *Config) {},
		},
		{
			name: "gravity and workers",
			yaml: "gravity: [0, -9.81]\nworkers: 4\n",
			expect: func(config *Config) {
				config.Gravity = mgl64.Vec2{0, -9.81}
				config.Workers = 4
			},
		},
		{
			name: "partial solver section",
			yaml: "solver:\n  velocity_iterations: 12\n  correction: ngs\n",
			expect: func(config *Config) {
				config.Solver.VelocityIterations = 12
				config.Solver.Correction = constraint.CorrectionNGS
			},
		},
		{
			name: "switches",
			yaml: "allow_sleep: false\nsolver:\n  warm_starting: false\n  position_correction: false\n",
			expect: func(config *Config) {
				config.AllowSleep = false
				config.Solver.WarmStarting = false
				config.Solver.PositionCorrection = false
			},
		},
		{
			name: "partial grid section",
			yaml: "grid:\n  cell_size: 0.5\n",
			expect: func(config *Config) {
				config.Grid.CellSize = 0.5
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expected := DefaultConfig()
			tt.expect(&expected)

			config, err := ParseConfig([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("ParseConfig() error = %v", err)
			}
			if config != expected {
				t.Errorf("ParseConfig() = %+v, want %+v", config, expected)
			}
		})
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "solver: [1, 2"},
		{"wrong type", "workers: many\n"},
		{"zero workers", "workers: 0\n"},
		{"negative cell size", "grid:\n  cell_size: -1\n"},
		{"no cells", "grid:\n  cells: 0\n"},
		{"no velocity iteration", "solver:\n  velocity_iterations: 0\n"},
		{"no position iteration", "solver:\n  position_iterations: 0\n"},
		{"unknown correction", "solver:\n  correction: magic\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("ParseConfig() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestParseCorrectionMode(t *testing.T) {
	for _, mode := range []constraint.CorrectionMode{constraint.CorrectionBaumgarte, constraint.CorrectionNGS} {
		parsed, err := ParseCorrectionMode(mode.String())
		if err != nil || parsed != mode {
			t.Errorf("ParseCorrectionMode(%q) = %v, %v", mode.String(), parsed, err)
		}
	}

	if _, err := ParseCorrectionMode("Baumgarte"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("names are case sensitive, got error %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	if err := os.WriteFile(path, []byte("gravity: [0, -1.62]\nsolver:\n  position_iterations: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Gravity != (mgl64.Vec2{0, -1.62}) {
		t.Errorf("Gravity = %v, want {0, -1.62}", config.Gravity)
	}
	if config.Solver.PositionIterations != 5 || config.Solver.VelocityIterations != DefaultConfig().Solver.VelocityIterations {
		t.Errorf("Solver = %+v", config.Solver)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig() error = %v, want os.ErrNotExist", err)
	}
}
