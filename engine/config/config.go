// Package config loads the YAML configuration of the simulation stack.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/anim_waves"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/foam"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/logger"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Log       logger.Config       `yaml:"log"`
	Cascade   cascade.Config      `yaml:"cascade"`
	Sim       SimConfig           `yaml:"sim"`
	Engine    EngineConfig        `yaml:"engine"`
	Foam      foam.Settings       `yaml:"foam"`
	AnimWaves anim_waves.Settings `yaml:"anim_waves"`
}

// SimConfig configures the simulation driver.
type SimConfig struct {
	// MaxSubsteps is the most substeps a module may run in one frame.
	MaxSubsteps int `yaml:"max_substeps"`

	// AccumulateTime carries time shorter than a substep into the next frame instead of dropping it.
	AccumulateTime bool `yaml:"accumulate_time"`
}

// EngineConfig configures the frame loop.
type EngineConfig struct {
	TickRate         time.Duration `yaml:"tick_rate"`
	RenderFrameLimit int           `yaml:"render_frame_limit"`
	Profiling        bool          `yaml:"profiling"`
}

// Default returns the configuration used for any field a file leaves out.
func Default() Config {
	return Config{
		Log: logger.Config{
			Environment: "development",
			LogLevel:    "info",
			ServiceName: "oxy-ocean",
		},
		Cascade: cascade.Config{
			Levels:        7,
			Resolution:    256,
			BaseWorldSize: 64,
		},
		// Frames at the render limit are shorter than a foam substep, so leftover time is carried.
		Sim: SimConfig{
			MaxSubsteps:    sim.DefaultMaxSubsteps,
			AccumulateTime: true,
		},
		Engine: EngineConfig{
			TickRate:         50 * time.Millisecond,
			RenderFrameLimit: 60,
		},
		Foam:      foam.DefaultSettings(),
		AnimWaves: anim_waves.DefaultSettings(),
	}
}

// Load reads a YAML file over Default and validates the result.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - Config: the configuration
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid section.
func (c Config) Validate() error {
	var errs []error
	if err := c.Cascade.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cascade: %w", err))
	}
	if c.Sim.MaxSubsteps < 1 {
		errs = append(errs, fmt.Errorf("sim: max_substeps must be at least 1, got %d", c.Sim.MaxSubsteps))
	}
	if c.Engine.TickRate < 0 {
		errs = append(errs, fmt.Errorf("engine: tick_rate must not be negative, got %v", c.Engine.TickRate))
	}
	if c.Engine.RenderFrameLimit < 0 {
		errs = append(errs, fmt.Errorf("engine: render_frame_limit must not be negative, got %d", c.Engine.RenderFrameLimit))
	}
	if err := c.Foam.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.AnimWaves.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DriverOptions returns the driver options the sim section describes.
func (s SimConfig) DriverOptions() []sim.DriverBuilderOption {
	return []sim.DriverBuilderOption{
		sim.WithMaxSubsteps(s.MaxSubsteps),
		sim.WithTimeAccumulator(s.AccumulateTime),
	}
}
