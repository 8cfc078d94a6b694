package foam

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
)

// Settings configures the foam simulation.
type Settings struct {
	// FoamFadeRate is the fraction of foam that dissolves per second.
	FoamFadeRate float32 `yaml:"foam_fade_rate"`

	// WaveFoamStrength scales the foam generated by compressed waves.
	WaveFoamStrength float32 `yaml:"wave_foam_strength"`

	// WaveFoamCoverage is the Jacobian determinant below which waves generate foam. Higher values mean more foam.
	WaveFoamCoverage float32 `yaml:"wave_foam_coverage"`

	// ShorelineFoamMaxDepth is the water depth below which shoreline foam is generated.
	ShorelineFoamMaxDepth float32 `yaml:"shoreline_foam_max_depth"`

	// ShorelineFoamStrength scales the foam generated in shallow water.
	ShorelineFoamStrength float32 `yaml:"shoreline_foam_strength"`

	// Format is the texel format of the foam cascade. Foam is stored in the first channel. It is read
	// when the module is created; later changes take effect on the next module.
	Format compute.TextureFormat `yaml:"format"`
}

// DefaultSettings returns the settings used when none are supplied.
func DefaultSettings() Settings {
	return Settings{
		FoamFadeRate:          0.8,
		WaveFoamStrength:      1,
		WaveFoamCoverage:      0.55,
		ShorelineFoamMaxDepth: 0.65,
		ShorelineFoamStrength: 2,
		Format:                compute.FormatR32Float,
	}
}

// Validate reports negative or non-finite rates and strengths and unknown formats.
func (s Settings) Validate() error {
	var errs []error
	check := func(name string, v float32) {
		if !(v >= 0) || math.IsInf(float64(v), 1) {
			errs = append(errs, fmt.Errorf("foam: %s must be finite and >= 0, got %v", name, v))
		}
	}
	check("foam_fade_rate", s.FoamFadeRate)
	check("wave_foam_strength", s.WaveFoamStrength)
	check("wave_foam_coverage", s.WaveFoamCoverage)
	check("shoreline_foam_max_depth", s.ShorelineFoamMaxDepth)
	check("shoreline_foam_strength", s.ShorelineFoamStrength)
	if !s.Format.Valid() {
		errs = append(errs, fmt.Errorf("foam: unknown format %v", s.Format))
	}
	return errors.Join(errs...)
}
