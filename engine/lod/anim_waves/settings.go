package anim_waves

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxWaves is the number of waves the update program accepts.
const MaxWaves = 4

// Wave is one Gerstner wave. Its amplitude is steepness * wavelength / 2π.
type Wave struct {
	// Direction is the (x, z) travel direction. It is normalized when bound.
	Direction [2]float32 `yaml:"direction"`

	// Steepness in [0, 1]; 1 makes crests sharp.
	Steepness float32 `yaml:"steepness"`

	// Wavelength in world units. Zero disables the wave.
	Wavelength float32 `yaml:"wavelength"`
}

// Settings configures the animated waves.
type Settings struct {
	Waves []Wave `yaml:"waves"`
}

// DefaultSettings returns a calm swell of three waves.
func DefaultSettings() Settings {
	return Settings{
		Waves: []Wave{
			{Direction: [2]float32{1, 0}, Steepness: 0.25, Wavelength: 60},
			{Direction: [2]float32{0, 1}, Steepness: 0.2, Wavelength: 31},
			{Direction: [2]float32{1, 1}, Steepness: 0.15, Wavelength: 18},
		},
	}
}

// Validate reports invalid waves.
func (s Settings) Validate() error {
	if len(s.Waves) > MaxWaves {
		return fmt.Errorf("anim_waves: at most %d waves are supported, got %d", MaxWaves, len(s.Waves))
	}
	var errs []error
	for i, w := range s.Waves {
		if !(w.Steepness >= 0 && w.Steepness <= 1) {
			errs = append(errs, fmt.Errorf("wave %d: steepness %v outside [0, 1]", i, w.Steepness))
		}
		if !(w.Wavelength >= 0) || math.IsInf(float64(w.Wavelength), 1) {
			errs = append(errs, fmt.Errorf("wave %d: wavelength %v must be finite and >= 0", i, w.Wavelength))
		}
		for _, d := range w.Direction {
			if math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
				errs = append(errs, fmt.Errorf("wave %d: direction %v must be finite", i, w.Direction))
				break
			}
		}
	}
	return errors.Join(errs...)
}

// Packed returns the wave as (direction.x, direction.z, steepness, wavelength) with a unit direction.
// A wave without a direction packs as disabled.
func (w Wave) Packed() mgl32.Vec4 {
	d := mgl32.Vec2{w.Direction[0], w.Direction[1]}
	if d.Len() == 0 {
		return mgl32.Vec4{}
	}
	d = d.Normalize()
	return mgl32.Vec4{d[0], d[1], w.Steepness, w.Wavelength}
}
