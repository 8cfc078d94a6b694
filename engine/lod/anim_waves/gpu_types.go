package anim_waves

import (
	_ "embed"
	"math"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
)

// UpdateAnimWavesSource is the WGSL program that writes wave displacement for one level.
//
//go:embed assets/update_anim_waves.wgsl
var UpdateAnimWavesSource string

const (
	// ProgramKey is the key the update program is registered under.
	ProgramKey = "UpdateAnimWaves"

	// EntryPoint is the update entry point of the program.
	EntryPoint = "UpdateAnimWaves"

	gravity = 9.8
)

var (
	waveCountID = param_id.PropertyToID("_WaveCount")
	waveIDs     = [MaxWaves]param_id.ParamID{
		param_id.PropertyToID("_WaveA"),
		param_id.PropertyToID("_WaveB"),
		param_id.PropertyToID("_WaveC"),
		param_id.PropertyToID("_WaveD"),
	}
)

// NewProgram parses the update program together with its CPU implementation.
func NewProgram() (kernel.Program, error) {
	return kernel.NewProgram(ProgramKey, UpdateAnimWavesSource, kernel.WithCPUEntry(EntryPoint, updateAnimWaves))
}

func updateAnimWaves(b kernel.Bindings, x, y int) mgl32.Vec4 {
	w, h := b.Size()
	p := kernel.WorldFromUV(kernel.TexelUV(x, y, w, h), b.Vector(param_id.PosScale))
	count := min(int(b.Int(waveCountID)), MaxWaves)
	waves := make([]mgl32.Vec4, 0, MaxWaves)
	for i := range count {
		waves = append(waves, b.Vector(waveIDs[i]))
	}
	return Displacement(p, b.Float(param_id.Time), waves).Vec4(0)
}

// Displacement sums the Gerstner displacement of packed waves at a world position.
//
// Parameters:
//   - p: the world-space (x, z) position
//   - t: the simulation time in seconds
//   - waves: packed waves (direction.x, direction.z, steepness, wavelength); zero wavelengths are skipped
//
// Returns:
//   - mgl32.Vec3: the (x, y, z) displacement
func Displacement(p mgl32.Vec2, t float32, waves []mgl32.Vec4) mgl32.Vec3 {
	var disp mgl32.Vec3
	for _, wave := range waves {
		if wave[3] <= 0 {
			continue
		}
		k := 2 * math.Pi / float64(wave[3])
		c := math.Sqrt(gravity / k)
		d := mgl32.Vec2{wave[0], wave[1]}
		f := k * (float64(d.Dot(p)) - c*float64(t))
		a := float64(wave[2]) / k
		cos, sin := float32(math.Cos(f)), float32(math.Sin(f))
		disp = disp.Add(mgl32.Vec3{d[0] * float32(a) * cos, float32(a) * sin, d[1] * float32(a) * cos})
	}
	return disp
}
