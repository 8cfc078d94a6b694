package foam

import (
	_ "embed"
	"strings"

	"github.com/Carmen-Shannon/oxy-ocean/common"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/anim_waves"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/flow"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sea_floor_depth"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
)

// UpdateFoamSource is the WGSL program that advances the foam of one level by one substep.
//
//go:embed assets/update_foam.wgsl
var UpdateFoamSource string

const (
	// ProgramKey is the key the r32float update program is registered under. Other formats append
	// "_" and the format name.
	ProgramKey = "UpdateFoam"

	// targetDecl is the output declaration of the embedded program.
	targetDecl = "texture_storage_2d<r32float, write>"

	// EntryPoint is the update entry point of the program.
	EntryPoint = "UpdateFoam"

	// waveFoamGain scales wave foam generation relative to the strength setting.
	waveFoamGain = 5
	seedBlend    = 0.5
)

var (
	foamFadeRateID          = param_id.PropertyToID("_FoamFadeRate")
	waveFoamStrengthID      = param_id.PropertyToID("_WaveFoamStrength")
	waveFoamCoverageID      = param_id.PropertyToID("_WaveFoamCoverage")
	shorelineFoamMaxDepthID = param_id.PropertyToID("_ShorelineFoamMaxDepth")
	shorelineFoamStrengthID = param_id.PropertyToID("_ShorelineFoamStrength")

	seedID = param_id.PropertyToID(param_id.SeedName(Name))
)

// NewProgram parses the update program writing format, together with its CPU implementation.
//
// Parameters:
//   - format: the texel format of the foam cascade
//
// Returns:
//   - kernel.Program: the program, keyed by ProgramFor(format)
//   - error: an error if the program cannot be parsed
func NewProgram(format compute.TextureFormat) (kernel.Program, error) {
	source := UpdateFoamSource
	if format != compute.FormatR32Float {
		source = strings.Replace(source, targetDecl, "texture_storage_2d<"+format.String()+", write>", 1)
	}
	return kernel.NewProgram(ProgramFor(format), source, kernel.WithCPUEntry(EntryPoint, updateFoam))
}

// ProgramFor returns the key of the update program writing format.
func ProgramFor(format compute.TextureFormat) string {
	if format == compute.FormatR32Float {
		return ProgramKey
	}
	return ProgramKey + "_" + format.String()
}

func updateFoam(b kernel.Bindings, x, y int) mgl32.Vec4 {
	w, h := b.Size()
	slice := int(b.Int(param_id.SliceIndex))
	dt := b.Float(param_id.SimDeltaTime)
	posScale := b.Vector(param_id.PosScale)
	uv := kernel.TexelUV(x, y, w, h)
	world := kernel.WorldFromUV(uv, posScale)

	vel := b.Sample(flow.ParamIDs.ID(false), uv, slice)
	sourceUV := kernel.UVFromWorld(world.Sub(mgl32.Vec2{vel[0], vel[1]}.Mul(dt)), b.Vector(param_id.PosScaleSource))
	var foam float32
	if kernel.UVInside(sourceUV) {
		foam = b.Sample(ParamIDs.ID(true), sourceUV, slice)[0]
	}
	foam *= max(0, 1-b.Float(foamFadeRateID)*dt)

	foam += dt * waveFoam(b, uv, w, h, slice, posScale[3])

	depth := b.Sample(sea_floor_depth.ParamIDs.ID(false), uv, slice)[0]
	if maxDepth := b.Float(shorelineFoamMaxDepthID); depth > 0 && maxDepth > 0 {
		foam += b.Float(shorelineFoamStrengthID) * dt * common.Saturate(1-depth/maxDepth)
	}

	if b.Int(param_id.HasSeed) != 0 {
		seedUV := kernel.UVFromWorld(world, b.Vector(param_id.PosScaleSeed))
		if kernel.UVInside(seedUV) {
			foam = common.Lerp(foam, b.Sample(seedID, seedUV, 0)[0], seedBlend)
		}
	}
	return mgl32.Vec4{max(foam, 0)}
}

// waveFoam returns the wave foam generated per second at uv from the displacement Jacobian determinant.
// Without displacement the determinant is 1 and no foam is generated for coverages below 1.
func waveFoam(b kernel.Bindings, uv mgl32.Vec2, w, h, slice int, texelSize float32) float32 {
	if texelSize <= 0 {
		return 0
	}
	id := anim_waves.ParamIDs.ID(false)
	du := mgl32.Vec2{1 / float32(w), 0}
	dv := mgl32.Vec2{0, 1 / float32(h)}
	scale := 2 * texelSize
	ddx := b.Sample(id, uv.Add(du), slice).Sub(b.Sample(id, uv.Sub(du), slice)).Mul(1 / scale)
	ddz := b.Sample(id, uv.Add(dv), slice).Sub(b.Sample(id, uv.Sub(dv), slice)).Mul(1 / scale)
	det := JacobianDeterminant(ddx.Vec3(), ddz.Vec3())
	return waveFoamGain * b.Float(waveFoamStrengthID) * common.Saturate(b.Float(waveFoamCoverageID)-det)
}

// JacobianDeterminant returns the determinant of the horizontal displacement Jacobian from the
// partial derivatives of the displacement along x and z. Values below 1 mean the surface is compressed.
func JacobianDeterminant(ddx, ddz mgl32.Vec3) float32 {
	return (1+ddx[0])*(1+ddz[2]) - ddx[2]*ddz[0]
}
