package kernel

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
)

// Bindings is the view a CPU kernel function has of the parameters bound for one dispatch.
// Reads of unbound parameters return zero values, and textures bound to the neutral fallback read as zero.
type Bindings interface {
	// Float returns the float parameter bound under id.
	Float(id param_id.ParamID) float32

	// Int returns the integer parameter bound under id.
	Int(id param_id.ParamID) int32

	// Vector returns the vector parameter bound under id.
	Vector(id param_id.ParamID) mgl32.Vec4

	// Load reads one texel of the texture bound under id. Coordinates are clamped to the texture;
	// layers outside the texture read as zero. Textures bound as a single layer ignore layer.
	Load(id param_id.ParamID, x, y, layer int) mgl32.Vec4

	// Sample bilinearly samples the texture bound under id at a normalized coordinate, clamped to the edge.
	Sample(id param_id.ParamID, uv mgl32.Vec2, layer int) mgl32.Vec4

	// TextureSize returns the width and height of the texture bound under id, or zero if none is bound.
	TextureSize(id param_id.ParamID) (int, int)

	// Layer returns the layer of the output being written.
	Layer() int

	// Size returns the dispatch domain width and height.
	Size() (int, int)
}

// KernelFunc computes the value written to the output texel (x, y) of a dispatch.
// Only the first Channels() components of the result are stored.
type KernelFunc func(b Bindings, x, y int) mgl32.Vec4

// TexelUV returns the normalized coordinate of the center of texel (x, y) in a w by h domain.
//
// Parameters:
//   - x, y: the texel coordinate
//   - w, h: the domain size
//
// Returns:
//   - mgl32.Vec2: the texel center in [0, 1] space
func TexelUV(x, y, w, h int) mgl32.Vec2 {
	return mgl32.Vec2{(float32(x) + 0.5) / float32(w), (float32(y) + 0.5) / float32(h)}
}

// WorldFromUV maps a normalized coordinate to world space using a level transform packed as
// (center.x, center.z, world size, texel size).
func WorldFromUV(uv mgl32.Vec2, posScale mgl32.Vec4) mgl32.Vec2 {
	return mgl32.Vec2{
		posScale[0] + (uv[0]-0.5)*posScale[2],
		posScale[1] + (uv[1]-0.5)*posScale[2],
	}
}

// UVFromWorld is the inverse of WorldFromUV.
func UVFromWorld(world mgl32.Vec2, posScale mgl32.Vec4) mgl32.Vec2 {
	if posScale[2] == 0 {
		return mgl32.Vec2{0.5, 0.5}
	}
	return mgl32.Vec2{
		(world[0]-posScale[0])/posScale[2] + 0.5,
		(world[1]-posScale[1])/posScale[2] + 0.5,
	}
}

// UVInside reports whether a normalized coordinate lies within the [0, 1] square.
func UVInside(uv mgl32.Vec2) bool {
	return uv[0] >= 0 && uv[0] <= 1 && uv[1] >= 0 && uv[1] <= 1
}
