package sim

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/cascade"
	"github.com/go-gl/mathgl/mgl32"
)

// FillLevels evaluates fn at the world position of every texel of every level, using each level's
// live placement, and uploads the result as static data. Only the first channels of each value are kept.
//
// Parameters:
//   - cs: the cascade to fill
//   - fn: returns the value at a world-space (x, z) position
//
// Returns:
//   - error: an error if an upload fails
func FillLevels(cs cascade.Cascade, fn func(p mgl32.Vec2) mgl32.Vec4) error {
	res := cs.Config().Resolution
	ch := cs.Format().Channels()
	texels := make([]float32, res*res*ch)
	for l := range cs.Levels() {
		posScale := cs.Transform(l).Vec4()
		for y := range res {
			for x := range res {
				v := fn(kernel.WorldFromUV(kernel.TexelUV(x, y, res, res), posScale))
				i := (y*res + x) * ch
				copy(texels[i:i+ch], v[:ch])
			}
		}
		if err := cs.WriteLevel(l, texels); err != nil {
			return fmt.Errorf("sim: failed to fill level %d of %q: %w", l, cs.Label(), err)
		}
	}
	return nil
}
