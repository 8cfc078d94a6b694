package sim

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute"
	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
)

// Bind binds a module's published data under its texture array handle.
//
// An absent (nil), disabled or released module binds compute.BlackTextureArray under the same handle,
// so consumers never need to know whether the module exists.
//
// Parameters:
//   - props: the consumer's parameter set
//   - ids: the module's texture array handles
//   - m: the module, may be nil
//   - sourceLod: bind the source slot (the data before the last publish) instead of the current slot
func Bind(props compute.PropertyWrapper, ids *param_id.TextureArrayParamIDs, m Module, sourceLod bool) {
	id := ids.ID(sourceLod)
	if m == nil || !m.Active() {
		props.SetTexture(id, compute.BlackTextureArray)
		return
	}
	if sourceLod {
		props.SetTexture(id, m.Cascade().Previous())
		return
	}
	props.SetTexture(id, m.Cascade().Current())
}
