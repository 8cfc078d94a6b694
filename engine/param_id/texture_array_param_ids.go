package param_id

import "sync/atomic"

// TextureArrayParamIDs caches the handles of a texture array parameter for both of its slots:
// the plain name for the current slot and the name with SourceSuffix for the source (previous) slot.
type TextureArrayParamIDs struct {
	name       string
	sourceName string

	id       atomic.Int32
	sourceID atomic.Int32
}

// NewTextureArrayParamIDs returns the slot-qualified handle container for name, registering it on the
// first call. Later calls with the same name return the same container. The container is refreshed
// whenever the registry is reinitialised.
//
// Parameters:
//   - name: the texture array parameter name, e.g. "_LD_TexArray_Foam"
//
// Returns:
//   - *TextureArrayParamIDs: the registered container
func NewTextureArrayParamIDs(name string) *TextureArrayParamIDs {
	return global.container(name)
}

// ID returns the handle for the current slot, or for the source slot when sourceLod is true.
func (t *TextureArrayParamIDs) ID(sourceLod bool) ParamID {
	if sourceLod {
		return ParamID(t.sourceID.Load())
	}
	return ParamID(t.id.Load())
}

// Name returns the parameter name for the current slot, or for the source slot when sourceLod is true.
func (t *TextureArrayParamIDs) Name(sourceLod bool) string {
	if sourceLod {
		return t.sourceName
	}
	return t.name
}

func (t *TextureArrayParamIDs) refresh(r *registry) {
	t.id.Store(int32(r.propertyToID(t.name)))
	t.sourceID.Store(int32(r.propertyToID(t.sourceName)))
}
