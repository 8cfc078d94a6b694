package compute

import (
	"maps"

	"github.com/Carmen-Shannon/oxy-ocean/engine/param_id"
	"github.com/go-gl/mathgl/mgl32"
)

// PropertyWrapper is the parameter set a consumer fills before a dispatch, keyed by parameter handle.
// Setting a handle twice replaces the earlier value.
type PropertyWrapper interface {
	// SetFloat binds a float parameter.
	SetFloat(id param_id.ParamID, v float32)

	// SetInt binds an integer parameter.
	SetInt(id param_id.ParamID, v int32)

	// SetVector binds a four component vector parameter.
	SetVector(id param_id.ParamID, v mgl32.Vec4)

	// SetTexture binds every layer of a texture array.
	SetTexture(id param_id.ParamID, arr TextureArray)

	// SetTextureLayer binds a single layer of a texture array as a two-dimensional texture.
	SetTextureLayer(id param_id.ParamID, arr TextureArray, layer int)

	// SetOutput binds a single layer of a texture array as the storage target of the dispatch.
	// A dispatch has at most one output; setting it again replaces the earlier target.
	SetOutput(id param_id.ParamID, arr TextureArray, layer int)
}

// TextureBinding is a texture array bound to a parameter, either whole or as one layer.
type TextureBinding struct {
	Array TextureArray
	// Layer is the bound layer, or -1 when the whole array is bound.
	Layer int
}

// Whole reports whether every layer of the array is bound.
func (t TextureBinding) Whole() bool {
	return t.Layer < 0
}

// PropertyBlock is the concrete PropertyWrapper consumed by Compute.Dispatch.
// It is not safe for concurrent mutation.
type PropertyBlock struct {
	floats   map[param_id.ParamID]float32
	ints     map[param_id.ParamID]int32
	vectors  map[param_id.ParamID]mgl32.Vec4
	textures map[param_id.ParamID]TextureBinding

	outputID param_id.ParamID
	output   TextureBinding
}

var _ PropertyWrapper = &PropertyBlock{}

// NewPropertyBlock creates an empty PropertyBlock.
func NewPropertyBlock() *PropertyBlock {
	return &PropertyBlock{
		floats:   make(map[param_id.ParamID]float32),
		ints:     make(map[param_id.ParamID]int32),
		vectors:  make(map[param_id.ParamID]mgl32.Vec4),
		textures: make(map[param_id.ParamID]TextureBinding),
	}
}

func (p *PropertyBlock) SetFloat(id param_id.ParamID, v float32) {
	p.floats[id] = v
}

func (p *PropertyBlock) SetInt(id param_id.ParamID, v int32) {
	p.ints[id] = v
}

func (p *PropertyBlock) SetVector(id param_id.ParamID, v mgl32.Vec4) {
	p.vectors[id] = v
}

func (p *PropertyBlock) SetTexture(id param_id.ParamID, arr TextureArray) {
	p.textures[id] = TextureBinding{Array: arr, Layer: -1}
}

func (p *PropertyBlock) SetTextureLayer(id param_id.ParamID, arr TextureArray, layer int) {
	p.textures[id] = TextureBinding{Array: arr, Layer: layer}
}

func (p *PropertyBlock) SetOutput(id param_id.ParamID, arr TextureArray, layer int) {
	p.outputID = id
	p.output = TextureBinding{Array: arr, Layer: layer}
}

// Float returns the float bound under id.
func (p *PropertyBlock) Float(id param_id.ParamID) (float32, bool) {
	v, ok := p.floats[id]
	return v, ok
}

// Int returns the integer bound under id.
func (p *PropertyBlock) Int(id param_id.ParamID) (int32, bool) {
	v, ok := p.ints[id]
	return v, ok
}

// Vector returns the vector bound under id.
func (p *PropertyBlock) Vector(id param_id.ParamID) (mgl32.Vec4, bool) {
	v, ok := p.vectors[id]
	return v, ok
}

// Texture returns the texture binding under id.
func (p *PropertyBlock) Texture(id param_id.ParamID) (TextureBinding, bool) {
	v, ok := p.textures[id]
	return v, ok
}

// Output returns the storage target of the dispatch and the handle it was bound under.
//
// Returns:
//   - param_id.ParamID: the output handle, or param_id.Invalid when no output is bound
//   - TextureBinding: the output array and layer
func (p *PropertyBlock) Output() (param_id.ParamID, TextureBinding) {
	return p.outputID, p.output
}

// Clear removes every binding so the block can be reused for the next dispatch.
func (p *PropertyBlock) Clear() {
	clear(p.floats)
	clear(p.ints)
	clear(p.vectors)
	clear(p.textures)
	p.outputID = param_id.Invalid
	p.output = TextureBinding{}
}

// Clone returns an independent copy of the block.
func (p *PropertyBlock) Clone() *PropertyBlock {
	return &PropertyBlock{
		floats:   maps.Clone(p.floats),
		ints:     maps.Clone(p.ints),
		vectors:  maps.Clone(p.vectors),
		textures: maps.Clone(p.textures),
		outputID: p.outputID,
		output:   p.output,
	}
}

// UniformFloat returns the float bound under the handle of a uniform member name.
func (p *PropertyBlock) UniformFloat(name string) (float32, bool) {
	return p.Float(param_id.PropertyToID(name))
}

// UniformInt returns the integer bound under the handle of a uniform member name.
func (p *PropertyBlock) UniformInt(name string) (int32, bool) {
	return p.Int(param_id.PropertyToID(name))
}

// UniformVector returns the vector bound under the handle of a uniform member name.
func (p *PropertyBlock) UniformVector(name string) (mgl32.Vec4, bool) {
	return p.Vector(param_id.PropertyToID(name))
}
