package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-ocean/common"
	"github.com/Carmen-Shannon/oxy-ocean/engine/compute/kernel"
	"github.com/go-gl/mathgl/mgl32"
)

// UniformSource supplies parameter values by member name when packing a uniform struct.
type UniformSource interface {
	// UniformFloat returns the float value for a member name.
	UniformFloat(name string) (float32, bool)
	// UniformInt returns the integer value for a member name.
	UniformInt(name string) (int32, bool)
	// UniformVector returns the vector value for a member name.
	UniformVector(name string) (mgl32.Vec4, bool)
}

// PackUniform lays out parameter values into the byte image of a uniform struct. Members are matched
// by name; members without a bound value are left zero.
//
// Parameters:
//   - layout: the resolved struct layout
//   - src: the parameter values
//
// Returns:
//   - []byte: the packed buffer contents, layout.Size bytes
func PackUniform(layout kernel.StructLayout, src UniformSource) []byte {
	buf := make([]byte, layout.Size)
	for _, f := range layout.Fields {
		switch f.TypeName {
		case "f32":
			if v, ok := src.UniformFloat(f.Name); ok {
				common.PutFloat32(buf, f.Offset, v)
			}
		case "i32", "u32":
			if v, ok := src.UniformInt(f.Name); ok {
				common.PutUint32(buf, f.Offset, uint32(v))
			}
		case "vec2<f32>", "vec2f", "vec3<f32>", "vec3f", "vec4<f32>", "vec4f":
			v, ok := src.UniformVector(f.Name)
			if !ok {
				continue
			}
			n := int(f.Size / 4)
			for i := 0; i < n && i < 4; i++ {
				common.PutFloat32(buf, f.Offset+uint64(i*4), v[i])
			}
		case "vec2<i32>", "vec2i", "vec4<i32>", "vec4i", "vec2<u32>", "vec2u", "vec4<u32>", "vec4u":
			v, ok := src.UniformVector(f.Name)
			if !ok {
				continue
			}
			n := int(f.Size / 4)
			for i := 0; i < n && i < 4; i++ {
				common.PutUint32(buf, f.Offset+uint64(i*4), uint32(int32(v[i])))
			}
		}
	}
	return buf
}
