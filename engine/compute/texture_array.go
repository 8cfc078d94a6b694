package compute

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ocean/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureFormat is the texel format of a TextureArray. Simulation data is always stored as 32-bit floats.
type TextureFormat int

const (
	// FormatR32Float stores one float channel per texel.
	FormatR32Float TextureFormat = iota

	// FormatRG32Float stores two float channels per texel.
	FormatRG32Float

	// FormatRGBA32Float stores four float channels per texel.
	FormatRGBA32Float
)

// Channels returns the number of float components stored per texel.
func (f TextureFormat) Channels() int {
	switch f {
	case FormatR32Float:
		return 1
	case FormatRG32Float:
		return 2
	case FormatRGBA32Float:
		return 4
	default:
		panic(fmt.Sprintf("compute: unknown texture format %d", f))
	}
}

func (f TextureFormat) String() string {
	switch f {
	case FormatR32Float:
		return "r32float"
	case FormatRG32Float:
		return "rg32float"
	case FormatRGBA32Float:
		return "rgba32float"
	default:
		return fmt.Sprintf("TextureFormat(%d)", int(f))
	}
}

// Valid reports whether f is one of the declared formats.
func (f TextureFormat) Valid() bool {
	return f >= FormatR32Float && f <= FormatRGBA32Float
}

// MarshalText encodes f by its WGSL name, e.g. "r32float".
func (f TextureFormat) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("compute: unknown texture format %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText decodes a WGSL format name.
func (f *TextureFormat) UnmarshalText(text []byte) error {
	parsed, err := ParseTextureFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseTextureFormat returns the format with the given WGSL name.
//
// Parameters:
//   - name: "r32float", "rg32float" or "rgba32float"
//
// Returns:
//   - TextureFormat: the format
//   - error: an error if the name is unknown
func ParseTextureFormat(name string) (TextureFormat, error) {
	for f := FormatR32Float; f <= FormatRGBA32Float; f++ {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("compute: unknown texture format %q", name)
}

func (f TextureFormat) wgpuFormat() wgpu.TextureFormat {
	switch f {
	case FormatR32Float:
		return wgpu.TextureFormatR32Float
	case FormatRG32Float:
		return wgpu.TextureFormatRG32Float
	default:
		return wgpu.TextureFormatRGBA32Float
	}
}

// TextureArray is a two-dimensional texture with one layer per cascade level, owned by a Compute backend.
type TextureArray interface {
	// Label returns the debug label given at creation.
	Label() string

	// Width returns the width of every layer in texels.
	Width() int

	// Height returns the height of every layer in texels.
	Height() int

	// Layers returns the number of layers.
	Layers() int

	// Format returns the texel format.
	Format() TextureFormat
}

// blackTextureArray is the neutral fallback sentinel. It carries no storage; every backend resolves it
// to its own zero-valued texture when it is bound.
type blackTextureArray struct{}

// BlackTextureArray is the neutral fallback bound in place of a module's data when the module is absent,
// disabled or released. Every texel of every layer reads as zero.
var BlackTextureArray TextureArray = blackTextureArray{}

func (blackTextureArray) Label() string         { return "Black Texture Array" }
func (blackTextureArray) Width() int            { return 1 }
func (blackTextureArray) Height() int           { return 1 }
func (blackTextureArray) Layers() int           { return 1 }
func (blackTextureArray) Format() TextureFormat { return FormatRGBA32Float }

// IsBlack reports whether arr is the neutral fallback sentinel.
func IsBlack(arr TextureArray) bool {
	_, ok := arr.(blackTextureArray)
	return ok
}

// Domain is the texel extent a dispatch covers on a single output layer.
type Domain struct {
	Width  int
	Height int
	Layer  int
}

// WorkgroupCount returns the number of workgroups needed to cover the domain with the given workgroup size.
//
// Parameters:
//   - size: the workgroup size of the kernel
//
// Returns:
//   - [3]uint32: the workgroup count in x, y and z
func (d Domain) WorkgroupCount(size [3]uint32) [3]uint32 {
	return [3]uint32{
		common.CeilDiv(d.Width, size[0]),
		common.CeilDiv(d.Height, size[1]),
		1,
	}
}

func validateLayer(arr TextureArray, layer int, texels []float32) error {
	if layer < 0 || layer >= arr.Layers() {
		return fmt.Errorf("compute: layer %d out of range for %q with %d layers", layer, arr.Label(), arr.Layers())
	}
	if texels != nil {
		want := arr.Width() * arr.Height() * arr.Format().Channels()
		if len(texels) != want {
			return fmt.Errorf("compute: layer data for %q has %d floats, want %d", arr.Label(), len(texels), want)
		}
	}
	return nil
}
