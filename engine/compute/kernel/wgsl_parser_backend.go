package kernel

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslPrimitiveLayoutMap maps the WGSL scalar and vector types a simulation kernel uses in its
// parameter struct to their byte size and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32": {4, 4},
	"i32": {4, 4},
	"u32": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},
}

// wgslSampledTextureMap maps WGSL sampled texture base names to their view dimension
var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_2d":       {wgpu.TextureViewDimension2D, false},
	"texture_2d_array": {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":       {wgpu.TextureViewDimension3D, false},
}

// wgslStorageTextureDimMap maps WGSL storage texture base names to their view dimension
var wgslStorageTextureDimMap = map[string]wgpu.TextureViewDimension{
	"texture_storage_2d":       wgpu.TextureViewDimension2D,
	"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_storage_3d":       wgpu.TextureViewDimension3D,
}

// wgslSampleTypeMap maps WGSL scalar type parameters to their wgpu texture sample type.
// Simulation data is stored in 32-bit float formats, which are not filterable without an
// optional device feature, so f32 textures are declared unfilterable and read with textureLoad.
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeUnfilterableFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// wgslStorageAccessMap maps WGSL access mode keywords to their wgpu storage texture access
var wgslStorageAccessMap = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// wgslTexelFormatMap maps the WGSL texel formats used for simulation targets to wgpu texture formats.
var wgslTexelFormatMap = map[string]wgpu.TextureFormat{
	"r32float":    wgpu.TextureFormatR32Float,
	"rg32float":   wgpu.TextureFormatRG32Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32sint":     wgpu.TextureFormatR32Sint,
}

// roundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
//
// Parameters:
//   - alignment: the required alignment (must be a power of two)
//   - value: the value to align
//
// Returns:
//   - uint64: value rounded up to the next multiple of alignment
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves a WGSL type name to its size and alignment using primitives
// and previously-computed struct layouts. Fixed-size arrays (array<T, N>) are supported;
// runtime-sized arrays and unknown types are not.
//
// Parameters:
//   - typeName: the WGSL type name to resolve, e.g. "f32", "Params", "array<vec4f, 4>"
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: true if the type could be resolved
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	if strings.HasPrefix(typeName, "array<") && strings.HasSuffix(typeName, ">") {
		inner := typeName[6 : len(typeName)-1]
		parts := strings.SplitN(inner, ",", 2)
		if len(parts) != 2 {
			return wgslTypeLayout{}, false
		}
		elemLayout, ok := resolveTypeLayout(strings.TrimSpace(parts[0]), knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return wgslTypeLayout{}, false
		}
		// uniform address space requires 16 byte array strides
		stride := roundUpAlign(16, roundUpAlign(elemLayout.align, elemLayout.size))
		return wgslTypeLayout{count * stride, max(elemLayout.align, 16)}, true
	}

	return wgslTypeLayout{}, false
}

// computeStructLayout places every member of a WGSL struct at its next aligned offset and returns
// the member placements together with the struct's size (rounded up to its alignment) and alignment.
// Builtin members are skipped as they are not part of the buffer layout.
//
// Parameters:
//   - ps: the parsed struct whose layout to compute
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - StructLayout: the member placements and total size
//   - wgslTypeLayout: the struct's size and alignment
//   - bool: true if all members could be resolved
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (StructLayout, wgslTypeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)
	out := StructLayout{Name: ps.name, Fields: make([]FieldLayout, 0, len(ps.fields))}

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fieldLayout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return StructLayout{}, wgslTypeLayout{}, false
		}

		offset = roundUpAlign(fieldLayout.align, offset)
		out.Fields = append(out.Fields, FieldLayout{
			Name:     field.name,
			TypeName: field.typeName,
			Offset:   offset,
			Size:     fieldLayout.size,
		})
		offset += fieldLayout.size
		maxAlign = max(maxAlign, fieldLayout.align)
	}

	size := roundUpAlign(maxAlign, offset)
	out.Size = size
	return out, wgslTypeLayout{size, maxAlign}, true
}

// computeStructLayouts resolves every parsed struct, iterating until no more progress can be made so
// that structs nested in other structs resolve regardless of declaration order.
//
// Parameters:
//   - structs: all parsed struct blocks from the WGSL source
//
// Returns:
//   - map[string]StructLayout: the resolved layouts keyed by struct name
//   - map[string]wgslTypeLayout: the resolved sizes and alignments keyed by struct name
func computeStructLayouts(structs []parsedStruct) (map[string]StructLayout, map[string]wgslTypeLayout) {
	layouts := make(map[string]StructLayout, len(structs))
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := make([]parsedStruct, len(structs))
	copy(remaining, structs)

	for {
		progress := false
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, typeLayout, ok := computeStructLayout(ps, resolved); ok {
				layouts[ps.name] = layout
				resolved[ps.name] = typeLayout
				progress = true
			} else {
				next = append(next, ps)
			}
		}
		remaining = next
		if !progress || len(remaining) == 0 {
			break
		}
	}

	return layouts, resolved
}

// classifyResource creates a wgpu.BindGroupLayoutEntry from a parsed WGSL resource declaration.
// It determines the resource category (buffer, texture, sampler, storage texture) from the
// address space qualifier and type name, and populates the corresponding layout fields.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - addressSpace: the address space qualifier (e.g. "uniform"), empty for handle types
//   - typeName: the WGSL type string (e.g. "Params", "texture_2d_array<f32>")
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: a populated layout entry visible to the compute stage
func classifyResource(binding uint32, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
	}

	if addressSpace != "" {
		switch {
		case addressSpace == "uniform":
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case strings.HasPrefix(addressSpace, "storage"):
			if strings.Contains(addressSpace, "read_write") {
				entry.Buffer.Type = wgpu.BufferBindingTypeStorage
			} else {
				entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
			}
		}
		return entry
	}

	switch {
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(typeName, "texture_storage_"):
		classifyStorageTexture(typeName, &entry)
	case strings.HasPrefix(typeName, "texture_"):
		classifySampledTexture(typeName, &entry)
	}

	return entry
}

// classifySampledTexture parses a sampled texture type (e.g. "texture_2d_array<f32>") and populates
// the texture layout fields on the entry
func classifySampledTexture(typeName string, entry *wgpu.BindGroupLayoutEntry) {
	base, param := splitTypeParams(typeName)

	if info, ok := wgslSampledTextureMap[base]; ok {
		entry.Texture.ViewDimension = info.viewDimension
		entry.Texture.Multisampled = info.multisampled
	}
	if st, ok := wgslSampleTypeMap[param]; ok {
		entry.Texture.SampleType = st
	}
}

// classifyStorageTexture parses a storage texture type (e.g. "texture_storage_2d<r32float, write>")
// and populates the storage texture layout fields on the entry
func classifyStorageTexture(typeName string, entry *wgpu.BindGroupLayoutEntry) {
	base, params := splitTypeParams(typeName)

	if dim, ok := wgslStorageTextureDimMap[base]; ok {
		entry.StorageTexture.ViewDimension = dim
	}

	parts := strings.SplitN(params, ",", 2)
	if format, ok := wgslTexelFormatMap[strings.TrimSpace(parts[0])]; ok {
		entry.StorageTexture.Format = format
	}
	if len(parts) == 2 {
		if access, ok := wgslStorageAccessMap[strings.TrimSpace(parts[1])]; ok {
			entry.StorageTexture.Access = access
		}
	}
}

// splitTypeParams splits a WGSL parameterized type into its base name and parameter string.
// For "texture_2d<f32>" returns ("texture_2d", "f32").
//
// Parameters:
//   - typeName: the WGSL type string to split
//
// Returns:
//   - base: the type name before the first angle bracket
//   - params: the content between angle brackets, or empty if none
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes both single-line (//) and nested block (/* */) comments from WGSL source.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets,
// so array<vec4f, 4> stays one member type.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
