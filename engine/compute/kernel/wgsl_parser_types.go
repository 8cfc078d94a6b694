package kernel

import "github.com/cogentcore/webgpu/wgpu"

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
// Used to compute MinBindingSize for buffer bindings and field offsets for uniform packing.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// Entry describes one @compute entry point of a Program.
type Entry struct {
	// Name is the WGSL function name.
	Name string
	// WorkgroupSize is the @workgroup_size of the entry, with omitted dimensions defaulted to 1.
	WorkgroupSize [3]uint32
}

// FieldLayout is the placement of one member inside a host-shareable WGSL struct.
type FieldLayout struct {
	Name     string
	TypeName string
	Offset   uint64
	Size     uint64
}

// StructLayout is the resolved memory layout of a struct bound as a uniform buffer.
type StructLayout struct {
	Name   string
	Size   uint64
	Fields []FieldLayout
}

// Field returns the layout of the named member.
//
// Parameters:
//   - name: the member name
//
// Returns:
//   - FieldLayout: the member layout
//   - bool: false if the struct has no such member
func (l StructLayout) Field(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}
