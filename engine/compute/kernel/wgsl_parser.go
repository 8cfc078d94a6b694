package kernel

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct member: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// entryAttrRegex captures the attribute block preceding a function and the function name
	entryAttrRegex = regexp.MustCompile(`((?:@\w+(?:\([^)]*\))?\s*)+)fn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> params: Params;
	// or handle types: @group(0) @binding(1) var _LD_TexArray_Foam_Source: texture_2d_array<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parsedBindings is the result of scanning a program's resource declarations.
type parsedBindings struct {
	descriptors map[int]wgpu.BindGroupLayoutDescriptor
	varNames    map[int]map[int]string
	uniforms    map[int]map[int]StructLayout
}

// parseEntries extracts every @compute entry point and its workgroup size from WGSL source.
// Omitted workgroup dimensions default to 1 per the WGSL specification.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []Entry: the compute entry points in source order
func parseEntries(source string) []Entry {
	cleaned := stripComments(source)
	var entries []Entry
	for _, match := range entryAttrRegex.FindAllStringSubmatch(cleaned, -1) {
		attrs := match[1]
		if !strings.Contains(attrs, "@compute") {
			continue
		}
		entries = append(entries, Entry{
			Name:          match[2],
			WorkgroupSize: parseWorkgroupSize(attrs),
		})
	}
	return entries
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions from an attribute block.
// Returns [1, 1, 1] if no @workgroup_size annotation is found.
func parseWorkgroupSize(attrs string) [3]uint32 {
	result := [3]uint32{1, 1, 1}

	match := workgroupSizeRegex.FindStringSubmatch(attrs)
	if match == nil {
		return result
	}
	for i := range 3 {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseBindings extracts all @group(N) @binding(M) resource declarations from WGSL source and
// returns them as wgpu.BindGroupLayoutDescriptor values grouped by group index, along with the
// declared variable names and, for uniform buffers, the resolved struct layout used to pack
// parameter values by member name.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - parsedBindings: descriptors, variable names and uniform layouts keyed by group and binding
func parseBindings(source string) parsedBindings {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	out := parsedBindings{
		varNames: make(map[int]map[int]string),
		uniforms: make(map[int]map[int]StructLayout),
	}
	cleaned := stripComments(source)

	layouts, typeLayouts := computeStructLayouts(parseStructBlocks(cleaned))

	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		entry := classifyResource(uint32(binding), addressSpace, typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, typeLayouts); ok && layout.size > 0 {
				entry.Buffer.MinBindingSize = layout.size
			}
			if sl, ok := layouts[typeName]; ok && entry.Buffer.Type == wgpu.BufferBindingTypeUniform {
				if out.uniforms[group] == nil {
					out.uniforms[group] = make(map[int]StructLayout)
				}
				out.uniforms[group][binding] = sl
			}
		}
		groups[group] = append(groups[group], entry)

		if out.varNames[group] == nil {
			out.varNames[group] = make(map[int]string)
		}
		out.varNames[group][binding] = varName
	}

	out.descriptors = make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		out.descriptors[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return out
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source and parses their members.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into members.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		fields = append(fields, parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			isBuiltin: builtinRegex.MatchString(line),
		})
	}
	return fields
}
