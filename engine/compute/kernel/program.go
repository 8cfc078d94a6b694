package kernel

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoEntries is returned when a program declares no @compute entry point.
var ErrNoEntries = errors.New("kernel: program declares no compute entry points")

// program is the implementation of the Program interface.
// It holds everything a backend needs to build pipelines for, bind, and execute a compute program.
type program struct {
	key    string
	source string

	entries []Entry
	parsed  parsedBindings
	module  *wgpu.ShaderModuleDescriptor

	cpuEntries map[string]KernelFunc
}

// Program is a parsed WGSL compute program. A program may declare several @compute entry points
// that share one resource layout, and may carry CPU implementations of those entries for the
// reference backend.
type Program interface {
	// Key retrieves the unique identifier for this program, used for caching and lookups.
	//
	// Returns:
	//   - string: the program's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// Entries returns every compute entry point declared by the program in source order.
	//
	// Returns:
	//   - []Entry: the entry points
	Entries() []Entry

	// Entry looks up a compute entry point by function name.
	//
	// Parameters:
	//   - name: the WGSL function name
	//
	// Returns:
	//   - Entry: the entry point
	//   - bool: false if the program has no such entry
	Entry(name string) (Entry, bool)

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding, or "" if none.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the declared variable name
	BindGroupVarName(group, binding int) string

	// BindGroupVarNames retrieves all declared variable names keyed by group and binding index.
	//
	// Returns:
	//   - map[int]map[int]string: variable names keyed by group and binding index
	BindGroupVarNames() map[int]map[int]string

	// UniformLayout returns the member layout of the struct bound as a uniform buffer at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - StructLayout: the resolved struct layout
	//   - bool: false if the binding is not a uniform struct
	UniformLayout(group, binding int) (StructLayout, bool)

	// CPUEntry returns the CPU implementation registered for an entry point.
	//
	// Parameters:
	//   - name: the entry point name
	//
	// Returns:
	//   - KernelFunc: the CPU implementation
	//   - bool: false if none was registered
	CPUEntry(name string) (KernelFunc, bool)

	// Module returns the shader module descriptor built from the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Program = &program{}

// NewProgram pre-processes and parses a WGSL compute program.
//
// Parameters:
//   - key: a unique identifier for the program, used for caching and lookups
//   - source: the WGSL source, which may contain //@oxy:include annotations
//   - options: functional options such as WithCPUEntry
//
// Returns:
//   - Program: the parsed program
//   - error: an error if pre-processing fails or no compute entry point is declared
func NewProgram(key, source string, options ...ProgramOption) (Program, error) {
	p := &program{
		key:        key,
		cpuEntries: make(map[string]KernelFunc),
	}
	for _, opt := range options {
		opt(p)
	}

	processed, err := preProcess(source)
	if err != nil {
		return nil, fmt.Errorf("kernel: failed to pre-process program %q: %w", key, err)
	}
	p.source = processed
	p.entries = parseEntries(processed)
	if len(p.entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoEntries, key)
	}
	for name := range p.cpuEntries {
		if _, ok := p.Entry(name); !ok {
			return nil, fmt.Errorf("kernel: CPU entry %q has no matching @compute function in %q", name, key)
		}
	}
	p.parsed = parseBindings(processed)
	p.module = &wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: processed,
		},
	}
	return p, nil
}

// NewProgramFromPath reads WGSL source from a file and parses it with NewProgram.
//
// Parameters:
//   - key: a unique identifier for the program
//   - path: the file path to read WGSL source from
//   - options: functional options such as WithCPUEntry
//
// Returns:
//   - Program: the parsed program
//   - error: an error if the file cannot be read or parsing fails
func NewProgramFromPath(key, path string, options ...ProgramOption) (Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kernel: failed to read source file %q: %w", path, err)
	}
	return NewProgram(key, string(data), options...)
}

func (p *program) Key() string {
	return p.key
}

func (p *program) Source() string {
	return p.source
}

func (p *program) Entries() []Entry {
	return p.entries
}

func (p *program) Entry(name string) (Entry, bool) {
	for _, e := range p.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func (p *program) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return p.parsed.descriptors
}

func (p *program) BindGroupVarName(group, binding int) string {
	if p.parsed.varNames[group] == nil {
		return ""
	}
	return p.parsed.varNames[group][binding]
}

func (p *program) BindGroupVarNames() map[int]map[int]string {
	return p.parsed.varNames
}

func (p *program) UniformLayout(group, binding int) (StructLayout, bool) {
	if p.parsed.uniforms[group] == nil {
		return StructLayout{}, false
	}
	l, ok := p.parsed.uniforms[group][binding]
	return l, ok
}

func (p *program) CPUEntry(name string) (KernelFunc, bool) {
	fn, ok := p.cpuEntries[name]
	return fn, ok
}

func (p *program) Module() *wgpu.ShaderModuleDescriptor {
	return p.module
}
