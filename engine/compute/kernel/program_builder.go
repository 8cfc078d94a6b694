package kernel

// ProgramOption is a functional option applied to a program during construction via NewProgram.
type ProgramOption func(*program)

// WithCPUEntry registers a CPU implementation of a compute entry point for the reference backend.
//
// Parameters:
//   - entry: the @compute function name the implementation mirrors
//   - fn: the per-texel implementation
//
// Returns:
//   - ProgramOption: a function that registers the entry on a program
func WithCPUEntry(entry string, fn KernelFunc) ProgramOption {
	return func(p *program) {
		p.cpuEntries[entry] = fn
	}
}
