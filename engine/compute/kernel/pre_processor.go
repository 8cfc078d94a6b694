// pre_processor.go implements the kernel pre-processor. It scans program source for
// //@oxy:include <name> lines and replaces each with a registered WGSL snippet, so the
// sampling helpers shared by every LOD kernel are written once.
package kernel

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
)

// annotationPrefix is the marker that identifies an include annotation within a WGSL comment line.
const annotationPrefix = "//@oxy:include"

//go:embed lod_common.wgsl
var lodCommonSource string

// IncludeLodCommon is the name of the built-in snippet with texel addressing and manual bilinear
// sampling of unfilterable float texture arrays.
const IncludeLodCommon = "lod_common"

var (
	includesMu sync.RWMutex
	includes   = map[string]string{
		IncludeLodCommon: lodCommonSource,
	}
)

// RegisterInclude makes a WGSL snippet available to //@oxy:include under name.
// Registering an existing name replaces its source.
//
// Parameters:
//   - name: the include name used in the annotation
//   - source: the WGSL source injected at the annotation site
func RegisterInclude(name, source string) {
	includesMu.Lock()
	defer includesMu.Unlock()
	includes[name] = source
}

// preProcess replaces every include annotation in source with the registered snippet.
//
// Parameters:
//   - source: the raw program source
//
// Returns:
//   - string: the processed source
//   - error: an error if an annotation is malformed or names an unknown include
func preProcess(source string) (string, error) {
	includesMu.RLock()
	defer includesMu.RUnlock()

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)
	for i, line := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), annotationPrefix)
		if !ok {
			out = append(out, line)
			continue
		}
		args := strings.Fields(rest)
		if len(args) != 1 {
			return "", fmt.Errorf("line %d: include annotation needs exactly one argument", i+1)
		}
		src, ok := includes[args[0]]
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, args[0])
		}
		if seen[args[0]] {
			continue
		}
		seen[args[0]] = true
		out = append(out, src)
	}
	return strings.Join(out, "\n"), nil
}
