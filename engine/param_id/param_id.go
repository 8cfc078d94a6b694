// Package param_id maps shader parameter names to stable integer handles.
//
// Handles are process-wide and memoized: the same name always yields the same ParamID for the life of
// the process, including across Reinit. Slot-qualified texture array handles are cached on
// TextureArrayParamIDs containers that are refreshed from the canonical table on every (re)initialisation.
package param_id

import (
	"sync"
	"sync/atomic"
)

// ParamID is an opaque handle for a named shader parameter.
type ParamID int32

// Invalid is never returned by PropertyToID.
const Invalid ParamID = 0

// SourceSuffix is appended to a texture array name to form the name of its source (previous) slot.
const SourceSuffix = "_Source"

// registry is the canonical name table. It is never cleared; Reinit only refreshes derived caches.
type registry struct {
	mu    sync.RWMutex
	ids   map[string]ParamID
	names []string // index = ParamID

	containers map[string]*TextureArrayParamIDs
	generation atomic.Uint64
}

var global = newRegistry()

func newRegistry() *registry {
	return &registry{
		ids:        make(map[string]ParamID),
		names:      []string{""},
		containers: make(map[string]*TextureArrayParamIDs),
	}
}

// PropertyToID returns the handle for name, allocating one on first use.
//
// Parameters:
//   - name: the shader parameter name (e.g. "_FoamFadeRate")
//
// Returns:
//   - ParamID: the stable handle for the name
func PropertyToID(name string) ParamID {
	return global.propertyToID(name)
}

// Name returns the parameter name for a handle issued by PropertyToID.
//
// Parameters:
//   - id: the handle to look up
//
// Returns:
//   - string: the name associated with the handle
//   - bool: false if the handle was never issued
func Name(id ParamID) (string, bool) {
	return global.name(id)
}

// Init initialises the registry's derived caches. It is safe to call more than once.
func Init() {
	global.reinit()
}

// Reinit re-derives every TextureArrayParamIDs cache from the canonical table, e.g. after the graphics
// device was reset. Handles issued before the call remain valid and equal.
func Reinit() {
	global.reinit()
}

// Generation reports how many times Init or Reinit has run.
func Generation() uint64 {
	return global.generation.Load()
}

func (r *registry) propertyToID(name string) ParamID {
	r.mu.RLock()
	id, ok := r.ids[name]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok = r.ids[name]; ok {
		return id
	}
	id = ParamID(len(r.names))
	r.ids[name] = id
	r.names = append(r.names, name)
	return id
}

func (r *registry) name(id ParamID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id <= Invalid || int(id) >= len(r.names) {
		return "", false
	}
	return r.names[id], true
}

// container returns the container registered for name, creating and refreshing it on first use.
func (r *registry) container(name string) *TextureArrayParamIDs {
	r.mu.RLock()
	t, ok := r.containers[name]
	r.mu.RUnlock()
	if ok {
		return t
	}

	t = &TextureArrayParamIDs{name: name, sourceName: name + SourceSuffix}
	t.refresh(r)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.containers[name]; ok {
		return existing
	}
	r.containers[name] = t
	return t
}

func (r *registry) reinit() {
	r.mu.RLock()
	containers := make([]*TextureArrayParamIDs, 0, len(r.containers))
	for _, t := range r.containers {
		containers = append(containers, t)
	}
	r.mu.RUnlock()

	for _, t := range containers {
		t.refresh(r)
	}
	r.generation.Add(1)
}
