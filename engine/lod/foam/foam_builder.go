package foam

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/anim_waves"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/flow"
	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sea_floor_depth"
	"github.com/Carmen-Shannon/oxy-ocean/engine/settings"
	"go.uber.org/zap"
)

// FoamBuilderOption is a functional option applied to the module during construction via New.
type FoamBuilderOption func(*Foam)

// WithSettings borrows an externally owned settings source. It takes precedence over the module's
// own defaults.
//
// Parameters:
//   - src: the source; the module reads it but never modifies it
//
// Returns:
//   - FoamBuilderOption: a function that applies the settings option
func WithSettings(src *settings.Source[Settings]) FoamBuilderOption {
	return func(m *Foam) {
		m.borrowed = src
	}
}

// WithAnimWaves sets the animated waves the foam reads to generate wave foam.
func WithAnimWaves(a *anim_waves.AnimWaves) FoamBuilderOption {
	return func(m *Foam) {
		m.animWaves = a
	}
}

// WithSeaFloorDepth sets the water depth the foam reads to generate shoreline foam.
func WithSeaFloorDepth(s *sea_floor_depth.SeaFloorDepth) FoamBuilderOption {
	return func(m *Foam) {
		m.seaFloorDepth = s
	}
}

// WithFlow sets the flow that carries the foam.
func WithFlow(f *flow.Flow) FoamBuilderOption {
	return func(m *Foam) {
		m.flow = f
	}
}

// WithMaterialKeywords sets the material checked for the foam keyword at construction.
func WithMaterialKeywords(k MaterialKeywords) FoamBuilderOption {
	return func(m *Foam) {
		m.keywords = k
	}
}

// WithLogger sets the logger of the module.
//
// Parameters:
//   - logger: the zap logger, nil keeps the no-op default
//
// Returns:
//   - FoamBuilderOption: a function that applies the logger option
func WithLogger(logger *zap.Logger) FoamBuilderOption {
	return func(m *Foam) {
		if logger != nil {
			m.logger = logger
		}
	}
}
