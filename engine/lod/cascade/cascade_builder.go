package cascade

import (
	"github.com/Carmen-Shannon/oxy-ocean/common"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// CascadeBuilderOption is a functional option applied to a cascade during construction via New.
type CascadeBuilderOption func(*cascade)

// WithLogger sets the logger used by the cascade.
//
// Parameters:
//   - logger: the zap logger, nil keeps the no-op default
//
// Returns:
//   - CascadeBuilderOption: a function that applies the logger option to a cascade
func WithLogger(logger *zap.Logger) CascadeBuilderOption {
	return func(cs *cascade) {
		if logger != nil {
			cs.logger = logger
		}
	}
}

// WithCenter sets the initial world-space center of every level, snapped like Reposition.
//
// Parameters:
//   - center: the world-space (x, z) position
//
// Returns:
//   - CascadeBuilderOption: a function that applies the center option to a cascade
func WithCenter(center mgl32.Vec2) CascadeBuilderOption {
	return func(cs *cascade) {
		for l := range cs.transforms {
			cs.transforms[l].Center = common.SnapToGrid(center, cs.transforms[l].TexelSize())
		}
	}
}
