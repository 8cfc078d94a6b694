package sea_floor_depth

import "go.uber.org/zap"

// SeaFloorDepthBuilderOption is a functional option applied to the module during construction via New.
type SeaFloorDepthBuilderOption func(*SeaFloorDepth)

// WithLogger sets the logger of the module.
//
// Parameters:
//   - logger: the zap logger, nil keeps the no-op default
//
// Returns:
//   - SeaFloorDepthBuilderOption: a function that applies the logger option
func WithLogger(logger *zap.Logger) SeaFloorDepthBuilderOption {
	return func(m *SeaFloorDepth) {
		if logger != nil {
			m.logger = logger
		}
	}
}
