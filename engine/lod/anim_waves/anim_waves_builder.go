package anim_waves

import (
	"github.com/Carmen-Shannon/oxy-ocean/engine/settings"
	"go.uber.org/zap"
)

// AnimWavesBuilderOption is a functional option applied to the module during construction via New.
type AnimWavesBuilderOption func(*AnimWaves)

// WithSettings borrows an externally owned settings source.
//
// Parameters:
//   - src: the source; the module reads it but never modifies it
//
// Returns:
//   - AnimWavesBuilderOption: a function that applies the settings option
func WithSettings(src *settings.Source[Settings]) AnimWavesBuilderOption {
	return func(m *AnimWaves) {
		m.borrowed = src
	}
}

// WithLogger sets the logger of the module.
func WithLogger(logger *zap.Logger) AnimWavesBuilderOption {
	return func(m *AnimWaves) {
		if logger != nil {
			m.logger = logger
		}
	}
}
