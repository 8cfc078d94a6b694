package flow

import "go.uber.org/zap"

// FlowBuilderOption is a functional option applied to the module during construction via New.
type FlowBuilderOption func(*Flow)

// WithLogger sets the logger of the module.
func WithLogger(logger *zap.Logger) FlowBuilderOption {
	return func(m *Flow) {
		if logger != nil {
			m.logger = logger
		}
	}
}
