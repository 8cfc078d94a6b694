package settings

import (
	"time"

	"go.uber.org/zap"
)

type sourceOptions struct {
	logger   *zap.Logger
	debounce time.Duration
}

// SourceBuilderOption is a functional option applied to a Source during construction via NewSource.
type SourceBuilderOption func(*sourceOptions)

// WithLogger sets the logger used to report reload failures.
//
// Parameters:
//   - logger: the zap logger, nil keeps the no-op default
//
// Returns:
//   - SourceBuilderOption: a function that applies the logger option
func WithLogger(logger *zap.Logger) SourceBuilderOption {
	return func(o *sourceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDebounce sets how long Watch waits after the last file event before reloading.
//
// Parameters:
//   - d: the debounce window; values <= 0 keep the default of 250ms
//
// Returns:
//   - SourceBuilderOption: a function that applies the debounce option
func WithDebounce(d time.Duration) SourceBuilderOption {
	return func(o *sourceOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}
