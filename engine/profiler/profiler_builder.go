package profiler

import (
	"time"

	"go.uber.org/zap"
)

// ProfilerBuilderOption is a functional option applied to the profiler during construction via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithLogger sets the logger statistics are reported to.
func WithLogger(logger *zap.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithInterval sets how often statistics are reported.
//
// Parameters:
//   - d: the reporting interval; values <= 0 keep the 1 second default
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

func withClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
