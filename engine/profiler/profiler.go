// Package profiler reports frame rate, simulation load and memory statistics.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-ocean/engine/lod/sim"
	"github.com/Carmen-Shannon/oxy-ocean/engine/metrics"
	"go.uber.org/zap"
)

// Stats are the statistics of one reporting interval.
type Stats struct {
	FPS float64

	// SubstepsPerSecond and DispatchesPerSecond summarise the simulation work across all modules.
	SubstepsPerSecond   float64
	DispatchesPerSecond float64
	ClampedFrames       int

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate, simulation and memory statistics.
// It logs them and publishes them as gauges at a configurable interval.
type Profiler struct {
	logger         *zap.Logger
	updateInterval time.Duration
	now            func() time.Time

	frameCount     int
	substeps       int
	dispatches     int
	clampedFrames  int
	lastTime       time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options such as WithLogger or WithInterval
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         zap.NewNop(),
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with the statistics of that frame's simulation update.
// It reports when the update interval has elapsed.
//
// Parameters:
//   - frame: the statistics returned by the simulation driver for this frame
//
// Returns:
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick(frame sim.FrameStats) bool {
	p.frameCount++
	for _, n := range frame.Substeps {
		p.substeps += n
	}
	p.dispatches += frame.Dispatches
	if len(frame.Clamped) > 0 {
		p.clampedFrames++
	}

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	seconds := elapsed.Seconds()
	s := Stats{
		FPS:                 float64(p.frameCount) / seconds,
		SubstepsPerSecond:   float64(p.substeps) / seconds,
		DispatchesPerSecond: float64(p.dispatches) / seconds,
		ClampedFrames:       p.clampedFrames,
	}

	runtime.ReadMemStats(&p.memStats)
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	s.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	s.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds

	// PauseNs is a circular buffer of the last 256 GC pauses.
	s.GCCount = p.memStats.NumGC
	if s.GCCount > 0 {
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.report(s)

	p.last = s
	p.frameCount = 0
	p.substeps = 0
	p.dispatches = 0
	p.clampedFrames = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the statistics of the most recent report.
func (p *Profiler) Last() Stats {
	return p.last
}

func (p *Profiler) report(s Stats) {
	metrics.ProfilerGauges.WithLabelValues("fps").Set(s.FPS)
	metrics.ProfilerGauges.WithLabelValues("substeps_per_second").Set(s.SubstepsPerSecond)
	metrics.ProfilerGauges.WithLabelValues("dispatches_per_second").Set(s.DispatchesPerSecond)
	metrics.ProfilerGauges.WithLabelValues("heap_mb").Set(s.HeapMB)
	metrics.ProfilerGauges.WithLabelValues("alloc_rate_mb").Set(s.AllocRateMB)
	metrics.ProfilerGauges.WithLabelValues("sys_mb").Set(s.SysMB)

	p.logger.Info("frame statistics",
		zap.Float64("fps", s.FPS),
		zap.Float64("substeps_per_second", s.SubstepsPerSecond),
		zap.Float64("dispatches_per_second", s.DispatchesPerSecond),
		zap.Int("clamped_frames", s.ClampedFrames),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_rate_mb", s.AllocRateMB),
		zap.Uint32("gc_count", s.GCCount),
		zap.Uint64("gc_last_pause_us", s.LastPauseUs),
		zap.Uint64("gc_max_pause_us", s.MaxPauseUs),
		zap.Float64("sys_mb", s.SysMB),
	)
}
