// Package metrics holds the prometheus collectors of the simulation stack.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SimSubsteps counts the substeps run per module
	SimSubsteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxy_sim_substeps_total",
			Help: "Simulation substeps run by module",
		},
		[]string{"module"},
	)

	// SimDispatches counts the kernel dispatches issued per module
	SimDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxy_sim_dispatches_total",
			Help: "Kernel dispatches issued by module",
		},
		[]string{"module"},
	)

	// SimSubstepClamps counts frames whose substep count was clamped
	SimSubstepClamps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxy_sim_substep_clamps_total",
			Help: "Frames whose substep count exceeded the per-frame maximum, by module",
		},
		[]string{"module"},
	)

	// SimModuleUpdateSeconds tracks host time spent encoding a module's substeps
	SimModuleUpdateSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oxy_sim_module_update_seconds",
			Help:    "Host time spent issuing a module's dispatches for one frame",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
		[]string{"module"},
	)

	// CascadeGeneration tracks the publish generation of each cascade
	CascadeGeneration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oxy_cascade_generation",
			Help: "Number of times each cascade has published its target slot",
		},
		[]string{"cascade"},
	)

	// ProfilerGauges tracks frame statistics reported by the profiler
	ProfilerGauges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oxy_profiler_gauges",
			Help: "Frame statistics by type",
		},
		[]string{"type"},
	)
)
