// Package metrics provides Prometheus collectors for pool activity.
//
// All metrics are registered with the default registerer at package load.
// The engine records through the package-level vectors; callers that scrape
// metrics expose promhttp in their own server.
//
// Example:
//
//	metrics.Spawns.WithLabelValues("enemy_grunt", metrics.SpawnSourcePool).Inc()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Spawn source label values.
const (
	// SpawnSourcePool marks a spawn served from a bin's idle pool.
	SpawnSourcePool = "pool"
	// SpawnSourceNew marks a spawn that instantiated a fresh instance
	// because the bin's pool was empty.
	SpawnSourceNew = "new"
	// SpawnSourceFallback marks a spawn for an unmanaged template that
	// degraded to direct instantiation.
	SpawnSourceFallback = "fallback"
)

// Despawn outcome label values.
const (
	// DespawnOutcomePooled marks an instance returned to its bin.
	DespawnOutcomePooled = "pooled"
	// DespawnOutcomeDestroyed marks an untracked instance destroyed
	// outright.
	DespawnOutcomeDestroyed = "destroyed"
)

var (
	// Spawns tracks spawn operations by template and source.
	Spawns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warren_spawns_total",
			Help: "Total number of spawn operations",
		},
		[]string{"template", "source"},
	)

	// Despawns tracks despawn operations by template and outcome.
	Despawns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warren_despawns_total",
			Help: "Total number of despawn operations",
		},
		[]string{"template", "outcome"},
	)

	// Culled tracks instances destroyed by the periodic cull pass.
	Culled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warren_culled_instances_total",
			Help: "Total number of idle instances destroyed by culling",
		},
		[]string{"template"},
	)

	// IdleInstances tracks the current idle-instance count per bin.
	IdleInstances = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_idle_instances",
			Help: "Current number of idle instances held by a bin",
		},
		[]string{"template"},
	)

	// RegisteredBins tracks the number of currently registered bins per
	// registry instance.
	RegisteredBins = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_registered_bins",
			Help: "Number of currently registered bins",
		},
		[]string{"registry"},
	)
)
