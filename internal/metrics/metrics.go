// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all CarWorth metrics.
type Registry struct {
	ValuationDuration *prometheus.HistogramVec
	ValuationsTotal   *prometheus.CounterVec
	DegradedTotal     *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	BatchProcessed prometheus.Counter
	BatchErrors    prometheus.Counter

	ProviderRetries   prometheus.Counter
	KeyRotations      prometheus.Counter
	ActiveShiftAlerts prometheus.Gauge
}

// NewRegistry creates and registers all metrics against the given registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		ValuationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carworth_valuation_duration_seconds",
				Help:    "Duration of valuation requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"path"},
		),
		ValuationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carworth_valuations_total",
				Help: "Total valuations by confidence grade",
			},
			[]string{"confidence"},
		),
		DegradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carworth_degraded_valuations_total",
				Help: "Valuations that fell back to the formula path, by reason",
			},
			[]string{"reason"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carworth_cache_hits_total",
				Help: "Cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carworth_cache_misses_total",
				Help: "Cache misses by cache type",
			},
			[]string{"cache_type"},
		),
		BatchProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carworth_batch_refreshes_total",
			Help: "Vehicles refreshed by the scheduled batch driver",
		}),
		BatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carworth_batch_errors_total",
			Help: "Per-vehicle failures during scheduled batches",
		}),
		ProviderRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carworth_provider_retries_total",
			Help: "Retries against the external data sources",
		}),
		KeyRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carworth_key_rotations_total",
			Help: "API key rotations after quota or credential failures",
		}),
		ActiveShiftAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carworth_active_shift_alerts",
			Help: "Currently active market shift alerts",
		}),
	}

	reg.MustRegister(
		r.ValuationDuration, r.ValuationsTotal, r.DegradedTotal,
		r.CacheHits, r.CacheMisses,
		r.BatchProcessed, r.BatchErrors,
		r.ProviderRetries, r.KeyRotations, r.ActiveShiftAlerts,
	)
	return r
}
