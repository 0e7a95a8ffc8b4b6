// Package metrics exposes Prometheus collectors for the playback core.
//
// A nil *Recorder is valid and records nothing, so components can be built
// without metrics in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gotune"

// Outcome labels for chain runs.
const (
	OutcomeCompleted  = "completed"
	OutcomeTerminated = "terminated"
)

// Source labels for metadata lookups.
const (
	SourceCache  = "cache"
	SourceReader = "reader"
)

// Recorder groups the collectors used across the core.
type Recorder struct {
	chainRuns       *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	metadataReads   *prometheus.CounterVec
	registryEntries prometheus.Gauge
	poolInFlight    *prometheus.GaugeVec
	batchDuration   *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		chainRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "chain_runs_total",
			Help:      "Playback chain runs by chain and outcome.",
		}, []string{"chain", "outcome"}),
		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "action_duration_seconds",
			Help:      "Time from an action being invoked to it resuming the chain.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"chain", "action"}),
		metadataReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "reads_total",
			Help:      "Metadata lookups by source and result.",
		}, []string{"source", "result"}),
		registryEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "registry_entries",
			Help:      "Entries held by the metadata registry.",
		}),
		poolInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "pool_in_flight",
			Help:      "Units of work currently running per worker pool.",
		}, []string{"pool"}),
		batchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "batch_duration_seconds",
			Help:      "Load session batch time per owning list.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"list"}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "events_published_total",
			Help:      "Events published by type.",
		}, []string{"type"}),
	}
}

// ChainFinished counts a finished chain run.
func (r *Recorder) ChainFinished(chain, outcome string) {
	if r == nil {
		return
	}
	r.chainRuns.WithLabelValues(chain, outcome).Inc()
}

// ActionObserved records how long an action took to hand control back.
func (r *Recorder) ActionObserved(chain, action string, d time.Duration) {
	if r == nil {
		return
	}
	r.actionDuration.WithLabelValues(chain, action).Observe(d.Seconds())
}

// MetadataRead counts a metadata lookup.
func (r *Recorder) MetadataRead(source string, ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.metadataReads.WithLabelValues(source, result).Inc()
}

// RegistrySize sets the registry entry gauge.
func (r *Recorder) RegistrySize(n int) {
	if r == nil {
		return
	}
	r.registryEntries.Set(float64(n))
}

// PoolUnitStarted increments the in-flight gauge for a pool.
func (r *Recorder) PoolUnitStarted(pool string) {
	if r == nil {
		return
	}
	r.poolInFlight.WithLabelValues(pool).Inc()
}

// PoolUnitFinished decrements the in-flight gauge for a pool.
func (r *Recorder) PoolUnitFinished(pool string) {
	if r == nil {
		return
	}
	r.poolInFlight.WithLabelValues(pool).Dec()
}

// BatchObserved records a load session batch.
func (r *Recorder) BatchObserved(list string, d time.Duration) {
	if r == nil {
		return
	}
	r.batchDuration.WithLabelValues(list).Observe(d.Seconds())
}

// EventPublished counts a published event.
func (r *Recorder) EventPublished(eventType string) {
	if r == nil {
		return
	}
	r.eventsPublished.WithLabelValues(eventType).Inc()
}
