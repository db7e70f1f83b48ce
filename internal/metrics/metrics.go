// Package metrics exposes the Prometheus metrics of an editor session.
//
// A nil *Registry is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the application's collectors.
type Registry struct {
	registry *prometheus.Registry

	SyncRunsTotal           *prometheus.CounterVec
	SyncStaleResultsTotal   *prometheus.CounterVec
	SyncCoalescedTotal      *prometheus.CounterVec
	SyncDuration            *prometheus.HistogramVec
	SyncFailuresTotal       *prometheus.CounterVec
	ValidationMarkers       *prometheus.GaugeVec
	TopologyOperationsTotal *prometheus.CounterVec
}

// NewRegistry creates a registry with every flowgrid collector plus the Go
// and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r := &Registry{registry: reg}

	r.SyncRunsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowgrid_sync_runs_total",
			Help: "Total number of debounced channel runs",
		},
		[]string{"channel"}, // graph-to-text, text-to-graph, validation
	)
	r.SyncStaleResultsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowgrid_sync_stale_results_total",
			Help: "Asynchronous results discarded because a newer request superseded them",
		},
		[]string{"channel"},
	)
	r.SyncCoalescedTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowgrid_sync_coalesced_triggers_total",
			Help: "Triggers merged into an already pending request",
		},
		[]string{"channel"},
	)
	r.SyncDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowgrid_sync_duration_seconds",
			Help:    "Duration of collaborator calls per channel",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"channel"},
	)
	r.SyncFailuresTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowgrid_sync_failures_total",
			Help: "Collaborator calls that returned an error",
		},
		[]string{"channel"},
	)
	r.ValidationMarkers = promauto.With(reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowgrid_validation_markers",
			Help: "Markers in the last applied validation pass",
		},
		[]string{"severity"},
	)
	r.TopologyOperationsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowgrid_topology_operations_total",
			Help: "Topology editing operations by outcome",
		},
		[]string{"op", "result"},
	)
	return r
}

// RecordSyncRun records one channel run and the time its collaborator took.
func (r *Registry) RecordSyncRun(channel string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.SyncRunsTotal.WithLabelValues(channel).Inc()
	r.SyncDuration.WithLabelValues(channel).Observe(duration.Seconds())
	if err != nil {
		r.SyncFailuresTotal.WithLabelValues(channel).Inc()
	}
}

// RecordStale records a discarded result.
func (r *Registry) RecordStale(channel string) {
	if r == nil {
		return
	}
	r.SyncStaleResultsTotal.WithLabelValues(channel).Inc()
}

// RecordCoalesced records a trigger merged into a pending request.
func (r *Registry) RecordCoalesced(channel string) {
	if r == nil {
		return
	}
	r.SyncCoalescedTotal.WithLabelValues(channel).Inc()
}

// SetMarkers publishes the marker counts of the last validation pass.
func (r *Registry) SetMarkers(errors, warnings int) {
	if r == nil {
		return
	}
	r.ValidationMarkers.WithLabelValues("error").Set(float64(errors))
	r.ValidationMarkers.WithLabelValues("warning").Set(float64(warnings))
}

// RecordTopologyOperation counts a topology operation.
func (r *Registry) RecordTopologyOperation(op, result string) {
	if r == nil {
		return
	}
	r.TopologyOperationsTotal.WithLabelValues(op, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
