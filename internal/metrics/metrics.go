// Package metrics provides optional Prometheus instrumentation for the
// RPC and session layers. Every collaborator that accepts a Metrics value
// must also accept nil: a nil Metrics disables collection with zero
// overhead, mirroring the teacher's own NFSMetrics-interface-or-nil
// pattern.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records RPC call outcomes and slot table occupancy. Methods must
// not be called on a nil Metrics value; callers check for nil first.
type Metrics interface {
	// RecordCall records one completed RPC call: its procedure name,
	// duration, and outcome ("ok" or the symbolic error code name).
	RecordCall(procedure string, duration time.Duration, result string)

	// SetSlotTableInFlight reports the current number of slots in use.
	SetSlotTableInFlight(n int)

	// SetSlotTableCapacity reports the configured slot table size.
	SetSlotTableCapacity(n int)
}

type prometheusMetrics struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	slotsInFlight prometheus.Gauge
	slotsCapacity prometheus.Gauge
}

// New registers nfs4c_* collectors against reg and returns a Metrics
// backed by them. Passing a nil reg disables metrics entirely, returning
// a nil Metrics (every call site must tolerate this).
func New(reg prometheus.Registerer) Metrics {
	if reg == nil {
		return nil
	}

	return &prometheusMetrics{
		callsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfs4c_rpc_calls_total",
				Help: "Total RPC calls by procedure and result.",
			},
			[]string{"procedure", "result"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nfs4c_rpc_call_duration_seconds",
				Help:    "RPC call round-trip latency by procedure.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"procedure"},
		),
		slotsInFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "nfs4c_slot_table_in_flight",
			Help: "Session slots currently checked out.",
		}),
		slotsCapacity: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "nfs4c_slot_table_capacity",
			Help: "Configured session slot table size.",
		}),
	}
}

func (m *prometheusMetrics) RecordCall(procedure string, duration time.Duration, result string) {
	m.callsTotal.WithLabelValues(procedure, result).Inc()
	m.callDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

func (m *prometheusMetrics) SetSlotTableInFlight(n int) {
	m.slotsInFlight.Set(float64(n))
}

func (m *prometheusMetrics) SetSlotTableCapacity(n int) {
	m.slotsCapacity.Set(float64(n))
}
