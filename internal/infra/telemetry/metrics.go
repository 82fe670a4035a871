package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal tracks outbound calls per kind and outcome.
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revod_calls_total",
			Help: "Total number of outbound backend calls",
		},
		[]string{"kind", "outcome"},
	)

	// CallLatency tracks outbound call latency.
	CallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "revod_call_latency_seconds",
			Help:    "Outbound call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// CallFailures tracks failures per error class.
	CallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revod_call_failures_total",
			Help: "Total number of failed outbound calls",
		},
		[]string{"class"},
	)

	// EventsSuppressed tracks telemetry events dropped by the dedupe window.
	EventsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revod_telemetry_suppressed_total",
			Help: "Telemetry events suppressed by the dedupe window",
		},
		[]string{"channel"},
	)

	// QueueDepth tracks pending entries in the durable write queue.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "revod_outbox_depth",
			Help: "Pending entries in the durable write queue",
		},
	)

	// FlushResults tracks flush outcomes per entry.
	FlushResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revod_flush_results_total",
			Help: "Per-entry results of durable queue flushes",
		},
		[]string{"result"},
	)
)
