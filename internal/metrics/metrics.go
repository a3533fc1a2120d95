// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations counts collection operations by collection key, operation and result.
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyverse_store_operations_total",
			Help: "Artifact collection operations by collection, operation and result.",
		},
		[]string{"collection", "op", "result"},
	)

	// LoadFailures counts collections that could not be read or parsed and were treated as empty.
	LoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyverse_collection_load_failures_total",
			Help: "Collections that failed to load and were treated as empty.",
		},
		[]string{"collection"},
	)

	// BackendCalls counts calls to the generation backend by endpoint and result.
	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyverse_backend_calls_total",
			Help: "Calls to the generation backend by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)

	// BackendLatency observes backend call durations in seconds.
	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyverse_backend_call_duration_seconds",
			Help:    "Duration of calls to the generation backend.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	// CollectionBytes is the stored size of each collection as last measured.
	CollectionBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storyverse_collection_bytes",
			Help: "Stored size of each collection in bytes.",
		},
		[]string{"collection"},
	)

	// EventSubscribers tracks open websocket event subscriptions.
	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storyverse_event_subscribers",
		Help: "Open websocket subscriptions to collection change events.",
	})
)

// Result labels shared by the counters above.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultDeclined = "declined"
	ResultNoop     = "noop"
)
