package transform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts operation attempts by outcome.
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowforge_operations_total",
		Help: "Transform operation attempts by operation and outcome",
	}, []string{"operation", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowforge_operation_duration_seconds",
		Help:    "Transform operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"operation"})

	// rowsRemoved counts rows dropped by dedup, missing-value drop and filter.
	rowsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowforge_rows_removed_total",
		Help: "Rows removed by transform operations",
	}, []string{"operation"})
)

func observe(kind OperationKind, outcome string, seconds float64, removed int) {
	operationsTotal.WithLabelValues(string(kind), outcome).Inc()
	operationDuration.WithLabelValues(string(kind)).Observe(seconds)
	if removed > 0 {
		rowsRemoved.WithLabelValues(string(kind)).Add(float64(removed))
	}
}
