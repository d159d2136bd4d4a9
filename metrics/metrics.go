// Package metrics exposes Prometheus collectors for secret sharing operations and the
// HTTP server that publishes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "secret_sharing"

	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelBackend   = "backend"

	StatusSuccess = "success"
	StatusError   = "error"

	OpSplit       = "split"
	OpRecover     = "recover"
	OpStoreShares = "store_shares"
	OpFetchShares = "fetch_shares"
)

var (
	// OperationsTotal counts operations by name and outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of secret sharing operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration is dominated by prime generation for split and by signature
	// verification for recover.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of secret sharing operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelOperation},
	)

	SharesProduced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "shares_produced_total",
			Help:      "Total number of shares produced by split operations",
		},
	)

	SharesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "shares_consumed_total",
			Help:      "Total number of shares submitted to recover operations",
		},
	)

	IntegrityViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "integrity_violations_total",
			Help:      "Total number of shares rejected because of an invalid signature",
		},
	)

	// BackendAvailable is 1 when the named storage backend answered its last availability check.
	BackendAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "storage_backend_available",
			Help:      "Storage backend availability (1 = available, 0 = unavailable)",
		},
		[]string{LabelBackend},
	)
)

// RecordOperation increments the operation counter and observes its duration.
func RecordOperation(operation string, err error, seconds float64) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(seconds)
}

func SetBackendAvailable(backend string, available bool) {
	value := 0.0
	if available {
		value = 1.0
	}
	BackendAvailable.WithLabelValues(backend).Set(value)
}
