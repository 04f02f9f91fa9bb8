// Package metrics exposes Prometheus instrumentation for the encryption
// engine, grounded on the teacher-adjacent guided-traffic-s3-encryption-proxy
// service's internal/monitoring package: package-level promauto vectors
// rather than a metrics struct threaded through every call site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xmlenc_operations_total",
			Help: "Total number of encrypt/decrypt operations by mode and outcome.",
		},
		[]string{"operation", "mode", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xmlenc_operation_duration_seconds",
			Help:    "Duration of encrypt/decrypt operations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "mode"},
	)

	KeyResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xmlenc_key_resolutions_total",
			Help: "Total number of KeyInfo/KeysManager key lookups by origin and outcome.",
		},
		[]string{"origin", "status"},
	)

	CipherReferenceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xmlenc_cipher_reference_fetches_total",
			Help: "Total number of CipherReference dereferences by URI class and outcome.",
		},
		[]string{"uri_type", "status"},
	)

	KeyStoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xmlenc_keystore_size",
			Help: "Number of keys currently held by the active KeyStore.",
		},
	)
)

// Outcome is a small helper so call sites pass a consistent status label
// instead of ad hoc strings.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ObserveOperation records a single encrypt/decrypt attempt.
func ObserveOperation(operation, mode string, outcome Outcome, seconds float64) {
	OperationsTotal.WithLabelValues(operation, mode, string(outcome)).Inc()
	OperationDuration.WithLabelValues(operation, mode).Observe(seconds)
}
