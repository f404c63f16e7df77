// Package telemetry publishes the adapter's Prometheus instruments.
//
// Instrumentation points:
//   - Engine.Sync          -> sync_operations_total, sync_duration_seconds
//   - validation results   -> validation_errors_total
//   - partition commits    -> rows_inserted_total
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the four sync instruments.
type Metrics struct {
	SyncOperations   *prometheus.CounterVec
	SyncDuration     *prometheus.HistogramVec
	ValidationErrors *prometheus.CounterVec
	RowsInserted     *prometheus.CounterVec
}

// New registers the instruments with the given registerer. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_operations_total",
			Help: "Total number of sync operations",
		}, []string{"tenant", "loan_type", "status"}),

		SyncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"tenant", "loan_type"}),

		ValidationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Total number of validation errors",
		}, []string{"tenant", "error_type"}),

		RowsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rows_inserted_total",
			Help: "Total rows inserted into the warehouse",
		}, []string{"tenant", "table"}),
	}
}
