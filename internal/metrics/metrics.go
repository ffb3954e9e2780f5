// Package metrics provides observability for the taxpayer record module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks record mutations, identifier collision retries and the
// list/aggregation critical path.
type Metrics struct {
	RecordsCreated    prometheus.Counter
	RecordsUpdated    prometheus.Counter
	RecordsDeleted    prometheus.Counter
	GenerationRetries prometheus.Counter
	ListDuration      prometheus.Histogram
}

// New registers and returns the module metrics.
func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxadmin_records_created_total",
			Help: "Total number of taxpayer records created",
		}),
		RecordsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxadmin_records_updated_total",
			Help: "Total number of taxpayer records updated",
		}),
		RecordsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxadmin_records_deleted_total",
			Help: "Total number of taxpayer records deleted",
		}),
		GenerationRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxadmin_identifier_retries_total",
			Help: "Total number of identifier collision retries during generation",
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxadmin_list_duration_seconds",
			Help:    "Duration of list+summary queries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}
