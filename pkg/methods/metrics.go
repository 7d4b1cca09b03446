package methods

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for one or more Syncs. Share one
// instance across every Sync of a process.
type Metrics struct {
	captures           *prometheus.CounterVec
	stackSize          prometheus.Histogram
	reconciliations    *prometheus.CounterVec
	entriesApplied     prometheus.Counter
	diagnostics        *prometheus.CounterVec
	diagnosticsDropped prometheus.Counter
	containersCreated  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "statehistory"
	}
	factory := promauto.With(reg)

	return &Metrics{
		captures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Total number of snapshot stacks committed to the navigation host",
		}, []string{"mode"}),

		stackSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_stack_entries",
			Help:      "Number of entries per committed snapshot stack",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),

		reconciliations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Total number of reconciliations by outcome",
		}, []string{"outcome"}),

		entriesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_applied_total",
			Help:      "Total number of stack entries reapplied onto containers",
		}),

		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Total number of diagnostics by kind",
		}, []string{"kind"}),

		diagnosticsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_dropped_total",
			Help:      "Diagnostics dropped because the channel buffer was full",
		}),

		containersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "containers_created_total",
			Help:      "Number of containers created",
		}),
	}
}
