package wsbridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	connections prometheus.Gauge
	accepted    prometheus.Counter
	messages    *prometheus.CounterVec

	handleDuration *prometheus.HistogramVec
	handleErrors   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	if namespace == "" {
		namespace = "statehistory"
	}
	factory := promauto.With(reg)

	return &metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "connections",
			Help:      "Number of open bridge connections",
		}),
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted bridge connections",
		}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "messages_total",
			Help:      "Total number of client messages by type",
		}, []string{"type"}),
		handleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "message_duration_seconds",
			Help:      "Time spent handling a client message on the connection loop",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		handleErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "message_errors_total",
			Help:      "Total number of client messages that failed by type and error code",
		}, []string{"type", "code"}),
	}
}
