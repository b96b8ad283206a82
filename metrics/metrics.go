// Package metrics holds the prometheus instruments of the sync service.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var SyncRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vocasync",
	Subsystem: "sync",
	Name:      "requests_total",
	Help:      "Push and pull calls by outcome",
}, []string{"op", "result"})

var PushedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vocasync",
	Subsystem: "sync",
	Name:      "pushed_records_total",
	Help:      "Records received by push, split by conflict outcome",
}, []string{"kind", "outcome"})

var PulledRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vocasync",
	Subsystem: "sync",
	Name:      "pulled_records_total",
}, []string{"kind"})

var SyncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "vocasync",
	Subsystem: "sync",
	Name:      "duration_seconds",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"op"})

var IdentityFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vocasync",
	Subsystem: "identity",
	Name:      "failures_total",
}, []string{"reason"})

var WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "vocasync",
	Subsystem: "ws",
	Name:      "clients",
})

var WebsocketDropped = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "vocasync",
	Subsystem: "ws",
	Name:      "dropped_messages_total",
	Help:      "Notifications discarded because a client send buffer was full",
})

// Register adds every instrument plus any extra collectors to reg. Collectors
// that are already registered are ignored so tests may call it repeatedly.
func Register(reg prometheus.Registerer, extra ...prometheus.Collector) error {
	cs := append([]prometheus.Collector{
		SyncRequests,
		PushedRecords,
		PulledRecords,
		SyncDuration,
		IdentityFailures,
		WebsocketClients,
		WebsocketDropped,
	}, extra...)
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
