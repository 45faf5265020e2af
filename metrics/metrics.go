// ABOUTME: Prometheus metrics for repository operations and events
// ABOUTME: Implements db.Metrics and exposes a /metrics handler for the web dashboard
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg        *prometheus.Registry
	Operations *prometheus.CounterVec
	Failures   *prometheus.CounterVec
	Latency    *prometheus.HistogramVec
	Records    *prometheus.GaugeVec
	Events     *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kion_repository_operations_total",
		Help: "Repository operations by name.",
	}, []string{"op"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kion_repository_failures_total",
		Help: "Repository operations that returned an error.",
	}, []string{"op"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kion_repository_operation_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kion_collection_records",
		Help: "Records in each collection at the last list.",
	}, []string{"collection"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kion_repository_events_total",
	}, []string{"kind"})

	r.MustRegister(ops, failures, latency, records, events)
	return &Registry{
		reg:        r,
		Operations: ops,
		Failures:   failures,
		Latency:    latency,
		Records:    records,
		Events:     events,
	}
}

func (r *Registry) ObserveOperation(op string, d time.Duration, err error) {
	r.Operations.WithLabelValues(op).Inc()
	r.Latency.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		r.Failures.WithLabelValues(op).Inc()
	}
}

func (r *Registry) SetRecords(collection string, n int) {
	r.Records.WithLabelValues(collection).Set(float64(n))
}

func (r *Registry) IncEvent(kind string) {
	r.Events.WithLabelValues(kind).Inc()
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
