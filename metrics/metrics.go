package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Lookups        *prometheus.CounterVec
	Scrapes        *prometheus.CounterVec
	ScrapeDuration prometheus.Histogram
	FieldMisses    *prometheus.CounterVec
	StorageErrors  *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the metrics on a private registry, so several instances
// (e.g. one per test) never collide on registration.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Flight lookups by cache result (hit or miss).",
		}, []string{"result"}),
		Scrapes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Flight page scrapes by outcome (success or failure).",
		}, []string{"outcome"}),
		ScrapeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Time taken to render and extract a flight page.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 20, 30, 45, 60},
		}),
		FieldMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_misses_total",
			Help:      "Fields that fell back to Unknown, by field.",
		}, []string{"field"}),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Lookup cache failures by operation (find or store).",
		}, []string{"op"}),
		registry: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Lookup records a cache hit or miss.
func (m *Metrics) Lookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.Lookups.WithLabelValues(result).Inc()
}

// Scrape records one finished extraction attempt.
func (m *Metrics) Scrape(ok bool, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.Scrapes.WithLabelValues(outcome).Inc()
	m.ScrapeDuration.Observe(took.Seconds())
}

// FieldMiss records a field that defaulted to Unknown.
func (m *Metrics) FieldMiss(field string) {
	if m == nil {
		return
	}
	m.FieldMisses.WithLabelValues(field).Inc()
}

// StorageError records a failed find or store.
func (m *Metrics) StorageError(op string) {
	if m == nil {
		return
	}
	m.StorageErrors.WithLabelValues(op).Inc()
}
