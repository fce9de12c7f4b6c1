// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourorg/funding-rate-ranker/internal/validation"
)

const namespace = "funding"

// Publish results
const (
	ResultSuccess      = "success"
	ResultError        = "error"
	ResultSkippedEmpty = "skipped_empty"
)

// Collectors groups every metric the service records.
type Collectors struct {
	registry *prometheus.Registry

	cyclesTotal    *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	adapterErrors  *prometheus.CounterVec
	adapterLatency *prometheus.HistogramVec
	records        *prometheus.GaugeVec
	skipped        *prometheus.CounterVec
	publishes      *prometheus.CounterVec
	lastSuccess    prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Collectors {
	m := &Collectors{
		registry: prometheus.NewRegistry(),
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Total number of polling cycles by outcome",
			},
			[]string{"outcome"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Wall time of a polling cycle",
				Buckets:   prometheus.DefBuckets,
			},
		),
		adapterErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adapter_errors_total",
				Help:      "Total number of failed adapter fetches",
			},
			[]string{"source"},
		),
		adapterLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "adapter_fetch_seconds",
				Help:      "Adapter fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records",
				Help:      "Normalized records contributed by each adapter in the last cycle",
			},
			[]string{"source"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_skipped_total",
				Help:      "Records excluded during screening by reason",
			},
			[]string{"source", "reason"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publishes_total",
				Help:      "Publish attempts by result",
			},
			[]string{"publisher", "result"},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_publish_timestamp_seconds",
				Help:      "Unix time of the last successful publish",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cyclesTotal,
		m.cycleDuration,
		m.adapterErrors,
		m.adapterLatency,
		m.records,
		m.skipped,
		m.publishes,
		m.lastSuccess,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Collectors) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records one finished cycle.
func (m *Collectors) ObserveCycle(outcome string, seconds float64) {
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(seconds)
}

// ObserveFetch records one adapter call and its screening tally.
func (m *Collectors) ObserveFetch(source string, seconds float64, records int, skipped validation.Tally, err error) {
	m.adapterLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		m.adapterErrors.WithLabelValues(source).Inc()
		m.records.WithLabelValues(source).Set(0)
		return
	}
	m.records.WithLabelValues(source).Set(float64(records))
	for reason, n := range skipped {
		m.skipped.WithLabelValues(source, string(reason)).Add(float64(n))
	}
}

// ObservePublish records one publish outcome.
func (m *Collectors) ObservePublish(publisher, result string, unixSeconds float64) {
	m.publishes.WithLabelValues(publisher, result).Inc()
	if result == ResultSuccess {
		m.lastSuccess.Set(unixSeconds)
	}
}
