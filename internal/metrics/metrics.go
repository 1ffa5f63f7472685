// Package metrics defines the Prometheus instruments for extractions and
// the HTTP server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups framegrab's instruments on one registry.
type Metrics struct {
	registry *prometheus.Registry

	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	ExtractedBytes     prometheus.Counter
	InFlight           prometheus.Gauge
	HTTPRequestsTotal  *prometheus.CounterVec
}

// New registers the instruments on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		ExtractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "framegrab_extractions_total",
			Help: "Total number of frame extractions, by result kind",
		}, []string{"result"}),
		ExtractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "framegrab_extraction_duration_seconds",
			Help:    "Duration of frame extractions",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		ExtractedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framegrab_extracted_bytes_total",
			Help: "Total bytes of packed pixel data returned",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framegrab_extractions_in_flight",
			Help: "Number of extractions currently running",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "framegrab_http_requests_total",
			Help: "Total HTTP requests, by route and status code",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(m.ExtractionsTotal, m.ExtractionDuration, m.ExtractedBytes, m.InFlight, m.HTTPRequestsTotal)
	return m
}

// ObserveExtraction records one finished extraction. result is "ok" or the
// error kind name; source is "file", "memory" or "s3".
func (m *Metrics) ObserveExtraction(source, result string, d time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(result).Inc()
	m.ExtractionDuration.WithLabelValues(source).Observe(d.Seconds())
	if bytes > 0 {
		m.ExtractedBytes.Add(float64(bytes))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
