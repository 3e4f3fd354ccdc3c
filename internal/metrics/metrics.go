// Package metrics provides Prometheus metrics for the Origo service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ChecksTotal     *prometheus.CounterVec
	ArchiveAudits   *prometheus.CounterVec
	PreviewsTotal   *prometheus.CounterVec
	PreviewDuration prometheus.Histogram
	ActiveClients   prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "origo_http_requests_total",
				Help: "Total HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "origo_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "origo_quality_checks_total",
				Help: "Quality checks run by name and outcome.",
			},
			[]string{"check", "ok"},
		),
		ArchiveAudits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "origo_archive_audits_total",
				Help: "Archive audits by outcome.",
			},
			[]string{"ok"},
		),
		PreviewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "origo_previews_total",
				Help: "Preview generations by result code.",
			},
			[]string{"code"},
		),
		PreviewDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "origo_preview_duration_seconds",
				Help:    "Preview generation duration.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ActiveClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "origo_event_clients",
				Help: "Connected preview event subscribers.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.ChecksTotal)
	reg.MustRegister(m.ArchiveAudits)
	reg.MustRegister(m.PreviewsTotal)
	reg.MustRegister(m.PreviewDuration)
	reg.MustRegister(m.ActiveClients)
	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, seconds float64) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordCheck increments the quality check counter.
func (m *Metrics) RecordCheck(name string, ok bool) {
	m.ChecksTotal.WithLabelValues(name, strconv.FormatBool(ok)).Inc()
}

// RecordAudit increments the archive audit counter.
func (m *Metrics) RecordAudit(ok bool) {
	m.ArchiveAudits.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

// RecordPreview records a finished preview; code is "ok" or an error code.
func (m *Metrics) RecordPreview(code string, seconds float64) {
	m.PreviewsTotal.WithLabelValues(code).Inc()
	m.PreviewDuration.Observe(seconds)
}

// SetClients sets the number of connected event subscribers.
func (m *Metrics) SetClients(n int) {
	m.ActiveClients.Set(float64(n))
}
