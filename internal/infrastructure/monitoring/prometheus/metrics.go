// Package prometheus exposes the platform's operational metrics.  One Metrics
// value owns a private registry, so tests can create as many instances as
// they like without colliding on the default registerer.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leaselens"

// Metrics holds every collector the platform records into.
type Metrics struct {
	registry *prometheus.Registry

	ExtractionsTotal   prometheus.Counter
	ExtractionDuration prometheus.Histogram
	FieldsExtracted    prometheus.Histogram

	ScoresTotal   *prometheus.CounterVec
	ScoreValue    prometheus.Histogram
	ScoreDuration prometheus.Histogram

	ComparisonsTotal  prometheus.Counter
	ComparisonSize    prometheus.Histogram
	AnalysesTotal     *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	EventsPublished   *prometheus.CounterVec
	DocumentsArchived prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New builds a Metrics value with all collectors registered on a fresh
// registry, including the standard process and Go runtime collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	factory := promauto(registry)

	m := &Metrics{
		registry: registry,

		ExtractionsTotal: factory.counter("extractions_total",
			"Contracts run through the pattern field extractor."),
		ExtractionDuration: factory.histogram("extraction_duration_seconds",
			"Wall time of a single extraction.", prometheus.DefBuckets),
		FieldsExtracted: factory.histogram("extraction_fields",
			"Populated fields per extracted contract.",
			[]float64{0, 2, 4, 6, 8, 10, 12, 15, 18}),

		ScoresTotal: factory.counterVec("scores_total",
			"Fairness assessments produced, by rating band.", "rating"),
		ScoreValue: factory.histogram("score_value",
			"Distribution of clamped fairness scores.",
			[]float64{0, 10, 20, 30, 40, 55, 70, 85, 100}),
		ScoreDuration: factory.histogram("score_duration_seconds",
			"Wall time of a single scoring run.", prometheus.DefBuckets),

		ComparisonsTotal: factory.counter("comparisons_total",
			"Offer comparison batches ranked."),
		ComparisonSize: factory.histogram("comparison_batch_size",
			"Offers per comparison batch.", []float64{2, 3, 5, 8, 13, 21}),

		AnalysesTotal: factory.counterVec("analyses_total",
			"Full pipeline runs, by outcome.", "outcome"),
		AnalysisDuration: factory.histogram("analysis_duration_seconds",
			"End-to-end pipeline wall time.", prometheus.DefBuckets),

		EventsPublished: factory.counterVec("events_published_total",
			"Messages published to the event broker, by topic.", "topic"),
		DocumentsArchived: factory.counter("documents_archived_total",
			"Raw contract documents written to object storage."),

		HTTPRequestsTotal: factory.counterVec("http_requests_total",
			"HTTP requests served, by method, route and status.",
			"method", "route", "status"),
		HTTPRequestDuration: factory.histogramVec("http_request_duration_seconds",
			"HTTP request latency, by method and route.",
			prometheus.DefBuckets, "method", "route"),
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveAnalysis records one pipeline run.
func (m *Metrics) ObserveAnalysis(outcome string, elapsed time.Duration) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
}

// factory cuts the namespace boilerplate off collector construction.
type factory struct {
	registry *prometheus.Registry
}

func promauto(registry *prometheus.Registry) factory {
	return factory{registry: registry}
}

func (f factory) counter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: name, Help: help,
	})
	f.registry.MustRegister(c)
	return c
}

func (f factory) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: name, Help: help,
	}, labels)
	f.registry.MustRegister(c)
	return c
}

func (f factory) histogram(name, help string, buckets []float64) prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Help: help, Buckets: buckets,
	})
	f.registry.MustRegister(h)
	return h
}

func (f factory) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Help: help, Buckets: buckets,
	}, labels)
	f.registry.MustRegister(h)
	return h
}
