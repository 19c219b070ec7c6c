// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics holds the Prometheus collectors for jobs, pipelines and
// the HTTP surface. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "socialpilot"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Job metrics. Labels: job, outcome
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	JobRunning  *prometheus.GaugeVec

	// Generation metrics. Labels: provider
	ItemsGenerated *prometheus.CounterVec
	ItemsDropped   *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	CorpusFetched  prometheus.Counter

	// Publishing metrics. Labels: platform, result
	Deliveries *prometheus.CounterVec

	// HTTP metrics. Labels: method, route, status
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job invocations by outcome (completed, failed, panicked, skipped)",
		}, []string{"job", "outcome"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of completed job runs",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		JobRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_running",
			Help:      "1 while the job is running in this process",
		}, []string{"job"}),
		ItemsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_generated_total",
			Help:      "Content items created as pending, by provider",
		}, []string{"provider"}),
		ItemsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_dropped_total",
			Help:      "Generated candidates discarded before storage, by provider",
		}, []string{"provider"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Content provider failures, by provider",
		}, []string{"provider"}),
		CorpusFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_fetched_total",
			Help:      "Historical items ingested from the timeline source",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Publish attempts by platform and result (posted, failed, skipped)",
		}, []string{"platform", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.JobRuns, m.JobDuration, m.JobRunning,
		m.ItemsGenerated, m.ItemsDropped, m.ProviderErrors, m.CorpusFetched,
		m.Deliveries, m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// JobStarted marks a job as running.
func (m *Metrics) JobStarted(job string) {
	if m == nil {
		return
	}
	m.JobRunning.WithLabelValues(job).Set(1)
}

// JobFinished records a finished run. Skipped runs pass a zero duration and
// are not observed in the histogram.
func (m *Metrics) JobFinished(job, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
	if outcome == "skipped" {
		return
	}
	m.JobRunning.WithLabelValues(job).Set(0)
	m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// Generated records the outcome of one provider's share of a batch.
func (m *Metrics) Generated(provider string, created, dropped int, failed bool) {
	if m == nil {
		return
	}
	m.ItemsGenerated.WithLabelValues(provider).Add(float64(created))
	m.ItemsDropped.WithLabelValues(provider).Add(float64(dropped))
	if failed {
		m.ProviderErrors.WithLabelValues(provider).Inc()
	}
}

// Fetched records ingested historical items.
func (m *Metrics) Fetched(n int) {
	if m == nil {
		return
	}
	m.CorpusFetched.Add(float64(n))
}

// Delivered records one publish attempt.
func (m *Metrics) Delivered(platform, result string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(platform, result).Inc()
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
