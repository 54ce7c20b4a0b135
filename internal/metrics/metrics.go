// Package metrics owns the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/core"
)

// Metrics groups every collector on a private registry, so tests can build
// as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	TransactionsCreated *prometheus.CounterVec
	TransactionsDeleted prometheus.Counter
	EventsPublished     *prometheus.CounterVec
	EventsConsumed      *prometheus.CounterVec
	RecurringGenerated  prometheus.Counter
	AuthFailures        *prometheus.CounterVec
	SessionRedirects    prometheus.Counter
	RateLimited         prometheus.Counter
	SuspiciousRequests  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_http_requests_total",
			Help: "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fintrack_http_request_duration_seconds",
			Help:    "HTTP request latency by route template.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		TransactionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_transactions_created_total",
			Help: "Transactions stored, by type.",
		}, []string{"type"}),
		TransactionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_transactions_deleted_total",
			Help: "Transactions deleted by their owner.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_events_published_total",
			Help: "Transaction events handed to the broker, by outcome.",
		}, []string{"kind", "result"}),
		EventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_events_consumed_total",
			Help: "Transaction events processed by the worker, by outcome.",
		}, []string{"kind", "result"}),
		RecurringGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_recurring_occurrences_total",
			Help: "Occurrences materialized from recurring transactions.",
		}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_auth_failures_total",
			Help: "Failed login and registration attempts, by reason.",
		}, []string{"reason"}),
		SessionRedirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_session_rejections_total",
			Help: "Requests turned away for lacking a valid session.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}),
		SuspiciousRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_suspicious_requests_total",
			Help: "Requests matching a known attack pattern.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.TransactionsCreated,
		m.TransactionsDeleted,
		m.EventsPublished,
		m.EventsConsumed,
		m.RecurringGenerated,
		m.AuthFailures,
		m.SessionRedirects,
		m.RateLimited,
		m.SuspiciousRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) TransactionCreated(t core.TransactionType) {
	m.TransactionsCreated.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) TransactionDeleted() { m.TransactionsDeleted.Inc() }

func (m *Metrics) EventPublished(kind string, ok bool) {
	m.EventsPublished.WithLabelValues(kind, result(ok)).Inc()
}

func (m *Metrics) EventConsumed(kind string, ok bool) {
	m.EventsConsumed.WithLabelValues(kind, result(ok)).Inc()
}

func (m *Metrics) RecurringOccurrenceGenerated() { m.RecurringGenerated.Inc() }

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
