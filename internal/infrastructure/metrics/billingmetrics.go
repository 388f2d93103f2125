// Package metrics exposes Prometheus counters for access decisions, orders,
// verifications and webhooks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "billing"

type BillingMetrics struct {
	registry      *prometheus.Registry
	decisions     *prometheus.CounterVec
	orders        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewBillingMetrics registers every collector on a fresh registry, together
// with the Go runtime and process collectors.
func NewBillingMetrics() *BillingMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(registry)

	return &BillingMetrics{
		registry: registry,
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access decisions by reason.",
		}, []string{"path", "reason"}),
		orders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order creation attempts by target kind and outcome.",
		}, []string{"kind", "outcome"}),
		verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verifications_total",
			Help:      "Synchronous payment verifications by outcome.",
		}, []string{"outcome"}),
		webhooks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Provider webhooks by event type and ledger result.",
		}, []string{"provider", "event", "result"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *BillingMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDecision counts a decision. path is "atomic" or "reconstructed".
func (m *BillingMetrics) RecordDecision(path, reason string) {
	m.decisions.WithLabelValues(path, reason).Inc()
}

func (m *BillingMetrics) RecordOrder(kind, outcome string) {
	m.orders.WithLabelValues(kind, outcome).Inc()
}

func (m *BillingMetrics) RecordVerification(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

// RecordWebhook satisfies the webhook use case's EventRecorder.
func (m *BillingMetrics) RecordWebhook(provider, eventType, result string) {
	m.webhooks.WithLabelValues(provider, eventType, result).Inc()
}

func (m *BillingMetrics) ObserveHTTP(method, route, status string, seconds float64) {
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}
