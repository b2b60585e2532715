package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "citizen_portal"

// Outcome labels for chat requests.
const (
	OutcomeSuccess = "success"
)

// ChatMetrics collects counters for the chat pipeline on its own registry so tests
// can build as many as they like.
type ChatMetrics struct {
	registry *prometheus.Registry

	requests           *prometheus.CounterVec
	tokens             *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	quotaRemaining     prometheus.Gauge
}

func NewChatMetrics() *ChatMetrics {
	registry := prometheus.NewRegistry()

	m := &ChatMetrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat requests by outcome.",
		}, []string{"outcome"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "tokens_total",
			Help:      "Tokens reported by the completion backend.",
		}, []string{"type"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion calls.",
			// LLM calls: 250ms up to the 25s timeout
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 25},
		}, []string{"model", "status"}),
		quotaRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "remaining",
			Help:      "Requests left in the current global quota window.",
		}),
	}

	registry.MustRegister(
		m.requests,
		m.tokens,
		m.completionDuration,
		m.quotaRemaining,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *ChatMetrics) RecordOutcome(outcome string) {
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) RecordTokens(prompt, completion int) {
	m.tokens.WithLabelValues("prompt").Add(float64(prompt))
	m.tokens.WithLabelValues("completion").Add(float64(completion))
}

func (m *ChatMetrics) ObserveCompletion(model, status string, d time.Duration) {
	m.completionDuration.WithLabelValues(model, status).Observe(d.Seconds())
}

func (m *ChatMetrics) SetQuotaRemaining(remaining int) {
	m.quotaRemaining.Set(float64(remaining))
}

func (m *ChatMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *ChatMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
