package fallback

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the fallback chain. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	AttemptsTotal       *prometheus.CounterVec
	AttemptDuration     *prometheus.HistogramVec
	RetriesTotal        *prometheus.CounterVec
	RateLimitWaitsTotal *prometheus.CounterVec
	ExhaustedTotal      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "btcmetrics",
			Subsystem: "fallback",
			Name:      "attempts_total",
			Help:      "Provider attempts by outcome.",
		}, []string{"provider", "outcome"}),

		AttemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "btcmetrics",
			Subsystem: "fallback",
			Name:      "attempt_duration_seconds",
			Help:      "Provider attempt duration in seconds, including retries and rate-limit waits.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),

		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "btcmetrics",
			Subsystem: "fallback",
			Name:      "retries_total",
			Help:      "Transient-failure retries by provider.",
		}, []string{"provider"}),

		RateLimitWaitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "btcmetrics",
			Subsystem: "ratelimit",
			Name:      "waits_total",
			Help:      "Times a request waited for rate-limit capacity.",
		}, []string{"provider"}),

		ExhaustedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "btcmetrics",
			Subsystem: "fallback",
			Name:      "exhausted_total",
			Help:      "Requests for which every provider failed.",
		}, []string{"endpoint"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.AttemptsTotal,
			m.AttemptDuration,
			m.RetriesTotal,
			m.RateLimitWaitsTotal,
			m.ExhaustedTotal,
		)
	}
	return m
}

func (m *Metrics) observeAttempt(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(provider, outcome).Inc()
	m.AttemptDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) observeRetry(provider string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(provider).Inc()
}

func (m *Metrics) observeRateLimitWait(provider string) {
	if m == nil {
		return
	}
	m.RateLimitWaitsTotal.WithLabelValues(provider).Inc()
}

func (m *Metrics) observeExhausted(endpoint string) {
	if m == nil {
		return
	}
	m.ExhaustedTotal.WithLabelValues(endpoint).Inc()
}
