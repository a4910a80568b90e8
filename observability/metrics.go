package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type contractMetrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	subMessages *prometheus.CounterVec
	events      *prometheus.CounterVec
	issuance    *prometheus.CounterVec
}

var (
	contractMetricsOnce sync.Once
	contractRegistry    *contractMetrics
)

// ContractMetrics returns the lazily-initialised registry used by the host to
// record contract activity.
func ContractMetrics() *contractMetrics {
	contractMetricsOnce.Do(func() {
		contractRegistry = &contractMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondswap",
				Subsystem: "contract",
				Name:      "requests_total",
				Help:      "Total top-level contract requests segmented by contract, action and outcome.",
			}, []string{"contract", "action", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "bondswap",
				Subsystem: "contract",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for top-level contract requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"contract", "action"}),
			subMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondswap",
				Subsystem: "contract",
				Name:      "submessages_total",
				Help:      "Dispatched sub-messages segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondswap",
				Subsystem: "contract",
				Name:      "events_total",
				Help:      "Committed contract events segmented by type.",
			}, []string{"type"}),
			issuance: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondswap",
				Subsystem: "vesting",
				Name:      "issued_total",
				Help:      "Payout-token amount granted by vesting ledgers segmented by bonding kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			contractRegistry.requests,
			contractRegistry.latency,
			contractRegistry.subMessages,
			contractRegistry.events,
			contractRegistry.issuance,
		)
	})
	return contractRegistry
}

func label(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

// Observe records the outcome of a top-level request.
func (m *contractMetrics) Observe(contract, action string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(label(contract), label(action), outcome).Inc()
	m.latency.WithLabelValues(label(contract), label(action)).Observe(duration.Seconds())
}

// RecordSubMessage counts a dispatched sub-message. Outcome is one of
// "success", "error" or "replied_error".
func (m *contractMetrics) RecordSubMessage(kind, outcome string) {
	if m == nil {
		return
	}
	m.subMessages.WithLabelValues(label(kind), label(outcome)).Inc()
}

// RecordEvent counts a committed event.
func (m *contractMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(label(eventType)).Inc()
}

// RecordIssuance adds a committed vesting grant. Kind is "bond" or "lp_bond".
func (m *contractMetrics) RecordIssuance(kind string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.issuance.WithLabelValues(label(kind)).Add(amount)
}
