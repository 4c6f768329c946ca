package resilient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeExhausted = "exhausted"
)

// Metrics holds the Prometheus collectors for wrapped queries. A nil *Metrics
// records nothing.
type Metrics struct {
	Attempts  *prometheus.CounterVec
	Exhausted prometheus.Counter
	Duration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "query_attempts_total",
			Help:      "Underlying query attempts by outcome.",
		}, []string{"outcome"}),
		Exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "query_exhausted_total",
			Help:      "Queries that ran out of attempts and returned the fallback answer.",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "query_duration_seconds",
			Help:      "Wall time of wrapped queries including pacing and backoff.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Attempts, m.Exhausted, m.Duration)
	}
	return m
}

func (m *Metrics) attemptFailed() {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(outcomeFailure).Inc()
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if outcome == outcomeExhausted {
		m.Exhausted.Inc()
	} else {
		m.Attempts.WithLabelValues(outcome).Inc()
	}
	m.Duration.WithLabelValues(outcome).Observe(d.Seconds())
}
