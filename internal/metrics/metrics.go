// Package metrics exposes solver and session instrumentation as Prometheus
// collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/Elicit/internal/elicit"
	"github.com/MikeSquared-Agency/Elicit/internal/lpsolve"
)

const namespace = "elicit"

// Metrics implements lpsolve.SolveRecorder, regret.Recorder and
// elicit.Listener.
type Metrics struct {
	solves         *prometheus.CounterVec
	solveSeconds   prometheus.Histogram
	minimaxSeconds prometheus.Histogram
	minimaxSolves  prometheus.Histogram
	sessions       *prometheus.CounterVec
	activeSessions prometheus.Gauge
	queries        prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lp_solves_total",
			Help:      "LP solves by outcome status.",
		}, []string{"status"}),
		solveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lp_solve_seconds",
			Help:      "Latency of a single LP solve.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}),
		minimaxSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "minimax_seconds",
			Help:      "Latency of a full minimax regret evaluation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		minimaxSolves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "minimax_solves",
			Help:      "LP solves issued per minimax regret evaluation.",
			Buckets:   prometheus.ExponentialBuckets(2, 4, 8),
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished elicitation sessions by outcome.",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Elicitation sessions currently running.",
		}),
		queries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_queries",
			Help:      "Oracle queries needed by converged sessions.",
			Buckets:   prometheus.LinearBuckets(0, 2, 12),
		}),
	}
	reg.MustRegister(m.solves, m.solveSeconds, m.minimaxSeconds, m.minimaxSolves, m.sessions, m.activeSessions, m.queries)
	return m
}

func (m *Metrics) ObserveSolve(status lpsolve.Status, d time.Duration) {
	m.solves.WithLabelValues(status.String()).Inc()
	m.solveSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveMinimax(d time.Duration, solves int) {
	m.minimaxSeconds.Observe(d.Seconds())
	m.minimaxSolves.Observe(float64(solves))
}

func (m *Metrics) SessionStarted(uuid.UUID, int, int, float64) {
	m.activeSessions.Inc()
}

func (m *Metrics) QueryPosed(uuid.UUID, elicit.Round)     {}
func (m *Metrics) AnswerRecorded(uuid.UUID, elicit.Round) {}

func (m *Metrics) Converged(_ uuid.UUID, out elicit.Outcome) {
	m.activeSessions.Dec()
	m.sessions.WithLabelValues("converged").Inc()
	m.queries.Observe(float64(out.Queries))
}

func (m *Metrics) Failed(_ uuid.UUID, err error) {
	m.activeSessions.Dec()
	m.sessions.WithLabelValues(failureOutcome(err)).Inc()
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, elicit.ErrQueryBudgetExhausted):
		return "budget_exhausted"
	case errors.Is(err, elicit.ErrOracleContract):
		return "oracle_contract"
	default:
		return "failed"
	}
}
