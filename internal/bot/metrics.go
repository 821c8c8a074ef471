package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs        *prometheus.CounterVec
	Stops       *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	Bookings    prometheus.Counter
}

// NewMetrics registers the orchestrator metrics with reg. A nil reg leaves
// them unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "betterbot",
			Name:      "runs_total",
			Help:      "Task runs by outcome.",
		}, []string{"outcome"}),

		Stops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "betterbot",
			Name:      "run_stops_total",
			Help:      "Runs that ended before a booking, by the phase they ended in.",
		}, []string{"phase"}),

		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "betterbot",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a task run.",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 90, 120, 180},
		}, []string{"outcome"}),

		Bookings: f.NewCounter(prometheus.CounterOpts{
			Namespace: "betterbot",
			Name:      "bookings_total",
			Help:      "Bookings recorded.",
		}),
	}
}

func (m *Metrics) observe(out Outcome, phase Phase, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(string(out)).Inc()
	m.RunDuration.WithLabelValues(string(out)).Observe(seconds)
	switch out {
	case OutcomeBooked:
		m.Bookings.Inc()
	case OutcomeSoftStop, OutcomeHardStop, OutcomeUnconfirmed, OutcomeUnrecorded:
		m.Stops.WithLabelValues(string(phase)).Inc()
	}
}
