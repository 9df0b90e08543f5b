package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles      *prometheus.CounterVec
	cycleTime   prometheus.Histogram
	signals     *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	overrides   prometheus.Counter
	mismatches  prometheus.Counter
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the pipeline metrics on reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_cycles_total",
				Help: "Decision cycles by final status",
			},
			[]string{"status"},
		),
		cycleTime: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signaldesk_cycle_duration_seconds",
				Help:    "Wall time of a decision cycle",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_signals_total",
				Help: "Analyst signals by agent and direction",
			},
			[]string{"agent", "signal"},
		),
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_decisions_total",
				Help: "Final trading decisions by action",
			},
			[]string{"action"},
		),
		overrides: f.NewCounter(
			prometheus.CounterOpts{
				Name: "signaldesk_neutral_overrides_total",
				Help: "Decisions forced to hold by unanimous neutral signals",
			},
		),
		mismatches: f.NewCounter(
			prometheus.CounterOpts{
				Name: "signaldesk_decision_mismatches_total",
				Help: "Proposals rejected for violating the allowed actions",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_errors_total",
				Help: "Errors encountered by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCycle(status string, seconds float64) {
	r.cycles.WithLabelValues(status).Inc()
	r.cycleTime.Observe(seconds)
}

func (r *Recorder) RecordSignal(agent string, direction models.Direction) {
	r.signals.WithLabelValues(agent, string(direction)).Inc()
}

func (r *Recorder) RecordDecision(action models.Action) {
	r.decisions.WithLabelValues(string(action)).Inc()
}

func (r *Recorder) RecordOverride() { r.overrides.Inc() }

func (r *Recorder) RecordMismatch() { r.mismatches.Inc() }

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordCycle(string, float64) {}
func (Nop) RecordSignal(string, models.Direction) {}
func (Nop) RecordDecision(models.Action) {}
func (Nop) RecordOverride() {}
func (Nop) RecordMismatch() {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}

var (
	_ domrepo.Metrics = (*Recorder)(nil)
	_ domrepo.Metrics = Nop{}
)
