package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tickersTotal *prometheus.CounterVec
	skipsTotal   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		tickersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volscan_tickers_total",
				Help: "Tickers processed per pipeline stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		skipsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volscan_skips_total",
				Help: "Tickers skipped per stage and reason",
			},
			[]string{"stage", "reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volscan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTicker records one ticker passing through a stage.
func (r *Recorder) RecordTicker(stage, outcome string) {
	r.tickersTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordSkip records a ticker skipped at a stage.
func (r *Recorder) RecordSkip(stage, reason string) {
	r.skipsTotal.WithLabelValues(stage, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
