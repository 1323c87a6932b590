package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictionsServed *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	trainingRuns      *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		predictionsServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpredict_predictions_served_total",
				Help: "Total number of predictions served",
			},
			[]string{"symbol", "horizon"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpredict_prediction_cache_lookups_total",
				Help: "Prediction cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		trainingRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpredict_training_runs_total",
				Help: "Completed training runs by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpredict_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finpredict_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPredictionServed records a prediction served for a symbol/horizon.
func (r *Recorder) RecordPredictionServed(symbol string, horizon int) {
	r.predictionsServed.WithLabelValues(symbol, strconv.Itoa(horizon)).Inc()
}

// RecordCacheHit records a prediction cache lookup outcome.
func (r *Recorder) RecordCacheHit(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

// RecordTrainingRun records a finished training run.
func (r *Recorder) RecordTrainingRun(symbol, outcome string) {
	r.trainingRuns.WithLabelValues(symbol, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
