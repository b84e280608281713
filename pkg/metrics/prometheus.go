package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasts   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	score       *prometheus.GaugeVec
	searchUnits *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder on the default registry.
func New() *Recorder {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a recorder whose collectors are registered on reg.
func NewWith(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_forecasts_total",
				Help: "Total number of completed pipeline runs",
			},
			[]string{"ticker", "mode"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		score: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_evaluation_score",
				Help: "Hold-out score of the last run (R2 or accuracy)",
			},
			[]string{"ticker", "mode"},
		),
		searchUnits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_search_units_total",
				Help: "Cross-validation units evaluated by the hyperparameter search",
			},
			[]string{"result"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
			},
			[]string{"operation"},
		),
	}
}

// RecordForecast counts a completed run.
func (r *Recorder) RecordForecast(ticker, mode string) {
	r.forecasts.WithLabelValues(ticker, mode).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordScore records the evaluation score of the last run.
func (r *Recorder) RecordScore(ticker, mode string, score float64) {
	r.score.WithLabelValues(ticker, mode).Set(score)
}

// RecordSearchUnit counts one (candidate, fold) unit by result: ok or failed.
func (r *Recorder) RecordSearchUnit(result string) {
	r.searchUnits.WithLabelValues(result).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordForecast(string, string)       {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordScore(string, string, float64) {}
func (Nop) RecordSearchUnit(string)             {}
func (Nop) RecordLatency(string, float64)       {}
