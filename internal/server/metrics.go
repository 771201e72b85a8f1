package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks sampling-job outcomes for the /metrics endpoint.
type Metrics struct {
	JobsTotal         *prometheus.CounterVec
	JobDuration       prometheus.Histogram
	JobsRunning       prometheus.Gauge
	ResampleDiscarded prometheus.Counter
}

// NewMetrics registers the server's collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sampling_jobs_total",
			Help: "Sampling jobs by terminal status.",
		}, []string{"status"}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sampling_job_duration_seconds",
			Help:    "Wall-clock duration of completed sampling jobs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		JobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sampling_jobs_running",
			Help: "Number of sampling jobs currently running.",
		}),
		ResampleDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "sampling_feature_draws_discarded_total",
			Help: "Feature draws discarded to singular Gram matrices.",
		}),
	}
}
