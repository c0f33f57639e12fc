package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// jobMetrics holds the job lifecycle collectors.
type jobMetrics struct {
	finished    *prometheus.CounterVec
	running     prometheus.Gauge
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func newJobMetrics(reg prometheus.Registerer) *jobMetrics {
	f := promauto.With(reg)
	return &jobMetrics{
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "varqopt_jobs_total",
			Help: "Finished jobs by solver and final state",
		}, []string{"solver", "state"}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Name: "varqopt_jobs_running",
			Help: "Jobs currently solving",
		}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "varqopt_objective_evaluations_total",
			Help: "Objective evaluations by solver",
		}, []string{"solver"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "varqopt_job_duration_seconds",
			Help:    "Wall time of finished jobs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"solver"}),
	}
}
