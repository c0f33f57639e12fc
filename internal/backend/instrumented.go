package backend

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cwbudde/varqopt/internal/circuit"
)

// Metrics holds the backend collectors.
type Metrics struct {
	runs    *prometheus.CounterVec
	shots   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics registers the backend collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "varqopt_backend_runs_total",
			Help: "Circuit executions by backend and outcome",
		}, []string{"backend", "status"}),
		shots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "varqopt_backend_shots_total",
			Help: "Shots requested by backend",
		}, []string{"backend"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "varqopt_backend_run_seconds",
			Help:    "Circuit execution latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"backend"}),
	}
}

// Instrumented records executions of the wrapped backend.
type Instrumented struct {
	inner   Backend
	name    string
	metrics *Metrics
}

// Instrument wraps b, labelling its metrics with name.
func (m *Metrics) Instrument(name string, b Backend) *Instrumented {
	return &Instrumented{inner: b, name: name, metrics: m}
}

func (i *Instrumented) Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	start := time.Now()
	counts, err := i.inner.Run(ctx, c, shots)
	i.record(start, shots, err)
	return counts, err
}

// Prepare delegates to the wrapped backend.
func (i *Instrumented) Prepare(ctx context.Context, c *circuit.Circuit) (*Prepared, error) {
	return Prepare(ctx, i.inner, c)
}

// Sample counts as one execution of the wrapped backend.
func (i *Instrumented) Sample(ctx context.Context, p *Prepared, shots int) (Counts, error) {
	start := time.Now()
	counts, err := Sample(ctx, i.inner, p, shots)
	i.record(start, shots, err)
	return counts, err
}

func (i *Instrumented) record(start time.Time, shots int, err error) {
	i.metrics.latency.WithLabelValues(i.name).Observe(time.Since(start).Seconds())
	i.metrics.shots.WithLabelValues(i.name).Add(float64(shots))

	status := "ok"
	if err != nil {
		status = "error"
	}
	i.metrics.runs.WithLabelValues(i.name, status).Inc()
}
