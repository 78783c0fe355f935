// Package arenametrics records arena engine metrics.
package arenametrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ArenaMetrics is implemented by the Prometheus recorder and the no-op used in tests.
type ArenaMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	// RecordTransition counts requested transitions; applied is false for no-ops.
	RecordTransition(ctx context.Context, transition string, applied bool)
	RecordSignup(ctx context.Context, accepted bool)
	RecordFundsMovement(ctx context.Context, kind string, amount float64)
	RecordSchedulerJob(ctx context.Context, kind, status string)
}

const namespace = "arena"

// PrometheusMetrics records into a Prometheus registry.
type PrometheusMetrics struct {
	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	signups     *prometheus.CounterVec
	funds       *prometheus.CounterVec
	jobs        *prometheus.CounterVec
}

// NewPrometheus registers the arena collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "service", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_transitions_total",
			Help:      "Event lifecycle transitions requested.",
		}, []string{"transition", "applied"}),
		signups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Signup attempts by result.",
		}, []string{"result"}),
		funds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "funds_moved_total",
			Help:      "Amount credited or debited from arena funds.",
		}, []string{"kind"}),
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_jobs_total",
			Help:      "Scheduler jobs by kind and status.",
		}, []string{"kind", "status"}),
	}
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "attempt").Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "success").Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "failure").Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordTransition(_ context.Context, transition string, applied bool) {
	label := "false"
	if applied {
		label = "true"
	}
	m.transitions.WithLabelValues(transition, label).Inc()
}

func (m *PrometheusMetrics) RecordSignup(_ context.Context, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.signups.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) RecordFundsMovement(_ context.Context, kind string, amount float64) {
	if amount < 0 {
		amount = -amount
	}
	m.funds.WithLabelValues(kind).Add(amount)
}

func (m *PrometheusMetrics) RecordSchedulerJob(_ context.Context, kind, status string) {
	m.jobs.WithLabelValues(kind, status).Inc()
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func NewNoop() ArenaMetrics { return &NoOpMetrics{} }

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordTransition(context.Context, string, bool)                         {}
func (NoOpMetrics) RecordSignup(context.Context, bool)                                     {}
func (NoOpMetrics) RecordFundsMovement(context.Context, string, float64)                   {}
func (NoOpMetrics) RecordSchedulerJob(context.Context, string, string)                     {}

var (
	_ ArenaMetrics = (*PrometheusMetrics)(nil)
	_ ArenaMetrics = (*NoOpMetrics)(nil)
)
