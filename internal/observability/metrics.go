package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GroupsMetrics records service operations and engine outcomes.
type GroupsMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	RecordAssignmentsGenerated(ctx context.Context, eventID string, count int)
	RecordStageOutcome(ctx context.Context, stage string, added, skipped int, failed bool)
}

type prometheusGroupsMetrics struct {
	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	assignments *prometheus.CounterVec
	stageAdded  *prometheus.CounterVec
	stageSkip   *prometheus.CounterVec
	stageFail   *prometheus.CounterVec
}

// NewGroupsMetrics registers the groups collectors on registry.
func NewGroupsMetrics(registry prometheus.Registerer) GroupsMetrics {
	m := &prometheusGroupsMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groups",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"service", "operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "groups",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groups",
			Name:      "assignments_generated_total",
			Help:      "Assignments merged into competitions.",
		}, []string{"event"}),
		stageAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groups",
			Name:      "stage_assignments_total",
			Help:      "Assignments produced per generator stage.",
		}, []string{"stage"}),
		stageSkip: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groups",
			Name:      "stage_skipped_total",
			Help:      "Persons a generator stage could not place.",
		}, []string{"stage"}),
		stageFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groups",
			Name:      "stage_failures_total",
			Help:      "Generator stages that returned an error.",
		}, []string{"stage"}),
	}
	registry.MustRegister(m.operations, m.durations, m.assignments, m.stageAdded, m.stageSkip, m.stageFail)
	return m
}

func (m *prometheusGroupsMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "attempt").Inc()
}

func (m *prometheusGroupsMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "success").Inc()
}

func (m *prometheusGroupsMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "failure").Inc()
}

func (m *prometheusGroupsMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *prometheusGroupsMetrics) RecordAssignmentsGenerated(_ context.Context, eventID string, count int) {
	m.assignments.WithLabelValues(eventID).Add(float64(count))
}

func (m *prometheusGroupsMetrics) RecordStageOutcome(_ context.Context, stage string, added, skipped int, failed bool) {
	m.stageAdded.WithLabelValues(stage).Add(float64(added))
	m.stageSkip.WithLabelValues(stage).Add(float64(skipped))
	if failed {
		m.stageFail.WithLabelValues(stage).Inc()
	}
}

type noopGroupsMetrics struct{}

// NewNoopGroupsMetrics returns metrics that record nothing.
func NewNoopGroupsMetrics() GroupsMetrics { return noopGroupsMetrics{} }

func (noopGroupsMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (noopGroupsMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (noopGroupsMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (noopGroupsMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noopGroupsMetrics) RecordAssignmentsGenerated(context.Context, string, int)                {}
func (noopGroupsMetrics) RecordStageOutcome(context.Context, string, int, int, bool)             {}
