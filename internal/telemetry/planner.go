package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PlannerMetrics records trip recompute outcomes. It satisfies trip.Observer.
type PlannerMetrics struct {
	dispatched metric.Int64Counter
	applied    metric.Int64Counter
	discarded  metric.Int64Counter
	dropped    metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewPlannerMetrics creates the planner instruments on meter.
func NewPlannerMetrics(meter metric.Meter) (*PlannerMetrics, error) {
	dispatched, err := meter.Int64Counter(
		"planner.recompute.dispatched",
		metric.WithDescription("Recomputes started after a trip change"),
		metric.WithUnit("{recompute}"),
	)
	if err != nil {
		return nil, err
	}

	applied, err := meter.Int64Counter(
		"planner.recompute.applied",
		metric.WithDescription("Recomputes whose result was applied to the trip"),
		metric.WithUnit("{recompute}"),
	)
	if err != nil {
		return nil, err
	}

	discarded, err := meter.Int64Counter(
		"planner.recompute.discarded",
		metric.WithDescription("Recomputes superseded by a newer change before finishing"),
		metric.WithUnit("{recompute}"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter(
		"planner.candidates.dropped",
		metric.WithDescription("Candidates dropped because place detail was unavailable"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"planner.recompute.duration",
		metric.WithDescription("Time from dispatch to a recompute being applied or failing"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PlannerMetrics{
		dispatched: dispatched,
		applied:    applied,
		discarded:  discarded,
		dropped:    dropped,
		duration:   duration,
	}, nil
}

// RecomputeDispatched counts a started recompute.
func (m *PlannerMetrics) RecomputeDispatched(ctx context.Context) {
	m.dispatched.Add(ctx, 1)
}

// RecomputeApplied counts an applied recompute and records its latency.
func (m *PlannerMetrics) RecomputeApplied(ctx context.Context, took time.Duration) {
	m.applied.Add(ctx, 1)
	m.duration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("outcome", "applied")))
}

// RecomputeDiscarded counts a stale recompute.
func (m *PlannerMetrics) RecomputeDiscarded(ctx context.Context) {
	m.discarded.Add(ctx, 1)
}

// RecomputeFailed records the latency of a failed recompute.
func (m *PlannerMetrics) RecomputeFailed(ctx context.Context, took time.Duration) {
	m.duration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("outcome", "failed")))
}

// CandidatesDropped counts candidates lost to detail failures.
func (m *PlannerMetrics) CandidatesDropped(ctx context.Context, n int) {
	m.dropped.Add(ctx, int64(n))
}
