package trip

import (
	"context"
	"time"
)

// Observer receives planner events, typically to record metrics.
type Observer interface {
	RecomputeDispatched(ctx context.Context)
	RecomputeApplied(ctx context.Context, took time.Duration)
	RecomputeDiscarded(ctx context.Context)
	RecomputeFailed(ctx context.Context, took time.Duration)
	CandidatesDropped(ctx context.Context, n int)
}

type nopObserver struct{}

func (nopObserver) RecomputeDispatched(context.Context)             {}
func (nopObserver) RecomputeApplied(context.Context, time.Duration) {}
func (nopObserver) RecomputeDiscarded(context.Context)              {}
func (nopObserver) RecomputeFailed(context.Context, time.Duration)  {}
func (nopObserver) CandidatesDropped(context.Context, int)          {}
