package trip

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/geocoding"
	"github.com/roadstop/roadstop/internal/routing"
)

const tracerName = "github.com/roadstop/roadstop/internal/trip"

// Request is one recompute of a trip.
type Request struct {
	TripID string
	Token  uint64
	Scope  Scope
	State  State
}

// Result carries everything a recompute derives from a state.
type Result struct {
	StartLocation *geo.Coordinate
	EndLocation   *geo.Coordinate
	Directions    *routing.Route
	StopPoints    []StopPoint
	Candidates    []Candidate
}

// Recomputer derives route and candidates from a trip state.
type Recomputer interface {
	Recompute(ctx context.Context, req Request) (Result, error)
}

// Geocoder resolves free-text locations.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (*geocoding.Result, error)
}

// Router fetches driving directions.
type Router interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.Route, error)
}

// PlannerConfig configures a Planner.
type PlannerConfig struct {
	Geocoder   Geocoder
	Router     Router
	Aggregator *Aggregator
	Logger     zerolog.Logger
}

// Planner runs the geocode, route, sample and candidate search chain.
type Planner struct {
	geocoder   Geocoder
	router     Router
	aggregator *Aggregator
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewPlanner creates a planner.
func NewPlanner(cfg PlannerConfig) *Planner {
	return &Planner{
		geocoder:   cfg.Geocoder,
		router:     cfg.Router,
		aggregator: cfg.Aggregator,
		logger:     cfg.Logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// Recompute implements Recomputer. A candidates-scoped request reuses the
// state's directions when it has them. Geocoding and routing failures abort
// the chain; candidate search failures are partial.
func (p *Planner) Recompute(ctx context.Context, req Request) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "trip.Recompute",
		trace.WithAttributes(
			attribute.String("trip.id", req.TripID),
			attribute.Int64("trip.token", int64(req.Token)),
			attribute.String("trip.scope", req.Scope.String()),
		),
	)
	defer span.End()

	res, err := p.recompute(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(
		attribute.Int("trip.stop_points", len(res.StopPoints)),
		attribute.Int("trip.candidates", len(res.Candidates)),
	)
	return res, nil
}

func (p *Planner) recompute(ctx context.Context, req Request) (Result, error) {
	st := req.State
	res := Result{
		StartLocation: st.StartLocation,
		EndLocation:   st.EndLocation,
		Directions:    st.Directions,
	}

	if req.Scope >= ScopeRoute || res.Directions == nil {
		start, end, err := p.resolve(ctx, st)
		if err != nil {
			return Result{}, err
		}
		res.StartLocation, res.EndLocation = &start, &end

		route, err := p.router.GetDirections(ctx, routing.DirectionsRequest{
			Origin:      start,
			Destination: end,
			Waypoints:   st.Waypoints(),
		})
		if err != nil {
			return Result{}, fmt.Errorf("routing %s to %s: %w", st.Start, st.End, err)
		}
		res.Directions = route
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	points, err := Sample(RoutePath(res.Directions), res.Directions.TotalDistance(), res.Directions.TotalDuration(), st.Interval)
	if err != nil {
		return Result{}, err
	}
	res.StopPoints = points

	if p.aggregator != nil && len(st.Categories) > 0 {
		candidates, err := p.aggregator.CandidatesFor(ctx, points, st.Categories)
		if err != nil {
			return Result{}, err
		}
		res.Candidates = candidates
	}

	p.logger.Debug().
		Str("trip_id", req.TripID).
		Uint64("token", req.Token).
		Int("stop_points", len(res.StopPoints)).
		Int("candidates", len(res.Candidates)).
		Msg("recompute finished")

	return res, nil
}

// resolve geocodes start and end. Locations resolved by a previous run are
// reused; SetLocations clears them.
func (p *Planner) resolve(ctx context.Context, st State) (geo.Coordinate, geo.Coordinate, error) {
	var start, end geo.Coordinate

	if st.StartLocation != nil {
		start = *st.StartLocation
	} else {
		r, err := p.geocoder.Geocode(ctx, st.Start)
		if err != nil {
			return start, end, err
		}
		start = r.Location
	}

	if st.EndLocation != nil {
		end = *st.EndLocation
	} else {
		r, err := p.geocoder.Geocode(ctx, st.End)
		if err != nil {
			return start, end, err
		}
		end = r.Location
	}

	return start, end, nil
}
