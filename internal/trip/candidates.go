package trip

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/routing"
)

// Candidate is a place near a stop point, annotated with where it sits on the
// route. Itinerary stops share the same shape.
type Candidate struct {
	ID       string // place ID for candidates; persisted stop ID once added to an itinerary
	PlaceID  string
	Name     string
	Category places.Category
	Location geo.Coordinate
	Rating   float64
	Address  string
	Phone    string
	Website  string
	Photos   []string
	Hours    []string
	IsOpen   *bool

	OffRouteDistance  float64 // meters from the stop point
	DistanceFromStart float64
	DurationFromStart float64
	DistanceFromPrev  float64
	DurationFromPrev  float64
	StopPointIndex    int
}

// Stop is a candidate the traveller picked for their itinerary.
type Stop = Candidate

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	Places places.Provider
	Logger zerolog.Logger

	// Concurrency bounds parallel (stop point, category) searches (default: 4).
	Concurrency int

	// RadiusMeters and Limit bound each nearby search (defaults: 5000, 5).
	RadiusMeters float64
	Limit        int

	Observer Observer
}

// Aggregator gathers place candidates around sampled stop points.
type Aggregator struct {
	places      places.Provider
	logger      zerolog.Logger
	concurrency int
	radius      float64
	limit       int
	observer    Observer
}

// NewAggregator creates a candidate aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	radius := cfg.RadiusMeters
	if radius <= 0 {
		radius = places.DefaultRadiusMeters
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = places.DefaultLimit
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Aggregator{
		places:      cfg.Places,
		logger:      cfg.Logger,
		concurrency: concurrency,
		radius:      radius,
		limit:       limit,
		observer:    observer,
	}
}

// FindCandidates samples route at iv and gathers candidates for every stop
// point and category.
func (a *Aggregator) FindCandidates(ctx context.Context, route *routing.Route, categories []places.Category, iv Interval) ([]Candidate, error) {
	points, err := Sample(RoutePath(route), route.TotalDistance(), route.TotalDuration(), iv)
	if err != nil {
		return nil, err
	}
	return a.CandidatesFor(ctx, points, categories)
}

// RoutePath returns the route's path, decoding its polyline when the provider
// did not supply one.
func RoutePath(route *routing.Route) []geo.Coordinate {
	if route == nil {
		return nil
	}
	if len(route.Path) > 0 {
		return route.Path
	}
	return geo.DecodePolyline(route.GeometryPolyline)
}

type searchJob struct {
	index      int
	pointIndex int
	point      StopPoint
	category   places.Category
}

type searchResult struct {
	index      int
	candidates []Candidate
	dropped    int
}

// CandidatesFor searches around each stop point for each category. Output is
// ordered by stop point, then by category order, then by provider rank, and is
// not deduplicated. Nearby or detail failures drop only the affected results.
// On cancellation the candidates gathered so far are returned with ctx.Err().
func (a *Aggregator) CandidatesFor(ctx context.Context, points []StopPoint, categories []places.Category) ([]Candidate, error) {
	if len(points) == 0 || len(categories) == 0 {
		return nil, nil
	}

	jobs := make(chan searchJob, len(points)*len(categories))
	results := make(chan searchResult, len(points)*len(categories))

	var wg sync.WaitGroup
	for i := 0; i < a.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					continue
				default:
					results <- a.search(ctx, job)
				}
			}
		}()
	}

	n := 0
	for pi, p := range points {
		for _, c := range categories {
			jobs <- searchJob{index: n, pointIndex: pi, point: p, category: c}
			n++
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([][]Candidate, n)
	dropped := 0
	for r := range results {
		ordered[r.index] = r.candidates
		dropped += r.dropped
	}

	if dropped > 0 {
		a.observer.CandidatesDropped(ctx, dropped)
	}

	var out []Candidate
	for _, cs := range ordered {
		out = append(out, cs...)
	}

	a.logger.Debug().
		Int("stop_points", len(points)).
		Int("categories", len(categories)).
		Int("candidates", len(out)).
		Int("dropped", dropped).
		Msg("aggregated candidates")

	return out, ctx.Err()
}

func (a *Aggregator) search(ctx context.Context, job searchJob) searchResult {
	res := searchResult{index: job.index}

	refs, err := a.places.Nearby(ctx, job.point.Location, job.category, a.radius, a.limit)
	if err != nil {
		a.logger.Warn().Err(err).
			Int("stop_point", job.pointIndex).
			Str("category", string(job.category)).
			Msg("nearby search failed, skipping")
		return res
	}

	for _, ref := range refs {
		if ctx.Err() != nil {
			return res
		}
		detail, err := a.places.Detail(ctx, ref)
		if err != nil {
			a.logger.Warn().Err(err).
				Str("place_id", ref.PlaceID).
				Msg("place detail unavailable, dropping candidate")
			res.dropped++
			continue
		}
		res.candidates = append(res.candidates, annotate(job, ref, detail))
	}

	return res
}

func annotate(job searchJob, ref places.CandidateRef, d *places.PlaceDetail) Candidate {
	loc := d.Location
	if loc == (geo.Coordinate{}) {
		loc = ref.Location
	}
	name := d.Name
	if name == "" {
		name = ref.Name
	}

	return Candidate{
		ID:                ref.PlaceID,
		PlaceID:           ref.PlaceID,
		Name:              name,
		Category:          job.category,
		Location:          loc,
		Rating:            d.Rating,
		Address:           d.Address,
		Phone:             d.Phone,
		Website:           d.Website,
		Photos:            d.Photos,
		Hours:             d.Hours,
		IsOpen:            d.IsOpen,
		OffRouteDistance:  geo.Distance(job.point.Location, loc),
		DistanceFromStart: job.point.DistanceFromStart,
		DurationFromStart: job.point.DurationFromStart,
		DistanceFromPrev:  job.point.DistanceFromPrev,
		DurationFromPrev:  job.point.DurationFromPrev,
		StopPointIndex:    job.pointIndex,
	}
}

// DedupeCandidates keeps the first occurrence of each place ID, preserving order.
func DedupeCandidates(cs []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(cs))
	out := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		key := c.PlaceID
		if key == "" {
			key = c.ID
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
