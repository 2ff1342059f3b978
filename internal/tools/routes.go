package tools

import (
	"context"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/engine"
	"github.com/nyctaxi/trip-analytics/internal/triptable"
	"github.com/nyctaxi/trip-analytics/internal/usage"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

// RoutesRequest narrows the route analysis. Fare and distance bounds drop
// individual trips before grouping; MinTrips drops routes with fewer trips
// than the threshold before ranking. Zero values keep everything.
type RoutesRequest struct {
	TaxiType    triptable.TaxiType
	MinFare     *float64
	MaxFare     *float64
	MinDistance *float64
	MaxDistance *float64
	MinTrips    int
	TopN        int
}

// RouteRank is one (pickup zone, dropoff zone) ranking row.
type RouteRank struct {
	PickupZone   string   `json:"pickup_zone"`
	DropoffZone  string   `json:"dropoff_zone"`
	Count        int      `json:"count"`
	MeanFare     *float64 `json:"mean_fare"`
	MeanDistance *float64 `json:"mean_distance"`
	MeanMinutes  *float64 `json:"mean_minutes"`
}

// RouteReport is the result of AnalyzeRoutes.
type RouteReport struct {
	TaxiType   string      `json:"taxi_type,omitempty"`
	TripCount  int         `json:"trip_count"`
	RouteCount int         `json:"route_count"`
	TopRoutes  []RouteRank `json:"top_routes"`
}

// AnalyzeRoutes groups trips by their (pickup zone, dropoff zone) pair and
// ranks routes by volume. Route keys are derived while grouping; the table
// never stores them.
func (t *Tools) AnalyzeRoutes(ctx context.Context, req RoutesRequest) (*RouteReport, error) {
	start := time.Now()
	if req.MinFare != nil && req.MaxFare != nil && *req.MinFare > *req.MaxFare {
		err := apperrors.InvalidQuery("min_fare %.2f exceeds max_fare %.2f", *req.MinFare, *req.MaxFare)
		t.observe(ctx, "analyze_routes", start, usage.InvocationEvent{Outcome: usage.OutcomeInvalid})
		return nil, err
	}
	if req.MinDistance != nil && req.MaxDistance != nil && *req.MinDistance > *req.MaxDistance {
		err := apperrors.InvalidQuery("min_distance %.2f exceeds max_distance %.2f", *req.MinDistance, *req.MaxDistance)
		t.observe(ctx, "analyze_routes", start, usage.InvocationEvent{Outcome: usage.OutcomeInvalid})
		return nil, err
	}
	set := engine.Filter(t.full, engine.Predicates{
		TaxiType: req.TaxiType,
		Fare:     engine.Range{Min: req.MinFare, Max: req.MaxFare},
		Distance: engine.Range{Min: req.MinDistance, Max: req.MaxDistance},
	})

	topN := req.TopN
	if topN <= 0 {
		topN = t.defaultTopN
	}

	groups := engine.GroupBy(set, engine.RouteOf)
	if req.MinTrips > 0 {
		kept := groups[:0]
		for _, g := range groups {
			if len(g.Set) >= req.MinTrips {
				kept = append(kept, g)
			}
		}
		groups = kept
	}
	engine.SortGroupsByCountDesc(groups)

	report := &RouteReport{
		TaxiType:   string(req.TaxiType),
		TripCount:  len(set),
		RouteCount: len(groups),
		TopRoutes:  make([]RouteRank, 0, topN),
	}
	if len(groups) > topN {
		groups = groups[:topN]
	}
	for _, g := range groups {
		report.TopRoutes = append(report.TopRoutes, RouteRank{
			PickupZone:   g.Key.PickupZone,
			DropoffZone:  g.Key.DropoffZone,
			Count:        len(g.Set),
			MeanFare:     engine.Mean(g.Set, engine.Fare),
			MeanDistance: engine.Mean(g.Set, engine.Distance),
			MeanMinutes:  engine.Mean(g.Set, engine.DurationMinutes),
		})
	}

	t.observe(ctx, "analyze_routes", start, usage.InvocationEvent{
		Hits:    report.TripCount,
		Outcome: emptyOrOK(report.TripCount),
	})
	return report, nil
}
