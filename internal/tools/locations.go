package tools

import (
	"context"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/engine"
	"github.com/nyctaxi/trip-analytics/internal/triptable"
	"github.com/nyctaxi/trip-analytics/internal/usage"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

// LocationsRequest narrows the location analysis. All fields are optional;
// set fields combine conjunctively before grouping. Borough restricts to
// trips picked up in a borough, matched case-insensitively.
type LocationsRequest struct {
	TaxiType triptable.TaxiType
	Borough  string
	Day      *time.Weekday
	Hour     *int
	Period   triptable.Period
	From     time.Time
	To       time.Time
	TopN     int
}

// ZoneRank is one zone ranking row.
type ZoneRank struct {
	Zone         string   `json:"zone"`
	Borough      string   `json:"borough"`
	Count        int      `json:"count"`
	MeanFare     *float64 `json:"mean_fare"`
	MeanDistance *float64 `json:"mean_distance"`
}

// BoroughRank is one pickup-borough ranking row.
type BoroughRank struct {
	Borough  string   `json:"borough"`
	Count    int      `json:"count"`
	MeanFare *float64 `json:"mean_fare"`
}

// LocationReport is the result of AnalyzeLocations.
type LocationReport struct {
	TaxiType    string        `json:"taxi_type,omitempty"`
	TripCount   int           `json:"trip_count"`
	TopPickups  []ZoneRank    `json:"top_pickup_zones"`
	TopDropoffs []ZoneRank    `json:"top_dropoff_zones"`
	ByBorough   []BoroughRank `json:"by_borough"`
}

// AnalyzeLocations ranks pickup zones, dropoff zones, and pickup boroughs
// by trip volume. Zone rankings are truncated to the top N; boroughs are
// few enough to always report in full.
func (t *Tools) AnalyzeLocations(ctx context.Context, req LocationsRequest) (*LocationReport, error) {
	start := time.Now()
	if req.Hour != nil && (*req.Hour < 0 || *req.Hour > 23) {
		err := apperrors.InvalidQuery("hour must be between 0 and 23, got %d", *req.Hour)
		t.observe(ctx, "analyze_locations", start, usage.InvocationEvent{Outcome: usage.OutcomeInvalid})
		return nil, err
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.From.After(req.To) {
		err := apperrors.InvalidQuery("time window is inverted: from is after to")
		t.observe(ctx, "analyze_locations", start, usage.InvocationEvent{Outcome: usage.OutcomeInvalid})
		return nil, err
	}

	topN := req.TopN
	if topN <= 0 {
		topN = t.defaultTopN
	}

	set := engine.Filter(t.full, engine.Predicates{
		TaxiType:      req.TaxiType,
		PickupBorough: req.Borough,
		Day:           req.Day,
		Hour:          req.Hour,
		Period:        req.Period,
		Pickup:        engine.TimeWindow{From: req.From, To: req.To},
	})

	report := &LocationReport{
		TaxiType:  string(req.TaxiType),
		TripCount: len(set),
		TopPickups: rankZones(set, topN,
			func(tr *triptable.Trip) string { return tr.PickupZone },
			func(tr *triptable.Trip) string { return tr.PickupBorough }),
		TopDropoffs: rankZones(set, topN,
			func(tr *triptable.Trip) string { return tr.DropoffZone },
			func(tr *triptable.Trip) string { return tr.DropoffBorough }),
		ByBorough: make([]BoroughRank, 0, 8),
	}

	boroughGroups := engine.GroupBy(set, func(tr *triptable.Trip) string { return tr.PickupBorough })
	engine.SortGroupsByCountDesc(boroughGroups)
	for _, g := range boroughGroups {
		report.ByBorough = append(report.ByBorough, BoroughRank{
			Borough:  g.Key,
			Count:    len(g.Set),
			MeanFare: engine.Mean(g.Set, engine.Fare),
		})
	}

	t.observe(ctx, "analyze_locations", start, usage.InvocationEvent{
		Hits:    report.TripCount,
		Outcome: emptyOrOK(report.TripCount),
	})
	return report, nil
}

// rankZones groups the set by a zone key, ranks by descending volume, and
// keeps the top n rows.
func rankZones(set engine.TripSet, n int, zone, borough func(*triptable.Trip) string) []ZoneRank {
	groups := engine.GroupBy(set, zone)
	engine.SortGroupsByCountDesc(groups)
	if len(groups) > n {
		groups = groups[:n]
	}
	ranks := make([]ZoneRank, 0, len(groups))
	for _, g := range groups {
		ranks = append(ranks, ZoneRank{
			Zone:         g.Key,
			Borough:      borough(g.Set[0]),
			Count:        len(g.Set),
			MeanFare:     engine.Mean(g.Set, engine.Fare),
			MeanDistance: engine.Mean(g.Set, engine.Distance),
		})
	}
	return ranks
}
