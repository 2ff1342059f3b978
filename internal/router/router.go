package router

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/engine"
	"github.com/nyctaxi/trip-analytics/internal/lexical"
	"github.com/nyctaxi/trip-analytics/internal/triptable"
	"github.com/nyctaxi/trip-analytics/pkg/logger"
	"github.com/nyctaxi/trip-analytics/pkg/metrics"
)

// TripSummary is the normalised row shape returned for a trip regardless of
// which backend produced it. Score is set only on lexically ranked rows.
type TripSummary struct {
	TripID          string    `json:"trip_id"`
	TaxiType        string    `json:"taxi_type"`
	PickupZone      string    `json:"pickup_zone"`
	DropoffZone     string    `json:"dropoff_zone"`
	PickupBorough   string    `json:"pickup_borough"`
	DropoffBorough  string    `json:"dropoff_borough"`
	PickupTime      time.Time `json:"pickup_time"`
	FareAmount      float64   `json:"fare_amount"`
	TripDistance    float64   `json:"trip_distance"`
	DurationMinutes float64   `json:"duration_minutes"`
	Score           *float64  `json:"score,omitempty"`
}

// Result is the normalised query output: an ordered, bounded sequence of
// trip summaries plus the provenance tag naming the backend(s) used.
type Result struct {
	Provenance Route         `json:"provenance"`
	Degraded   bool          `json:"degraded,omitempty"`
	TotalHits  int           `json:"total_hits"`
	Trips      []TripSummary `json:"trips"`
}

// Router owns the routing decision and dispatch for the generic query tool.
// Both backends are read-only, so a Router is safe for concurrent use.
type Router struct {
	full         engine.TripSet
	index        *lexical.Index
	defaultLimit int
	maxResults   int
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// New builds a Router over the full table and an optional lexical index. A
// nil index puts the router in degraded, numeric-only mode.
func New(table *triptable.Table, index *lexical.Index, defaultLimit, maxResults int, m *metrics.Metrics) *Router {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxResults <= 0 {
		maxResults = 1000
	}
	return &Router{
		full:         engine.FromTable(table),
		index:        index,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		metrics:      m,
		logger:       slog.Default().With("component", "query-router"),
	}
}

// Degraded reports whether the lexical index is unavailable.
func (r *Router) Degraded() bool {
	return r.index == nil
}

// Execute validates, classifies, and dispatches one query. Two runs over
// the same dataset and query always produce the same ordered result.
func (r *Router) Execute(ctx context.Context, q Query) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit == 0 {
		limit = r.defaultLimit
	}
	if limit > r.maxResults {
		limit = r.maxResults
	}

	route := Classify(q)
	degraded := false
	if r.index == nil && route != RouteNumeric {
		route = RouteNumeric
		degraded = true
	}
	if r.metrics != nil {
		r.metrics.RoutingDecisionsTotal.WithLabelValues(string(route)).Inc()
	}

	var result *Result
	switch route {
	case RouteLexical:
		result = r.runLexical(q, limit)
	case RouteHybrid:
		result = r.runHybrid(q, limit)
	default:
		result = r.runNumeric(q, limit)
	}
	result.Degraded = degraded

	logger.FromContext(ctx).Info("query routed",
		"route", route,
		"degraded", degraded,
		"total_hits", result.TotalHits,
		"returned", len(result.Trips),
	)
	if r.metrics != nil {
		r.metrics.ResultRows.Observe(float64(len(result.Trips)))
	}
	return result, nil
}

// runLexical serves relevance-ranked queries from the index alone. The
// search runs uncapped so TotalHits counts every match, same as the other
// routes; the limit is applied here.
func (r *Router) runLexical(q Query, limit int) *Result {
	matches := r.index.Search(q.searchText(), r.lexicalFilters(q), 0)
	total := len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return &Result{
		Provenance: RouteLexical,
		TotalHits:  total,
		Trips:      summarizeMatches(matches),
	}
}

// runNumeric filters the full table and applies the deterministic default
// ordering: pickup time ascending, trip id as the final tiebreak.
func (r *Router) runNumeric(q Query, limit int) *Result {
	filtered := engine.Filter(r.full, r.predicates(q))
	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].PickupTime.Equal(filtered[j].PickupTime) {
			return filtered[i].PickupTime.Before(filtered[j].PickupTime)
		}
		return filtered[i].ID < filtered[j].ID
	})
	total := len(filtered)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	trips := make([]TripSummary, len(filtered))
	for i, t := range filtered {
		trips[i] = summarizeTrip(t)
	}
	return &Result{
		Provenance: RouteNumeric,
		TotalHits:  total,
		Trips:      trips,
	}
}

// runHybrid searches the index uncapped, then applies the numeric
// predicates as a post-filter over the candidates before the limit. The
// candidates are a bounded sample, so a starved result set is a documented
// precision/recall trade-off: there is no fallback to a full-table scan.
func (r *Router) runHybrid(q Query, limit int) *Result {
	matches := r.index.Search(q.searchText(), r.lexicalFilters(q), 0)
	kept := matches[:0:0]
	for _, m := range matches {
		if !hybridPostFilter(q, m.Doc) {
			continue
		}
		kept = append(kept, m)
	}
	total := len(kept)
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return &Result{
		Provenance: RouteHybrid,
		TotalHits:  total,
		Trips:      summarizeMatches(kept),
	}
}

// hybridPostFilter applies the numeric predicates to one lexical candidate.
// Fare bounds are already handled inside the index search.
func hybridPostFilter(q Query, d lexical.Document) bool {
	if q.MinDistance != nil && d.Distance < *q.MinDistance {
		return false
	}
	if q.MaxDistance != nil && d.Distance > *q.MaxDistance {
		return false
	}
	if q.Hour != nil && d.PickupTime.Hour() != *q.Hour {
		return false
	}
	if !q.From.IsZero() && d.PickupTime.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && d.PickupTime.After(q.To) {
		return false
	}
	return true
}

func (r *Router) lexicalFilters(q Query) lexical.Filters {
	return lexical.Filters{
		TaxiType:      q.TaxiType,
		PickupBorough: q.Borough,
		Period:        q.Period,
		Day:           q.Day,
		MinFare:       q.MinFare,
		MaxFare:       q.MaxFare,
	}
}

func (r *Router) predicates(q Query) engine.Predicates {
	return engine.Predicates{
		TaxiType:      q.TaxiType,
		PickupZone:    q.PickupZone,
		DropoffZone:   q.DropoffZone,
		PickupBorough: q.Borough,
		Fare:          engine.Range{Min: q.MinFare, Max: q.MaxFare},
		Distance:      engine.Range{Min: q.MinDistance, Max: q.MaxDistance},
		Day:           q.Day,
		Hour:          q.Hour,
		Period:        q.Period,
		Pickup:        engine.TimeWindow{From: q.From, To: q.To},
	}
}

func summarizeTrip(t *triptable.Trip) TripSummary {
	return TripSummary{
		TripID:          t.ID,
		TaxiType:        string(t.Type),
		PickupZone:      t.PickupZone,
		DropoffZone:     t.DropoffZone,
		PickupBorough:   t.PickupBorough,
		DropoffBorough:  t.DropoffBorough,
		PickupTime:      t.PickupTime,
		FareAmount:      t.Fare,
		TripDistance:    t.Distance,
		DurationMinutes: engine.Round2(t.Duration.Minutes()),
	}
}

func summarizeMatches(matches []lexical.Match) []TripSummary {
	trips := make([]TripSummary, len(matches))
	for i, m := range matches {
		score := m.Score
		trips[i] = TripSummary{
			TripID:          m.Doc.TripID,
			TaxiType:        string(m.Doc.TaxiType),
			PickupZone:      m.Doc.PickupZone,
			DropoffZone:     m.Doc.DropoffZone,
			PickupBorough:   m.Doc.PickupBorough,
			DropoffBorough:  m.Doc.DropoffBorough,
			PickupTime:      m.Doc.PickupTime,
			FareAmount:      m.Doc.Fare,
			TripDistance:    m.Doc.Distance,
			DurationMinutes: engine.Round2(m.Doc.DurationMin),
			Score:           &score,
		}
	}
	return trips
}
