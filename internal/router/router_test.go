package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/lexical"
	"github.com/nyctaxi/trip-analytics/internal/triptable"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

var routerZones = []triptable.Zone{
	{ID: 1, Name: "JFK Airport", Borough: "Queens"},
	{ID: 2, Name: "Times Sq/Theatre District", Borough: "Manhattan"},
	{ID: 3, Name: "Williamsburg (North Side)", Borough: "Brooklyn"},
}

func testTable(t *testing.T) *triptable.Table {
	t.Helper()
	pickup := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	rec := func(tt string, offset time.Duration, puZone, doZone int, fare, dist float64) triptable.Record {
		return triptable.Record{
			TaxiType:      tt,
			PickupTime:    pickup.Add(offset),
			DropoffTime:   pickup.Add(offset + 20*time.Minute),
			PickupZoneID:  puZone,
			DropoffZoneID: doZone,
			Distance:      dist,
			Fare:          fare,
			Total:         fare + 3,
			Passengers:    1,
		}
	}
	table, err := triptable.New([]triptable.Record{
		rec("yellow", 0, 1, 2, 45, 11),
		rec("yellow", time.Hour, 1, 3, 35, 9),
		rec("green", 2*time.Hour, 3, 1, 30, 8),
		rec("green", 3*time.Hour, 2, 2, 8, 1),
	}, routerZones)
	if err != nil {
		t.Fatalf("building fixture table: %v", err)
	}
	return table
}

func testRouter(t *testing.T) *Router {
	t.Helper()
	table := testTable(t)
	index, err := lexical.Build(table, 100)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return New(table, index, 20, 1000, nil)
}

func fptr(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	hour := 9
	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		q    Query
		want Route
	}{
		{"free text only", Query{Text: "jfk airport"}, RouteLexical},
		{"zone text only", Query{PickupZone: "Williamsburg"}, RouteLexical},
		{"numeric-looking text is still text", Query{Text: "42"}, RouteLexical},
		{"fare range only", Query{MinFare: fptr(20)}, RouteNumeric},
		{"hour only", Query{Hour: &hour}, RouteNumeric},
		{"time window only", Query{From: from}, RouteNumeric},
		{"categorical only", Query{TaxiType: triptable.TaxiGreen, Period: triptable.PeriodPeak}, RouteNumeric},
		{"empty query", Query{}, RouteNumeric},
		{"text with fare range", Query{Text: "jfk", MinFare: fptr(20)}, RouteHybrid},
		{"zone text with distance range", Query{PickupZone: "jfk", MaxDistance: fptr(10)}, RouteNumeric},
		{"zone text with hour", Query{DropoffZone: "williamsburg", Hour: &hour}, RouteNumeric},
		{"relevance flag wins", Query{Text: "jfk", MinFare: fptr(20), RankByRelevance: true}, RouteLexical},
		{"relevance flag wins for zone text", Query{PickupZone: "jfk", MinFare: fptr(20), RankByRelevance: true}, RouteLexical},
		{"text with categorical stays lexical", Query{Text: "jfk", TaxiType: triptable.TaxiYellow}, RouteLexical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.q); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseArgsRejectsUnknownKeys(t *testing.T) {
	_, err := ParseArgs(map[string]string{"fare_min": "10"})
	if !errors.Is(err, apperrors.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestParseArgs(t *testing.T) {
	q, err := ParseArgs(map[string]string{
		"text":      "jfk airport",
		"taxi_type": "green",
		"min_fare":  "12.5",
		"day":       "Friday",
		"period":    "off-peak",
		"limit":     "5",
	})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if q.Text != "jfk airport" || q.TaxiType != triptable.TaxiGreen {
		t.Errorf("text/taxi_type = %q/%q", q.Text, q.TaxiType)
	}
	if q.MinFare == nil || *q.MinFare != 12.5 {
		t.Errorf("MinFare = %v, want 12.5", q.MinFare)
	}
	if q.Day == nil || *q.Day != time.Friday {
		t.Errorf("Day = %v, want Friday", q.Day)
	}
	if q.Period != triptable.PeriodOffPeak {
		t.Errorf("Period = %v", q.Period)
	}
	if q.Limit != 5 {
		t.Errorf("Limit = %d, want 5", q.Limit)
	}
}

func TestParseArgsBadValues(t *testing.T) {
	bad := []map[string]string{
		{"min_fare": "ten"},
		{"hour": "24"},
		{"day": "Caturday"},
		{"period": "rush"},
		{"taxi_type": "blue"},
		{"from": "yesterday"},
		{"limit": "-3"},
	}
	for _, args := range bad {
		if _, err := ParseArgs(args); !errors.Is(err, apperrors.ErrInvalidQuery) {
			t.Errorf("ParseArgs(%v): err = %v, want ErrInvalidQuery", args, err)
		}
	}
}

func TestValidateInvertedRanges(t *testing.T) {
	tests := []struct {
		name string
		q    Query
	}{
		{"fare", Query{MinFare: fptr(50), MaxFare: fptr(10)}},
		{"distance", Query{MinDistance: fptr(5), MaxDistance: fptr(1)}},
		{"time window", Query{
			From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.q.Validate(); !errors.Is(err, apperrors.ErrInvalidQuery) {
				t.Errorf("err = %v, want ErrInvalidQuery", err)
			}
		})
	}
}

func TestExecuteNumericOrdering(t *testing.T) {
	r := testRouter(t)

	result, err := r.Execute(context.Background(), Query{MinFare: fptr(25)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Provenance != RouteNumeric {
		t.Errorf("Provenance = %v, want numeric", result.Provenance)
	}
	if result.TotalHits != 3 {
		t.Fatalf("TotalHits = %d, want 3", result.TotalHits)
	}
	for i := 1; i < len(result.Trips); i++ {
		if result.Trips[i].PickupTime.Before(result.Trips[i-1].PickupTime) {
			t.Errorf("trips not in pickup ascending order")
		}
	}
	for _, trip := range result.Trips {
		if trip.Score != nil {
			t.Errorf("numeric rows must not carry scores")
		}
	}
}

func TestExecuteEmptyResultIsNotAnError(t *testing.T) {
	r := testRouter(t)

	result, err := r.Execute(context.Background(), Query{MinFare: fptr(500)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.TotalHits != 0 || len(result.Trips) != 0 {
		t.Errorf("TotalHits = %d, Trips = %d; want empty", result.TotalHits, len(result.Trips))
	}
}

func TestExecuteLexicalCarriesScores(t *testing.T) {
	r := testRouter(t)

	result, err := r.Execute(context.Background(), Query{Text: "jfk"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Provenance != RouteLexical {
		t.Errorf("Provenance = %v, want lexical", result.Provenance)
	}
	if result.TotalHits == 0 {
		t.Fatal("expected hits for jfk")
	}
	for _, trip := range result.Trips {
		if trip.Score == nil {
			t.Errorf("lexical row %s has no score", trip.TripID)
		}
	}
}

func TestExecuteZoneTextWithNumericRoutesExact(t *testing.T) {
	r := testRouter(t)

	result, err := r.Execute(context.Background(), Query{PickupZone: "jfk", MinDistance: fptr(5)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Provenance != RouteNumeric {
		t.Errorf("Provenance = %v, want numeric", result.Provenance)
	}
	if result.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2 (zone substring on the full table)", result.TotalHits)
	}
	for _, trip := range result.Trips {
		if trip.PickupZone != "JFK Airport" {
			t.Errorf("hit %s picked up at %q, want JFK Airport", trip.TripID, trip.PickupZone)
		}
		if trip.Score != nil {
			t.Errorf("numeric rows must not carry scores")
		}
	}
}

func TestExecuteLexicalTotalHitsExceedsLimit(t *testing.T) {
	table := testTable(t)
	index, err := lexical.Build(table, 100)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	r := New(table, index, 1, 1000, nil)

	result, err := r.Execute(context.Background(), Query{Text: "jfk"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Provenance != RouteLexical {
		t.Errorf("Provenance = %v, want lexical", result.Provenance)
	}
	if result.TotalHits != 3 {
		t.Errorf("TotalHits = %d, want 3 (all matches, not the returned page)", result.TotalHits)
	}
	if len(result.Trips) != 1 {
		t.Errorf("returned %d trips, want 1", len(result.Trips))
	}
}

func TestExecuteHybridIsSubsetOfLexical(t *testing.T) {
	r := testRouter(t)

	lex, err := r.Execute(context.Background(), Query{Text: "jfk"})
	if err != nil {
		t.Fatalf("lexical execute: %v", err)
	}
	hybrid, err := r.Execute(context.Background(), Query{Text: "jfk", MinDistance: fptr(10)})
	if err != nil {
		t.Fatalf("hybrid execute: %v", err)
	}
	if hybrid.Provenance != RouteHybrid {
		t.Errorf("Provenance = %v, want hybrid", hybrid.Provenance)
	}

	lexIDs := make(map[string]bool, len(lex.Trips))
	for _, trip := range lex.Trips {
		lexIDs[trip.TripID] = true
	}
	for _, trip := range hybrid.Trips {
		if !lexIDs[trip.TripID] {
			t.Errorf("hybrid hit %s not in lexical candidates", trip.TripID)
		}
		if trip.TripDistance < 10 {
			t.Errorf("hybrid hit %s violates distance filter", trip.TripID)
		}
	}
}

func TestExecuteDegradedFallsBackToNumeric(t *testing.T) {
	r := New(testTable(t), nil, 20, 1000, nil)
	if !r.Degraded() {
		t.Fatal("router with nil index must report Degraded")
	}

	result, err := r.Execute(context.Background(), Query{PickupZone: "jfk"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Provenance != RouteNumeric || !result.Degraded {
		t.Errorf("Provenance = %v, Degraded = %v; want numeric/degraded", result.Provenance, result.Degraded)
	}
	if result.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2 (zone substring over full table)", result.TotalHits)
	}
}

func TestExecuteLimitDefaultsAndCaps(t *testing.T) {
	table := testTable(t)
	r := New(table, nil, 2, 3, nil)

	result, err := r.Execute(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Trips) != 2 {
		t.Errorf("default limit: returned %d, want 2", len(result.Trips))
	}
	if result.TotalHits != 4 {
		t.Errorf("TotalHits = %d, want 4", result.TotalHits)
	}

	result, err = r.Execute(context.Background(), Query{Limit: 100})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Trips) != 3 {
		t.Errorf("capped limit: returned %d, want 3", len(result.Trips))
	}
}
