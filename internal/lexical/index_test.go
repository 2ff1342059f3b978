package lexical

import (
	"errors"
	"testing"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

var indexZones = []triptable.Zone{
	{ID: 1, Name: "JFK Airport", Borough: "Queens"},
	{ID: 2, Name: "Times Sq/Theatre District", Borough: "Manhattan"},
	{ID: 3, Name: "Williamsburg (North Side)", Borough: "Brooklyn"},
	{ID: 4, Name: "Astoria", Borough: "Queens"},
}

func record(tt string, pickup time.Time, puZone, doZone int, fare float64) triptable.Record {
	return triptable.Record{
		TaxiType:      tt,
		PickupTime:    pickup,
		DropoffTime:   pickup.Add(20 * time.Minute),
		PickupZoneID:  puZone,
		DropoffZoneID: doZone,
		Distance:      5.0,
		Fare:          fare,
		Total:         fare + 3,
		Passengers:    1,
	}
}

func buildIndex(t *testing.T, records []triptable.Record, sampleCap int) *Index {
	t.Helper()
	table, err := triptable.New(records, indexZones)
	if err != nil {
		t.Fatalf("building fixture table: %v", err)
	}
	ix, err := Build(table, sampleCap)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercase and split", "JFK Airport", []string{"jfk", "airport"}},
		{"punctuation boundaries", "Times Sq/Theatre District", []string{"tim", "sq", "theatre", "district"}},
		{"stop words dropped", "trips from JFK to the airport", []string{"trip", "jfk", "airport"}},
		{"domain stop words", "near Astoria via Williamsburg", []string{"astoria", "williamsburg"}},
		{"single letters dropped", "a b JFK", []string{"jfk"}},
		{"plural stems to singular", "airports heights", []string{"airport", "height"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStem(t *testing.T) {
	tests := []struct{ in, want string }{
		{"cities", "city"},
		{"crossing", "cross"},
		{"flushing", "flush"},
		{"parked", "park"},
		{"airports", "airport"},
		{"express", "express"},
		{"sq", "sq"},
	}
	for _, tt := range tests {
		if got := stem(tt.in); got != tt.want {
			t.Errorf("stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(nil, 100); !errors.Is(err, apperrors.ErrIndexUnavailable) {
		t.Errorf("nil table: err = %v, want ErrIndexUnavailable", err)
	}

	table, err := triptable.New([]triptable.Record{
		record("yellow", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), 1, 2, 20),
	}, indexZones)
	if err != nil {
		t.Fatalf("building fixture table: %v", err)
	}
	if _, err := Build(table, 0); !errors.Is(err, apperrors.ErrIndexUnavailable) {
		t.Errorf("zero cap: err = %v, want ErrIndexUnavailable", err)
	}
}

func TestBuildSamplesPerType(t *testing.T) {
	pickup := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	var records []triptable.Record
	for i := 0; i < 4; i++ {
		records = append(records, record("yellow", pickup.Add(time.Duration(i)*time.Hour), 1, 2, 20))
	}
	records = append(records, record("green", pickup, 3, 4, 15))

	ix := buildIndex(t, records, 2)
	stats := ix.Snapshot()
	if stats.ByType["yellow"] != 2 {
		t.Errorf("yellow sample = %d, want 2", stats.ByType["yellow"])
	}
	if stats.ByType["green"] != 1 {
		t.Errorf("green sample = %d, want 1", stats.ByType["green"])
	}
	if ix.DocCount() != 3 {
		t.Errorf("DocCount = %d, want 3", ix.DocCount())
	}
	if stats.SampleCap != 2 {
		t.Errorf("SampleCap = %d, want 2", stats.SampleCap)
	}
}

func TestSearchIsConjunctive(t *testing.T) {
	pickup := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	ix := buildIndex(t, []triptable.Record{
		record("yellow", pickup, 1, 2, 40),            // JFK -> Times Sq
		record("yellow", pickup.Add(time.Hour), 1, 3, 35), // JFK -> Williamsburg
		record("green", pickup.Add(2*time.Hour), 4, 3, 15), // Astoria -> Williamsburg
	}, 100)

	got := ix.Search("jfk williamsburg", Filters{}, 0)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Doc.TripID != "yellow_2" {
		t.Errorf("TripID = %q, want yellow_2", got[0].Doc.TripID)
	}

	if got := ix.Search("jfk zanzibar", Filters{}, 0); got != nil {
		t.Errorf("unknown term must empty the intersection, got %d hits", len(got))
	}
	if got := ix.Search("", Filters{}, 0); got != nil {
		t.Errorf("empty text must return nil, got %d hits", len(got))
	}
}

func TestSearchFilters(t *testing.T) {
	pickup := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	ix := buildIndex(t, []triptable.Record{
		record("yellow", pickup, 1, 3, 40),
		record("green", pickup.Add(time.Hour), 1, 3, 15),
	}, 100)

	got := ix.Search("jfk", Filters{TaxiType: triptable.TaxiGreen}, 0)
	if len(got) != 1 || got[0].Doc.TaxiType != triptable.TaxiGreen {
		t.Fatalf("taxi type filter failed: %v", got)
	}

	min := 30.0
	got = ix.Search("jfk", Filters{MinFare: &min}, 0)
	if len(got) != 1 || got[0].Doc.Fare != 40 {
		t.Fatalf("fare filter failed: %v", got)
	}

	got = ix.Search("jfk", Filters{PickupBorough: "queens"}, 0)
	if len(got) != 2 {
		t.Errorf("borough filter must fold case, got %d hits", len(got))
	}
}

func TestSearchOrderAndLimit(t *testing.T) {
	pickup := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	// Same zones, day, and period, so the text surface and scores are
	// identical; order falls back to most-recent pickup, then trip id.
	ix := buildIndex(t, []triptable.Record{
		record("yellow", pickup, 1, 2, 20),
		record("yellow", pickup.Add(40*time.Minute), 1, 2, 25),
		record("yellow", pickup.Add(20*time.Minute), 1, 2, 30),
	}, 100)

	got := ix.Search("jfk", Filters{}, 0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantOrder := []string{"yellow_2", "yellow_3", "yellow_1"}
	for i, m := range got {
		if m.Doc.TripID != wantOrder[i] {
			t.Errorf("position %d = %q, want %q", i, m.Doc.TripID, wantOrder[i])
		}
		if m.Score <= 0 {
			t.Errorf("score %d = %v, want > 0", i, m.Score)
		}
	}

	if got := ix.Search("jfk", Filters{}, 2); len(got) != 2 {
		t.Errorf("limit 2: len = %d", len(got))
	}
}
