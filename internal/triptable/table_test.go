package triptable

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

var testZones = []Zone{
	{ID: 1, Name: "JFK Airport", Borough: "Queens"},
	{ID: 2, Name: "Times Sq/Theatre District", Borough: "Manhattan"},
	{ID: 3, Name: "Williamsburg (North Side)", Borough: "Brooklyn"},
}

// monday8am is a weekday morning inside the rush window.
var monday8am = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

func validRecord() Record {
	return Record{
		TaxiType:      "yellow",
		PickupTime:    monday8am,
		DropoffTime:   monday8am.Add(30 * time.Minute),
		PickupZoneID:  1,
		DropoffZoneID: 2,
		Distance:      10.0,
		Fare:          35.0,
		Tip:           5.0,
		Total:         42.5,
		Passengers:    1,
	}
}

func TestNewRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"unknown taxi type", func(r *Record) { r.TaxiType = "blue" }},
		{"zero pickup time", func(r *Record) { r.PickupTime = time.Time{} }},
		{"zero dropoff time", func(r *Record) { r.DropoffTime = time.Time{} }},
		{"dropoff before pickup", func(r *Record) { r.DropoffTime = r.PickupTime.Add(-time.Minute) }},
		{"negative distance", func(r *Record) { r.Distance = -1 }},
		{"negative fare", func(r *Record) { r.Fare = -0.01 }},
		{"total below fare", func(r *Record) { r.Total = r.Fare - 1 }},
		{"negative passengers", func(r *Record) { r.Passengers = -1 }},
		{"unknown pickup zone", func(r *Record) { r.PickupZoneID = 999 }},
		{"unknown dropoff zone", func(r *Record) { r.DropoffZoneID = 999 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := validRecord()
			tt.mutate(&bad)
			table, err := New([]Record{validRecord(), bad}, testZones)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			if table.RowCount() != 1 {
				t.Errorf("RowCount = %d, want 1", table.RowCount())
			}
			if table.RejectedRows() != 1 {
				t.Errorf("RejectedRows = %d, want 1", table.RejectedRows())
			}
		})
	}
}

func TestNewAssignsSequentialIDsPerType(t *testing.T) {
	records := make([]Record, 0, 4)
	for _, tt := range []string{"yellow", "green", "yellow", "green"} {
		r := validRecord()
		r.TaxiType = tt
		records = append(records, r)
	}
	table, err := New(records, testZones)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	wantIDs := []string{"yellow_1", "green_1", "yellow_2", "green_2"}
	for i, trip := range table.All() {
		if trip.ID != wantIDs[i] {
			t.Errorf("trip %d ID = %q, want %q", i, trip.ID, wantIDs[i])
		}
	}
	if got := table.CountByType(TaxiYellow); got != 2 {
		t.Errorf("CountByType(yellow) = %d, want 2", got)
	}
	if got := table.CountByType(TaxiGreen); got != 2 {
		t.Errorf("CountByType(green) = %d, want 2", got)
	}
}

func TestNewFailures(t *testing.T) {
	if _, err := New([]Record{validRecord()}, nil); !errors.Is(err, apperrors.ErrDataLoad) {
		t.Errorf("empty zones: err = %v, want ErrDataLoad", err)
	}

	bad := validRecord()
	bad.TaxiType = "blue"
	if _, err := New([]Record{bad}, testZones); !errors.Is(err, apperrors.ErrDataLoad) {
		t.Errorf("zero valid rows: err = %v, want ErrDataLoad", err)
	}
}

func TestDerivedFields(t *testing.T) {
	table, err := New([]Record{validRecord()}, testZones)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	trip := table.All()[0]

	if trip.Duration != 30*time.Minute {
		t.Errorf("Duration = %v, want 30m", trip.Duration)
	}
	if trip.AvgSpeedMPH != 20.0 {
		t.Errorf("AvgSpeedMPH = %v, want 20", trip.AvgSpeedMPH)
	}
	if trip.Hour != 8 {
		t.Errorf("Hour = %d, want 8", trip.Hour)
	}
	if trip.Day != time.Monday {
		t.Errorf("Day = %v, want Monday", trip.Day)
	}
	if trip.PickupZone != "JFK Airport" || trip.PickupBorough != "Queens" {
		t.Errorf("pickup enrichment = %q/%q", trip.PickupZone, trip.PickupBorough)
	}
	if trip.DropoffZone != "Times Sq/Theatre District" || trip.DropoffBorough != "Manhattan" {
		t.Errorf("dropoff enrichment = %q/%q", trip.DropoffZone, trip.DropoffBorough)
	}
}

func TestPeriodOf(t *testing.T) {
	day := func(d, h int) time.Time {
		return time.Date(2024, 1, d, h, 30, 0, 0, time.UTC)
	}
	tests := []struct {
		name string
		t    time.Time
		want Period
	}{
		{"monday 6am before rush", day(15, 6), PeriodOffPeak},
		{"monday 7am rush start", day(15, 7), PeriodPeak},
		{"monday 10am rush end", day(15, 10), PeriodPeak},
		{"monday 11am after rush", day(15, 11), PeriodOffPeak},
		{"friday 4pm evening rush", day(19, 16), PeriodPeak},
		{"friday 8pm evening rush end", day(19, 20), PeriodPeak},
		{"friday 9pm after rush", day(19, 21), PeriodOffPeak},
		{"saturday 8am weekend", day(20, 8), PeriodOffPeak},
		{"sunday 5pm weekend", day(21, 17), PeriodOffPeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeriodOf(tt.t); got != tt.want {
				t.Errorf("PeriodOf(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestDateRange(t *testing.T) {
	early := validRecord()
	late := validRecord()
	late.PickupTime = monday8am.Add(48 * time.Hour)
	late.DropoffTime = late.PickupTime.Add(time.Hour)

	table, err := New([]Record{late, early}, testZones)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	min, max := table.DateRange()
	if !min.Equal(early.PickupTime) {
		t.Errorf("min = %v, want %v", min, early.PickupTime)
	}
	if !max.Equal(late.PickupTime) {
		t.Errorf("max = %v, want %v", max, late.PickupTime)
	}
}

func TestIterateIsRestartable(t *testing.T) {
	records := []Record{validRecord(), validRecord(), validRecord()}
	records[1].TaxiType = "green"
	table, err := New(records, testZones)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	seq := table.Iterate(func(trip *Trip) bool { return trip.Type == TaxiYellow })
	for pass := 0; pass < 2; pass++ {
		count := 0
		for range seq {
			count++
		}
		if count != 2 {
			t.Errorf("pass %d: count = %d, want 2", pass, count)
		}
	}
}
