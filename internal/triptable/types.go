// Package triptable holds the canonical enriched trip dataset: one immutable
// row per taxi ride, validated and enriched once at load time and shared
// read-only for the life of the process.
package triptable

import (
	"time"
)

// TaxiType identifies the fleet a trip belongs to.
type TaxiType string

const (
	TaxiYellow TaxiType = "yellow"
	TaxiGreen  TaxiType = "green"
)

// Valid reports whether t names a known fleet.
func (t TaxiType) Valid() bool {
	return t == TaxiYellow || t == TaxiGreen
}

// Period labels a trip as inside or outside the weekday rush windows.
type Period string

const (
	PeriodPeak    Period = "Peak"
	PeriodOffPeak Period = "Off-Peak"
)

// Zone is a named pickup/dropoff area belonging to exactly one borough.
type Zone struct {
	ID      int
	Name    string
	Borough string
}

// Record is one raw trip row as delivered by the source, before validation
// and enrichment.
type Record struct {
	TaxiType      string
	PickupTime    time.Time
	DropoffTime   time.Time
	PickupZoneID  int
	DropoffZoneID int
	Distance      float64
	Fare          float64
	Tip           float64
	Total         float64
	Passengers    int
}

// Trip is one validated taxi ride. Derived fields are pure functions of the
// base fields, computed once at load; trips never change afterwards.
type Trip struct {
	ID             string
	Type           TaxiType
	PickupTime     time.Time
	DropoffTime    time.Time
	PickupZoneID   int
	DropoffZoneID  int
	PickupZone     string
	DropoffZone    string
	PickupBorough  string
	DropoffBorough string
	Distance       float64
	Fare           float64
	Tip            float64
	Total          float64
	Passengers     int

	Duration    time.Duration
	AvgSpeedMPH float64
	Hour        int
	Day         time.Weekday
	Period      Period
}

// PeriodOf applies the fixed rush-hour rule: weekdays 07:00-10:59 and
// 16:00-20:59 are Peak, everything else Off-Peak.
func PeriodOf(t time.Time) Period {
	day := t.Weekday()
	if day == time.Saturday || day == time.Sunday {
		return PeriodOffPeak
	}
	h := t.Hour()
	if (h >= 7 && h <= 10) || (h >= 16 && h <= 20) {
		return PeriodPeak
	}
	return PeriodOffPeak
}

// derive fills in all computed fields from the base fields.
func (t *Trip) derive() {
	t.Duration = t.DropoffTime.Sub(t.PickupTime)
	if hours := t.Duration.Hours(); hours > 0 {
		t.AvgSpeedMPH = t.Distance / hours
	}
	t.Hour = t.PickupTime.Hour()
	t.Day = t.PickupTime.Weekday()
	t.Period = PeriodOf(t.PickupTime)
}
