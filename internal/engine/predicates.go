// Package engine is the exact analytics backend: conjunctive predicate
// filtering, stable grouping, and summary statistics over the full trip
// table. Every operation is a pure function over immutable trips; no filter
// state carries between calls.
package engine

import (
	"strings"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
)

// TripSet is an ordered collection of trips. Sets reference the table's
// storage; filtering produces new sets without copying trips.
type TripSet []*triptable.Trip

// Range is an inclusive numeric interval; nil bounds are open.
type Range struct {
	Min *float64
	Max *float64
}

func (r Range) contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Empty reports whether the range constrains nothing.
func (r Range) Empty() bool {
	return r.Min == nil && r.Max == nil
}

// Inverted reports whether the range excludes every value (min > max).
func (r Range) Inverted() bool {
	return r.Min != nil && r.Max != nil && *r.Min > *r.Max
}

// TimeWindow is an inclusive timestamp interval; zero bounds are open.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

func (w TimeWindow) contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// Predicates is a conjunctive filter: a trip passes only when every set
// field matches. Zone predicates match case-insensitively on substrings,
// mirroring how callers name zones in free text.
type Predicates struct {
	TaxiType       triptable.TaxiType
	PickupZone     string
	DropoffZone    string
	PickupBorough  string
	DropoffBorough string
	Fare           Range
	Distance       Range
	Day            *time.Weekday
	Hour           *int
	Period         triptable.Period
	Pickup         TimeWindow
}

// Matches reports whether a single trip satisfies every predicate.
func (p Predicates) Matches(t *triptable.Trip) bool {
	if p.TaxiType != "" && t.Type != p.TaxiType {
		return false
	}
	if p.PickupZone != "" && !containsFold(t.PickupZone, p.PickupZone) {
		return false
	}
	if p.DropoffZone != "" && !containsFold(t.DropoffZone, p.DropoffZone) {
		return false
	}
	if p.PickupBorough != "" && !strings.EqualFold(t.PickupBorough, p.PickupBorough) {
		return false
	}
	if p.DropoffBorough != "" && !strings.EqualFold(t.DropoffBorough, p.DropoffBorough) {
		return false
	}
	if !p.Fare.contains(t.Fare) {
		return false
	}
	if !p.Distance.contains(t.Distance) {
		return false
	}
	if p.Day != nil && t.Day != *p.Day {
		return false
	}
	if p.Hour != nil && t.Hour != *p.Hour {
		return false
	}
	if p.Period != "" && t.Period != p.Period {
		return false
	}
	return p.Pickup.contains(t.PickupTime)
}

// Filter returns the subset of set matching all predicates, preserving
// order. The input set is never modified.
func Filter(set TripSet, p Predicates) TripSet {
	out := make(TripSet, 0, len(set))
	for _, t := range set {
		if p.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// FromTable materialises the full table as a TripSet.
func FromTable(t *triptable.Table) TripSet {
	return TripSet(t.All())
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
