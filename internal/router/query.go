// Package router classifies each incoming generic query as lexical, numeric,
// or hybrid, dispatches it to the matching backend(s), and normalises the
// results into one shape regardless of which backend answered.
package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

// Route tags which backend(s) produced a result.
type Route string

const (
	RouteLexical Route = "lexical"
	RouteNumeric Route = "numeric"
	RouteHybrid  Route = "hybrid"
)

// Query is the router's input: recognised filter keys plus an optional
// result limit. The zero value matches everything.
type Query struct {
	Text        string
	PickupZone  string
	DropoffZone string
	TaxiType    triptable.TaxiType // empty means both fleets
	Borough     string
	MinFare     *float64
	MaxFare     *float64
	MinDistance *float64
	MaxDistance *float64
	Day         *time.Weekday
	Hour        *int
	Period      triptable.Period
	From        time.Time
	To          time.Time

	// RankByRelevance forces the lexical route even when numeric
	// predicates are present.
	RankByRelevance bool
	Limit           int
}

// queryKeys is the closed set of recognised argument names. Anything else
// is rejected, never ignored.
var queryKeys = map[string]struct{}{
	"text": {}, "pickup_zone": {}, "dropoff_zone": {}, "taxi_type": {},
	"borough": {}, "min_fare": {}, "max_fare": {}, "min_distance": {},
	"max_distance": {}, "day": {}, "hour": {}, "period": {},
	"from": {}, "to": {}, "rank_by_relevance": {}, "limit": {},
}

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// ParseArgs builds a Query from a flat mapping of named arguments, the shape
// the tool transport delivers. Unknown keys and unparseable values yield
// InvalidQueryError.
func ParseArgs(args map[string]string) (Query, error) {
	var q Query
	for key, raw := range args {
		if _, ok := queryKeys[key]; !ok {
			return Query{}, apperrors.InvalidQuery("unrecognized filter key %q", key)
		}
		if raw == "" {
			continue
		}
		var err error
		switch key {
		case "text":
			q.Text = raw
		case "pickup_zone":
			q.PickupZone = raw
		case "dropoff_zone":
			q.DropoffZone = raw
		case "taxi_type":
			q.TaxiType, err = ParseTaxiType(raw)
		case "borough":
			q.Borough = raw
		case "min_fare":
			q.MinFare, err = parseFloat(key, raw)
		case "max_fare":
			q.MaxFare, err = parseFloat(key, raw)
		case "min_distance":
			q.MinDistance, err = parseFloat(key, raw)
		case "max_distance":
			q.MaxDistance, err = parseFloat(key, raw)
		case "day":
			q.Day, err = ParseDay(raw)
		case "hour":
			q.Hour, err = ParseHour(raw)
		case "period":
			q.Period, err = ParsePeriod(raw)
		case "from":
			q.From, err = parseTime(key, raw)
		case "to":
			q.To, err = parseTime(key, raw)
		case "rank_by_relevance":
			q.RankByRelevance = raw == "true" || raw == "1"
		case "limit":
			q.Limit, err = parseInt(key, raw)
		}
		if err != nil {
			return Query{}, err
		}
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate checks the query for internal consistency. Inverted ranges are
// reported, never silently corrected.
func (q Query) Validate() error {
	if q.MinFare != nil && q.MaxFare != nil && *q.MinFare > *q.MaxFare {
		return apperrors.InvalidQuery("min_fare %.2f exceeds max_fare %.2f", *q.MinFare, *q.MaxFare)
	}
	if q.MinDistance != nil && q.MaxDistance != nil && *q.MinDistance > *q.MaxDistance {
		return apperrors.InvalidQuery("min_distance %.2f exceeds max_distance %.2f", *q.MinDistance, *q.MaxDistance)
	}
	if q.Hour != nil && (*q.Hour < 0 || *q.Hour > 23) {
		return apperrors.InvalidQuery("hour must be between 0 and 23, got %d", *q.Hour)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return apperrors.InvalidQuery("from %s is after to %s", q.From.Format(time.RFC3339), q.To.Format(time.RFC3339))
	}
	if q.Limit < 0 {
		return apperrors.InvalidQuery("limit must not be negative, got %d", q.Limit)
	}
	return nil
}

// hasFreeText reports whether any textual input is present: a free-text
// term or a zone name given as text.
func (q Query) hasFreeText() bool {
	return q.Text != "" || q.PickupZone != "" || q.DropoffZone != ""
}

// hasZoneText reports zone names given as text. Zone text is a weaker
// lexical signal than Text: the exact engine matches zones by substring, so
// zone text only routes lexically when nothing numeric is asked for.
func (q Query) hasZoneText() bool {
	return q.PickupZone != "" || q.DropoffZone != ""
}

// hasNumericPredicates reports the numeric routing signal: any numeric
// range, exact hour, or timestamp window. Categorical filters (taxi type,
// borough, day, period) are served by both backends and never influence
// routing.
func (q Query) hasNumericPredicates() bool {
	return q.MinFare != nil || q.MaxFare != nil ||
		q.MinDistance != nil || q.MaxDistance != nil ||
		q.Hour != nil || !q.From.IsZero() || !q.To.IsZero()
}

// Classify is the total classification function over query shape. The
// precedence is fixed: an explicit relevance request wins, then a free-text
// term with numeric predicates is hybrid, a free-text term alone or zone
// text without numeric predicates is lexical, and everything else is
// numeric. Zone text next to a numeric predicate routes numeric because the
// exact engine matches zones by substring itself. Value shape is never
// inspected; a free-text term that looks like a number is still free text.
func Classify(q Query) Route {
	numeric := q.hasNumericPredicates()
	switch {
	case q.hasFreeText() && q.RankByRelevance:
		return RouteLexical
	case q.Text != "" && numeric:
		return RouteHybrid
	case q.Text != "" || (q.hasZoneText() && !numeric):
		return RouteLexical
	default:
		return RouteNumeric
	}
}

// searchText joins the free-text inputs into the string handed to the
// lexical index.
func (q Query) searchText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{q.Text, q.PickupZone, q.DropoffZone} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ParseTaxiType maps a caller-supplied fleet name; "both" and "" mean no
// restriction.
func ParseTaxiType(raw string) (triptable.TaxiType, error) {
	switch strings.ToLower(raw) {
	case "", "both":
		return "", nil
	case "yellow":
		return triptable.TaxiYellow, nil
	case "green":
		return triptable.TaxiGreen, nil
	default:
		return "", apperrors.InvalidQuery("taxi_type must be yellow, green, or both, got %q", raw)
	}
}

// ParseDay maps a weekday name, case-insensitively.
func ParseDay(raw string) (*time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(raw)]
	if !ok {
		return nil, apperrors.InvalidQuery("day must be a weekday name, got %q", raw)
	}
	return &day, nil
}

// ParseHour parses an hour-of-day in 0-23.
func ParseHour(raw string) (*int, error) {
	h, err := strconv.Atoi(raw)
	if err != nil || h < 0 || h > 23 {
		return nil, apperrors.InvalidQuery("hour must be between 0 and 23, got %q", raw)
	}
	return &h, nil
}

// ParsePeriod maps the peak/off-peak label.
func ParsePeriod(raw string) (triptable.Period, error) {
	switch strings.ToLower(raw) {
	case "peak":
		return triptable.PeriodPeak, nil
	case "off-peak", "offpeak", "off_peak":
		return triptable.PeriodOffPeak, nil
	default:
		return "", apperrors.InvalidQuery("period must be Peak or Off-Peak, got %q", raw)
	}
}

func parseFloat(key, raw string) (*float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.InvalidQuery("%s must be a number, got %q", key, raw)
	}
	return &v, nil
}

func parseInt(key, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidQuery("%s must be an integer, got %q", key, raw)
	}
	return v, nil
}

func parseTime(key, raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.InvalidQuery("%s must be RFC3339 or YYYY-MM-DD, got %q", key, raw)
}
