package engine

import (
	"math"
	"sort"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
)

// ValueFn extracts the numeric value a statistic is computed over.
type ValueFn func(*triptable.Trip) float64

// Summary holds the aggregate statistics for one value over one TripSet.
// Count is always present; every other statistic is nil when the set is
// empty, because "no data" is a value here, not a failure.
type Summary struct {
	Count       int                  `json:"count"`
	Sum         *float64             `json:"sum,omitempty"`
	Mean        *float64             `json:"mean,omitempty"`
	Min         *float64             `json:"min,omitempty"`
	Max         *float64             `json:"max,omitempty"`
	Percentiles map[float64]*float64 `json:"percentiles,omitempty"`
}

// Summarize computes count, sum, mean, min, max, and the requested
// percentiles of valFn over set. An empty set yields Count 0 and nil for
// everything else.
func Summarize(set TripSet, valFn ValueFn, percentiles ...float64) Summary {
	s := Summary{Count: len(set)}
	if len(set) == 0 {
		return s
	}

	values := make([]float64, len(set))
	sum := 0.0
	for i, t := range set {
		values[i] = valFn(t)
		sum += values[i]
	}
	sort.Float64s(values)

	mean := sum / float64(len(values))
	s.Sum = round2p(sum)
	s.Mean = round2p(mean)
	s.Min = round2p(values[0])
	s.Max = round2p(values[len(values)-1])

	if len(percentiles) > 0 {
		s.Percentiles = make(map[float64]*float64, len(percentiles))
		for _, p := range percentiles {
			s.Percentiles[p] = round2p(Percentile(values, p))
		}
	}
	return s
}

// Mean returns the mean of valFn over set, or nil for an empty set.
func Mean(set TripSet, valFn ValueFn) *float64 {
	if len(set) == 0 {
		return nil
	}
	sum := 0.0
	for _, t := range set {
		sum += valFn(t)
	}
	return round2p(sum / float64(len(set)))
}

// Percentile returns the p-th percentile (0-100) of a sorted sample using
// linear interpolation between the closest order statistics, so
// Percentile(x, 50) is the conventional median for both odd- and even-sized
// samples. values must be sorted ascending.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	idx := p / 100 * float64(len(values)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return values[lower]
	}
	weight := idx - float64(lower)
	return values[lower]*(1-weight) + values[upper]*weight
}

// Round2 rounds to two decimal places, matching how fares are reported.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round2p(v float64) *float64 {
	r := Round2(v)
	return &r
}

// Fare, Tip, Total, Distance, and DurationMinutes are the standard value
// extractors used by the analytic tools.
func Fare(t *triptable.Trip) float64  { return t.Fare }
func Tip(t *triptable.Trip) float64   { return t.Tip }
func Total(t *triptable.Trip) float64 { return t.Total }

func Distance(t *triptable.Trip) float64 { return t.Distance }

func DurationMinutes(t *triptable.Trip) float64 { return t.Duration.Minutes() }
