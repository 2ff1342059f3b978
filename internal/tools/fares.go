package tools

import (
	"context"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/engine"
	"github.com/nyctaxi/trip-analytics/internal/triptable"
	"github.com/nyctaxi/trip-analytics/internal/usage"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

// Percentile points reported for every fare distribution.
var farePercentiles = []float64{25, 50, 75, 90}

// FaresRequest narrows the fare analysis.
type FaresRequest struct {
	TaxiType triptable.TaxiType
	Period   triptable.Period
	Hour     *int
}

// FareStats is the fare breakdown for one trip population. The Fare summary
// is computed over the (0, 200] sanity band to keep data-entry outliers from
// skewing the distribution; TripCount and the tip and total summaries cover
// the whole population.
type FareStats struct {
	TripCount int            `json:"trip_count"`
	Fare      engine.Summary `json:"fare"`
	Tip       engine.Summary `json:"tip"`
	Total     engine.Summary `json:"total"`
}

// FareReport is the result of AnalyzeFares.
type FareReport struct {
	Overall FareStats            `json:"overall"`
	ByType  map[string]FareStats `json:"by_type"`
}

// AnalyzeFares computes fare, tip, and total distributions overall and per
// fleet, with the 25th, 50th, 75th, and 90th percentiles.
func (t *Tools) AnalyzeFares(ctx context.Context, req FaresRequest) (*FareReport, error) {
	start := time.Now()
	if req.Hour != nil && (*req.Hour < 0 || *req.Hour > 23) {
		err := apperrors.InvalidQuery("hour must be between 0 and 23, got %d", *req.Hour)
		t.observe(ctx, "analyze_fares", start, usage.InvocationEvent{Outcome: usage.OutcomeInvalid})
		return nil, err
	}

	set := engine.Filter(t.full, engine.Predicates{
		TaxiType: req.TaxiType,
		Period:   req.Period,
		Hour:     req.Hour,
	})

	report := &FareReport{
		Overall: fareStats(set),
		ByType:  make(map[string]FareStats, 2),
	}
	for _, g := range engine.GroupBy(set, func(tr *triptable.Trip) triptable.TaxiType { return tr.Type }) {
		report.ByType[string(g.Key)] = fareStats(g.Set)
	}

	t.observe(ctx, "analyze_fares", start, usage.InvocationEvent{
		Hits:    report.Overall.TripCount,
		Outcome: emptyOrOK(report.Overall.TripCount),
	})
	return report, nil
}

func fareStats(set engine.TripSet) FareStats {
	banded := make(engine.TripSet, 0, len(set))
	for _, tr := range set {
		if tr.Fare > fareBandMin && tr.Fare <= fareBandMax {
			banded = append(banded, tr)
		}
	}
	return FareStats{
		TripCount: len(set),
		Fare:      engine.Summarize(banded, engine.Fare, farePercentiles...),
		Tip:       engine.Summarize(set, engine.Tip, farePercentiles...),
		Total:     engine.Summarize(set, engine.Total, farePercentiles...),
	}
}
