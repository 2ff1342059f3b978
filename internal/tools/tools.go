// Package tools implements the fixed tool surface: the generic trip query
// (through the router) and the five canned analytic pipelines, which always
// run against the full table for statistical fidelity.
package tools

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/engine"
	"github.com/nyctaxi/trip-analytics/internal/lexical"
	"github.com/nyctaxi/trip-analytics/internal/router"
	"github.com/nyctaxi/trip-analytics/internal/triptable"
	"github.com/nyctaxi/trip-analytics/internal/usage"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
	"github.com/nyctaxi/trip-analytics/pkg/logger"
	"github.com/nyctaxi/trip-analytics/pkg/metrics"
)

// Fare statistics ignore fares outside this sanity band; counts are not
// affected.
const (
	fareBandMin = 0.0
	fareBandMax = 200.0
)

// Tools bundles the two backends behind the six operations. All state is
// read-only after construction, so Tools is safe for concurrent use.
type Tools struct {
	table       *triptable.Table
	full        engine.TripSet
	index       *lexical.Index
	router      *router.Router
	defaultTopN int
	metrics     *metrics.Metrics
	collector   *usage.Collector
	logger      *slog.Logger
}

// New wires the tool surface. index and collector may be nil; m may be nil
// in tests.
func New(table *triptable.Table, index *lexical.Index, rtr *router.Router, defaultTopN int, m *metrics.Metrics, collector *usage.Collector) *Tools {
	if defaultTopN <= 0 {
		defaultTopN = 10
	}
	return &Tools{
		table:       table,
		full:        engine.FromTable(table),
		index:       index,
		router:      rtr,
		defaultTopN: defaultTopN,
		metrics:     m,
		collector:   collector,
		logger:      slog.Default().With("component", "tools"),
	}
}

// QueryTrips is the generic search tool: the router decides which backend(s)
// answer and the result reports its provenance.
func (t *Tools) QueryTrips(ctx context.Context, q router.Query) (*router.Result, error) {
	start := time.Now()
	result, err := t.router.Execute(ctx, q)
	if err != nil {
		t.observe(ctx, "query_trips", start, usage.InvocationEvent{
			Text:    q.Text,
			Outcome: outcomeOf(err),
		})
		return nil, err
	}
	t.observe(ctx, "query_trips", start, usage.InvocationEvent{
		Route:   string(result.Provenance),
		Text:    q.Text,
		Hits:    result.TotalHits,
		Outcome: usage.OutcomeOK,
	})
	return result, nil
}

// fleetSet filters the full table to one fleet, or returns everything when
// tt is empty.
func (t *Tools) fleetSet(tt triptable.TaxiType) engine.TripSet {
	if tt == "" {
		return t.full
	}
	return engine.Filter(t.full, engine.Predicates{TaxiType: tt})
}

// observe records metrics and the usage event for one tool call.
func (t *Tools) observe(ctx context.Context, tool string, start time.Time, event usage.InvocationEvent) {
	elapsed := time.Since(start)
	if t.metrics != nil {
		t.metrics.ToolInvocationsTotal.WithLabelValues(tool, event.Outcome).Inc()
		t.metrics.ToolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
	}
	if t.collector != nil {
		event.Tool = tool
		event.LatencyMs = elapsed.Milliseconds()
		event.Timestamp = time.Now().UTC()
		event.RequestID = logger.RequestIDFromContext(ctx)
		t.collector.Track(event)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return usage.OutcomeOK
	case errors.Is(err, apperrors.ErrInvalidQuery):
		return usage.OutcomeInvalid
	case errors.Is(err, apperrors.ErrInsufficientData):
		return usage.OutcomeEmpty
	default:
		return usage.OutcomeError
	}
}

func emptyOrOK(hits int) string {
	if hits == 0 {
		return usage.OutcomeEmpty
	}
	return usage.OutcomeOK
}
