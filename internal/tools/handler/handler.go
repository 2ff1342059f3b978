// Package handler exposes the tool surface over HTTP: the generic trip query
// and the five analytic tools, each as one GET endpoint with flat query
// parameters.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/cache"
	"github.com/nyctaxi/trip-analytics/internal/router"
	"github.com/nyctaxi/trip-analytics/internal/tools"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
	"github.com/nyctaxi/trip-analytics/pkg/logger"
)

// Handler adapts the tool surface to HTTP.
type Handler struct {
	tools  *tools.Tools
	cache  *cache.ResultCache
	logger *slog.Logger
}

// New creates the HTTP handler. resultCache may be nil; queries then always
// compute.
func New(t *tools.Tools, resultCache *cache.ResultCache) *Handler {
	return &Handler{
		tools:  t,
		cache:  resultCache,
		logger: slog.Default().With("component", "tools-handler"),
	}
}

// QueryTrips handles the generic trip query. Every query parameter is a
// filter key; unknown keys are rejected with 400.
func (h *Handler) QueryTrips(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	args := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		args[key] = values[0]
	}
	q, err := router.ParseArgs(args)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	var result *router.Result
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, q, func() (*router.Result, error) {
			return h.tools.QueryTrips(ctx, q)
		})
	} else {
		result, err = h.tools.QueryTrips(ctx, q)
	}
	if err != nil {
		h.writeErr(w, err)
		return
	}

	log.Info("query completed",
		"route", result.Provenance,
		"total_hits", result.TotalHits,
		"returned", len(result.Trips),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// AnalyzeTemporal handles the hour/day/period breakdown.
func (h *Handler) AnalyzeTemporal(w http.ResponseWriter, r *http.Request) {
	tt, err := router.ParseTaxiType(r.URL.Query().Get("taxi_type"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	report, err := h.tools.AnalyzeTemporal(r.Context(), tools.TemporalRequest{TaxiType: tt})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// AnalyzeLocations handles the pickup, dropoff, and borough rankings.
func (h *Handler) AnalyzeLocations(w http.ResponseWriter, r *http.Request) {
	var req tools.LocationsRequest
	var err error

	params := r.URL.Query()
	if req.TaxiType, err = router.ParseTaxiType(params.Get("taxi_type")); err != nil {
		h.writeErr(w, err)
		return
	}
	req.Borough = params.Get("borough")
	if raw := params.Get("day"); raw != "" {
		if req.Day, err = router.ParseDay(raw); err != nil {
			h.writeErr(w, err)
			return
		}
	}
	if raw := params.Get("hour"); raw != "" {
		if req.Hour, err = router.ParseHour(raw); err != nil {
			h.writeErr(w, err)
			return
		}
	}
	if raw := params.Get("period"); raw != "" {
		if req.Period, err = router.ParsePeriod(raw); err != nil {
			h.writeErr(w, err)
			return
		}
	}
	if req.From, err = parseTimeParam(params.Get("from"), "from"); err != nil {
		h.writeErr(w, err)
		return
	}
	if req.To, err = parseTimeParam(params.Get("to"), "to"); err != nil {
		h.writeErr(w, err)
		return
	}
	if req.TopN, err = parseIntParam(params.Get("top_n"), "top_n"); err != nil {
		h.writeErr(w, err)
		return
	}

	report, err := h.tools.AnalyzeLocations(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// AnalyzeRoutes handles the origin-destination pair rankings.
func (h *Handler) AnalyzeRoutes(w http.ResponseWriter, r *http.Request) {
	var req tools.RoutesRequest
	var err error

	params := r.URL.Query()
	if req.TaxiType, err = router.ParseTaxiType(params.Get("taxi_type")); err != nil {
		h.writeErr(w, err)
		return
	}
	if req.MinFare, err = parseFloatParam(params.Get("min_fare"), "min_fare"); err != nil {
		h.writeErr(w, err)
		return
	}
	if req.MaxFare, err = parseFloatParam(params.Get("max_fare"), "max_fare"); err != nil {
		h.writeErr(w, err)
		return
	}
	if req.MinDistance, err = parseFloatParam(params.Get("min_distance"), "min_distance"); err != nil {
		h.writeErr(w, err)
		return
	}
	if req.MaxDistance, err = parseFloatParam(params.Get("max_distance"), "max_distance"); err != nil {
		h.writeErr(w, err)
		return
	}
	if req.MinTrips, err = parseIntParam(params.Get("min_trips"), "min_trips"); err != nil {
		h.writeErr(w, err)
		return
	}
	if req.TopN, err = parseIntParam(params.Get("top_n"), "top_n"); err != nil {
		h.writeErr(w, err)
		return
	}

	report, err := h.tools.AnalyzeRoutes(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// AnalyzeFares handles the fare distribution breakdown.
func (h *Handler) AnalyzeFares(w http.ResponseWriter, r *http.Request) {
	var req tools.FaresRequest
	var err error

	params := r.URL.Query()
	if req.TaxiType, err = router.ParseTaxiType(params.Get("taxi_type")); err != nil {
		h.writeErr(w, err)
		return
	}
	if raw := params.Get("period"); raw != "" {
		if req.Period, err = router.ParsePeriod(raw); err != nil {
			h.writeErr(w, err)
			return
		}
	}
	if raw := params.Get("hour"); raw != "" {
		if req.Hour, err = router.ParseHour(raw); err != nil {
			h.writeErr(w, err)
			return
		}
	}

	report, err := h.tools.AnalyzeFares(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// DatasetInfo handles the dataset and index metadata report.
func (h *Handler) DatasetInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.tools.DatasetInfo(r.Context()))
}

// CacheStats reports result-cache hit rates.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidQuery("%s must be a non-negative integer, got %q", name, raw)
	}
	return v, nil
}

func parseFloatParam(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.InvalidQuery("%s must be a number, got %q", name, raw)
	}
	return &v, nil
}

func parseTimeParam(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.InvalidQuery("%s must be RFC3339 or YYYY-MM-DD, got %q", name, raw)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
