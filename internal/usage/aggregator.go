package usage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nyctaxi/trip-analytics/pkg/kafka"
)

// Stats is the aggregated usage report served over HTTP.
type Stats struct {
	TotalInvocations int64            `json:"total_invocations"`
	ByTool           map[string]int64 `json:"by_tool"`
	ByRoute          map[string]int64 `json:"by_route"`
	ZeroResultCount  int64            `json:"zero_result_count"`
	InvalidCount     int64            `json:"invalid_count"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	TopTexts         []TextCount      `json:"top_texts"`
	CallsPerMinute   float64          `json:"calls_per_minute"`
}

// TextCount pairs a free-text query with how often it was asked.
type TextCount struct {
	Text  string `json:"text"`
	Count int64  `json:"count"`
}

// Aggregator consumes invocation events and keeps running usage statistics.
type Aggregator struct {
	mu          sync.RWMutex
	total       atomic.Int64
	zeroResults atomic.Int64
	invalid     atomic.Int64
	byTool      map[string]int64
	byRoute     map[string]int64
	latencies   []int64
	textCounts  map[string]int64
	startTime   time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator. Feed it by wiring HandleEvent
// into a consumer and calling Start.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byTool:     make(map[string]int64),
		byRoute:    make(map[string]int64),
		latencies:  make([]int64, 0, 10000),
		textCounts: make(map[string]int64),
		startTime:  time.Now(),
		logger:     slog.Default().With("component", "usage-aggregator"),
	}
}

// Start enters the consume loop until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context, consumer *kafka.Consumer) error {
	a.logger.Info("usage aggregator starting")
	return consumer.Start(ctx)
}

// HandleEvent returns the Kafka message handler feeding agg.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[InvocationEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode usage event", "error", err)
			return nil
		}
		agg.record(event)
		return nil
	}
}

func (a *Aggregator) record(event InvocationEvent) {
	a.total.Add(1)
	if event.Outcome == OutcomeEmpty || (event.Outcome == OutcomeOK && event.Hits == 0) {
		a.zeroResults.Add(1)
	}
	if event.Outcome == OutcomeInvalid {
		a.invalid.Add(1)
	}

	a.mu.Lock()
	a.byTool[event.Tool]++
	if event.Route != "" {
		a.byRoute[event.Route]++
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	if event.Text != "" {
		a.textCounts[event.Text]++
	}
	a.mu.Unlock()
}

// Snapshot returns the current aggregated statistics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalInvocations: a.total.Load(),
		ZeroResultCount:  a.zeroResults.Load(),
		InvalidCount:     a.invalid.Load(),
		ByTool:           make(map[string]int64, len(a.byTool)),
		ByRoute:          make(map[string]int64, len(a.byRoute)),
	}
	for tool, n := range a.byTool {
		stats.ByTool[tool] = n
	}
	for route, n := range a.byRoute {
		stats.ByRoute[route] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = latencyPercentile(sorted, 50)
		stats.P95LatencyMs = latencyPercentile(sorted, 95)
	}
	stats.TopTexts = topN(a.textCounts, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.CallsPerMinute = float64(stats.TotalInvocations) / elapsed
	}
	return stats
}

func latencyPercentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []TextCount {
	result := make([]TextCount, 0, len(counts))
	for text, count := range counts {
		result = append(result, TextCount{Text: text, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Text < result[j].Text
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
