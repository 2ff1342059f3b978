package usage

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func feed(t *testing.T, agg *Aggregator, events ...InvocationEvent) {
	t.Helper()
	handler := HandleEvent(agg)
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := handler(context.Background(), nil, data); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
}

func TestAggregatorSnapshot(t *testing.T) {
	agg := NewAggregator()
	feed(t, agg,
		InvocationEvent{Tool: "query_trips", Route: "lexical", Text: "jfk", Hits: 12, Outcome: OutcomeOK, LatencyMs: 10},
		InvocationEvent{Tool: "query_trips", Route: "numeric", Hits: 0, Outcome: OutcomeOK, LatencyMs: 20},
		InvocationEvent{Tool: "analyze_fares", Outcome: OutcomeEmpty, LatencyMs: 30},
		InvocationEvent{Tool: "query_trips", Outcome: OutcomeInvalid},
	)

	stats := agg.Snapshot()
	if stats.TotalInvocations != 4 {
		t.Errorf("TotalInvocations = %d, want 4", stats.TotalInvocations)
	}
	if stats.ByTool["query_trips"] != 3 || stats.ByTool["analyze_fares"] != 1 {
		t.Errorf("ByTool = %v", stats.ByTool)
	}
	if stats.ByRoute["lexical"] != 1 || stats.ByRoute["numeric"] != 1 {
		t.Errorf("ByRoute = %v", stats.ByRoute)
	}
	if stats.ZeroResultCount != 2 {
		t.Errorf("ZeroResultCount = %d, want 2", stats.ZeroResultCount)
	}
	if stats.InvalidCount != 1 {
		t.Errorf("InvalidCount = %d, want 1", stats.InvalidCount)
	}
	if len(stats.TopTexts) != 1 || stats.TopTexts[0].Text != "jfk" {
		t.Errorf("TopTexts = %v", stats.TopTexts)
	}
}

func TestAggregatorIgnoresMalformedEvents(t *testing.T) {
	agg := NewAggregator()
	handler := HandleEvent(agg)
	if err := handler(context.Background(), nil, []byte("{not json")); err != nil {
		t.Fatalf("malformed events must be skipped, not retried: %v", err)
	}
	if got := agg.Snapshot().TotalInvocations; got != 0 {
		t.Errorf("TotalInvocations = %d, want 0", got)
	}
}

func TestCollectorTrackNeverBlocks(t *testing.T) {
	// No producer and no running drain loop: Track must still return.
	c := NewCollector(nil, 1)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			c.Track(InvocationEvent{Tool: "query_trips", Timestamp: time.Now()})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Track blocked on a full buffer")
	}
}
