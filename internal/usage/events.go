// Package usage tracks how the analytic tools are used: every invocation is
// published to Kafka by a buffered collector, and an aggregator consumes the
// topic to serve usage statistics.
package usage

import "time"

// InvocationEvent records one tool call.
type InvocationEvent struct {
	Tool      string    `json:"tool"`
	Route     string    `json:"route,omitempty"`
	Text      string    `json:"text,omitempty"`
	Hits      int       `json:"hits"`
	Outcome   string    `json:"outcome"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Outcome labels for InvocationEvent.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)
