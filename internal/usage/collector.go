package usage

import (
	"context"
	"log/slog"

	"github.com/nyctaxi/trip-analytics/pkg/kafka"
)

// Collector buffers invocation events and publishes them to Kafka off the
// query path. Track never blocks: when the buffer is full the event is
// dropped and counted against the log instead.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan InvocationEvent
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector creates a Collector with the given buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan InvocationEvent, bufferSize),
		logger:   slog.Default().With("component", "usage-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the publish loop. It drains buffered events on shutdown.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				if err := c.producer.Publish(ctx, kafka.Event{
					Key:   event.Tool,
					Value: event,
				}); err != nil {
					c.logger.Error("failed to publish usage event", "error", err)
				}
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
}

// Track enqueues one event without blocking.
func (c *Collector) Track(event InvocationEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("usage event dropped (buffer full)")
	}
}

// Close stops the publish loop after the buffer is drained.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			if err := c.producer.Publish(context.Background(), kafka.Event{
				Key:   event.Tool,
				Value: event,
			}); err != nil {
				c.logger.Error("failed to publish remaining event", "error", err)
			}
		default:
			return
		}
	}
}
