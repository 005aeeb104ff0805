package adapters

import (
	"context"

	"hostel/internal/amqp"
	"hostel/internal/metrics"
)

// Publisher sends change events.
type Publisher interface {
	Publish(ctx context.Context, e *amqp.Event) error
}

// InstrumentedPublisher counts published events by type and outcome. Errors
// are returned unchanged for the caller to log.
type InstrumentedPublisher struct {
	next    Publisher
	metrics *metrics.Metrics
}

// NewInstrumentedPublisher wraps next.
func NewInstrumentedPublisher(next Publisher, m *metrics.Metrics) *InstrumentedPublisher {
	return &InstrumentedPublisher{next: next, metrics: m}
}

func (p *InstrumentedPublisher) Publish(ctx context.Context, e *amqp.Event) error {
	err := p.next.Publish(ctx, e)
	p.metrics.EventsPublished.WithLabelValues(string(e.Type), metrics.Outcome(err)).Inc()
	return err
}
