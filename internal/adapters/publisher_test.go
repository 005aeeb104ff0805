package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"hostel/internal/amqp"
	"hostel/internal/metrics"
)

type publisherFunc func(ctx context.Context, e *amqp.Event) error

func (f publisherFunc) Publish(ctx context.Context, e *amqp.Event) error { return f(ctx, e) }

func TestInstrumentedPublisher(t *testing.T) {
	m := metrics.New()
	broken := errors.New("channel closed")
	fail := false
	p := NewInstrumentedPublisher(publisherFunc(func(context.Context, *amqp.Event) error {
		if fail {
			return broken
		}
		return nil
	}), m)

	ctx := context.Background()
	assert.NoError(t, p.Publish(ctx, amqp.NewEvent(amqp.PaymentCreated, "p1")))
	fail = true
	assert.ErrorIs(t, p.Publish(ctx, amqp.NewEvent(amqp.PaymentCreated, "p2")), broken)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("payment.created", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("payment.created", "error")))
}
