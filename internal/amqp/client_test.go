package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hostel/internal/core"
	"hostel/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{70, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)

		client.recordSuccess()

		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("failure count should be reset after success")
		}
		if atomic.LoadInt32(&client.state) != StateClosed {
			t.Error("state should be closed after success")
		}
	})

	t.Run("max failures open circuit", func(t *testing.T) {
		client.recordSuccess()
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("circuit should let a probe through after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open after timeout")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateHalfOpen)
		atomic.StoreInt64(&client.failureCount, 0)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed probe should reopen the circuit")
		}
	})
}

func TestClient_Publish(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	event := NewEvent(PaymentUpdated, "t1-2024-03")

	t.Run("fails fast when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.Publish(context.Background(), event)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.Publish(ctx, event); err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestEvent_JSON(t *testing.T) {
	p := core.Payment{ID: "t1-2024-03", Month: "2024-03"}
	e := NewPaymentEvent(PaymentCreated, p)
	if e.Timestamp.IsZero() || time.Since(e.Timestamp) > time.Second {
		t.Fatalf("timestamp should be recent, got %v", e.Timestamp)
	}

	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := EventFromJSON(body)
	if err != nil {
		t.Fatalf("EventFromJSON() error = %v", err)
	}
	if parsed.Type != PaymentCreated || parsed.EntityID != p.ID || parsed.Month != "2024-03" {
		t.Fatalf("unexpected event %+v", parsed)
	}
	if !parsed.Type.IsPayment() || RoomCreated.IsPayment() {
		t.Fatalf("IsPayment misclassified")
	}
}

func TestEventFromJSON_Invalid(t *testing.T) {
	for _, body := range []string{`{"type": 1}`, `{"type":"payment.created"}`, `nope`} {
		if _, err := EventFromJSON([]byte(body)); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestDispatch(t *testing.T) {
	good, _ := NewEvent(TenantCreated, "t1").ToJSON()
	logger := log.Discard()

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       fakeAck
	}{
		{"handled", good, nil, fakeAck{acked: true}},
		{"handler fails", good, errors.New("sheets down"), fakeAck{nacked: true, requeued: true}},
		{"undecodable", []byte("garbage"), nil, fakeAck{nacked: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got fakeAck
			dispatch(context.Background(), logger, tt.body, &got, func(context.Context, *Event) error {
				return tt.handlerErr
			})
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestErrCircuitOpenMessage(t *testing.T) {
	if !strings.Contains(ErrCircuitOpen.Error(), "circuit breaker is open") {
		t.Fatalf("unexpected message %q", ErrCircuitOpen)
	}
}
