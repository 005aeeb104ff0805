// Package adapters decorates record stores and event publishers with
// instrumentation.
package adapters

import (
	"context"
	"errors"
	"time"

	"hostel/internal/core"
	"hostel/internal/log"
	"hostel/internal/metrics"
	"hostel/internal/store"
)

// InstrumentedStore records call counts and latency for every store
// operation and logs failures. It satisfies store.Store.
type InstrumentedStore struct {
	next    store.Store
	metrics *metrics.Metrics
	logger  *log.Logger
}

var _ store.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps next. A nil logger discards failures.
func NewInstrumentedStore(next store.Store, m *metrics.Metrics, logger *log.Logger) *InstrumentedStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &InstrumentedStore{next: next, metrics: m, logger: logger.WithComponent(log.ComponentStorage)}
}

// Unwrap returns the decorated store.
func (s *InstrumentedStore) Unwrap() store.Store { return s.next }

func (s *InstrumentedStore) observe(ctx context.Context, op string, start time.Time, err error) {
	outcome := metrics.Outcome(err)
	if errors.Is(err, store.ErrNotFound) {
		outcome = "not_found"
	}
	s.metrics.StoreOperations.WithLabelValues(op, outcome).Inc()
	s.metrics.StoreDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
	if outcome == "error" {
		s.logger.ErrorContext(ctx, "Store operation failed", log.FieldOperation, op, log.FieldError, err)
	}
}

func (s *InstrumentedStore) ListRooms(ctx context.Context) ([]core.Room, error) {
	start := time.Now()
	rooms, err := s.next.ListRooms(ctx)
	s.observe(ctx, "list_rooms", start, err)
	return rooms, err
}

func (s *InstrumentedStore) AddRoom(ctx context.Context, r core.Room) error {
	start := time.Now()
	err := s.next.AddRoom(ctx, r)
	s.observe(ctx, "add_room", start, err)
	return err
}

func (s *InstrumentedStore) UpdateRoom(ctx context.Context, r core.Room) error {
	start := time.Now()
	err := s.next.UpdateRoom(ctx, r)
	s.observe(ctx, "update_room", start, err)
	return err
}

func (s *InstrumentedStore) DeleteRoom(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.DeleteRoom(ctx, id)
	s.observe(ctx, "delete_room", start, err)
	return err
}

func (s *InstrumentedStore) ListTenants(ctx context.Context) ([]core.Tenant, error) {
	start := time.Now()
	tenants, err := s.next.ListTenants(ctx)
	s.observe(ctx, "list_tenants", start, err)
	return tenants, err
}

func (s *InstrumentedStore) FindTenant(ctx context.Context, id string) (core.Tenant, error) {
	start := time.Now()
	t, err := s.next.FindTenant(ctx, id)
	s.observe(ctx, "find_tenant", start, err)
	return t, err
}

func (s *InstrumentedStore) AddTenant(ctx context.Context, t core.Tenant) error {
	start := time.Now()
	err := s.next.AddTenant(ctx, t)
	s.observe(ctx, "add_tenant", start, err)
	return err
}

func (s *InstrumentedStore) UpdateTenant(ctx context.Context, t core.Tenant) error {
	start := time.Now()
	err := s.next.UpdateTenant(ctx, t)
	s.observe(ctx, "update_tenant", start, err)
	return err
}

func (s *InstrumentedStore) DeleteTenant(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.DeleteTenant(ctx, id)
	s.observe(ctx, "delete_tenant", start, err)
	return err
}

func (s *InstrumentedStore) ListPayments(ctx context.Context) ([]core.Payment, error) {
	start := time.Now()
	payments, err := s.next.ListPayments(ctx)
	s.observe(ctx, "list_payments", start, err)
	return payments, err
}

func (s *InstrumentedStore) FindPayment(ctx context.Context, id string) (core.Payment, error) {
	start := time.Now()
	p, err := s.next.FindPayment(ctx, id)
	s.observe(ctx, "find_payment", start, err)
	return p, err
}

func (s *InstrumentedStore) AddPayment(ctx context.Context, p core.Payment) error {
	start := time.Now()
	err := s.next.AddPayment(ctx, p)
	s.observe(ctx, "add_payment", start, err)
	return err
}

func (s *InstrumentedStore) UpdatePayment(ctx context.Context, p core.Payment) error {
	start := time.Now()
	err := s.next.UpdatePayment(ctx, p)
	s.observe(ctx, "update_payment", start, err)
	return err
}

func (s *InstrumentedStore) DeletePayment(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.DeletePayment(ctx, id)
	s.observe(ctx, "delete_payment", start, err)
	return err
}

func (s *InstrumentedStore) Snapshot(ctx context.Context) (core.Snapshot, error) {
	start := time.Now()
	snap, err := s.next.Snapshot(ctx)
	s.observe(ctx, "snapshot", start, err)
	return snap, err
}
