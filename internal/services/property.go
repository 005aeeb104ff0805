package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostel/internal/amqp"
	"hostel/internal/core"
	"hostel/internal/log"
	"hostel/internal/store"
)

// EventPublisher sends change events. *amqp.Client satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, e *amqp.Event) error
}

// PropertyService orchestrates guarded mutations over the record store and
// announces every change.
type PropertyService struct {
	store    store.Store
	resolver *Resolver
	events   EventPublisher
	logger   *log.Logger
	now      func() time.Time
	newID    func() string

	// serialises check-then-act sequences within this process
	mu        sync.Mutex
	listeners []func()
	// events queued under mu, published by unlock
	pending []*amqp.Event
}

// Option configures a PropertyService.
type Option func(*PropertyService)

// WithPublisher sends change events to p.
func WithPublisher(p EventPublisher) Option {
	return func(s *PropertyService) { s.events = p }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *PropertyService) { s.logger = l.WithComponent(log.ComponentProperty) }
}

// WithClock overrides the clock used to stamp paid dates.
func WithClock(now func() time.Time) Option {
	return func(s *PropertyService) { s.now = now }
}

// WithIDGenerator overrides how new record IDs are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *PropertyService) { s.newID = gen }
}

// NewPropertyService creates a service over st with uuid IDs and no publisher.
func NewPropertyService(st store.Store, opts ...Option) *PropertyService {
	s := &PropertyService{
		store:    st,
		resolver: NewResolver(st),
		logger:   log.Discard(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every successful mutation.
func (s *PropertyService) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a copy of every collection.
func (s *PropertyService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return s.store.Snapshot(ctx)
}

// Rooms lists every room.
func (s *PropertyService) Rooms(ctx context.Context) ([]core.Room, error) {
	return s.store.ListRooms(ctx)
}

// Tenants lists every tenant.
func (s *PropertyService) Tenants(ctx context.Context) ([]core.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// Payments lists every payment.
func (s *PropertyService) Payments(ctx context.Context) ([]core.Payment, error) {
	return s.store.ListPayments(ctx)
}

// AddRoom rejects a room number already in use.
func (s *PropertyService) AddRoom(ctx context.Context, r core.Room) (core.Room, error) {
	r.RoomNumber = strings.TrimSpace(r.RoomNumber)
	if r.ID == "" {
		r.ID = s.newID()
	}
	if err := r.Validate(); err != nil {
		return core.Room{}, err
	}

	s.mu.Lock()
	defer s.unlock(ctx)
	if err := s.checkRoomNumber(ctx, r); err != nil {
		return core.Room{}, err
	}
	if err := s.store.AddRoom(ctx, r); err != nil {
		return core.Room{}, fmt.Errorf("add room: %w", err)
	}
	s.changed(ctx, amqp.NewEvent(amqp.RoomCreated, r.ID))
	s.logger.InfoContext(ctx, "Room created", log.FieldRoomID, r.ID, log.FieldRoomNumber, r.RoomNumber)
	return r, nil
}

// UpdateRoom rejects taking another room's number.
func (s *PropertyService) UpdateRoom(ctx context.Context, r core.Room) error {
	r.RoomNumber = strings.TrimSpace(r.RoomNumber)
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.unlock(ctx)
	if err := s.checkRoomNumber(ctx, r); err != nil {
		return err
	}
	if err := s.store.UpdateRoom(ctx, r); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	s.changed(ctx, amqp.NewEvent(amqp.RoomUpdated, r.ID))
	return nil
}

func (s *PropertyService) checkRoomNumber(ctx context.Context, r core.Room) error {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	for _, other := range rooms {
		if other.ID != r.ID && other.RoomNumber == r.RoomNumber {
			return fmt.Errorf("room %s: %w", r.RoomNumber, core.ErrDuplicateRoomNumber)
		}
	}
	return nil
}

// DeleteRoom rejects rooms with occupied beds. Unknown IDs are a no-op.
func (s *PropertyService) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.unlock(ctx)
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	for _, r := range rooms {
		if r.ID == id && r.OccupiedBeds > 0 {
			return fmt.Errorf("room %s: %w", r.RoomNumber, core.ErrRoomOccupied)
		}
	}
	if err := s.store.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	s.changed(ctx, amqp.NewEvent(amqp.RoomDeleted, id))
	return nil
}

// AddTenant stores the tenant; the store bumps the room's occupancy.
func (s *PropertyService) AddTenant(ctx context.Context, t core.Tenant) (core.Tenant, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.ID == "" {
		t.ID = s.newID()
	}
	if err := t.Validate(); err != nil {
		return core.Tenant{}, err
	}

	s.mu.Lock()
	defer s.unlock(ctx)
	if err := s.store.AddTenant(ctx, t); err != nil {
		return core.Tenant{}, fmt.Errorf("add tenant: %w", err)
	}
	s.changed(ctx, amqp.NewEvent(amqp.TenantCreated, t.ID))
	s.logger.InfoContext(ctx, "Tenant created", log.FieldTenantID, t.ID, log.FieldRoomID, t.RoomID)
	return t, nil
}

// UpdateTenant validates and replaces the tenant.
func (s *PropertyService) UpdateTenant(ctx context.Context, t core.Tenant) error {
	t.Name = strings.TrimSpace(t.Name)
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.unlock(ctx)
	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	s.changed(ctx, amqp.NewEvent(amqp.TenantUpdated, t.ID))
	return nil
}

// DeleteTenant removes the tenant. Room occupancy is left as is.
func (s *PropertyService) DeleteTenant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.unlock(ctx)
	if err := s.store.DeleteTenant(ctx, id); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	s.changed(ctx, amqp.NewEvent(amqp.TenantDeleted, id))
	return nil
}

// CreatePayment records a manual payment. A zero amount defaults to the
// tenant's monthly fee, a missing status to unpaid and a missing due date to
// the first day of the month.
func (s *PropertyService) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.Status == "" {
		p.Status = core.StatusUnpaid
	}
	if p.DueDate.IsZero() && p.Month.Validate() == nil {
		p.DueDate = p.Month.FirstDay()
	}
	if p.Amount.IsZero() && p.TenantID != "" {
		tenant, err := s.store.FindTenant(ctx, p.TenantID)
		switch {
		case err == nil:
			p.Amount = tenant.MonthlyFee
		case !errors.Is(err, store.ErrNotFound):
			return core.Payment{}, fmt.Errorf("find tenant: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}

	s.mu.Lock()
	defer s.unlock(ctx)
	if err := s.store.AddPayment(ctx, p); err != nil {
		return core.Payment{}, fmt.Errorf("add payment: %w", err)
	}
	s.changed(ctx, amqp.NewPaymentEvent(amqp.PaymentCreated, p))
	return p, nil
}

// UpdatePayment validates and replaces the payment.
func (s *PropertyService) UpdatePayment(ctx context.Context, p core.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.unlock(ctx)
	if err := s.store.UpdatePayment(ctx, p); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	s.changed(ctx, amqp.NewPaymentEvent(amqp.PaymentUpdated, p))
	return nil
}

// DeletePayment removes the payment and announces the deletion.
func (s *PropertyService) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.unlock(ctx)
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	s.changed(ctx, amqp.NewEvent(amqp.PaymentDeleted, id))
	return nil
}

// ResolvePayment resolves the tenant's payment for month, persisting a
// default record when the tenant has joined.
func (s *PropertyService) ResolvePayment(ctx context.Context, tenantID string, month core.MonthKey) (Resolution, error) {
	s.mu.Lock()
	defer s.unlock(ctx)
	_, res, err := s.resolve(ctx, tenantID, month)
	return res, err
}

func (s *PropertyService) resolve(ctx context.Context, tenantID string, month core.MonthKey) (core.Tenant, Resolution, error) {
	tenant, err := s.store.FindTenant(ctx, tenantID)
	if err != nil {
		return core.Tenant{}, Resolution{}, fmt.Errorf("tenant %s: %w", tenantID, err)
	}
	res, err := s.resolver.Resolve(ctx, tenant, month)
	if err != nil {
		return core.Tenant{}, Resolution{}, err
	}
	if res.Created {
		s.changed(ctx, amqp.NewPaymentEvent(amqp.PaymentCreated, res.Payment))
		s.logger.InfoContext(ctx, "Default payment created",
			log.NewFields().WithPayment(res.Payment.ID, tenant.ID, month.String(), string(res.Payment.Status), res.Payment.Amount.Cents).ToSlice()...)
	}
	return tenant, res, nil
}

// SetPaymentStatus changes the month's status for a joined tenant. Marking
// paid stamps today's date; any other status clears it.
func (s *PropertyService) SetPaymentStatus(ctx context.Context, tenantID string, month core.MonthKey, status core.PaymentStatus) (core.Payment, error) {
	if err := status.Validate(); err != nil {
		return core.Payment{}, err
	}
	return s.editPayment(ctx, tenantID, month, func(p *core.Payment) {
		p.Status = status
		if status == core.StatusPaid {
			p.PaidDate = core.DateOf(s.now())
		} else {
			p.PaidDate = core.Date{}
		}
	})
}

// SetPaymentRemarks replaces the month's remarks for a joined tenant.
func (s *PropertyService) SetPaymentRemarks(ctx context.Context, tenantID string, month core.MonthKey, remarks string) (core.Payment, error) {
	return s.editPayment(ctx, tenantID, month, func(p *core.Payment) {
		p.Remarks = strings.TrimSpace(remarks)
	})
}

func (s *PropertyService) editPayment(ctx context.Context, tenantID string, month core.MonthKey, edit func(*core.Payment)) (core.Payment, error) {
	if err := month.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.unlock(ctx)

	tenant, err := s.store.FindTenant(ctx, tenantID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("tenant %s: %w", tenantID, err)
	}
	if !tenant.Joined(month) {
		return core.Payment{}, fmt.Errorf("tenant %s in %s: %w", tenant.Name, month, core.ErrNotJoinedYet)
	}
	_, res, err := s.resolve(ctx, tenantID, month)
	if err != nil {
		return core.Payment{}, err
	}

	p := res.Payment
	edit(&p)
	if err := s.store.UpdatePayment(ctx, p); err != nil {
		return core.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	s.changed(ctx, amqp.NewPaymentEvent(amqp.PaymentUpdated, p))
	s.logger.InfoContext(ctx, "Payment updated",
		log.NewFields().WithPayment(p.ID, tenantID, month.String(), string(p.Status), p.Amount.Cents).ToSlice()...)
	return p, nil
}

// changed runs listeners and queues e for publishing once s.mu is released.
// Callers hold s.mu.
func (s *PropertyService) changed(_ context.Context, e *amqp.Event) {
	for _, fn := range s.listeners {
		fn()
	}
	if s.events != nil {
		s.pending = append(s.pending, e)
	}
}

// unlock releases s.mu and then publishes the queued events. Publish
// failures are logged only; the local write already succeeded.
func (s *PropertyService) unlock(ctx context.Context) {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range events {
		if err := s.events.Publish(ctx, e); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish change event",
				log.FieldEventType, e.Type,
				"entity_id", e.EntityID,
				log.FieldError, err)
		}
	}
}
