package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"hostel/internal/amqp"
	"hostel/internal/core"
	"hostel/internal/store"
	"hostel/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var fixedNow = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

func newService(t *testing.T, snap core.Snapshot) (*PropertyService, *memory.Store, *recordingPublisher) {
	t.Helper()
	st := memory.NewFromSnapshot(snap)
	pub := &recordingPublisher{}
	n := 0
	svc := NewPropertyService(st,
		WithPublisher(pub),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	return svc, st, pub
}

func TestAddRoom(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t, core.Snapshot{})

	room, err := svc.AddRoom(ctx, core.Room{RoomNumber: " 101 ", Floor: 1, TotalBeds: 4})
	if err != nil {
		t.Fatalf("add room: %v", err)
	}
	if room.ID != "id-1" || room.RoomNumber != "101" {
		t.Fatalf("unexpected room %+v", room)
	}

	_, err = svc.AddRoom(ctx, core.Room{RoomNumber: "101", TotalBeds: 2})
	if !errors.Is(err, core.ErrDuplicateRoomNumber) || !core.IsRejection(err) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	rooms, _ := svc.Rooms(ctx)
	if len(rooms) != 1 {
		t.Fatalf("rejected add must not change state, got %d rooms", len(rooms))
	}

	_, err = svc.AddRoom(ctx, core.Room{RoomNumber: "102", TotalBeds: 1, OccupiedBeds: 2})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := pub.types(); len(got) != 1 || got[0] != amqp.RoomCreated {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestUpdateRoomDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, core.Snapshot{Rooms: []core.Room{
		{ID: "r1", RoomNumber: "101", TotalBeds: 2},
		{ID: "r2", RoomNumber: "102", TotalBeds: 2},
	}})

	if err := svc.UpdateRoom(ctx, core.Room{ID: "r2", RoomNumber: "101", TotalBeds: 2}); !errors.Is(err, core.ErrDuplicateRoomNumber) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if err := svc.UpdateRoom(ctx, core.Room{ID: "r1", RoomNumber: "101", TotalBeds: 6}); err != nil {
		t.Fatalf("keeping own number should be allowed: %v", err)
	}
}

func TestDeleteRoom(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newService(t, core.Snapshot{Rooms: []core.Room{
		{ID: "r1", RoomNumber: "101", TotalBeds: 2, OccupiedBeds: 1},
		{ID: "r2", RoomNumber: "102", TotalBeds: 2},
	}})

	err := svc.DeleteRoom(ctx, "r1")
	if !errors.Is(err, core.ErrRoomOccupied) {
		t.Fatalf("expected occupied rejection, got %v", err)
	}
	if err := svc.DeleteRoom(ctx, "r2"); err != nil {
		t.Fatalf("delete empty room: %v", err)
	}
	if err := svc.DeleteRoom(ctx, "ghost"); err != nil {
		t.Fatalf("unknown room should be a no-op: %v", err)
	}
	rooms, _ := st.ListRooms(ctx)
	if len(rooms) != 1 || rooms[0].ID != "r1" {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
}

func TestAddTenantOverCapacity(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newService(t, core.Snapshot{Rooms: []core.Room{{ID: "r1", RoomNumber: "101", TotalBeds: 2, OccupiedBeds: 2}}})

	if _, err := svc.AddTenant(ctx, tenant("", core.NewDate(2024, 1, 1))); err != nil {
		t.Fatalf("add tenant: %v", err)
	}
	rooms, _ := st.ListRooms(ctx)
	if rooms[0].OccupiedBeds != 3 {
		t.Fatalf("expected occupancy 3, got %d", rooms[0].OccupiedBeds)
	}
}

func TestSetPaymentStatus(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newService(t, core.Snapshot{Tenants: []core.Tenant{tenant("t1", core.NewDate(2024, 1, 1))}})

	p, err := svc.SetPaymentStatus(ctx, "t1", "2024-03", core.StatusPaid)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if p.Status != core.StatusPaid || p.PaidDate.String() != "2024-03-10" {
		t.Fatalf("unexpected payment %+v", p)
	}
	stored, err := st.FindPayment(ctx, "t1-2024-03")
	if err != nil || stored.Status != core.StatusPaid {
		t.Fatalf("payment not stored: %+v err=%v", stored, err)
	}

	p, err = svc.SetPaymentStatus(ctx, "t1", "2024-03", core.StatusPartiallyPaid)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if !p.PaidDate.IsZero() {
		t.Fatalf("non-paid status must clear paid date, got %s", p.PaidDate)
	}

	want := []amqp.EventType{amqp.PaymentCreated, amqp.PaymentUpdated, amqp.PaymentUpdated}
	if got := pub.types(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
}

func TestEditsBlockedBeforeJoin(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newService(t, core.Snapshot{Tenants: []core.Tenant{tenant("t1", core.NewDate(2024, 1, 1))}})

	if _, err := svc.SetPaymentStatus(ctx, "t1", "2023-12", core.StatusPaid); !errors.Is(err, core.ErrNotJoinedYet) {
		t.Fatalf("expected not-joined rejection, got %v", err)
	}
	if _, err := svc.SetPaymentRemarks(ctx, "t1", "2023-12", "early"); !errors.Is(err, core.ErrNotJoinedYet) {
		t.Fatalf("expected not-joined rejection, got %v", err)
	}
	payments, _ := st.ListPayments(ctx)
	if len(payments) != 0 {
		t.Fatalf("rejected edits must not persist, got %v", payments)
	}
}

func TestSetPaymentRemarks(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, core.Snapshot{Tenants: []core.Tenant{tenant("t1", core.NewDate(2024, 1, 1))}})

	p, err := svc.SetPaymentRemarks(ctx, "t1", "2024-02", "  paid by transfer ")
	if err != nil {
		t.Fatalf("set remarks: %v", err)
	}
	if p.Remarks != "paid by transfer" || p.Status != core.StatusUnpaid {
		t.Fatalf("unexpected payment %+v", p)
	}
}

func TestUnknownTenant(t *testing.T) {
	svc, _, _ := newService(t, core.Snapshot{})
	_, err := svc.ResolvePayment(context.Background(), "ghost", "2024-03")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePaymentDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, core.Snapshot{Tenants: []core.Tenant{tenant("t1", core.NewDate(2024, 1, 1))}})

	p, err := svc.CreatePayment(ctx, core.Payment{TenantID: "t1", Month: "2024-04"})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if p.Amount != core.Units(500) || p.Status != core.StatusUnpaid || p.DueDate.String() != "2024-04-01" || p.ID == "" {
		t.Fatalf("unexpected defaults %+v", p)
	}

	if _, err := svc.CreatePayment(ctx, core.Payment{TenantID: "t1", Month: "April"}); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newService(t, core.Snapshot{})
	pub.err = errors.New("broker down")

	if _, err := svc.AddRoom(ctx, core.Room{RoomNumber: "101", TotalBeds: 1}); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
	rooms, _ := st.ListRooms(ctx)
	if len(rooms) != 1 {
		t.Fatalf("room should be stored")
	}
}

func TestOnChangeListeners(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, core.Snapshot{})
	calls := 0
	svc.OnChange(func() { calls++ })

	svc.AddRoom(ctx, core.Room{RoomNumber: "101", TotalBeds: 1})
	svc.AddRoom(ctx, core.Room{RoomNumber: "101", TotalBeds: 1})
	if calls != 1 {
		t.Fatalf("listener should fire for successful mutations only, got %d", calls)
	}
}

type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingPublisher) Publish(ctx context.Context, _ *amqp.Event) error {
	block := false
	p.once.Do(func() { block = true })
	if block {
		close(p.entered)
		select {
		case <-p.release:
		case <-ctx.Done():
		}
	}
	return nil
}

func TestSlowPublishDoesNotBlockMutations(t *testing.T) {
	ctx := context.Background()
	pub := &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewPropertyService(memory.New(), WithPublisher(pub))
	defer close(pub.release)

	go svc.AddRoom(ctx, core.Room{RoomNumber: "101", TotalBeds: 1})
	<-pub.entered

	done := make(chan error, 1)
	go func() {
		_, err := svc.AddRoom(ctx, core.Room{RoomNumber: "102", TotalBeds: 1})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("AddRoom() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("mutation blocked behind an in-flight publish")
	}
	rooms, _ := svc.Rooms(ctx)
	if len(rooms) != 2 {
		t.Fatalf("rooms = %d, want 2", len(rooms))
	}
}
