// Package memory is the in-process record store. State lives for the
// lifetime of the process only.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"hostel/internal/core"
	"hostel/internal/store"
)

// Store keeps every collection in memory behind one lock.
type Store struct {
	mu       sync.Mutex
	rooms    []core.Room
	tenants  []core.Tenant
	payments []core.Payment
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// NewFromSnapshot loads records verbatim. Occupancy is taken as given and is
// not recomputed from the tenants.
func NewFromSnapshot(s core.Snapshot) *Store {
	return &Store{
		rooms:    slices.Clone(s.Rooms),
		tenants:  slices.Clone(s.Tenants),
		payments: slices.Clone(s.Payments),
	}
}

// NewFromFile seeds the store from a JSON snapshot. A missing file yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var snap core.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return NewFromSnapshot(snap), nil
}

// ListRooms returns a copy of the rooms.
func (s *Store) ListRooms(_ context.Context) ([]core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rooms), nil
}

// AddRoom appends r.
func (s *Store) AddRoom(_ context.Context, r core.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, r)
	return nil
}

// UpdateRoom replaces the room with r.ID.
func (s *Store) UpdateRoom(_ context.Context, r core.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replace(s.rooms, r, func(x core.Room) string { return x.ID })
	return nil
}

// DeleteRoom removes the room with id.
func (s *Store) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = slices.DeleteFunc(s.rooms, func(x core.Room) bool { return x.ID == id })
	return nil
}

// ListTenants returns a copy of the tenants.
func (s *Store) ListTenants(_ context.Context) ([]core.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tenants), nil
}

// FindTenant returns the tenant with id or store.ErrNotFound.
func (s *Store) FindTenant(_ context.Context, id string) (core.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.tenants, id, func(x core.Tenant) string { return x.ID })
}

// AddTenant appends the tenant and bumps the referenced room's occupancy.
// No capacity check is made.
func (s *Store) AddTenant(_ context.Context, t core.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = append(s.tenants, t)
	for i := range s.rooms {
		if s.rooms[i].ID == t.RoomID {
			s.rooms[i].OccupiedBeds++
		}
	}
	return nil
}

// UpdateTenant replaces the tenant with t.ID.
func (s *Store) UpdateTenant(_ context.Context, t core.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replace(s.tenants, t, func(x core.Tenant) string { return x.ID })
	return nil
}

// DeleteTenant removes the tenant with id.
func (s *Store) DeleteTenant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = slices.DeleteFunc(s.tenants, func(x core.Tenant) bool { return x.ID == id })
	return nil
}

// ListPayments returns a copy of the payments.
func (s *Store) ListPayments(_ context.Context) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.payments), nil
}

// FindPayment returns the payment with id or store.ErrNotFound.
func (s *Store) FindPayment(_ context.Context, id string) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.payments, id, func(x core.Payment) string { return x.ID })
}

// AddPayment appends p.
func (s *Store) AddPayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
	return nil
}

// UpdatePayment replaces the payment with p.ID.
func (s *Store) UpdatePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replace(s.payments, p, func(x core.Payment) string { return x.ID })
	return nil
}

// DeletePayment removes the payment with id.
func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = slices.DeleteFunc(s.payments, func(x core.Payment) bool { return x.ID == id })
	return nil
}

// Snapshot copies all three collections.
func (s *Store) Snapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Snapshot{
		Rooms:    slices.Clone(s.rooms),
		Tenants:  slices.Clone(s.tenants),
		Payments: slices.Clone(s.payments),
	}, nil
}

// replace overwrites every element sharing v's ID.
func replace[T any](items []T, v T, id func(T) string) {
	want := id(v)
	for i := range items {
		if id(items[i]) == want {
			items[i] = v
		}
	}
}

func find[T any](items []T, want string, id func(T) string) (T, error) {
	for _, v := range items {
		if id(v) == want {
			return v, nil
		}
	}
	var zero T
	return zero, store.ErrNotFound
}
