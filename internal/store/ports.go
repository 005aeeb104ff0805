// Package store defines the record store shared by every backend.
//
// Update and delete of an unknown ID are silent no-ops. AddTenant increments
// the occupied beds of the referenced room; deleting a tenant leaves room
// occupancy untouched.
package store

import (
	"context"
	"errors"

	"hostel/internal/core"
)

var ErrNotFound = errors.New("record not found")

type (
	RoomStore interface {
		ListRooms(ctx context.Context) ([]core.Room, error)
		AddRoom(ctx context.Context, r core.Room) error
		UpdateRoom(ctx context.Context, r core.Room) error
		DeleteRoom(ctx context.Context, id string) error
	}

	TenantStore interface {
		ListTenants(ctx context.Context) ([]core.Tenant, error)
		FindTenant(ctx context.Context, id string) (core.Tenant, error)
		AddTenant(ctx context.Context, t core.Tenant) error
		UpdateTenant(ctx context.Context, t core.Tenant) error
		DeleteTenant(ctx context.Context, id string) error
	}

	PaymentStore interface {
		ListPayments(ctx context.Context) ([]core.Payment, error)
		FindPayment(ctx context.Context, id string) (core.Payment, error)
		AddPayment(ctx context.Context, p core.Payment) error
		UpdatePayment(ctx context.Context, p core.Payment) error
		DeletePayment(ctx context.Context, id string) error
	}

	// Store is the full record store.
	Store interface {
		RoomStore
		TenantStore
		PaymentStore
		Snapshot(ctx context.Context) (core.Snapshot, error)
	}
)
