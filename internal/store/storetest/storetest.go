// Package storetest holds behaviour checks every store.Store backend must
// pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel/internal/core"
	"hostel/internal/store"
)

// Factory returns an empty store for a single subtest.
type Factory func(t *testing.T) store.Store

// Run exercises the shared store contract against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("AddTenantIncrementsRoom", func(t *testing.T) { addTenantIncrementsRoom(t, newStore(t)) })
	t.Run("AddTenantUnknownRoom", func(t *testing.T) { addTenantUnknownRoom(t, newStore(t)) })
	t.Run("NoCapacityCap", func(t *testing.T) { noCapacityCap(t, newStore(t)) })
	t.Run("DeleteTenantKeepsOccupancy", func(t *testing.T) { deleteTenantKeepsOccupancy(t, newStore(t)) })
	t.Run("UnknownIDsAreNoOps", func(t *testing.T) { unknownIDsAreNoOps(t, newStore(t)) })
	t.Run("UpdateReplaces", func(t *testing.T) { updateReplaces(t, newStore(t)) })
	t.Run("PaymentLifecycle", func(t *testing.T) { paymentLifecycle(t, newStore(t)) })
	t.Run("FindUnknown", func(t *testing.T) { findUnknown(t, newStore(t)) })
	t.Run("InsertionOrder", func(t *testing.T) { insertionOrder(t, newStore(t)) })
}

// Room builds an empty room.
func Room(id, number string, total int) core.Room {
	return core.Room{ID: id, Floor: 1, RoomNumber: number, TotalBeds: total}
}

// Tenant builds a tenant in roomID with a 500 monthly fee.
func Tenant(id, roomID string, join core.Date) core.Tenant {
	return core.Tenant{
		ID:         id,
		Name:       "Tenant " + id,
		Phone:      "555-0100",
		Email:      id + "@example.com",
		RoomID:     roomID,
		JoinDate:   join,
		MonthlyFee: core.Units(500),
	}
}

func roomByID(t *testing.T, s store.Store, id string) core.Room {
	t.Helper()
	rooms, err := s.ListRooms(context.Background())
	require.NoError(t, err)
	for _, r := range rooms {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("room %s not found", id)
	return core.Room{}
}

func addTenantIncrementsRoom(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.AddRoom(ctx, Room("r1", "101", 4)))
	require.NoError(t, s.AddTenant(ctx, Tenant("t1", "r1", core.NewDate(2024, 1, 1))))

	assert.Equal(t, 1, roomByID(t, s, "r1").OccupiedBeds)
	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, "t1", tenants[0].ID)
	assert.Equal(t, core.Units(500), tenants[0].MonthlyFee)
	assert.True(t, tenants[0].JoinDate.Equal(core.NewDate(2024, 1, 1).Time))
}

func addTenantUnknownRoom(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.AddRoom(ctx, Room("r1", "101", 4)))
	require.NoError(t, s.AddTenant(ctx, Tenant("t1", "nope", core.NewDate(2024, 1, 1))))

	assert.Equal(t, 0, roomByID(t, s, "r1").OccupiedBeds)
	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 1)
}

func noCapacityCap(t *testing.T, s store.Store) {
	ctx := context.Background()
	r := Room("r1", "101", 2)
	r.OccupiedBeds = 2
	require.NoError(t, s.AddRoom(ctx, r))
	require.NoError(t, s.AddTenant(ctx, Tenant("t1", "r1", core.NewDate(2024, 1, 1))))

	assert.Equal(t, 3, roomByID(t, s, "r1").OccupiedBeds)
}

func deleteTenantKeepsOccupancy(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.AddRoom(ctx, Room("r1", "101", 2)))
	require.NoError(t, s.AddTenant(ctx, Tenant("t1", "r1", core.NewDate(2024, 1, 1))))
	require.NoError(t, s.DeleteTenant(ctx, "t1"))

	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)
	assert.Empty(t, tenants)
	assert.Equal(t, 1, roomByID(t, s, "r1").OccupiedBeds)
}

func unknownIDsAreNoOps(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.AddRoom(ctx, Room("r1", "101", 2)))
	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, s.UpdateRoom(ctx, Room("ghost", "999", 1)))
	require.NoError(t, s.DeleteRoom(ctx, "ghost"))
	require.NoError(t, s.UpdateTenant(ctx, Tenant("ghost", "r1", core.NewDate(2024, 1, 1))))
	require.NoError(t, s.DeleteTenant(ctx, "ghost"))
	require.NoError(t, s.UpdatePayment(ctx, core.Payment{ID: "ghost"}))
	require.NoError(t, s.DeletePayment(ctx, "ghost"))

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func updateReplaces(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.AddRoom(ctx, Room("r1", "101", 2)))
	updated := Room("r1", "101A", 6)
	updated.Floor = 3
	require.NoError(t, s.UpdateRoom(ctx, updated))
	assert.Equal(t, updated, roomByID(t, s, "r1"))

	tn := Tenant("t1", "r1", core.NewDate(2024, 1, 1))
	require.NoError(t, s.AddTenant(ctx, tn))
	tn.Name = "Renamed"
	tn.MonthlyFee = core.Cents(42050)
	require.NoError(t, s.UpdateTenant(ctx, tn))
	got, err := s.FindTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, core.Cents(42050), got.MonthlyFee)
}

func paymentLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := core.Payment{
		ID:       "t1-2024-03",
		TenantID: "t1",
		Amount:   core.Units(500),
		Month:    "2024-03",
		Status:   core.StatusUnpaid,
		DueDate:  core.NewDate(2024, 1, 1),
	}
	require.NoError(t, s.AddPayment(ctx, p))

	p.Status = core.StatusPaid
	p.PaidDate = core.NewDate(2024, 3, 5)
	p.Remarks = "cash"
	require.NoError(t, s.UpdatePayment(ctx, p))

	got, err := s.FindPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, got.Status)
	assert.Equal(t, "2024-03-05", got.PaidDate.String())
	assert.Equal(t, "cash", got.Remarks)
	assert.Equal(t, core.MonthKey("2024-03"), got.Month)

	p.Status = core.StatusUnpaid
	p.PaidDate = core.Date{}
	require.NoError(t, s.UpdatePayment(ctx, p))
	got, err = s.FindPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidDate.IsZero())

	require.NoError(t, s.DeletePayment(ctx, p.ID))
	payments, err := s.ListPayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func findUnknown(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.FindTenant(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindPayment(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func insertionOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.AddRoom(ctx, Room(id, "n-"+id, 1)))
	}
	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
