package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel/internal/amqp"
	"hostel/internal/core"
	"hostel/internal/metrics"
	ledgermem "hostel/internal/sheets/memory"
	"hostel/internal/store/memory"
)

func seedStore() *memory.Store {
	return memory.NewFromSnapshot(core.Snapshot{
		Rooms: []core.Room{{ID: "r1", RoomNumber: "101", TotalBeds: 2, OccupiedBeds: 1}},
		Tenants: []core.Tenant{
			{ID: "t1", Name: "Asha", RoomID: "r1", JoinDate: core.NewDate(2024, 1, 1), MonthlyFee: core.Units(500)},
		},
		Payments: []core.Payment{
			{ID: "p1", TenantID: "t1", Amount: core.Units(500), Month: "2024-03", Status: core.StatusPaid,
				DueDate: core.NewDate(2024, 1, 1), PaidDate: core.NewDate(2024, 3, 2)},
			{ID: "p2", TenantID: "gone", Amount: core.Units(300), Month: "2024-03", Status: core.StatusUnpaid,
				DueDate: core.NewDate(2024, 1, 1)},
			{ID: "p3", TenantID: "t1", Amount: core.Units(500), Month: "2024-02", Status: core.StatusPaid,
				DueDate: core.NewDate(2024, 1, 1)},
		},
	})
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	st := seedStore()
	ledger := ledgermem.New()
	m := metrics.New()
	w := NewLedgerWorker(st, ledger, nil, m, 2)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentCreated, "p1")))
	row, ok := ledger.Row("p1")
	require.True(t, ok)
	assert.Equal(t, "Asha", row.Tenant)
	assert.Equal(t, core.StatusPaid, row.Status)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentUpdated, "p2")))
	row, ok = ledger.Row("p2")
	require.True(t, ok)
	assert.Equal(t, "Unknown", row.Tenant)

	// events for other collections never touch the ledger
	require.NoError(t, w.HandleEvent(ctx, amqp.NewEvent(amqp.RoomCreated, "r1")))
	assert.Len(t, ledger.Rows(), 2)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentDeleted, "p1")))
	_, ok = ledger.Row("p1")
	assert.False(t, ok)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerSyncs.WithLabelValues(actionUpsert, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerSyncs.WithLabelValues(actionDelete, "ok")))
}

func TestHandleEvent_StalePaymentIsRemoved(t *testing.T) {
	ctx := context.Background()
	st := seedStore()
	ledger := ledgermem.New()
	w := NewLedgerWorker(st, ledger, nil, nil, 1)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentCreated, "p1")))
	require.NoError(t, st.DeletePayment(ctx, "p1"))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewEvent(amqp.PaymentUpdated, "p1")))

	assert.Empty(t, ledger.Rows())
}

func TestHandleEvent_LedgerErrorIsReturned(t *testing.T) {
	ledger := ledgermem.New()
	ledger.Err = errors.New("quota exceeded")
	m := metrics.New()
	w := NewLedgerWorker(seedStore(), ledger, nil, m, 1)

	err := w.HandleEvent(context.Background(), amqp.NewEvent(amqp.PaymentCreated, "p1"))
	require.ErrorIs(t, err, ledger.Err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerSyncs.WithLabelValues(actionUpsert, "error")))
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	ledger := ledgermem.New()
	m := metrics.New()
	w := NewLedgerWorker(seedStore(), ledger, nil, m, 4)

	n, err := w.Reconcile(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, ledger.Rows(), 2)
	_, ok := ledger.Row("p3")
	assert.False(t, ok, "february payment must not be written")
	assert.Equal(t, 1, testutil.CollectAndCount(m.ReconcileDurationMs))

	// running again rewrites rows in place
	_, err = w.Reconcile(ctx, "2024-03")
	require.NoError(t, err)
	assert.Len(t, ledger.Rows(), 2)
}

func TestReconcile_Errors(t *testing.T) {
	w := NewLedgerWorker(seedStore(), ledgermem.New(), nil, nil, 2)
	_, err := w.Reconcile(context.Background(), "March")
	assert.True(t, core.IsValidation(err))

	failing := ledgermem.New()
	failing.Err = errors.New("boom")
	w = NewLedgerWorker(seedStore(), failing, nil, nil, 2)
	_, err = w.Reconcile(context.Background(), "2024-03")
	assert.ErrorIs(t, err, failing.Err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ledger := ledgermem.New()
	w := NewLedgerWorker(seedStore(), ledger, nil, nil, 1)
	w.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool { return len(ledger.Rows()) == 2 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
