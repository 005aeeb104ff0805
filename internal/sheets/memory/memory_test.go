package memory

import (
	"context"
	"errors"
	"testing"

	"hostel/internal/core"
	"hostel/internal/sheets"
)

func TestLedger_UpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	l := New()

	row := sheets.LedgerRow{ID: "p1", Month: "2024-03", Tenant: "Asha", Amount: core.Units(500), Status: core.StatusUnpaid}
	if err := l.UpsertRow(ctx, row); err != nil {
		t.Fatalf("UpsertRow() error = %v", err)
	}
	row.Status = core.StatusPaid
	if err := l.UpsertRow(ctx, row); err != nil {
		t.Fatalf("UpsertRow() error = %v", err)
	}
	if got := l.Rows(); len(got) != 1 || got[0].Status != core.StatusPaid {
		t.Fatalf("Rows() = %+v, want one paid row", got)
	}

	if err := l.DeleteRow(ctx, "ghost"); err != nil {
		t.Fatalf("DeleteRow(unknown) error = %v", err)
	}
	if err := l.DeleteRow(ctx, "p1"); err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if _, ok := l.Row("p1"); ok {
		t.Fatal("row should be gone")
	}
}

func TestLedger_InjectedError(t *testing.T) {
	l := New()
	l.Err = errors.New("quota exceeded")
	if err := l.UpsertRow(context.Background(), sheets.LedgerRow{ID: "p1"}); !errors.Is(err, l.Err) {
		t.Fatalf("UpsertRow() error = %v", err)
	}
}

func TestRowFromPayment(t *testing.T) {
	p := core.Payment{
		ID: "t1-2024-03", TenantID: "t1", Amount: core.Cents(45050), Month: "2024-03",
		Status: core.StatusPartiallyPaid, DueDate: core.NewDate(2024, 3, 1),
	}
	row := sheets.RowFromPayment(p, "")
	if row.Tenant != "Unknown" {
		t.Errorf("Tenant = %q, want Unknown", row.Tenant)
	}
	want := []any{"t1-2024-03", "2024-03", "Unknown", 450.5, "Partially Paid", "2024-03-01", "", ""}
	got := row.Values()
	if len(got) != len(want) {
		t.Fatalf("Values() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
