// Package sheets defines the ledger mirror the worker writes payments to.
package sheets

import (
	"context"

	"hostel/internal/core"
)

// LedgerHeader names the ledger columns in order.
var LedgerHeader = []string{"ID", "Month", "Tenant", "Amount", "Status", "Due Date", "Paid Date", "Remarks"}

// LedgerRow is one payment as mirrored in the ledger. Rows are keyed by ID.
type LedgerRow struct {
	ID       string
	Month    core.MonthKey
	Tenant   string
	Amount   core.Money
	Status   core.PaymentStatus
	DueDate  core.Date
	PaidDate core.Date
	Remarks  string
}

// RowFromPayment builds the ledger row of p. An empty tenant name is shown as
// "Unknown".
func RowFromPayment(p core.Payment, tenantName string) LedgerRow {
	if tenantName == "" {
		tenantName = "Unknown"
	}
	return LedgerRow{
		ID:       p.ID,
		Month:    p.Month,
		Tenant:   tenantName,
		Amount:   p.Amount,
		Status:   p.Status,
		DueDate:  p.DueDate,
		PaidDate: p.PaidDate,
		Remarks:  p.Remarks,
	}
}

// Values renders the row as cell values in LedgerHeader order. Amounts are
// written in units so the sheet can sum them.
func (r LedgerRow) Values() []any {
	return []any{
		r.ID,
		r.Month.String(),
		r.Tenant,
		float64(r.Amount.Cents) / 100,
		r.Status.Label(),
		r.DueDate.String(),
		r.PaidDate.String(),
		r.Remarks,
	}
}

type (
	// LedgerWriter mirrors payments. Both operations are idempotent.
	LedgerWriter interface {
		UpsertRow(ctx context.Context, row LedgerRow) error
		// DeleteRow removes the row with id; unknown IDs are a no-op.
		DeleteRow(ctx context.Context, id string) error
	}
)
