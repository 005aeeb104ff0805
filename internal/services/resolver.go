package services

import (
	"context"
	"fmt"

	"hostel/internal/core"
	"hostel/internal/store"
)

const notJoinedRemark = "Not joined yet"

// Resolution is the outcome of resolving a tenant's payment for a month.
type Resolution struct {
	Payment core.Payment `json:"payment"`
	// Existing is set when a stored record was found.
	Existing bool `json:"existing"`
	// Created is set when a default record was persisted.
	Created bool `json:"created"`
	// NotJoined marks a synthesized record that was not persisted.
	NotJoined bool `json:"notJoined"`
}

// Resolver finds or creates the payment record for a tenant and month.
type Resolver struct {
	payments store.PaymentStore
}

// NewResolver creates a resolver reading and writing payments.
func NewResolver(payments store.PaymentStore) *Resolver {
	return &Resolver{payments: payments}
}

// PaymentID is the identifier given to synthesized payments.
func PaymentID(tenantID string, month core.MonthKey) string {
	return tenantID + "-" + month.String()
}

// Resolve returns the stored payment for tenant and month. When none exists
// a default unpaid record is synthesized; it is persisted only if the tenant
// had joined by the first day of month.
func (r *Resolver) Resolve(ctx context.Context, tenant core.Tenant, month core.MonthKey) (Resolution, error) {
	if err := month.Validate(); err != nil {
		return Resolution{}, err
	}
	payments, err := r.payments.ListPayments(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("list payments: %w", err)
	}
	if p, ok := Lookup(payments, tenant.ID, month); ok {
		return Resolution{Payment: p, Existing: true}, nil
	}

	p := core.Payment{
		ID:       PaymentID(tenant.ID, month),
		TenantID: tenant.ID,
		Amount:   tenant.MonthlyFee,
		Month:    month,
		Status:   core.StatusUnpaid,
		DueDate:  tenant.JoinDate,
	}
	if !tenant.Joined(month) {
		p.Remarks = notJoinedRemark
		return Resolution{Payment: p, NotJoined: true}, nil
	}
	if err := r.payments.AddPayment(ctx, p); err != nil {
		return Resolution{}, fmt.Errorf("persist payment %s: %w", p.ID, err)
	}
	return Resolution{Payment: p, Created: true}, nil
}

// Lookup returns the first payment recorded for tenantID in month.
func Lookup(payments []core.Payment, tenantID string, month core.MonthKey) (core.Payment, bool) {
	for _, p := range payments {
		if p.TenantID == tenantID && p.Month == month {
			return p, true
		}
	}
	return core.Payment{}, false
}
