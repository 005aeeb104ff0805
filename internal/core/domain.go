package core

import (
	"errors"
	"fmt"
	"strings"
)

// PaymentStatus is the settlement state of a monthly payment.
type PaymentStatus string

const (
	StatusPaid          PaymentStatus = "paid"
	StatusUnpaid        PaymentStatus = "unpaid"
	StatusPartiallyPaid PaymentStatus = "partially-paid"
)

// Statuses lists every payment status in display order.
var Statuses = []PaymentStatus{StatusPaid, StatusUnpaid, StatusPartiallyPaid}

type (
	Room struct {
		ID           string `json:"id"`
		Floor        int    `json:"floor"`
		RoomNumber   string `json:"roomNumber"`
		TotalBeds    int    `json:"totalBeds"`
		OccupiedBeds int    `json:"occupiedBeds"`
	}

	Tenant struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Phone      string `json:"phone"`
		Email      string `json:"email"`
		RoomID     string `json:"roomId"`
		JoinDate   Date   `json:"joinDate"`
		MonthlyFee Money  `json:"monthlyFee"`
	}

	Payment struct {
		ID       string        `json:"id"`
		TenantID string        `json:"tenantId"`
		Amount   Money         `json:"amount"`
		Month    MonthKey      `json:"month"`
		Status   PaymentStatus `json:"status"`
		DueDate  Date          `json:"dueDate"`
		PaidDate Date          `json:"paidDate,omitzero"`
		Remarks  string        `json:"remarks,omitempty"`
	}

	// Snapshot is a point-in-time copy of all three collections.
	Snapshot struct {
		Rooms    []Room    `json:"rooms"`
		Tenants  []Tenant  `json:"tenants"`
		Payments []Payment `json:"payments"`
	}
)

var (
	ErrEmptyRoomNumber = fmt.Errorf("%w: empty room number", ErrInvalid)
	ErrInvalidBeds     = fmt.Errorf("%w: beds must satisfy 0 <= occupied <= total", ErrInvalid)
	ErrInvalidFloor    = fmt.Errorf("%w: negative floor", ErrInvalid)
	ErrEmptyName       = fmt.Errorf("%w: empty name", ErrInvalid)
	ErrEmptyTenant     = fmt.Errorf("%w: empty tenant reference", ErrInvalid)
	ErrInvalidStatus   = fmt.Errorf("%w: unknown payment status", ErrInvalid)
	ErrMissingJoinDate = fmt.Errorf("%w: missing join date", ErrInvalid)
	ErrMissingDueDate  = fmt.Errorf("%w: missing due date", ErrInvalid)
)

// ParseStatus accepts the canonical statuses and their display labels.
func ParseStatus(s string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid":
		return StatusPaid, nil
	case "unpaid":
		return StatusUnpaid, nil
	case "partially-paid", "partially paid", "partial":
		return StatusPartiallyPaid, nil
	}
	return "", ErrInvalidStatus
}

// Label returns the human-facing name of the status.
func (s PaymentStatus) Label() string {
	switch s {
	case StatusPaid:
		return "Paid"
	case StatusUnpaid:
		return "Unpaid"
	case StatusPartiallyPaid:
		return "Partially Paid"
	}
	return string(s)
}

// Validate rejects unknown statuses.
func (s PaymentStatus) Validate() error {
	switch s {
	case StatusPaid, StatusUnpaid, StatusPartiallyPaid:
		return nil
	}
	return ErrInvalidStatus
}

// Validate checks a room submitted through a form. Occupancy grown by tenant
// creation is not capped by the store, so records read back may exceed it.
func (r Room) Validate() error {
	if strings.TrimSpace(r.RoomNumber) == "" {
		return ErrEmptyRoomNumber
	}
	if r.Floor < 0 {
		return ErrInvalidFloor
	}
	if r.TotalBeds < 0 || r.OccupiedBeds < 0 || r.OccupiedBeds > r.TotalBeds {
		return ErrInvalidBeds
	}
	return nil
}

// AvailableBeds never goes below zero.
func (r Room) AvailableBeds() int {
	if free := r.TotalBeds - r.OccupiedBeds; free > 0 {
		return free
	}
	return 0
}

// Validate checks name, join date and fee.
func (t Tenant) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.JoinDate.IsZero() {
		return ErrMissingJoinDate
	}
	if err := t.MonthlyFee.Validate(); err != nil {
		return err
	}
	return nil
}

// Joined reports whether the tenant had joined by the first day of month.
func (t Tenant) Joined(month MonthKey) bool {
	return !t.JoinDate.After(month.FirstDay().Time)
}

// Validate checks tenant, amount, month, status and due date.
func (p Payment) Validate() error {
	if strings.TrimSpace(p.TenantID) == "" {
		return ErrEmptyTenant
	}
	if err := p.Month.Validate(); err != nil {
		return err
	}
	if err := p.Status.Validate(); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	return nil
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalid)
}
