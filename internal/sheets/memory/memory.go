// Package memory is an in-process ledger used by tests and local runs.
package memory

import (
	"context"
	"slices"
	"sync"

	"hostel/internal/sheets"
)

// Ledger keeps rows in write order.
type Ledger struct {
	mu   sync.Mutex
	rows []sheets.LedgerRow
	// Err, when set, is returned by every write.
	Err error
}

var _ sheets.LedgerWriter = (*Ledger)(nil)

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// UpsertRow replaces the row with row.ID or appends it.
func (l *Ledger) UpsertRow(_ context.Context, row sheets.LedgerRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	if i := l.index(row.ID); i >= 0 {
		l.rows[i] = row
		return nil
	}
	l.rows = append(l.rows, row)
	return nil
}

// DeleteRow removes the row with id.
func (l *Ledger) DeleteRow(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.rows = slices.DeleteFunc(l.rows, func(r sheets.LedgerRow) bool { return r.ID == id })
	return nil
}

// Rows returns a copy of the ledger in write order.
func (l *Ledger) Rows() []sheets.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.rows)
}

// Row returns the row with id.
func (l *Ledger) Row(id string) (sheets.LedgerRow, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(id); i >= 0 {
		return l.rows[i], true
	}
	return sheets.LedgerRow{}, false
}

func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.rows, func(r sheets.LedgerRow) bool { return r.ID == id })
}
