// Package storage is the SQLite record store. Schema changes are applied by
// embedded migrations when the repository opens.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hostel/internal/core"
	"hostel/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the SQLite implementation of store.Store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ store.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens the database at dbPath and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// writers serialise on one connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListRooms returns rooms in insertion order.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]core.Room, error) {
	rows, err := r.queries.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	rooms := make([]core.Room, len(rows))
	for i, row := range rows {
		rooms[i] = roomFromRow(row)
	}
	return rooms, nil
}

func (r *SQLiteRepository) AddRoom(ctx context.Context, room core.Room) error {
	if err := r.queries.InsertRoom(ctx, roomToRow(room)); err != nil {
		return fmt.Errorf("insert room %s: %w", room.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateRoom(ctx context.Context, room core.Room) error {
	if err := r.queries.UpdateRoom(ctx, roomToRow(room)); err != nil {
		return fmt.Errorf("update room %s: %w", room.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteRoom(ctx context.Context, id string) error {
	if err := r.queries.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListTenants(ctx context.Context) ([]core.Tenant, error) {
	rows, err := r.queries.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	tenants := make([]core.Tenant, 0, len(rows))
	for _, row := range rows {
		t, err := tenantFromRow(row)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}

// FindTenant returns store.ErrNotFound for unknown IDs.
func (r *SQLiteRepository) FindTenant(ctx context.Context, id string) (core.Tenant, error) {
	row, err := r.queries.GetTenant(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Tenant{}, store.ErrNotFound
	}
	if err != nil {
		return core.Tenant{}, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return tenantFromRow(row)
}

// AddTenant inserts the tenant and bumps the room's occupancy in one
// transaction.
func (r *SQLiteRepository) AddTenant(ctx context.Context, t core.Tenant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.InsertTenant(ctx, tenantToRow(t)); err != nil {
		return fmt.Errorf("insert tenant %s: %w", t.ID, err)
	}
	if err := q.IncrementOccupancy(ctx, t.RoomID); err != nil {
		return fmt.Errorf("increment occupancy of room %s: %w", t.RoomID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tenant %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateTenant(ctx context.Context, t core.Tenant) error {
	if err := r.queries.UpdateTenant(ctx, tenantToRow(t)); err != nil {
		return fmt.Errorf("update tenant %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTenant(ctx context.Context, id string) error {
	if err := r.queries.DeleteTenant(ctx, id); err != nil {
		return fmt.Errorf("delete tenant %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.queries.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return paymentsFromRows(rows)
}

// ListPaymentsByMonth returns the payments recorded for a single month.
func (r *SQLiteRepository) ListPaymentsByMonth(ctx context.Context, month core.MonthKey) ([]core.Payment, error) {
	rows, err := r.queries.ListPaymentsByMonth(ctx, month.String())
	if err != nil {
		return nil, fmt.Errorf("list payments for %s: %w", month, err)
	}
	return paymentsFromRows(rows)
}

// FindPayment returns store.ErrNotFound for unknown IDs.
func (r *SQLiteRepository) FindPayment(ctx context.Context, id string) (core.Payment, error) {
	row, err := r.queries.GetPayment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, store.ErrNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment %s: %w", id, err)
	}
	return paymentFromRow(row)
}

func (r *SQLiteRepository) AddPayment(ctx context.Context, p core.Payment) error {
	if err := r.queries.InsertPayment(ctx, paymentToRow(p)); err != nil {
		return fmt.Errorf("insert payment %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) error {
	if err := r.queries.UpdatePayment(ctx, paymentToRow(p)); err != nil {
		return fmt.Errorf("update payment %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	if err := r.queries.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	return nil
}

// Snapshot reads all three collections inside one read transaction.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	view := &SQLiteRepository{db: r.db, queries: r.queries.WithTx(tx)}
	var snap core.Snapshot
	if snap.Rooms, err = view.ListRooms(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Tenants, err = view.ListTenants(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Payments, err = view.ListPayments(ctx); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

func roomToRow(r core.Room) roomRow {
	return roomRow{
		ID:           r.ID,
		Floor:        int64(r.Floor),
		RoomNumber:   r.RoomNumber,
		TotalBeds:    int64(r.TotalBeds),
		OccupiedBeds: int64(r.OccupiedBeds),
	}
}

func roomFromRow(row roomRow) core.Room {
	return core.Room{
		ID:           row.ID,
		Floor:        int(row.Floor),
		RoomNumber:   row.RoomNumber,
		TotalBeds:    int(row.TotalBeds),
		OccupiedBeds: int(row.OccupiedBeds),
	}
}

func tenantToRow(t core.Tenant) tenantRow {
	return tenantRow{
		ID:              t.ID,
		Name:            t.Name,
		Phone:           t.Phone,
		Email:           t.Email,
		RoomID:          t.RoomID,
		JoinDate:        t.JoinDate.String(),
		MonthlyFeeCents: t.MonthlyFee.Cents,
	}
}

func tenantFromRow(row tenantRow) (core.Tenant, error) {
	join, err := core.ParseDate(row.JoinDate)
	if err != nil {
		return core.Tenant{}, fmt.Errorf("tenant %s join date: %w", row.ID, err)
	}
	return core.Tenant{
		ID:         row.ID,
		Name:       row.Name,
		Phone:      row.Phone,
		Email:      row.Email,
		RoomID:     row.RoomID,
		JoinDate:   join,
		MonthlyFee: core.Cents(row.MonthlyFeeCents),
	}, nil
}

func paymentToRow(p core.Payment) paymentRow {
	return paymentRow{
		ID:          p.ID,
		TenantID:    p.TenantID,
		AmountCents: p.Amount.Cents,
		Month:       p.Month.String(),
		Status:      string(p.Status),
		DueDate:     p.DueDate.String(),
		PaidDate:    sql.NullString{String: p.PaidDate.String(), Valid: !p.PaidDate.IsZero()},
		Remarks:     sql.NullString{String: p.Remarks, Valid: p.Remarks != ""},
	}
}

func paymentFromRow(row paymentRow) (core.Payment, error) {
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		return core.Payment{}, fmt.Errorf("payment %s due date: %w", row.ID, err)
	}
	paid, err := core.ParseDate(row.PaidDate.String)
	if err != nil {
		return core.Payment{}, fmt.Errorf("payment %s paid date: %w", row.ID, err)
	}
	return core.Payment{
		ID:       row.ID,
		TenantID: row.TenantID,
		Amount:   core.Cents(row.AmountCents),
		Month:    core.MonthKey(row.Month),
		Status:   core.PaymentStatus(row.Status),
		DueDate:  due,
		PaidDate: paid,
		Remarks:  row.Remarks.String,
	}, nil
}

func paymentsFromRows(rows []paymentRow) ([]core.Payment, error) {
	payments := make([]core.Payment, 0, len(rows))
	for _, row := range rows {
		p, err := paymentFromRow(row)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}
