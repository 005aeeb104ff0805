package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type roomRow struct {
	ID           string
	Floor        int64
	RoomNumber   string
	TotalBeds    int64
	OccupiedBeds int64
}

type tenantRow struct {
	ID              string
	Name            string
	Phone           string
	Email           string
	RoomID          string
	JoinDate        string
	MonthlyFeeCents int64
}

type paymentRow struct {
	ID          string
	TenantID    string
	AmountCents int64
	Month       string
	Status      string
	DueDate     string
	PaidDate    sql.NullString
	Remarks     sql.NullString
}

const listRooms = `SELECT id, floor, room_number, total_beds, occupied_beds FROM rooms ORDER BY rowid`

func (q *Queries) ListRooms(ctx context.Context) ([]roomRow, error) {
	rows, err := q.db.QueryContext(ctx, listRooms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []roomRow
	for rows.Next() {
		var i roomRow
		if err := rows.Scan(&i.ID, &i.Floor, &i.RoomNumber, &i.TotalBeds, &i.OccupiedBeds); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertRoom = `INSERT INTO rooms (id, floor, room_number, total_beds, occupied_beds) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertRoom(ctx context.Context, r roomRow) error {
	_, err := q.db.ExecContext(ctx, insertRoom, r.ID, r.Floor, r.RoomNumber, r.TotalBeds, r.OccupiedBeds)
	return err
}

const updateRoom = `UPDATE rooms SET floor = ?, room_number = ?, total_beds = ?, occupied_beds = ? WHERE id = ?`

func (q *Queries) UpdateRoom(ctx context.Context, r roomRow) error {
	_, err := q.db.ExecContext(ctx, updateRoom, r.Floor, r.RoomNumber, r.TotalBeds, r.OccupiedBeds, r.ID)
	return err
}

const incrementOccupancy = `UPDATE rooms SET occupied_beds = occupied_beds + 1 WHERE id = ?`

func (q *Queries) IncrementOccupancy(ctx context.Context, roomID string) error {
	_, err := q.db.ExecContext(ctx, incrementOccupancy, roomID)
	return err
}

const deleteRoom = `DELETE FROM rooms WHERE id = ?`

func (q *Queries) DeleteRoom(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteRoom, id)
	return err
}

const tenantColumns = `id, name, phone, email, room_id, join_date, monthly_fee_cents`

func scanTenant(sc interface{ Scan(...any) error }) (tenantRow, error) {
	var i tenantRow
	err := sc.Scan(&i.ID, &i.Name, &i.Phone, &i.Email, &i.RoomID, &i.JoinDate, &i.MonthlyFeeCents)
	return i, err
}

const listTenants = `SELECT ` + tenantColumns + ` FROM tenants ORDER BY rowid`

func (q *Queries) ListTenants(ctx context.Context) ([]tenantRow, error) {
	rows, err := q.db.QueryContext(ctx, listTenants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []tenantRow
	for rows.Next() {
		i, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getTenant = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = ? ORDER BY rowid LIMIT 1`

func (q *Queries) GetTenant(ctx context.Context, id string) (tenantRow, error) {
	return scanTenant(q.db.QueryRowContext(ctx, getTenant, id))
}

const insertTenant = `INSERT INTO tenants (` + tenantColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTenant(ctx context.Context, t tenantRow) error {
	_, err := q.db.ExecContext(ctx, insertTenant, t.ID, t.Name, t.Phone, t.Email, t.RoomID, t.JoinDate, t.MonthlyFeeCents)
	return err
}

const updateTenant = `UPDATE tenants SET name = ?, phone = ?, email = ?, room_id = ?, join_date = ?, monthly_fee_cents = ? WHERE id = ?`

func (q *Queries) UpdateTenant(ctx context.Context, t tenantRow) error {
	_, err := q.db.ExecContext(ctx, updateTenant, t.Name, t.Phone, t.Email, t.RoomID, t.JoinDate, t.MonthlyFeeCents, t.ID)
	return err
}

const deleteTenant = `DELETE FROM tenants WHERE id = ?`

func (q *Queries) DeleteTenant(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteTenant, id)
	return err
}

const paymentColumns = `id, tenant_id, amount_cents, month, status, due_date, paid_date, remarks`

func scanPayment(sc interface{ Scan(...any) error }) (paymentRow, error) {
	var i paymentRow
	err := sc.Scan(&i.ID, &i.TenantID, &i.AmountCents, &i.Month, &i.Status, &i.DueDate, &i.PaidDate, &i.Remarks)
	return i, err
}

const listPayments = `SELECT ` + paymentColumns + ` FROM payments ORDER BY rowid`

func (q *Queries) ListPayments(ctx context.Context) ([]paymentRow, error) {
	return q.queryPayments(ctx, listPayments)
}

const listPaymentsByMonth = `SELECT ` + paymentColumns + ` FROM payments WHERE month = ? ORDER BY rowid`

func (q *Queries) ListPaymentsByMonth(ctx context.Context, month string) ([]paymentRow, error) {
	return q.queryPayments(ctx, listPaymentsByMonth, month)
}

func (q *Queries) queryPayments(ctx context.Context, query string, args ...any) ([]paymentRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []paymentRow
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getPayment = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ? ORDER BY rowid LIMIT 1`

func (q *Queries) GetPayment(ctx context.Context, id string) (paymentRow, error) {
	return scanPayment(q.db.QueryRowContext(ctx, getPayment, id))
}

const insertPayment = `INSERT INTO payments (` + paymentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertPayment(ctx context.Context, p paymentRow) error {
	_, err := q.db.ExecContext(ctx, insertPayment, p.ID, p.TenantID, p.AmountCents, p.Month, p.Status, p.DueDate, p.PaidDate, p.Remarks)
	return err
}

const updatePayment = `UPDATE payments SET tenant_id = ?, amount_cents = ?, month = ?, status = ?, due_date = ?, paid_date = ?, remarks = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) UpdatePayment(ctx context.Context, p paymentRow) error {
	_, err := q.db.ExecContext(ctx, updatePayment, p.TenantID, p.AmountCents, p.Month, p.Status, p.DueDate, p.PaidDate, p.Remarks, p.ID)
	return err
}

const deletePayment = `DELETE FROM payments WHERE id = ?`

func (q *Queries) DeletePayment(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deletePayment, id)
	return err
}
