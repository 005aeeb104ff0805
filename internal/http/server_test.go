package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel/internal/analytics"
	"hostel/internal/core"
	"hostel/internal/metrics"
	"hostel/internal/services"
	"hostel/internal/store/memory"
)

var fixedNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type testServer struct {
	*Server
	store   *memory.Store
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, snap core.Snapshot, opts ...func(*Options)) *testServer {
	t.Helper()
	st := memory.NewFromSnapshot(snap)
	n := 0
	svc := services.NewPropertyService(st,
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	m := metrics.New()
	o := Options{Metrics: m, RateLimitPerMinute: 1000, Now: func() time.Time { return fixedNow }}
	for _, opt := range opts {
		opt(&o)
	}
	srv := NewServer(":0", svc, o)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: st, metrics: m}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.RemoteAddr = "203.0.113.5:4000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func seed() core.Snapshot {
	return core.Snapshot{
		Rooms: []core.Room{{ID: "r1", Floor: 1, RoomNumber: "101", TotalBeds: 2, OccupiedBeds: 1}},
		Tenants: []core.Tenant{
			{ID: "t1", Name: "Asha", RoomID: "r1", JoinDate: core.NewDate(2024, 1, 1), MonthlyFee: core.Units(500)},
			{ID: "t2", Name: "Ben", RoomID: "r1", JoinDate: core.NewDate(2024, 3, 15), MonthlyFee: core.Units(450)},
		},
		Payments: []core.Payment{
			{ID: "p1", TenantID: "t1", Amount: core.Units(500), Month: "2024-03", Status: core.StatusPaid,
				DueDate: core.NewDate(2024, 3, 1), PaidDate: core.NewDate(2024, 3, 2)},
		},
	}
}

func TestIndexRedirectAndFallback(t *testing.T) {
	ts := newTestServer(t, core.Snapshot{})

	rec := ts.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = ts.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error, "/nowhere")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, core.Snapshot{})
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/readyz", "").Code)

	down := newTestServer(t, core.Snapshot{}, func(o *Options) {
		o.Ready = func(context.Context) error { return errors.New("database is locked") }
	})
	assert.Equal(t, http.StatusServiceUnavailable, down.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestRooms(t *testing.T) {
	ts := newTestServer(t, seed())

	rec := ts.do(t, http.MethodPost, "/rooms", `{"floor":2,"roomNumber":"201","totalBeds":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode[core.Room](t, rec)
	assert.Equal(t, "id-1", room.ID)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   int
		reason string
	}{
		{"duplicate number", http.MethodPost, "/rooms", `{"roomNumber":"101","totalBeds":1}`, http.StatusConflict, "duplicate_room_number"},
		{"invalid beds", http.MethodPost, "/rooms", `{"roomNumber":"300","totalBeds":1,"occupiedBeds":2}`, http.StatusUnprocessableEntity, ""},
		{"malformed json", http.MethodPost, "/rooms", `{"roomNumber":`, http.StatusBadRequest, ""},
		{"rename onto taken number", http.MethodPut, "/rooms/id-1", `{"roomNumber":"101","totalBeds":3}`, http.StatusConflict, "duplicate_room_number"},
		{"update", http.MethodPut, "/rooms/id-1", `{"floor":2,"roomNumber":"202","totalBeds":3}`, http.StatusOK, ""},
		{"delete occupied", http.MethodDelete, "/rooms/r1", "", http.StatusConflict, "room_occupied"},
		{"delete empty", http.MethodDelete, "/rooms/id-1", "", http.StatusNoContent, ""},
		{"delete unknown", http.MethodDelete, "/rooms/ghost", "", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.target, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.reason != "" {
				assert.Equal(t, tt.reason, decode[errorBody](t, rec).Reason)
			}
		})
	}

	rooms := decode[[]core.Room](t, ts.do(t, http.MethodGet, "/rooms", ""))
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0].ID)
}

func TestTenantCreationGrowsOccupancy(t *testing.T) {
	ts := newTestServer(t, seed())

	rec := ts.do(t, http.MethodPost, "/tenants",
		`{"name":"Chen","roomId":"r1","joinDate":"2024-02-01","monthlyFee":"400"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rooms := decode[[]core.Room](t, ts.do(t, http.MethodGet, "/rooms", ""))
	assert.Equal(t, 2, rooms[0].OccupiedBeds)

	rec = ts.do(t, http.MethodPost, "/tenants", `{"name":"","joinDate":"2024-02-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, http.MethodPost, "/tenants", `{"name":"Dee","joinDate":"someday"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/tenants/t2", "").Code)
	tenants := decode[[]core.Tenant](t, ts.do(t, http.MethodGet, "/tenants", ""))
	assert.Len(t, tenants, 2)
}

func TestDashboardCacheInvalidatedByMutation(t *testing.T) {
	ts := newTestServer(t, seed())

	rec := ts.do(t, http.MethodGet, "/dashboard?month=2024-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	first := decode[analytics.DashboardSummary](t, rec)
	assert.Equal(t, 2, first.TotalTenants)

	rec = ts.do(t, http.MethodGet, "/dashboard?month=2024-03", "")
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/tenants",
		`{"name":"Chen","roomId":"r1","joinDate":"2024-03-05","monthlyFee":"400"}`).Code)

	rec = ts.do(t, http.MethodGet, "/dashboard?month=2024-03", "")
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	assert.Equal(t, 3, decode[analytics.DashboardSummary](t, rec).TotalTenants)

	assert.Equal(t, http.StatusUnprocessableEntity, ts.do(t, http.MethodGet, "/dashboard?month=soon", "").Code)
}

func TestAnalyticsDefaultsToCurrentMonth(t *testing.T) {
	ts := newTestServer(t, seed())
	rec := ts.do(t, http.MethodGet, "/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[analytics.AnalyticsReport](t, rec)
	assert.Equal(t, core.MonthKey("2024-03"), report.Month)
	assert.Len(t, report.DailyRevenue, 31)
}

func TestPaymentSheet(t *testing.T) {
	ts := newTestServer(t, seed())

	rec := ts.do(t, http.MethodGet, "/payments?month=2024-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sheet := decode[paymentSheetResponse](t, rec)
	assert.Len(t, sheet.Months, 12)
	assert.Equal(t, core.MonthKey("2024-03"), sheet.Months[0].Value)
	require.Len(t, sheet.Rows, 1, "Ben joined mid-month and is not listed")
	assert.Equal(t, "p1", sheet.Rows[0].Payment.ID)
}

func TestPaymentEdits(t *testing.T) {
	ts := newTestServer(t, seed())

	rec := ts.do(t, http.MethodPut, "/tenants/t2/payments/2024-03/status", `{"status":"paid"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_joined_yet", decode[errorBody](t, rec).Reason)

	rec = ts.do(t, http.MethodGet, "/tenants/t2/payments/2024-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[services.Resolution](t, rec)
	assert.True(t, res.NotJoined)
	assert.Equal(t, "Not joined yet", res.Payment.Remarks)

	rec = ts.do(t, http.MethodPut, "/tenants/t1/payments/2024-04/status", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[core.Payment](t, rec)
	assert.Equal(t, core.StatusPaid, paid.Status)
	assert.True(t, paid.PaidDate.SameDay(core.DateOf(fixedNow)))

	rec = ts.do(t, http.MethodPut, "/tenants/t1/payments/2024-04/remarks", `{"remarks":"  cash  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cash", decode[core.Payment](t, rec).Remarks)

	assert.Equal(t, http.StatusUnprocessableEntity,
		ts.do(t, http.MethodPut, "/tenants/t1/payments/2024-04/status", `{"status":"maybe"}`).Code)
	assert.Equal(t, http.StatusNotFound,
		ts.do(t, http.MethodPut, "/tenants/ghost/payments/2024-04/status", `{"status":"paid"}`).Code)
}

func TestManualPayments(t *testing.T) {
	ts := newTestServer(t, seed())

	rec := ts.do(t, http.MethodPost, "/payments", `{"tenantId":"t1","month":"2024-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[core.Payment](t, rec)
	assert.Equal(t, core.Units(500), p.Amount)
	assert.Equal(t, core.StatusUnpaid, p.Status)

	rec = ts.do(t, http.MethodPut, "/payments/"+p.ID,
		`{"tenantId":"t1","month":"2024-05","amount":"250","status":"partially paid","dueDate":"2024-05-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.StatusPartiallyPaid, decode[core.Payment](t, rec).Status)

	assert.Equal(t, http.StatusUnprocessableEntity,
		ts.do(t, http.MethodPost, "/payments", `{"tenantId":"t1","month":"May"}`).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/payments/"+p.ID, "").Code)
}

func TestExportPayments(t *testing.T) {
	ts := newTestServer(t, seed())

	rec := ts.do(t, http.MethodGet, "/payments/export?month=2024-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="payments-2024-03.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"Tenant,Amount,Status,Due Date,Paid Date,Remarks\n"+`"Asha","500","paid","3/1/2024","3/2/2024","-"`,
		rec.Body.String())
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	ts := newTestServer(t, core.Snapshot{}, func(o *Options) { o.RateLimitPerMinute = 1 })

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/rooms", `{"roomNumber":"1","totalBeds":1}`).Code)
	rec := ts.do(t, http.MethodPost, "/rooms", `{"roomNumber":"2","totalBeds":1}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/rooms", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, seed())
	ts.do(t, http.MethodGet, "/rooms", "")
	ts.do(t, http.MethodDelete, "/rooms/r1", "")

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `hostel_http_requests_total{code="200",method="GET",route="GET /rooms"} 1`)
	assert.Contains(t, body, `hostel_rejections_total{reason="room_occupied"} 1`)
}

func TestShutdownIdempotent(t *testing.T) {
	ts := newTestServer(t, core.Snapshot{})
	require.NoError(t, ts.Shutdown(context.Background()))
	require.NoError(t, ts.Shutdown(context.Background()))
}
