package analytics

import (
	"cmp"
	"slices"

	"hostel/internal/core"
)

const (
	recentTenantsLimit = 5
	unassignedRoom     = "Not assigned"
)

// RecentTenant is a dashboard row for a newly joined tenant.
type RecentTenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RoomNumber string    `json:"roomNumber"`
	JoinDate   core.Date `json:"joinDate"`
}

// DashboardSummary is the view model of the dashboard page.
type DashboardSummary struct {
	Month          core.MonthKey  `json:"month"`
	TotalTenants   int            `json:"totalTenants"`
	NewTenants     int            `json:"newTenants"`
	TotalRooms     int            `json:"totalRooms"`
	OccupiedRooms  int            `json:"occupiedRooms"`
	TotalBeds      int            `json:"totalBeds"`
	OccupiedBeds   int            `json:"occupiedBeds"`
	AvailableBeds  int            `json:"availableBeds"`
	OccupancyRate  int            `json:"occupancyRate"`
	MonthlyRevenue core.Money     `json:"monthlyRevenue"`
	PaidCount      int            `json:"paidCount"`
	PendingCount   int            `json:"pendingCount"`
	PaymentRate    int            `json:"paymentRate"`
	RevenueTrend   []TrendPoint   `json:"revenueTrend"`
	RecentTenants  []RecentTenant `json:"recentTenants"`
}

// Dashboard builds the dashboard summary for month.
func Dashboard(snap core.Snapshot, month core.MonthKey) DashboardSummary {
	sum := DashboardSummary{
		Month:          month,
		TotalTenants:   len(snap.Tenants),
		TotalRooms:     len(snap.Rooms),
		OccupancyRate:  OccupancyRate(snap.Rooms),
		MonthlyRevenue: MonthlyRevenue(snap.Payments, month),
		PaymentRate:    PaymentRate(snap.Payments, month),
		RevenueTrend:   RevenueTrend(snap.Payments, month),
		RecentTenants:  RecentTenants(snap, recentTenantsLimit),
	}
	for _, r := range snap.Rooms {
		sum.TotalBeds += r.TotalBeds
		sum.OccupiedBeds += r.OccupiedBeds
		if r.OccupiedBeds > 0 {
			sum.OccupiedRooms++
		}
	}
	if free := sum.TotalBeds - sum.OccupiedBeds; free > 0 {
		sum.AvailableBeds = free
	}
	for _, t := range snap.Tenants {
		if t.JoinDate.MonthKey() == month {
			sum.NewTenants++
		}
	}
	for _, p := range snap.Payments {
		if p.Month != month {
			continue
		}
		if p.Status == core.StatusPaid {
			sum.PaidCount++
		} else {
			sum.PendingCount++
		}
	}
	return sum
}

// RecentTenants returns up to limit tenants, latest join date first.
func RecentTenants(snap core.Snapshot, limit int) []RecentTenant {
	numbers := make(map[string]string, len(snap.Rooms))
	for _, r := range snap.Rooms {
		numbers[r.ID] = r.RoomNumber
	}
	tenants := slices.Clone(snap.Tenants)
	slices.SortStableFunc(tenants, func(a, b core.Tenant) int {
		return cmp.Compare(b.JoinDate.Unix(), a.JoinDate.Unix())
	})
	if len(tenants) > limit {
		tenants = tenants[:limit]
	}
	out := make([]RecentTenant, len(tenants))
	for i, t := range tenants {
		number, ok := numbers[t.RoomID]
		if !ok {
			number = unassignedRoom
		}
		out[i] = RecentTenant{ID: t.ID, Name: t.Name, RoomNumber: number, JoinDate: t.JoinDate}
	}
	return out
}
