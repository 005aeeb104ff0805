package analytics

import "hostel/internal/core"

// OccupancyPoint is the occupancy rate attributed to one month.
type OccupancyPoint struct {
	Month core.MonthKey `json:"month"`
	Label string        `json:"label"`
	Rate  int           `json:"rate"`
}

// AnalyticsReport is the view model of the analytics page.
type AnalyticsReport struct {
	Month              core.MonthKey    `json:"month"`
	OccupancyRate      int              `json:"occupancyRate"`
	OccupancyTrend     []OccupancyPoint `json:"occupancyTrend"`
	StatusDistribution []StatusBucket   `json:"statusDistribution"`
	DailyRevenue       []DailyPoint     `json:"dailyRevenue"`
}

// OccupancyTrend repeats the current rate for each of the last TrendMonths
// months. Occupancy history is not recorded.
func OccupancyTrend(rooms []core.Room, month core.MonthKey) []OccupancyPoint {
	rate := OccupancyRate(rooms)
	points := make([]OccupancyPoint, TrendMonths)
	for i := range points {
		m := month.AddMonths(i - (TrendMonths - 1))
		points[i] = OccupancyPoint{Month: m, Label: m.Label("Jan 2006"), Rate: rate}
	}
	return points
}

// Report builds the analytics view for month.
func Report(snap core.Snapshot, month core.MonthKey) AnalyticsReport {
	return AnalyticsReport{
		Month:              month,
		OccupancyRate:      OccupancyRate(snap.Rooms),
		OccupancyTrend:     OccupancyTrend(snap.Rooms, month),
		StatusDistribution: StatusDistribution(snap.Payments, month),
		DailyRevenue:       DailyRevenue(snap.Payments, month),
	}
}
