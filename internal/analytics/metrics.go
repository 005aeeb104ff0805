// Package analytics computes dashboard and report figures from a snapshot
// of the record store. Every function is pure; the month being viewed is
// passed in explicitly.
package analytics

import "hostel/internal/core"

// TrendMonths is the length of every month-over-month series.
const TrendMonths = 6

// StatusBucket counts payments in one status for a month.
type StatusBucket struct {
	Status core.PaymentStatus `json:"status"`
	Name   string             `json:"name"`
	Count  int                `json:"count"`
}

// DailyPoint is the revenue collected on one calendar day.
type DailyPoint struct {
	Date    core.Date  `json:"date"`
	Label   string     `json:"label"`
	Revenue core.Money `json:"revenue"`
}

// TrendPoint is the paid revenue of one month.
type TrendPoint struct {
	Month   core.MonthKey `json:"month"`
	Label   string        `json:"label"`
	Revenue core.Money    `json:"revenue"`
}

// percent returns num/den*100 rounded half-up, or 0 when den is 0.
func percent(num, den int) int {
	if den <= 0 {
		return 0
	}
	return (num*200 + den) / (den * 2)
}

// OccupancyRate is the share of all beds that are occupied.
func OccupancyRate(rooms []core.Room) int {
	var occupied, total int
	for _, r := range rooms {
		occupied += r.OccupiedBeds
		total += r.TotalBeds
	}
	return percent(occupied, total)
}

// MonthlyRevenue sums every payment recorded for month, whatever its status.
func MonthlyRevenue(payments []core.Payment, month core.MonthKey) core.Money {
	var total core.Money
	for _, p := range payments {
		if p.Month == month {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// PaymentRate is the share of month's payments marked paid.
func PaymentRate(payments []core.Payment, month core.MonthKey) int {
	var paid, all int
	for _, p := range payments {
		if p.Month != month {
			continue
		}
		all++
		if p.Status == core.StatusPaid {
			paid++
		}
	}
	return percent(paid, all)
}

// StatusDistribution always returns Paid, Unpaid and Partially Paid, in that
// order.
func StatusDistribution(payments []core.Payment, month core.MonthKey) []StatusBucket {
	buckets := make([]StatusBucket, len(core.Statuses))
	index := make(map[core.PaymentStatus]int, len(core.Statuses))
	for i, s := range core.Statuses {
		buckets[i] = StatusBucket{Status: s, Name: s.Label()}
		index[s] = i
	}
	for _, p := range payments {
		if p.Month != month {
			continue
		}
		if i, ok := index[p.Status]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

// DailyRevenue returns one point per day of month, summing payments by the
// day they were paid. Days without payments are included at zero.
func DailyRevenue(payments []core.Payment, month core.MonthKey) []DailyPoint {
	days := month.Days()
	points := make([]DailyPoint, len(days))
	byDay := make(map[string]int, len(days))
	for i, d := range days {
		points[i] = DailyPoint{Date: d, Label: d.Format("02 Jan")}
		byDay[d.String()] = i
	}
	for _, p := range payments {
		if p.PaidDate.IsZero() {
			continue
		}
		if i, ok := byDay[p.PaidDate.String()]; ok {
			points[i].Revenue = points[i].Revenue.Add(p.Amount)
		}
	}
	return points
}

// RevenueTrend returns paid revenue for the TrendMonths months ending at
// month, oldest first.
func RevenueTrend(payments []core.Payment, month core.MonthKey) []TrendPoint {
	points := make([]TrendPoint, TrendMonths)
	index := make(map[core.MonthKey]int, TrendMonths)
	for i := range points {
		m := month.AddMonths(i - (TrendMonths - 1))
		points[i] = TrendPoint{Month: m, Label: m.Label("Jan")}
		index[m] = i
	}
	for _, p := range payments {
		if p.Status != core.StatusPaid {
			continue
		}
		if i, ok := index[p.Month]; ok {
			points[i].Revenue = points[i].Revenue.Add(p.Amount)
		}
	}
	return points
}
