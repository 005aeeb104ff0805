package analytics

import "hostel/internal/core"

// SheetRow is one line of the monthly payment sheet.
type SheetRow struct {
	Tenant  core.Tenant  `json:"tenant"`
	Payment core.Payment `json:"payment"`
	// Stored is false for a default view row that has not been persisted.
	Stored bool `json:"stored"`
}

// MonthOption is an entry of the month picker.
type MonthOption struct {
	Value core.MonthKey `json:"value"`
	Label string        `json:"label"`
}

// PaymentSheet lists the tenants who had joined by the first day of month,
// each with its payment for the month or an unpaid placeholder.
func PaymentSheet(snap core.Snapshot, month core.MonthKey) []SheetRow {
	stored := make(map[string]core.Payment)
	for _, p := range snap.Payments {
		if p.Month != month {
			continue
		}
		if _, seen := stored[p.TenantID]; !seen {
			stored[p.TenantID] = p
		}
	}
	rows := make([]SheetRow, 0, len(snap.Tenants))
	for _, t := range snap.Tenants {
		if !t.Joined(month) {
			continue
		}
		if p, ok := stored[t.ID]; ok {
			rows = append(rows, SheetRow{Tenant: t, Payment: p, Stored: true})
			continue
		}
		rows = append(rows, SheetRow{Tenant: t, Payment: core.Payment{
			ID:       t.ID + "-" + month.String(),
			TenantID: t.ID,
			Amount:   t.MonthlyFee,
			Month:    month,
			Status:   core.StatusUnpaid,
			DueDate:  t.JoinDate,
		}})
	}
	return rows
}

// MonthOptions returns n consecutive months starting at from.
func MonthOptions(from core.MonthKey, n int) []MonthOption {
	opts := make([]MonthOption, n)
	for i := range opts {
		m := from.AddMonths(i)
		opts[i] = MonthOption{Value: m, Label: m.Label("January 2006")}
	}
	return opts
}
