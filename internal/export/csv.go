// Package export renders a month's payments as a downloadable CSV document.
package export

import (
	"bytes"
	"strings"

	"hostel/internal/core"
)

const (
	header        = "Tenant,Amount,Status,Due Date,Paid Date,Remarks"
	dateLayout    = "1/2/2006"
	unknownTenant = "Unknown"
	missing       = "-"
)

// Filename is the download name for month's export.
func Filename(month core.MonthKey) string {
	return "payments-" + month.String() + ".csv"
}

// PaymentsCSV writes one row per payment recorded for month. Every row field
// is double-quoted and rows are separated by "\n" without a trailing newline.
func PaymentsCSV(snap core.Snapshot, month core.MonthKey) []byte {
	names := make(map[string]string, len(snap.Tenants))
	for _, t := range snap.Tenants {
		if _, seen := names[t.ID]; !seen {
			names[t.ID] = t.Name
		}
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	for _, p := range snap.Payments {
		if p.Month != month {
			continue
		}
		name, ok := names[p.TenantID]
		if !ok {
			name = unknownTenant
		}
		buf.WriteByte('\n')
		writeRow(&buf,
			name,
			p.Amount.String(),
			string(p.Status),
			formatDate(p.DueDate),
			formatDate(p.PaidDate),
			orMissing(p.Remarks),
		)
	}
	return buf.Bytes()
}

func writeRow(buf *bytes.Buffer, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
}

func formatDate(d core.Date) string {
	if d.IsZero() {
		return missing
	}
	return d.Format(dateLayout)
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}
