package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// MonthKey identifies a calendar month in canonical YYYY-MM form.
type MonthKey string

var ErrInvalidMonth = fmt.Errorf("%w: invalid month", ErrInvalid)

var legacyMonthLayouts = []string{"January 2006", "Jan 2006", "2006-01-02", time.RFC3339}

// ParseMonthKey normalises YYYY-MM, YYYY-MM-DD, RFC 3339 and long-form
// month names ("March 2024") to canonical form.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(monthLayout, s); err == nil {
		return MonthOf(t), nil
	}
	for _, layout := range legacyMonthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

// MustMonth panics on malformed input. Intended for literals and tests.
func MustMonth(s string) MonthKey {
	m, err := ParseMonthKey(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MonthOf returns the month t falls in.
func MonthOf(t time.Time) MonthKey {
	return MonthKey(t.Format(monthLayout))
}

func (m MonthKey) String() string { return string(m) }

// Validate accepts only the canonical form.
func (m MonthKey) Validate() error {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil || t.Format(monthLayout) != string(m) {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, string(m))
	}
	return nil
}

func (m MonthKey) time() time.Time {
	t, _ := time.Parse(monthLayout, string(m))
	return t
}

// FirstDay returns the first calendar day of the month.
func (m MonthKey) FirstDay() Date {
	return DateOf(m.time())
}

// Days returns every calendar day of the month in order.
func (m MonthKey) Days() []Date {
	start := m.time()
	n := start.AddDate(0, 1, -1).Day()
	days := make([]Date, n)
	for i := range days {
		days[i] = DateOf(start.AddDate(0, 0, i))
	}
	return days
}

// AddMonths shifts the key by n months, negative n moving backwards.
func (m MonthKey) AddMonths(n int) MonthKey {
	return MonthOf(m.time().AddDate(0, n, 0))
}

// Label formats the month with a time layout such as "Jan" or "January 2006".
func (m MonthKey) Label(layout string) string {
	return m.time().Format(layout)
}

// UnmarshalJSON normalises any accepted month form.
func (m *MonthKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMonth, b)
	}
	if s == "" {
		*m = ""
		return nil
	}
	parsed, err := ParseMonthKey(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
