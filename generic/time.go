package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day (bill, due, payment dates)
// =============================================================================

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC. The zero Date means "not set".
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD. Empty input yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

func Today() Date { return DateOf(time.Now()) }

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Properties
func (d Date) IsZero() bool       { return d.Time.IsZero() }
func (d Date) Year() int          { return d.Time.Year() }
func (d Date) Month() time.Month  { return d.Time.Month() }
func (d Date) Day() int           { return d.Time.Day() }
func (d Date) AddDays(n int) Date { return DateOf(d.Time.AddDate(0, 0, n)) }
func (d Date) MonthOf() Month     { return Month{Year: d.Year(), Month: d.Month()} }

// String renders YYYY-MM-DD, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// =============================================================================
// MONTH - Ledger period (MM-YYYY)
// =============================================================================

// Month identifies a calendar month. Petty-cash ledgers are scoped per
// office per Month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses the MM-YYYY form used by petty-cash records.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("01-2006", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (use MM-YYYY): %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string { return fmt.Sprintf("%02d-%04d", int(m.Month), m.Year) }
func (m Month) IsZero() bool   { return m.Year == 0 && m.Month == 0 }

// Index orders months chronologically (year*12 + month-1).
func (m Month) Index() int { return m.Year*12 + int(m.Month) - 1 }

func (m Month) Before(other Month) bool { return m.Index() < other.Index() }
func (m Month) After(other Month) bool  { return m.Index() > other.Index() }

func (m Month) Previous() Month { return m.add(-1) }
func (m Month) Next() Month     { return m.add(1) }

func (m Month) add(n int) Month {
	i := m.Index() + n
	return Month{Year: i / 12, Month: time.Month(i%12 + 1)}
}

func (m Month) Start() Date { return NewDate(m.Year, m.Month, 1) }
func (m Month) End() Date   { return m.Next().Start().AddDays(-1) }

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return !d.IsZero() && d.Year() == m.Year && d.Month() == m.Month
}
