package timesheet

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Entry - One append-only line of hours worked in a pay week
type Entry struct {
	ID           string
	EmployeeID   string
	WeekEnding   time.Time
	HoursRegular decimal.Decimal
	HoursOT      decimal.Decimal
	ProjectCode  string
	CreatedAt    time.Time
}

// Hours - Weekly totals for one employee
type Hours struct {
	EmployeeID   string
	HoursRegular decimal.Decimal
	HoursOT      decimal.Decimal
	ProjectCodes []string // sorted, distinct
}

// SkippedEntry - Entry dropped from aggregation because its employee is not registered
type SkippedEntry struct {
	EntryID    string
	EmployeeID string
}

// Aggregation - Result of summing a week of timesheets
type Aggregation struct {
	WeekEnding time.Time
	Totals     map[string]Hours
	Skipped    []SkippedEntry
}

// EmployeeIDs returns the aggregated employee ids in sorted order
func (a Aggregation) EmployeeIDs() []string {
	ids := make([]string, 0, len(a.Totals))
	for id := range a.Totals {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
