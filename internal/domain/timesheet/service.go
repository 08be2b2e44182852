package timesheet

import (
	"context"
	"io"
	"time"
)

// TimesheetService defines the timesheet ledger and weekly aggregation
type TimesheetService interface {
	AppendEntry(ctx context.Context, req AppendEntryRequest) (EntryResponse, error)

	// ImportCSV appends every row of a CSV document, or none if any row is invalid
	ImportCSV(ctx context.Context, r io.Reader) (ImportResponse, error)

	ListEntries(ctx context.Context, req ListEntriesRequest) ([]EntryResponse, error)

	// Aggregate sums a week of entries per registered employee
	Aggregate(ctx context.Context, weekEnding time.Time) (Aggregation, error)
}
