package timesheet

import (
	"context"
	"time"
)

type TimesheetRepository interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	// AppendBatch stores all entries or none
	AppendBatch(ctx context.Context, entries []Entry) error
	// ListByWeek returns entries for the week in insertion order
	ListByWeek(ctx context.Context, weekEnding time.Time) ([]Entry, error)
}
