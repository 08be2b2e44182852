package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/timesheet"
)

// timesheetRepository keeps entries in insertion order; nothing is ever updated or removed
type timesheetRepository struct {
	mu      sync.RWMutex
	entries []timesheet.Entry
}

func NewTimesheetRepository() timesheet.TimesheetRepository {
	return &timesheetRepository{}
}

func (r *timesheetRepository) Append(ctx context.Context, entry timesheet.Entry) (timesheet.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *timesheetRepository) AppendBatch(ctx context.Context, entries []timesheet.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, entry := range entries {
		entry.CreatedAt = now
		r.entries = append(r.entries, entry)
	}
	return nil
}

func (r *timesheetRepository) ListByWeek(ctx context.Context, weekEnding time.Time) ([]timesheet.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []timesheet.Entry
	for _, entry := range r.entries {
		if entry.WeekEnding.Equal(weekEnding) {
			result = append(result, entry)
		}
	}
	return result, nil
}
